package app_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/app"
	"github.com/JakeFAU/paste-harvester/internal/config"
	"github.com/JakeFAU/paste-harvester/internal/crawler"
)

const (
	mainURL    = "http://paste.test/all"
	pagePrefix = "http://paste.test/all?page="
)

func listing(pagination string, pastes ...[3]string) string {
	body := `<html><body><div class="row">`
	for _, p := range pastes {
		body += fmt.Sprintf(`<div class="col-sm-12">
  <div class="pre-header"><h4>%s</h4></div>
  <ol><li>%s body</li></ol>
  <div class="pre-footer"><div class="col-sm-6">Posted by %s at %s</div></div>
</div>`, p[0], p[0], p[1], p[2])
	}
	return body + `</div>` + pagination + `</body></html>`
}

type pageFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	fails map[string]int
}

func (f *pageFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[url] > 0 {
		f.fails[url]--
		return "", errors.New("circuit collapsed")
	}
	body, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page %s", url)
	}
	return body, nil
}

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	v := viper.New()
	v.Set("database.filepath", filepath.Join(t.TempDir(), "harvest.db"))
	v.Set("website.main_url", mainURL)
	v.Set("website.page_url_prefix", pagePrefix)
	v.Set("http.max_retries", 2)
	cfg, err := config.LoadWith(v, "")
	require.NoError(t, err)
	return cfg
}

func TestAppRunsCycleEndToEnd(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{
		pages: map[string]string{
			mainURL: listing(`<ul class="pagination"><li><a>2</a></li><li><a>Next</a></li></ul>`,
				[3]string{"newest", " anonymous ", "10 Nov 2016, 08:00:00 UTC"},
				[3]string{"middle", "Kat", "09 Nov 2016, 13:29:11 UTC"},
			),
			pagePrefix + "2": listing("", [3]string{"oldest", "anon", "01 Nov 2016, 00:00:00 UTC"}),
		},
		fails: map[string]int{pagePrefix + "2": 2},
	}

	a, err := app.New(testConfig(t),
		app.WithLogger(zap.NewNop()),
		app.WithFetcher(fetcher),
		app.WithSleeper(noSleep{}),
	)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.EnsureSchema(ctx))
	require.NoError(t, a.EnsureSchema(ctx))

	report, err := a.Scheduler().RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, crawler.StopRangeExhausted, report.StopReason)
	assert.Equal(t, 2, report.PagesVisited)
	assert.Equal(t, 3, report.RecordsStored)
	assert.NotEmpty(t, report.RunID)

	latest, err := a.Pastes().MostRecent(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "newest", latest.Title)
	assert.Equal(t, "Unknown", latest.Author)
	assert.Equal(t, "2016-11-10 08:00:00", latest.Date)

	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.StoredRecords)
	assert.Equal(t, 1, st.Cycles)
	require.NotNil(t, st.LastCycle)
	assert.Equal(t, report.RunID, st.LastCycle.RunID)
}

func TestAppCycleFailsWithoutSchema(t *testing.T) {
	t.Parallel()

	a, err := app.New(testConfig(t), app.WithLogger(zap.NewNop()), app.WithFetcher(&pageFetcher{}))
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Controller().RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, crawler.StopPersistenceError, report.StopReason)
}

func TestNewRejectsBadIDField(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Database.IDField = "title"
	_, err := app.New(cfg, app.WithLogger(zap.NewNop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paste table")
}

func TestNewBuildsDefaultServices(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Logging.Level = "warn"
	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.Controller())
	assert.Equal(t, cfg.Database.Filepath, a.Database().Path())
	assert.Equal(t, "tbl_pastes", a.Pastes().Name())
	assert.Equal(t, cfg, a.Config())
	require.NoError(t, a.Database().Ping(context.Background()))
}

func TestNewRejectsBadLogLevel(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Logging.Level = "loud"
	_, err := app.New(cfg)
	require.Error(t, err)
}
