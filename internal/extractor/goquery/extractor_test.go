package goqueryextractor

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/paste-harvester/internal/crawler"
	"github.com/JakeFAU/paste-harvester/internal/model"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func collect(t *testing.T, e *Extractor, content string) ([]*model.Paste, error) {
	t.Helper()
	var out []*model.Paste
	for p, err := range e.Records(content) {
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

func TestPageIndices(t *testing.T) {
	t.Parallel()

	seq, err := New(Config{}).PageIndices(loadFixture(t, "listing.html"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, slices.Collect(seq))
}

func TestPageIndicesMissingControl(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}).PageIndices("<html><body><p>maintenance</p></body></html>")
	require.Error(t, err)
	var perr *crawler.ParseError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, crawler.ErrNoPagination)
}

func TestPageIndicesOnlyNonNumeric(t *testing.T) {
	t.Parallel()

	seq, err := New(Config{}).PageIndices(`<ul class="pagination"><li><a>Prev</a></li><li><a>Next</a></li></ul>`)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))
}

func TestRecords(t *testing.T) {
	t.Parallel()

	pastes, err := collect(t, New(Config{}), loadFixture(t, "listing.html"))
	require.NoError(t, err)
	require.Len(t, pastes, 2)

	first := pastes[0]
	assert.Equal(t, "  Leaked config dump ", first.Title)
	assert.Equal(t, "line oneline two", first.Content)
	assert.Equal(t, " anonymous", first.Author)
	assert.Equal(t, "09 Nov 2016, 13:29:11 UTC", first.Date)
	_, hasID := first.ID()
	assert.False(t, hasID)

	second := pastes[1]
	assert.Equal(t, "Meet at noon", second.Title)
	assert.Equal(t, " Kat at Home", second.Author)
	assert.Equal(t, "08 Nov 2016, 09:00:00 UTC", second.Date)
}

func TestRecordsStopsEarly(t *testing.T) {
	t.Parallel()

	count := 0
	for range New(Config{}).Records(loadFixture(t, "listing.html")) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestRecordsMalformedBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
	}{
		{
			name: "missing content",
			html: `<div class="col-sm-12"><div class="pre-header"><h4>t</h4></div>
				<div class="pre-footer"><div class="col-sm-6">Posted by a at 09 Nov 2016, 13:29:11 UTC</div></div></div>`,
		},
		{
			name: "missing footer",
			html: `<div class="col-sm-12"><div class="pre-header"><h4>t</h4></div><ol><li>x</li></ol></div>`,
		},
		{
			name: "footer without separator",
			html: `<div class="col-sm-12"><div class="pre-header"><h4>t</h4></div><ol><li>x</li></ol>
				<div class="pre-footer"><div class="col-sm-6">Posted by nobody</div></div></div>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pastes, err := collect(t, New(Config{}), tt.html)
			require.Error(t, err)
			assert.Empty(t, pastes)
			var perr *crawler.ParseError
			require.ErrorAs(t, err, &perr)
			assert.ErrorIs(t, err, crawler.ErrMalformedRecord)
		})
	}
}

func TestRecordsSkipsHeaderlessBlocks(t *testing.T) {
	t.Parallel()

	pastes, err := collect(t, New(Config{}), `<div class="col-sm-12"><p>ad</p><ol><li>spam</li></ol></div>`)
	require.NoError(t, err)
	assert.Empty(t, pastes)
}

func TestCustomSeparator(t *testing.T) {
	t.Parallel()

	e := New(Config{FooterSeparator: " | ", FooterPrefix: "By"})
	html := `<div class="col-sm-12"><div class="pre-header"><h4>t</h4></div><ol><li>x</li></ol>
		<div class="pre-footer"><div class="col-sm-6">By carol | 2016-11-09</div></div></div>`
	pastes, err := collect(t, e, html)
	require.NoError(t, err)
	require.Len(t, pastes, 1)
	assert.Equal(t, " carol", pastes[0].Author)
	assert.Equal(t, "2016-11-09", pastes[0].Date)
}
