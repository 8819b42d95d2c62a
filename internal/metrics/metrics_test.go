package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if fetchAttemptsTotal == nil || pagesTotal == nil || recordsStoredTotal == nil ||
		cyclesTotal == nil || cycleDurationSeconds == nil || httpRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveHelpers(t *testing.T) {
	Init()

	beforeOK := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(OutcomeSuccess))
	ObserveFetchAttempt(OutcomeSuccess)
	if got := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(OutcomeSuccess)); got != beforeOK+1 {
		t.Errorf("expected fetch attempts %f, got %f", beforeOK+1, got)
	}

	beforeStored := testutil.ToFloat64(recordsStoredTotal)
	ObserveRecordsStored(3)
	ObserveRecordsStored(0)
	if got := testutil.ToFloat64(recordsStoredTotal); got != beforeStored+3 {
		t.Errorf("expected stored %f, got %f", beforeStored+3, got)
	}

	beforePages := testutil.ToFloat64(pagesTotal.WithLabelValues(PageStatusParseError))
	ObservePage(PageStatusParseError)
	if got := testutil.ToFloat64(pagesTotal.WithLabelValues(PageStatusParseError)); got != beforePages+1 {
		t.Errorf("expected pages %f, got %f", beforePages+1, got)
	}

	beforeCycles := testutil.ToFloat64(cyclesTotal.WithLabelValues(CycleResultOK))
	ObserveCycle(CycleResultOK, 2*time.Second)
	if got := testutil.ToFloat64(cyclesTotal.WithLabelValues(CycleResultOK)); got != beforeCycles+1 {
		t.Errorf("expected cycles %f, got %f", beforeCycles+1, got)
	}
	if val := testutil.CollectAndCount(cycleDurationSeconds); val <= 0 {
		t.Errorf("expected cycle duration to be observed, got %d", val)
	}
	if testutil.ToFloat64(lastCycleTimestamp) <= 0 {
		t.Error("expected last cycle timestamp to be set")
	}
}
