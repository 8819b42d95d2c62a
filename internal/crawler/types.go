package crawler

import "time"

// State is a step of the crawl cycle state machine.
type State string

// Cycle states, visited in order.
const (
	StateStart         State = "start"
	StateDiscoverRange State = "discover_range"
	StateWalkPages     State = "walk_pages"
	StateStopped       State = "stopped"
)

// StopReason records why a cycle reached StateStopped.
type StopReason string

// Stop reasons reported in CycleReport.
const (
	StopWatermarkReached StopReason = "watermark_reached"
	StopNothingNew       StopReason = "nothing_new"
	StopRangeExhausted   StopReason = "range_exhausted"
	StopNetworkError     StopReason = "network_error"
	StopParseError       StopReason = "parse_error"
	StopPersistenceError StopReason = "persistence_error"
	StopCanceled         StopReason = "canceled"
)

// Page is one listing page scheduled for a walk.
type Page struct {
	URL    string
	Number int
}

// CycleReport summarizes one crawl cycle.
type CycleReport struct {
	RunID         string     `json:"run_id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	Watermark     string     `json:"watermark,omitempty"`
	PagesPlanned  int        `json:"pages_planned"`
	PagesVisited  int        `json:"pages_visited"`
	PagesFailed   int        `json:"pages_failed"`
	RecordsStored int        `json:"records_stored"`
	LastPage      int        `json:"last_page"`
	State         State      `json:"state"`
	StopReason    StopReason `json:"stop_reason"`
	Error         string     `json:"error,omitempty"`
}
