package crawler

import (
	"github.com/ncruces/go-strftime"

	"github.com/JakeFAU/paste-harvester/internal/model"
)

// Freshness decides whether a normalized paste is newer than the watermark.
type Freshness struct {
	// DateFormat is the strftime format dates are stored in.
	DateFormat string
}

// IsNew reports whether p should be kept. A paste is not new when it equals
// the watermark or when its date is strictly earlier; either alone suffices.
// A nil watermark accepts everything.
func (f Freshness) IsNew(p, watermark *model.Paste) bool {
	if watermark == nil {
		return true
	}
	if p.Equal(watermark) {
		return false
	}
	return !f.before(p.Date, watermark.Date)
}

func (f Freshness) before(a, b string) bool {
	if f.DateFormat != "" {
		ta, errA := strftime.Parse(f.DateFormat, a)
		tb, errB := strftime.Parse(f.DateFormat, b)
		if errA == nil && errB == nil {
			return ta.Before(tb)
		}
	}
	return a < b
}
