// Package staleness classifies pipeline records by time since last activity.
//
// A classification is a pure function of (now, lastActivityAt) against an
// ordered list of day bands. Two presets exist because pipeline cards and
// deal-health badges carry different thresholds; both are preserved as
// distinct named policies rather than merged.
package staleness

import "time"

// Status is an urgency classification for a pipeline record.
type Status string

const (
	StatusFresh    Status = "FRESH"
	StatusStagnant Status = "STAGNANT"
	StatusHealthy  Status = "HEALTHY"
	StatusStale    Status = "STALE"
	StatusRotting  Status = "ROTTING"
)

// Band maps an inclusive upper bound of elapsed days to a status.
type Band struct {
	MaxDays int
	Status  Status
	Color   string
}

// Policy is an ordered list of bands plus a terminal status for records
// older than the last band. Bands must be sorted by MaxDays ascending.
type Policy struct {
	Name          string
	Bands         []Band
	Overflow      Status
	OverflowColor string
}

// Result is the derived classification for one record. It is never persisted.
type Result struct {
	Status            Status `json:"status"`
	DaysSinceActivity int    `json:"days_since_activity"`
	Color             string `json:"color"`
}

// Preset names accepted by ByName and the configuration file.
const (
	PresetPipelineCard = "pipeline-card"
	PresetDealHealth   = "deal-health"
)

// PipelineCard returns the pipeline-card policy:
// under 3 days FRESH, 3 to 6 days STAGNANT, 7 days and older ROTTING.
func PipelineCard() Policy {
	return Policy{
		Name: PresetPipelineCard,
		Bands: []Band{
			{MaxDays: 2, Status: StatusFresh, Color: "green"},
			{MaxDays: 6, Status: StatusStagnant, Color: "yellow"},
		},
		Overflow:      StatusRotting,
		OverflowColor: "red",
	}
}

// DealHealth returns the deal-health policy:
// up to 7 days HEALTHY, 8 to 14 days STALE, over 14 days ROTTING.
func DealHealth() Policy {
	return Policy{
		Name: PresetDealHealth,
		Bands: []Band{
			{MaxDays: 7, Status: StatusHealthy, Color: "green"},
			{MaxDays: 14, Status: StatusStale, Color: "yellow"},
		},
		Overflow:      StatusRotting,
		OverflowColor: "red",
	}
}

// ByName returns a preset policy by configuration name.
func ByName(name string) (Policy, bool) {
	switch name {
	case PresetPipelineCard:
		return PipelineCard(), true
	case PresetDealHealth:
		return DealHealth(), true
	}
	return Policy{}, false
}

// Classify maps the elapsed time since lastActivityAt to a Result.
// Elapsed days are the floor of the difference; a future timestamp clamps
// to zero days. The call is side-effect free and safe for concurrent use.
func (p Policy) Classify(lastActivityAt, now time.Time) Result {
	days := int(now.Sub(lastActivityAt) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}

	for _, band := range p.Bands {
		if days <= band.MaxDays {
			return Result{Status: band.Status, DaysSinceActivity: days, Color: band.Color}
		}
	}
	return Result{Status: p.Overflow, DaysSinceActivity: days, Color: p.OverflowColor}
}

// Classify classifies lastActivityAt against the current wall clock.
func Classify(p Policy, lastActivityAt time.Time) Result {
	return p.Classify(lastActivityAt, time.Now())
}
