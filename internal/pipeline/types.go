package pipeline

import (
	"time"

	"github.com/MoodyStars/FreePoop/internal/compose"
	"github.com/MoodyStars/FreePoop/internal/effects"
	"github.com/MoodyStars/FreePoop/internal/media"
	"github.com/MoodyStars/FreePoop/internal/progress"
)

// Status is how a render ended. Cancellation is a status, not an
// error: a cancelled render still returns its partial log.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
	StatusFailure        Status = "failure"
	StatusCancelled      Status = "cancelled"
)

// LogEntry is one line of the render log.
type LogEntry struct {
	Time    time.Time
	Stage   string
	// Step is the 1-based plan ordinal, 0 for entries that are not
	// tied to one step.
	Step     int
	Message  string
	Degraded bool
	Err      string
}

// Request describes one render invocation.
type Request struct {
	Snapshot *media.Snapshot
	// Effects narrows the effect library; empty enables all of it.
	Effects    effects.Set
	Mode       compose.Mode
	StyleYear  int
	Seed       int64
	OutputPath string
	// Progress receives stage events; nil discards them.
	Progress progress.Reporter
}

// Result is returned however the render ends.
type Result struct {
	OutputPath     string
	Status         Status
	Log            []LogEntry
	StepsCompleted int
	StepsTotal     int
	// Seed is the one actually used, recorded so a run can be replayed.
	Seed     int64
	Strategy string
	Elapsed  time.Duration
}

// Degradations counts the log's degraded-step entries.
func (r *Result) Degradations() int {
	n := 0
	for _, e := range r.Log {
		if e.Degraded {
			n++
		}
	}
	return n
}
