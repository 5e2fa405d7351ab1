package metrics

import "time"

// Outcome labels a finished refresh or apply.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeFailure    Outcome = "failure"
	OutcomeIncomplete Outcome = "incomplete"
)

// Recorder receives pipeline observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveFetchDuration(d time.Duration)
	IncRefresh(outcome Outcome)
	IncApply(outcome Outcome)
	IncStoreSaveFailure()
	SetLastRefresh(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetchDuration(time.Duration) {}
func (NoopRecorder) IncRefresh(Outcome)                 {}
func (NoopRecorder) IncApply(Outcome)                   {}
func (NoopRecorder) IncStoreSaveFailure()               {}
func (NoopRecorder) SetLastRefresh(time.Time)           {}
