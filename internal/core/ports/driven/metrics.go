package driven

import "time"

// Answer outcomes reported to MetricsRecorder.CountAnswer.
const (
	OutcomeGenerated = "generated"
	OutcomeNoContext = "no_context"
	OutcomeGenError  = "generation_error"
	OutcomeRetrieval = "retrieval_error"
)

// MetricsRecorder receives operational measurements.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	// ObserveRetrieval records the duration of one retrieval.
	ObserveRetrieval(index string, d time.Duration)

	// ObserveGeneration records the duration of one generator call.
	ObserveGeneration(d time.Duration)

	// CountAnswer counts an answer by outcome.
	CountAnswer(outcome string)

	// CountMutation counts an index mutation (add, remove, rebuild) by status.
	CountMutation(index, op string, err error)

	// SetChunks reports the number of chunks held by an index.
	SetChunks(index string, n int)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) ObserveRetrieval(string, time.Duration) {}

func (NopMetrics) ObserveGeneration(time.Duration) {}

func (NopMetrics) CountAnswer(string) {}

func (NopMetrics) CountMutation(string, string, error) {}

func (NopMetrics) SetChunks(string, int) {}
