package lint

import "sync"

// Aggregator accumulates per-file findings into a Report in arrival order.
// Add and Finalize are safe for concurrent use; appends are serialized.
type Aggregator struct {
	mu        sync.Mutex
	report    Report
	finalized bool
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{report: Report{}}
}

// Add records the findings for one file. Empty finding lists contribute
// nothing to the report.
func (a *Aggregator) Add(filePath string, findings []Finding) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrReportFinalized
	}
	if len(findings) == 0 {
		return nil
	}
	a.report = append(a.report, FileReport{
		FilePath:     filePath,
		ErrorCount:   len(findings),
		WarningCount: 0,
		Messages:     findings,
	})
	return nil
}

// Finalize closes the aggregator and returns the report. Later calls return
// the same report.
func (a *Aggregator) Finalize() Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finalized = true
	return a.report
}
