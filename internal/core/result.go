package core

import "time"

// rowOutcome is what happened to one persisted row.
type rowOutcome struct {
	inserted bool
	pending  bool
	leader   *Leader
}

// Aggregator accumulates per-row outcomes into an ImportResult.
type Aggregator struct {
	res   ImportResult
	start time.Time
}

// NewAggregator starts timing a batch of total rows.
func NewAggregator(entity EntityType, total int, start time.Time) *Aggregator {
	return &Aggregator{
		res: ImportResult{
			Entity:    entity,
			TotalRows: total,
			Errors:    []ImportError{},
			Warnings:  []ImportError{},
		},
		start: start,
	}
}

// Record files each finding under errors or warnings.
func (a *Aggregator) Record(issues ...ImportError) {
	for _, e := range issues {
		if e.IsWarning() {
			a.res.Warnings = append(a.res.Warnings, e)
		} else {
			a.res.Errors = append(a.res.Errors, e)
		}
	}
}

// Fail counts a row that was kept out of the batch.
func (a *Aggregator) Fail(issues ...ImportError) {
	a.Record(issues...)
	a.res.ErrorCount++
}

func (a *Aggregator) succeed(o rowOutcome) {
	a.res.SuccessCount++
	if o.inserted {
		a.res.Inserted++
	} else {
		a.res.Updated++
	}
	if o.pending {
		a.res.Pending++
	}
}

// Finish stamps the duration and success flag.
func (a *Aggregator) Finish(now time.Time) *ImportResult {
	res := a.res
	res.ExecutionTimeMs = now.Sub(a.start).Milliseconds()
	res.Success = res.ErrorCount == 0
	return &res
}
