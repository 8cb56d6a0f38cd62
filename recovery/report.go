package recovery

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// ItemOutcome is the result of one attempted reversion.
type ItemOutcome struct {
	Item     PlanItem
	Err      error
	Duration time.Duration
}

func (o ItemOutcome) Succeeded() bool {
	return o.Err == nil
}

// Report collects the outcome of every plan item in execution order.
// NotAttempted lists items left when the run was interrupted.
type Report struct {
	Outcomes     []ItemOutcome
	NotAttempted []PlanItem
}

func (r *Report) Succeeded() []ItemOutcome {
	return r.filter(true)
}

func (r *Report) Failed() []ItemOutcome {
	return r.filter(false)
}

func (r *Report) filter(ok bool) []ItemOutcome {
	var out []ItemOutcome
	for _, o := range r.Outcomes {
		if o.Succeeded() == ok {
			out = append(out, o)
		}
	}
	return out
}

// Err combines the failures, or returns nil if every attempted item succeeded.
func (r *Report) Err() error {
	var errs error
	for _, o := range r.Failed() {
		errs = multierr.Append(errs, fmt.Errorf("revert %s to %s: %w", o.Item.LUNName, o.Item.Snapshot.UUID, o.Err))
	}
	return errs
}
