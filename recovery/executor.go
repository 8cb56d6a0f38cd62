package recovery

import (
	"context"

	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// Observer is told about each reversion as it happens.
type Observer interface {
	RevertStarted(item PlanItem)
	RevertFinished(outcome ItemOutcome)
}

type nopObserver struct{}

func (nopObserver) RevertStarted(PlanItem)     {}
func (nopObserver) RevertFinished(ItemOutcome) {}

// Executor reverts LUNs one plan item at a time. A failed item never stops
// the items after it; nothing is retried or rolled back.
type Executor struct {
	api     API
	clock   clock.PassiveClock
	metrics *Metrics
}

// NewExecutor returns an executor for api. clk and metrics may be nil.
func NewExecutor(api API, clk clock.PassiveClock, metrics *Metrics) *Executor {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Executor{api: api, clock: clk, metrics: metrics}
}

// Execute runs plan in order. The error is non-nil only if ctx ends the run
// early; the report then lists the items that were never attempted.
func (e *Executor) Execute(ctx context.Context, plan *Plan, obs Observer) (*Report, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	report := &Report{}
	items := plan.Items()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			report.NotAttempted = append(report.NotAttempted, items[i:]...)
			return report, err
		}

		logger := log.WithFields(log.Fields{"lun": item.LUNName, "snapshot": item.Snapshot.UUID})
		obs.RevertStarted(item)

		start := e.clock.Now()
		err := e.api.RevertSnapshot(ctx, item.LUNUUID, item.Snapshot.UUID)
		outcome := ItemOutcome{Item: item, Err: err, Duration: e.clock.Since(start)}

		if err != nil {
			logger.WithError(err).Error("Revert failed.")
		} else {
			logger.WithField("duration", outcome.Duration).Info("Reverted LUN.")
		}
		e.metrics.observeRevert(outcome)

		report.Outcomes = append(report.Outcomes, outcome)
		obs.RevertFinished(outcome)
	}
	return report, nil
}
