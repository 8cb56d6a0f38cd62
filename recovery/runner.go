package recovery

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	synology "github.com/scaleoutsean/synology-go"
)

// Mode selects how far a run may go.
type Mode int

const (
	// ModeLive reverts after confirmation, and only with no active sessions.
	ModeLive Mode = iota
	// ModeDryRun selects and prints a plan but never reverts.
	ModeDryRun
	// ModeList enumerates everything and selects nothing.
	ModeList
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeDryRun:
		return "dry-run"
	case ModeList:
		return "list"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Outcome is the state a run ended in.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeSafetyFailed
	OutcomeNothingToDo
	OutcomeListed
	OutcomeEmptyPlan
	OutcomeDryRun
	OutcomeDeclined
)

var outcomeNames = map[Outcome]string{
	OutcomeCompleted:    "completed",
	OutcomeSafetyFailed: "safety_failed",
	OutcomeNothingToDo:  "nothing_to_do",
	OutcomeListed:       "listed",
	OutcomeEmptyPlan:    "empty_plan",
	OutcomeDryRun:       "dry_run",
	OutcomeDeclined:     "declined",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ExitCode maps the outcome to the process exit status. Only a failed safety
// check is an unsuccessful end; a completed run with failed items still exits 0.
func (o Outcome) ExitCode() int {
	if o == OutcomeSafetyFailed {
		return 1
	}
	return 0
}

// Presenter renders the run to the operator and asks the interactive
// questions.
type Presenter interface {
	Selector
	Observer

	Step(msg string)
	Warn(msg string)

	ShowTargets(targets []synology.Target)
	ShowLUNs(luns []synology.LUN)
	ShowSessions(sessions []ActiveSession)
	ShowSnapshots(entry CatalogEntry)
	ShowPlan(plan *Plan)
	ShowDryRun(plan *Plan)
	ShowReport(report *Report)

	Confirm(ctx context.Context, question string) (bool, error)
}

// Options configure a Runner.
type Options struct {
	Mode Mode
	// LUNs restricts the run to these LUN names; empty means all.
	LUNs []string
	// Selector replaces the presenter's interactive selection when set.
	Selector Selector
	// AssumeYes skips the final confirmation in live mode.
	AssumeYes bool
}

// Result describes a finished run.
type Result struct {
	Outcome         Outcome
	Sessions        []ActiveSession
	Catalog         *Catalog
	CatalogFailures []LUNFailure
	Plan            *Plan
	Report          *Report
}

// Runner drives one run: discover, gate, catalog, select, execute.
type Runner struct {
	API       API
	Presenter Presenter
	Options   Options

	Clock   clock.PassiveClock
	Metrics *Metrics
}

// Run executes the workflow. Discovery errors are returned as-is and stop the
// run before anything is changed.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res, err := r.run(ctx)
	if err == nil {
		r.Metrics.observeOutcome(res.Outcome, float64(r.clock().Now().Unix()))
	}
	return res, err
}

func (r *Runner) clock() clock.PassiveClock {
	if r.Clock == nil {
		return clock.RealClock{}
	}
	return r.Clock
}

func (r *Runner) run(ctx context.Context) (*Result, error) {
	p := r.Presenter
	opts := r.Options
	inventory := NewInventory(r.API)
	res := &Result{}

	p.Step("Retrieving iSCSI targets...")
	targets, err := inventory.ListTargets(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("could not list iSCSI targets: %w", err)
	}
	p.ShowTargets(targets)

	p.Step("Retrieving iSCSI LUNs...")
	luns, err := inventory.ListLUNs(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list iSCSI LUNs: %w", err)
	}
	p.ShowLUNs(luns)

	p.Step("Checking for active connections...")
	hasConnections, sessions, err := inventory.CheckActiveConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not check active connections: %w", err)
	}
	res.Sessions = sessions
	r.Metrics.observeSessions(len(sessions))
	p.ShowSessions(sessions)

	if hasConnections {
		if opts.Mode == ModeLive {
			log.WithField("sessions", len(sessions)).Error("Safety check failed: active iSCSI connections.")
			p.Warn("SAFETY CHECK FAILED: all iSCSI connections must be disconnected before reverting snapshots. Please disconnect all clients and try again.")
			res.Outcome = OutcomeSafetyFailed
			return res, nil
		}
		p.Warn(fmt.Sprintf("Active connections detected, but proceeding in %s mode.", opts.Mode))
	}

	luns = RevertibleLUNs(luns)
	luns, missing := FilterLUNs(luns, opts.LUNs)
	if len(missing) > 0 {
		p.Warn("No LUN named " + strings.Join(missing, ", "))
	}
	r.Metrics.observeLUNs(len(luns))
	if len(luns) == 0 {
		p.Warn("No LUNs found to process.")
		res.Outcome = OutcomeNothingToDo
		return res, nil
	}

	p.Step(fmt.Sprintf("Found %d LUN(s) to process", len(luns)))
	catalog, failures, err := NewSnapshotCatalog(r.API).AllSnapshots(ctx, luns)
	res.Catalog = catalog
	res.CatalogFailures = failures
	for _, f := range failures {
		p.Warn(f.Error())
	}
	if err != nil {
		return res, err
	}
	r.Metrics.observeCatalog(catalog, failures)
	if catalog.Len() == 0 {
		p.Warn("No snapshots found for any LUNs.")
		res.Outcome = OutcomeNothingToDo
		return res, nil
	}

	if opts.Mode == ModeList {
		p.Step("Listing mode - no changes will be made")
		for _, e := range catalog.Entries() {
			p.ShowSnapshots(e)
		}
		res.Outcome = OutcomeListed
		return res, nil
	}

	if opts.Mode == ModeDryRun {
		p.Step("DRY RUN MODE - No changes will be made")
	}
	sel := opts.Selector
	if sel == nil {
		sel = p
	}
	plan, err := BuildPlan(ctx, catalog, sel)
	if err != nil {
		return res, err
	}
	res.Plan = plan
	if plan.Len() == 0 {
		p.Warn("No snapshots selected for reversion.")
		res.Outcome = OutcomeEmptyPlan
		return res, nil
	}
	p.ShowPlan(plan)

	if opts.Mode == ModeDryRun {
		p.ShowDryRun(plan)
		res.Outcome = OutcomeDryRun
		return res, nil
	}

	p.Warn("This will revert the selected LUNs to the chosen snapshots. All data written after the snapshot was created will be LOST.")
	if !opts.AssumeYes {
		ok, err := p.Confirm(ctx, "Do you want to proceed with the reversion?")
		if err != nil {
			return res, err
		}
		if !ok {
			p.Warn("Reversion cancelled by user.")
			res.Outcome = OutcomeDeclined
			return res, nil
		}
	}

	p.Step("Starting reversion process...")
	report, err := NewExecutor(r.API, r.clock(), r.Metrics).Execute(ctx, plan, p)
	res.Report = report
	if err != nil {
		return res, err
	}
	p.ShowReport(report)
	res.Outcome = OutcomeCompleted
	return res, nil
}
