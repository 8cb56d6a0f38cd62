package recovery

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// DisplayLimit is how many of the newest snapshots are offered per LUN.
const DisplayLimit = 7

// PlanItem pairs a LUN with the snapshot it will be reverted to.
type PlanItem struct {
	LUNName  string
	LUNUUID  string
	Snapshot Snapshot
}

// Plan is an ordered list of reversions. Items run in the order they were added.
type Plan struct {
	items []PlanItem
}

func (p *Plan) Add(item PlanItem) {
	p.items = append(p.items, item)
}

func (p *Plan) Items() []PlanItem {
	if p == nil {
		return nil
	}
	return p.items
}

func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// Selector chooses a snapshot for one LUN. It returns a 1-based index into
// candidates; 0 or any index outside candidates skips the LUN.
type Selector interface {
	SelectSnapshot(ctx context.Context, entry CatalogEntry, candidates []Snapshot) (int, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, entry CatalogEntry, candidates []Snapshot) (int, error)

func (f SelectorFunc) SelectSnapshot(ctx context.Context, entry CatalogEntry, candidates []Snapshot) (int, error) {
	return f(ctx, entry, candidates)
}

// LatestSelector picks the newest snapshot of every LUN without asking.
var LatestSelector = SelectorFunc(func(context.Context, CatalogEntry, []Snapshot) (int, error) {
	return 1, nil
})

// Candidates returns the snapshots offered for entry: the newest DisplayLimit.
func Candidates(entry CatalogEntry) []Snapshot {
	if len(entry.Snapshots) > DisplayLimit {
		return entry.Snapshots[:DisplayLimit]
	}
	return entry.Snapshots
}

// BuildPlan asks sel for one snapshot per catalog entry, in catalog order.
// An empty plan is not an error.
func BuildPlan(ctx context.Context, catalog *Catalog, sel Selector) (*Plan, error) {
	plan := &Plan{}
	for _, entry := range catalog.Entries() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates := Candidates(entry)
		if len(candidates) == 0 {
			continue
		}

		choice, err := sel.SelectSnapshot(ctx, entry, candidates)
		if err != nil {
			return nil, err
		}
		if choice < 1 || choice > len(candidates) {
			log.WithFields(log.Fields{"lun": entry.LUNName, "choice": choice}).Debug("Skipping LUN.")
			continue
		}

		plan.Add(PlanItem{
			LUNName:  entry.LUNName,
			LUNUUID:  entry.LUNUUID,
			Snapshot: candidates[choice-1],
		})
	}
	return plan, nil
}
