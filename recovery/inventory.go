package recovery

import (
	"context"

	log "github.com/sirupsen/logrus"

	synology "github.com/scaleoutsean/synology-go"
)

const unknownName = "Unknown"

// ActiveSession is a client connection to one of the appliance's targets.
type ActiveSession struct {
	TargetID      int
	TargetName    string
	Initiator     string
	RemoteAddress string
}

// Inventory lists what the appliance exposes and decides whether it is safe
// to revert.
type Inventory struct {
	api API
}

func NewInventory(api API) *Inventory {
	return &Inventory{api: api}
}

func (i *Inventory) ListTargets(ctx context.Context, includeConnections bool) ([]synology.Target, error) {
	return i.api.ListTargets(ctx, includeConnections)
}

func (i *Inventory) ListLUNs(ctx context.Context) ([]synology.LUN, error) {
	return i.api.ListLUNs(ctx)
}

// CheckActiveConnections re-reads the targets with their connected sessions
// and flattens them. An error means the answer is unknown and must be treated
// as unsafe.
func (i *Inventory) CheckActiveConnections(ctx context.Context) (bool, []ActiveSession, error) {
	targets, err := i.api.ListTargets(ctx, true)
	if err != nil {
		return false, nil, err
	}

	sessions := make([]ActiveSession, 0)
	for _, t := range targets {
		name := t.Name
		if name == "" {
			name = unknownName
		}
		for _, cs := range t.ConnectedSessions {
			sessions = append(sessions, ActiveSession{
				TargetID:      t.TargetID,
				TargetName:    name,
				Initiator:     cs.Initiator,
				RemoteAddress: cs.IP,
			})
		}
	}
	return len(sessions) > 0, sessions, nil
}

// RevertibleLUNs drops LUNs that carry no UUID, since restore_snapshot cannot
// address them, and names unnamed ones.
func RevertibleLUNs(luns []synology.LUN) []synology.LUN {
	out := make([]synology.LUN, 0, len(luns))
	for _, l := range luns {
		if l.UUID == "" {
			log.WithField("lun", l.Name).Debug("Skipping LUN without UUID.")
			continue
		}
		if l.Name == "" {
			l.Name = unknownName
		}
		out = append(out, l)
	}
	return out
}

// FilterLUNs keeps the LUNs named in names, in their original order. An empty
// names keeps everything. Names that match nothing are returned separately.
func FilterLUNs(luns []synology.LUN, names []string) ([]synology.LUN, []string) {
	if len(names) == 0 {
		return luns, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = false
	}
	var out []synology.LUN
	for _, l := range luns {
		if _, ok := wanted[l.Name]; ok {
			wanted[l.Name] = true
			out = append(out, l)
		}
	}
	var missing []string
	for _, n := range names {
		if !wanted[n] {
			missing = append(missing, n)
			wanted[n] = true
		}
	}
	return out, missing
}
