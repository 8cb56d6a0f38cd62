package recovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	synology "github.com/scaleoutsean/synology-go"
)

// Snapshot is a normalized LUN snapshot.
type Snapshot struct {
	UUID        string
	LUNUUID     string
	Name        string
	Description string

	// Created is the zero time when the appliance reported no creation time;
	// check HasTimestamp rather than comparing against the epoch.
	Created        time.Time
	TimestampField string

	LockedAppKeys []string
	WormLocked    bool
}

func (s Snapshot) HasTimestamp() bool {
	return s.TimestampField != ""
}

// Locked reports whether an application or WORM retention holds the snapshot.
func (s Snapshot) Locked() bool {
	return s.WormLocked || len(s.LockedAppKeys) > 0
}

func newSnapshot(lunUUID string, r synology.SnapshotRecord) Snapshot {
	created, field, _ := creationTime(r)
	return Snapshot{
		UUID:           r.ID(),
		LUNUUID:        lunUUID,
		Name:           r.Name,
		Description:    r.Description,
		Created:        created,
		TimestampField: field,
		LockedAppKeys:  r.LockedAppKeys,
		WormLocked:     r.IsWormLocked,
	}
}

// sortNewestFirst orders snapshots by creation time, newest first, keeping the
// API order for equal times. Snapshots without a time go last.
func sortNewestFirst(snaps []Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		a, b := snaps[i], snaps[j]
		if a.HasTimestamp() != b.HasTimestamp() {
			return a.HasTimestamp()
		}
		return a.Created.After(b.Created)
	})
}

// CatalogEntry holds the ordered snapshots of one LUN.
type CatalogEntry struct {
	LUNName   string
	LUNUUID   string
	Location  string
	Size      uint64
	Snapshots []Snapshot
}

// Catalog maps LUN names to their snapshots, iterating in LUN order.
type Catalog struct {
	entries []CatalogEntry
	index   map[string]int
}

func NewCatalog() *Catalog {
	return &Catalog{index: map[string]int{}}
}

// Add stores e. An entry with the same LUN name is replaced in place.
func (c *Catalog) Add(e CatalogEntry) {
	if i, ok := c.index[e.LUNName]; ok {
		log.WithFields(log.Fields{
			"lun":      e.LUNName,
			"replaced": c.entries[i].LUNUUID,
			"uuid":     e.LUNUUID,
		}).Warn("Duplicate LUN name; only the last LUN with this name is kept.")
		c.entries[i] = e
		return
	}
	c.index[e.LUNName] = len(c.entries)
	c.entries = append(c.entries, e)
}

func (c *Catalog) Entries() []CatalogEntry {
	return c.entries
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

func (c *Catalog) Lookup(lunName string) (CatalogEntry, bool) {
	i, ok := c.index[lunName]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// LUNFailure records a LUN whose snapshots could not be read.
type LUNFailure struct {
	LUN synology.LUN
	Err error
}

func (f LUNFailure) Error() string {
	return fmt.Sprintf("could not get snapshots for %s: %v", f.LUN.Name, f.Err)
}

// SnapshotCatalog reads and normalizes LUN snapshots.
type SnapshotCatalog struct {
	api API
}

func NewSnapshotCatalog(api API) *SnapshotCatalog {
	return &SnapshotCatalog{api: api}
}

// SnapshotsForLUN returns the snapshots of lunUUID, newest first.
func (c *SnapshotCatalog) SnapshotsForLUN(ctx context.Context, lunUUID string) ([]Snapshot, error) {
	records, err := c.api.ListSnapshots(ctx, lunUUID)
	if err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(records))
	for _, r := range records {
		snaps = append(snaps, newSnapshot(lunUUID, r))
	}
	sortNewestFirst(snaps)
	return snaps, nil
}

// MostRecent returns the newest snapshot of lunUUID, or nil if it has none.
func (c *SnapshotCatalog) MostRecent(ctx context.Context, lunUUID string) (*Snapshot, error) {
	snaps, err := c.SnapshotsForLUN(ctx, lunUUID)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

// AllSnapshots builds the catalog for luns. A LUN whose snapshots cannot be
// read is logged, reported in the failures and left out; so is a LUN with no
// snapshots. The returned error is only ever the context's.
func (c *SnapshotCatalog) AllSnapshots(ctx context.Context, luns []synology.LUN) (*Catalog, []LUNFailure, error) {
	catalog := NewCatalog()
	var failures []LUNFailure

	for _, lun := range luns {
		if err := ctx.Err(); err != nil {
			return catalog, failures, err
		}

		snaps, err := c.SnapshotsForLUN(ctx, lun.UUID)
		if err != nil {
			if ctx.Err() != nil {
				return catalog, failures, ctx.Err()
			}
			log.WithFields(log.Fields{"lun": lun.Name, "uuid": lun.UUID}).WithError(err).Warn("Could not get snapshots; skipping LUN.")
			failures = append(failures, LUNFailure{LUN: lun, Err: err})
			continue
		}
		if len(snaps) == 0 {
			log.WithField("lun", lun.Name).Debug("LUN has no snapshots.")
			continue
		}

		catalog.Add(CatalogEntry{
			LUNName:   lun.Name,
			LUNUUID:   lun.UUID,
			Location:  lun.Location,
			Size:      lun.Size,
			Snapshots: snaps,
		})
	}
	return catalog, failures, nil
}
