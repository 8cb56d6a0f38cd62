// Package fake is an in-memory DSM appliance for tests. Its sessions behave
// like *synology.Session: calls fail with synology.ErrNotLoggedIn after Logout.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brunoga/deep"
	"github.com/google/uuid"

	synology "github.com/scaleoutsean/synology-go"
)

// Revert records one restore_snapshot call.
type Revert struct {
	LUNUUID      string
	SnapshotUUID string
}

// NAS holds the appliance state. Fields may be set directly before use.
type NAS struct {
	mu sync.Mutex

	Username string
	Password string

	targets   []synology.Target
	luns      []synology.LUN
	snapshots map[string][]synology.SnapshotRecord

	// Injected failures. SnapshotErrors and RevertErrors are keyed by LUN UUID.
	LoginErr       error
	ListTargetsErr error
	ListLUNsErr    error
	SnapshotErrors map[string]error
	RevertErrors   map[string]error

	calls   []string
	reverts []Revert
	logouts int
}

func New() *NAS {
	return &NAS{
		Username:       "admin",
		Password:       "secret",
		snapshots:      map[string][]synology.SnapshotRecord{},
		SnapshotErrors: map[string]error{},
		RevertErrors:   map[string]error{},
	}
}

// AddTarget adds a target with the given connected sessions.
func (n *NAS) AddTarget(name string, sessions ...synology.ConnectedSession) synology.Target {
	n.mu.Lock()
	defer n.mu.Unlock()
	t := synology.Target{
		TargetID:          len(n.targets) + 1,
		Name:              name,
		IQN:               "iqn.2000-01.com.synology:fake." + name,
		ConnectedSessions: sessions,
	}
	n.targets = append(n.targets, t)
	return t
}

// AddLUN adds a LUN with a fresh UUID.
func (n *NAS) AddLUN(name string, size uint64) synology.LUN {
	n.mu.Lock()
	defer n.mu.Unlock()
	l := synology.LUN{
		UUID:     uuid.NewString(),
		Name:     name,
		Location: "/volume1/" + name,
		Size:     size,
	}
	n.luns = append(n.luns, l)
	return l
}

// AddSnapshot appends a snapshot taken at created to the LUN. A zero created
// leaves every timestamp field empty.
func (n *NAS) AddSnapshot(lunUUID string, created time.Time, description string) synology.SnapshotRecord {
	rec := synology.SnapshotRecord{
		UUID:        uuid.NewString(),
		Description: description,
	}
	if !created.IsZero() {
		rec.TimeCreate = synology.Epoch(created.Unix())
	}
	return n.AddSnapshotRecord(lunUUID, rec)
}

// AddSnapshotRecord appends rec as-is.
func (n *NAS) AddSnapshotRecord(lunUUID string, rec synology.SnapshotRecord) synology.SnapshotRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots[lunUUID] = append(n.snapshots[lunUUID], rec)
	return rec
}

// Calls returns every API call made, in order, including login and logout.
func (n *NAS) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// Reverts returns the restore_snapshot calls made, in order.
func (n *NAS) Reverts() []Revert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Revert(nil), n.reverts...)
}

// Logouts returns how many sessions were logged out.
func (n *NAS) Logouts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.logouts
}

func (n *NAS) record(call string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
}

// Login checks the credentials and opens a session.
func (n *NAS) Login(ctx context.Context, username, password string) (*Session, error) {
	n.record("login")
	if n.LoginErr != nil {
		return nil, n.LoginErr
	}
	if username != n.Username || password != n.Password {
		return nil, &synology.APIError{API: "SYNO.API.Auth", Method: "login", Code: 400}
	}
	return &Session{nas: n, open: true}, nil
}

// Session is a logged-in fake session.
type Session struct {
	nas  *NAS
	open bool
}

func (s *Session) Logout(ctx context.Context) error {
	if !s.open {
		return nil
	}
	s.open = false
	s.nas.record("logout")
	s.nas.mu.Lock()
	s.nas.logouts++
	s.nas.mu.Unlock()
	return nil
}

func (s *Session) check(ctx context.Context, call string) error {
	if !s.open {
		return synology.ErrNotLoggedIn
	}
	s.nas.record(call)
	return ctx.Err()
}

func (s *Session) ListTargets(ctx context.Context, includeConnections bool) ([]synology.Target, error) {
	if err := s.check(ctx, fmt.Sprintf("list_targets(%t)", includeConnections)); err != nil {
		return nil, err
	}
	if s.nas.ListTargetsErr != nil {
		return nil, s.nas.ListTargetsErr
	}
	s.nas.mu.Lock()
	targets, err := deep.Copy(s.nas.targets)
	s.nas.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !includeConnections {
		for i := range targets {
			targets[i].ConnectedSessions = nil
		}
	}
	return targets, nil
}

func (s *Session) ListLUNs(ctx context.Context) ([]synology.LUN, error) {
	if err := s.check(ctx, "list_luns"); err != nil {
		return nil, err
	}
	if s.nas.ListLUNsErr != nil {
		return nil, s.nas.ListLUNsErr
	}
	s.nas.mu.Lock()
	defer s.nas.mu.Unlock()
	return deep.Copy(s.nas.luns)
}

func (s *Session) ListSnapshots(ctx context.Context, lunUUID string) ([]synology.SnapshotRecord, error) {
	if err := s.check(ctx, "list_snapshots("+lunUUID+")"); err != nil {
		return nil, err
	}
	if err := s.nas.SnapshotErrors[lunUUID]; err != nil {
		return nil, err
	}
	s.nas.mu.Lock()
	defer s.nas.mu.Unlock()
	return deep.Copy(s.nas.snapshots[lunUUID])
}

func (s *Session) RevertSnapshot(ctx context.Context, lunUUID, snapshotUUID string) error {
	if err := s.check(ctx, "revert("+lunUUID+")"); err != nil {
		return err
	}
	s.nas.mu.Lock()
	s.nas.reverts = append(s.nas.reverts, Revert{LUNUUID: lunUUID, SnapshotUUID: snapshotUUID})
	s.nas.mu.Unlock()
	return s.nas.RevertErrors[lunUUID]
}
