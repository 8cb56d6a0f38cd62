// Package recovery implements the safety-gated LUN snapshot reversion
// workflow: inventory discovery and the active-connection gate, the per-LUN
// snapshot catalog, plan building and isolated per-item execution.
package recovery

//go:generate mockgen -destination=./api_mock_test.go -package=recovery -mock_names API=MockAPI github.com/scaleoutsean/synology-go/recovery API

import (
	"context"

	synology "github.com/scaleoutsean/synology-go"
)

// API is the part of an authenticated DSM session the workflow consumes.
// *synology.Session implements it.
type API interface {
	ListTargets(ctx context.Context, includeConnections bool) ([]synology.Target, error)
	ListLUNs(ctx context.Context) ([]synology.LUN, error)
	ListSnapshots(ctx context.Context, lunUUID string) ([]synology.SnapshotRecord, error)
	RevertSnapshot(ctx context.Context, lunUUID, snapshotUUID string) error
}

// Session is an API that must be released when the run ends.
type Session interface {
	API
	Logout(ctx context.Context) error
}

var _ Session = (*synology.Session)(nil)
