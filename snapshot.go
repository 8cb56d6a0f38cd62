package synology

import (
	"context"
	"net/url"
)

// ID returns the snapshot identifier accepted by restore_snapshot.
func (r SnapshotRecord) ID() string {
	return firstNonEmpty(r.SnapshotUUID, r.UUID, string(r.SnapshotID))
}

// ListSnapshots returns the snapshots of one LUN in the order DSM reports them.
func (s *Session) ListSnapshots(ctx context.Context, lunUUID string) ([]SnapshotRecord, error) {
	if s.LoggedIn() {
		s.client.traceMethod("ListSnapshots")
	}

	params := url.Values{}
	params.Set("src_lun_uuid", jsonParam(lunUUID))
	params.Set("additional", jsonParam([]string{"locked_app_keys", "is_worm_locked"}))

	var list snapshotList
	if err := s.request(ctx, apiISCSILUN, apiISCSIVer, "list_snapshot", params, &list); err != nil {
		return nil, err
	}
	return list.Snapshots, nil
}

// RevertSnapshot restores lunUUID to snapshotUUID. Everything written to the
// LUN after the snapshot was taken is discarded.
func (s *Session) RevertSnapshot(ctx context.Context, lunUUID, snapshotUUID string) error {
	if s.LoggedIn() {
		s.client.traceMethod("RevertSnapshot")
	}

	params := url.Values{}
	params.Set("src_lun_uuid", jsonParam(lunUUID))
	params.Set("snapshot_uuid", jsonParam(snapshotUUID))

	return s.request(ctx, apiISCSILUN, apiISCSIVer, "restore_snapshot", params, nil)
}
