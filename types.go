package synology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// apiResponse is the envelope DSM wraps around every Web API reply.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code int `json:"code"`
	} `json:"error,omitempty"`
}

type loginData struct {
	SID string `json:"sid"`
}

// Target is an iSCSI target as returned by SYNO.Core.ISCSI.Target list.
type Target struct {
	TargetID          int                `json:"target_id"`
	Name              string             `json:"name"`
	IQN               string             `json:"iqn"`
	ConnectedSessions []ConnectedSession `json:"connected_sessions,omitempty"`
}

// ConnectedSession is an initiator currently logged in to a target. DSM only
// includes these when the "connected_sessions" additional field is requested.
type ConnectedSession struct {
	Initiator string `json:"initiator"`
	IP        string `json:"ip"`
}

type targetList struct {
	Targets []Target `json:"targets"`
}

// LUN is an iSCSI LUN as returned by SYNO.Core.ISCSI.LUN list.
type LUN struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Size     uint64 `json:"size"`
}

type lunList struct {
	LUNs []LUN `json:"luns"`
}

// SnapshotRecord is a raw LUN snapshot. Field names differ between DSM
// releases, so identifiers and creation times may appear under several keys.
type SnapshotRecord struct {
	SnapshotUUID string     `json:"snapshot_uuid,omitempty"`
	UUID         string     `json:"uuid,omitempty"`
	SnapshotID   FlexString `json:"snapshot_id,omitempty"`
	Name         string     `json:"name,omitempty"`
	Description  string     `json:"description,omitempty"`

	TimeCreate Epoch `json:"time_create,omitempty"`
	TakenTime  Epoch `json:"taken_time,omitempty"`
	CreateTime Epoch `json:"create_time,omitempty"`

	LockedAppKeys []string `json:"locked_app_keys,omitempty"`
	IsWormLocked  bool     `json:"is_worm_locked,omitempty"`
}

type snapshotList struct {
	Snapshots []SnapshotRecord `json:"snapshots"`
}

// Epoch is a unix timestamp in seconds. DSM sends these as numbers on some
// firmware and as strings on others; empty strings and null decode to 0.
type Epoch int64

func (e *Epoch) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*e = 0
			return nil
		}
		b = []byte(s)
	}
	// Some releases report fractional seconds.
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %v", string(b), err)
	}
	*e = Epoch(int64(f))
	return nil
}

// FlexString accepts either a JSON string or a JSON number.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}
