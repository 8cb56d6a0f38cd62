package recovery

import (
	"time"

	synology "github.com/scaleoutsean/synology-go"
)

// creationTimeFields lists, highest priority first, the snapshot fields DSM
// has used for the creation time across firmware releases.
var creationTimeFields = []struct {
	name  string
	value func(synology.SnapshotRecord) synology.Epoch
}{
	{"time_create", func(r synology.SnapshotRecord) synology.Epoch { return r.TimeCreate }},
	{"taken_time", func(r synology.SnapshotRecord) synology.Epoch { return r.TakenTime }},
	{"create_time", func(r synology.SnapshotRecord) synology.Epoch { return r.CreateTime }},
}

// creationTime returns the first non-zero creation time field of r and its
// name. ok is false when none is set; the time is then unknown.
func creationTime(r synology.SnapshotRecord) (t time.Time, field string, ok bool) {
	for _, f := range creationTimeFields {
		if v := f.value(r); v != 0 {
			return time.Unix(int64(v), 0), f.name, true
		}
	}
	return time.Time{}, "", false
}
