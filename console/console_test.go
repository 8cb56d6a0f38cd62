package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	synology "github.com/scaleoutsean/synology-go"
	"github.com/scaleoutsean/synology-go/recovery"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestConsole(input string) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	c := New(strings.NewReader(input), &out)
	c.SetColor(false)
	c.Clock = clocktesting.NewFakePassiveClock(now)
	return c, &out
}

func entry(n int) recovery.CatalogEntry {
	e := recovery.CatalogEntry{LUNName: "vm-store", LUNUUID: "lun-uuid"}
	for i := 0; i < n; i++ {
		e.Snapshots = append(e.Snapshots, recovery.Snapshot{
			UUID:           fmt.Sprintf("snap-%d", i+1),
			Created:        now.Add(-time.Duration(i+1) * 24 * time.Hour),
			TimestampField: "time_create",
			Description:    fmt.Sprintf("daily %d", i+1),
		})
	}
	return e
}

func TestShowSnapshotsCapsAtSeven(t *testing.T) {
	c, out := newTestConsole("")
	c.ShowSnapshots(entry(10))

	s := out.String()
	assert.Contains(t, s, "showing 7 most recent")
	assert.Contains(t, s, "snap-7")
	assert.NotContains(t, s, "snap-8")
	assert.Contains(t, s, "(3 older snapshots not shown)")
	assert.Contains(t, s, "1 day ago")
}

func TestShowSnapshotsUnknownTime(t *testing.T) {
	c, out := newTestConsole("")
	e := recovery.CatalogEntry{LUNName: "x", Snapshots: []recovery.Snapshot{{UUID: "s", WormLocked: true}}}
	c.ShowSnapshots(e)
	assert.Contains(t, out.String(), "N/A")
	assert.Contains(t, out.String(), "yes")
	assert.NotContains(t, out.String(), "older snapshots")
}

func TestSelectSnapshot(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"\n", 1},
		{"3\n", 3},
		{"0\n", 0},
		{"42\n", 42},
		{"abc\n2\n", 2},
		{" 5 \n", 5},
		{"4", 4},
	}
	for _, tc := range cases {
		c, out := newTestConsole(tc.input)
		got, err := c.SelectSnapshot(context.Background(), entry(5), entry(5).Snapshots)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Contains(t, out.String(), "Processing: vm-store")
		assert.Contains(t, out.String(), "(1-5) or 0 to skip")
	}
}

func TestSelectSnapshotInvalidInputReprompts(t *testing.T) {
	c, out := newTestConsole("x\n1\n")
	_, err := c.SelectSnapshot(context.Background(), entry(2), entry(2).Snapshots)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Please enter a valid integer number")
	assert.Equal(t, 2, strings.Count(out.String(), "Choice [1]:"))
}

func TestSelectSnapshotClosedInput(t *testing.T) {
	c, _ := newTestConsole("")
	_, err := c.SelectSnapshot(context.Background(), entry(2), entry(2).Snapshots)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestSelectSnapshotCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer
	c := New(pr, &out)
	c.SetColor(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SelectSnapshot(ctx, entry(1), entry(1).Snapshots)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"No\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range cases {
		c, out := newTestConsole(tc.input)
		got, err := c.Confirm(context.Background(), "Do you want to proceed with the reversion?")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Contains(t, out.String(), "Do you want to proceed with the reversion? [y/N]")
	}
}

func TestSelectThenConfirmShareInput(t *testing.T) {
	c, _ := newTestConsole("2\ny\n")
	n, err := c.SelectSnapshot(context.Background(), entry(3), entry(3).Snapshots)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	ok, err := c.Confirm(context.Background(), "proceed?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShowSessions(t *testing.T) {
	c, out := newTestConsole("")
	c.ShowSessions(nil)
	assert.Contains(t, out.String(), "No active iSCSI connections detected")

	c, out = newTestConsole("")
	c.MarkLocal([]string{"10.0.0.5"})
	c.ShowSessions([]recovery.ActiveSession{
		{TargetName: "vm-store", Initiator: "iqn.a", RemoteAddress: "10.0.0.5"},
		{TargetName: "vm-store", Initiator: "iqn.b", RemoteAddress: "10.0.0.6"},
	})
	s := out.String()
	assert.Contains(t, s, "Active iSCSI connections detected!")
	assert.Contains(t, s, "iqn.a")
	assert.Equal(t, 1, strings.Count(s, "(this host)"))
}

func TestShowTargetsAndLUNs(t *testing.T) {
	c, out := newTestConsole("")
	c.ShowTargets(nil)
	c.ShowLUNs(nil)
	assert.Contains(t, out.String(), "No iSCSI targets found")
	assert.Contains(t, out.String(), "No iSCSI LUNs found")

	c, out = newTestConsole("")
	c.ShowTargets([]synology.Target{{TargetID: 3, Name: "t1", IQN: "iqn.2000-01.com.synology:t1"}})
	c.ShowLUNs([]synology.LUN{{Name: "lun1", Location: "/volume1/lun1", Size: 10 << 30}})
	s := out.String()
	assert.Contains(t, s, "iqn.2000-01.com.synology:t1")
	assert.Contains(t, s, "/volume1/lun1")
	assert.Contains(t, s, "10 GiB")
}

func TestShowDryRun(t *testing.T) {
	c, out := newTestConsole("")
	plan := &recovery.Plan{}
	plan.Add(recovery.PlanItem{LUNName: "lun-x", Snapshot: entry(1).Snapshots[0]})
	c.ShowPlan(plan)
	c.ShowDryRun(plan)

	s := out.String()
	assert.Contains(t, s, "REVERSION PLAN")
	assert.Contains(t, s, "would revert lun-x to snapshot snap-1")
	assert.Contains(t, s, "No changes were made (dry run mode)")
}

func TestRevertProgressAndReport(t *testing.T) {
	c, out := newTestConsole("")
	a := recovery.PlanItem{LUNName: "a", Snapshot: recovery.Snapshot{UUID: "s1"}}
	b := recovery.PlanItem{LUNName: "b", Snapshot: recovery.Snapshot{UUID: "s2"}}

	c.RevertStarted(a)
	c.RevertFinished(recovery.ItemOutcome{Item: a, Duration: 1500 * time.Millisecond})
	c.RevertStarted(b)
	c.RevertFinished(recovery.ItemOutcome{Item: b, Err: errors.New("LUN busy")})
	c.ShowReport(&recovery.Report{Outcomes: []recovery.ItemOutcome{{Item: a}, {Item: b, Err: errors.New("LUN busy")}}})
	c.ShowNotAttempted([]recovery.PlanItem{{LUNName: "c"}})

	s := out.String()
	assert.Contains(t, s, "Reverting a to snapshot s1...")
	assert.Contains(t, s, "✓ Successfully reverted a (1.5s)")
	assert.Contains(t, s, "✗ Failed to revert b: LUN busy")
	assert.Contains(t, s, "1 succeeded, 1 failed")
	assert.Contains(t, s, "Not attempted: c")
}

func TestNoColorEscapes(t *testing.T) {
	c, out := newTestConsole("")
	c.Warn("careful")
	assert.NotContains(t, out.String(), "\x1b[")

	c.SetColor(true)
	c.Warn("careful")
	assert.Contains(t, out.String(), "\x1b[")
}
