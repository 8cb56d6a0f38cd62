package initiator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dell/goiscsi"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionList struct {
	sessions []goiscsi.ISCSISession
	err      error
}

func (s sessionList) GetSessions() ([]goiscsi.ISCSISession, error) {
	return s.sessions, s.err
}

const iqn = "iqn.2000-01.com.synology:nas.vmstore"

func newTestChecker(t *testing.T, sessions sessionList) *Checker {
	t.Helper()
	fs := afero.NewMemMapFs()
	links := map[string]string{
		byPathDir + "/ip-10.0.0.1:3260-iscsi-" + iqn + "-lun-1":       "../../sdb",
		byPathDir + "/ip-10.0.0.1:3260-iscsi-" + iqn + "-lun-1-part1": "../../sdb1",
		byPathDir + "/ip-10.0.0.9:3260-iscsi-iqn.other-lun-0":         "../../sdc",
	}
	for p := range links {
		require.NoError(t, afero.WriteFile(fs, p, nil, 0o644))
	}
	return &Checker{
		iscsi: sessions,
		addrs: func() ([]string, error) { return []string{"127.0.0.1", "10.0.0.50"}, nil },
		fs:    fs,
		readlink: func(p string) (string, error) {
			if d, ok := links[p]; ok {
				return d, nil
			}
			return "", fmt.Errorf("%s: not a link", p)
		},
	}
}

func TestSessionsFiltersByPortalHost(t *testing.T) {
	c := newTestChecker(t, sessionList{sessions: []goiscsi.ISCSISession{
		{Target: iqn, Portal: "10.0.0.1:3260,1", IfaceInitiatorname: "iqn.1993-08.org.debian:01:host", IfaceIPaddress: "10.0.0.50"},
		{Target: "iqn.other", Portal: "10.0.0.9:3260,1"},
	}})

	got, err := c.Sessions("nas.example.com", "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, iqn, got[0].Target)
	assert.Equal(t, "10.0.0.50", got[0].Address)
	assert.Equal(t, "iqn.1993-08.org.debian:01:host", got[0].Initiator)
	assert.ElementsMatch(t, []string{"sdb", "sdb1"}, got[0].Devices)
}

func TestSessionsNone(t *testing.T) {
	c := newTestChecker(t, sessionList{})
	got, err := c.Sessions("10.0.0.1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSessionsError(t *testing.T) {
	boom := errors.New("iscsiadm: not found")
	c := newTestChecker(t, sessionList{err: boom})
	_, err := c.Sessions("10.0.0.1")
	assert.ErrorIs(t, err, boom)
}

func TestAddresses(t *testing.T) {
	c := newTestChecker(t, sessionList{})
	got, err := c.Addresses()
	require.NoError(t, err)
	assert.Contains(t, got, "10.0.0.50")
}

func TestPortalHost(t *testing.T) {
	cases := map[string]string{
		"10.0.0.1:3260,1":    "10.0.0.1",
		"10.0.0.1:3260":      "10.0.0.1",
		"[fd00::1]:3260,1":   "fd00::1",
		"nas.example.com":    "nas.example.com",
		"nas.example.com:80": "nas.example.com",
	}
	for in, want := range cases {
		assert.Equal(t, want, portalHost(in), in)
	}
	assert.True(t, samePortalHost("[fd00::1]:3260,1", "[fd00::1]"))
	assert.False(t, samePortalHost("10.0.0.1:3260,1", "10.0.0.2"))
}
