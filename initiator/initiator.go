// Package initiator inspects the iSCSI initiator of the host running the
// recovery tool: its open sessions to the appliance, the block devices behind
// them, and the host's own addresses.
//
// The appliance's session list stays the only input to the safety gate; what
// this package finds is advisory.
package initiator

import (
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/dell/goiscsi"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/vishvananda/netlink"
)

const byPathDir = "/dev/disk/by-path"

// SessionLister is the part of goiscsi.ISCSIinterface used here.
type SessionLister interface {
	GetSessions() ([]goiscsi.ISCSISession, error)
}

// LocalSession is an open session from this host to a target portal.
type LocalSession struct {
	Target    string
	Portal    string
	Initiator string
	Address   string
	Devices   []string
}

// Checker reads the local initiator state.
type Checker struct {
	iscsi    SessionLister
	addrs    func() ([]string, error)
	fs       afero.Fs
	readlink func(string) (string, error)
}

// New returns a checker backed by iscsiadm and netlink.
func New() *Checker {
	return &Checker{
		iscsi:    goiscsi.NewLinuxISCSI(nil),
		addrs:    netlinkAddrs,
		fs:       afero.NewOsFs(),
		readlink: os.Readlink,
	}
}

// Sessions returns this host's sessions whose portal is on one of hosts.
func (c *Checker) Sessions(hosts ...string) ([]LocalSession, error) {
	sessions, err := c.iscsi.GetSessions()
	if err != nil {
		return nil, err
	}
	var out []LocalSession
	for _, s := range sessions {
		if !onAnyHost(s.Portal, hosts) {
			continue
		}
		out = append(out, LocalSession{
			Target:    s.Target,
			Portal:    s.Portal,
			Initiator: s.IfaceInitiatorname,
			Address:   s.IfaceIPaddress,
			Devices:   c.devices(s.Target),
		})
	}
	return out, nil
}

// Addresses returns every IP address configured on this host.
func (c *Checker) Addresses() ([]string, error) {
	return c.addrs()
}

// devices finds the block devices of target through the udev by-path links,
// named ip-<portal>-iscsi-<iqn>-lun-<n>.
func (c *Checker) devices(target string) []string {
	if target == "" {
		return nil
	}
	matches, err := afero.Glob(c.fs, filepath.Join(byPathDir, "*"+target+"*"))
	if err != nil {
		log.WithError(err).Debug("Could not list by-path devices.")
		return nil
	}
	seen := map[string]bool{}
	var devs []string
	for _, m := range matches {
		dest, err := c.readlink(m)
		if err != nil {
			log.WithField("path", m).WithError(err).Debug("Could not resolve device link.")
			continue
		}
		dev := filepath.Base(dest)
		if !seen[dev] {
			seen[dev] = true
			devs = append(devs, dev)
		}
	}
	return devs
}

// samePortalHost compares the host part of an iscsiadm portal such as
// "10.0.0.1:3260,1" or "[fd00::1]:3260" with host.
func samePortalHost(portal, host string) bool {
	return portalHost(portal) == strings.Trim(host, "[]")
}

func onAnyHost(portal string, hosts []string) bool {
	for _, h := range hosts {
		if samePortalHost(portal, h) {
			return true
		}
	}
	return false
}

func portalHost(portal string) string {
	if i := strings.LastIndex(portal, ","); i >= 0 {
		portal = portal[:i]
	}
	if h, _, err := net.SplitHostPort(portal); err == nil {
		return h
	}
	return strings.Trim(portal, "[]")
}

func netlinkAddrs() ([]string, error) {
	addrs, err := netlink.AddrList(nil, netlink.FAMILY_ALL)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.IPNet != nil {
			out = append(out, a.IP.String())
		}
	}
	return out, nil
}
