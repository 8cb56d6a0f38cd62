package synology

import (
	"fmt"
	"runtime"
	"sync"

	sysinfo "github.com/elastic/go-sysinfo"
)

const (
	StorageAPITimeoutSeconds = 90
	MinTLSVersion            = 0x0303 // TLS 1.2

	DefaultHTTPSPort = 5001
	DefaultHTTPPort  = 5000

	Version = "0.2.0"
)

// DSM Web API names and CGI endpoints.
const (
	authCGI  = "auth.cgi"
	entryCGI = "entry.cgi"

	apiAuth        = "SYNO.API.Auth"
	apiAuthVersion = 6
	// DSM scopes sids per session name; FileStation is accepted by the iSCSI APIs.
	authSessionName = "FileStation"

	apiISCSITarget = "SYNO.Core.ISCSI.Target"
	apiISCSILUN    = "SYNO.Core.ISCSI.LUN"
	apiISCSIVer    = 1
)

var ClientTelemetry = struct {
	Platform        string
	PlatformVersion string
}{
	Platform:        runtime.GOOS,
	PlatformVersion: "unknown",
}

var telemetryOnce sync.Once

// userAgent identifies this client to DSM, e.g.
// "synology-go/0.2.0 (Ubuntu 24.04.1 LTS (Noble Numbat))".
func userAgent() string {
	telemetryOnce.Do(func() {
		host, err := sysinfo.Host()
		if err != nil {
			return
		}
		if info := host.Info().OS; info != nil {
			ClientTelemetry.Platform = info.Name
			ClientTelemetry.PlatformVersion = info.Version
		}
	})
	return fmt.Sprintf("synology-go/%s (%s %s)", Version, ClientTelemetry.Platform, ClientTelemetry.PlatformVersion)
}
