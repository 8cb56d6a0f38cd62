package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	synology "github.com/scaleoutsean/synology-go"
	"github.com/scaleoutsean/synology-go/recovery"
)

// Read-only checks against a real NAS. Nothing is reverted.

var (
	client   *synology.Client
	username string
	password string
)

func setup() error {
	host := os.Getenv("SYNOLOGY_HOST")
	username = os.Getenv("SYNOLOGY_USERNAME")
	password = os.Getenv("SYNOLOGY_PASSWORD")

	if host == "" || username == "" {
		return fmt.Errorf("SYNOLOGY_HOST and SYNOLOGY_USERNAME are required")
	}

	config := synology.ClientConfig{
		ApiHost:   host,
		UseSSL:    os.Getenv("SYNOLOGY_NO_SSL") != "true",
		VerifyTLS: os.Getenv("SYNOLOGY_INSECURE") != "true",
	}
	if p := os.Getenv("SYNOLOGY_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("SYNOLOGY_PORT: %v", err)
		}
		config.ApiPort = port
	}

	if os.Getenv("SYNOLOGY_DEBUG") == "true" {
		log.SetLevel(log.DebugLevel)
		config.DebugTraceFlags = map[string]bool{"method": true, "api": true}
	}

	client = synology.NewAPIClient(context.Background(), config)
	return nil
}

func main() {
	if err := setup(); err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()

	runTestA(ctx)
	runTestB(ctx)
	runTestC(ctx)
	runTestD(ctx)
}

func login(ctx context.Context) *synology.Session {
	s, err := client.Login(ctx, username, password)
	if err != nil {
		panic(fmt.Errorf("Login failed: %v", err))
	}
	return s
}

func runTestA(ctx context.Context) {
	fmt.Println("=== Test A: API info for the iSCSI APIs ===")

	params := url.Values{}
	params.Set("api", "SYNO.API.Info")
	params.Set("version", "1")
	params.Set("method", "query")
	params.Set("query", "SYNO.API.Auth,SYNO.Core.ISCSI.Target,SYNO.Core.ISCSI.LUN")

	resp, body, err := client.InvokeAPI(ctx, "query.cgi", params)
	if err != nil {
		panic(err)
	}
	if resp.StatusCode != http.StatusOK {
		panic(fmt.Errorf("API info failed: %d", resp.StatusCode))
	}
	var info struct {
		Success bool                       `json:"success"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	json.Unmarshal(body, &info)
	for name, v := range info.Data {
		fmt.Printf("  %s: %s\n", name, v)
	}
	fmt.Println("Test A Passed.")
}

func runTestB(ctx context.Context) {
	fmt.Println("=== Test B: Login, list targets with sessions, logout ===")

	s := login(ctx)
	has, sessions, err := recovery.NewInventory(s).CheckActiveConnections(ctx)
	if err != nil {
		panic(fmt.Errorf("CheckActiveConnections failed: %v", err))
	}
	fmt.Printf("Active connections: %t (%d)\n", has, len(sessions))
	for _, a := range sessions {
		fmt.Printf("  %s <- %s (%s)\n", a.TargetName, a.Initiator, a.RemoteAddress)
	}

	if err := s.Logout(ctx); err != nil {
		fmt.Printf("Warning: Logout failed: %v\n", err)
	}
	if _, err := s.ListTargets(ctx, false); !errors.Is(err, synology.ErrNotLoggedIn) {
		panic(fmt.Errorf("expected ErrNotLoggedIn after logout, got %v", err))
	}
	fmt.Println("Test B Passed.")
}

func runTestC(ctx context.Context) {
	fmt.Println("=== Test C: Snapshot catalog ordering ===")

	s := login(ctx)
	defer s.Logout(ctx)

	luns, err := s.ListLUNs(ctx)
	if err != nil {
		panic(fmt.Errorf("ListLUNs failed: %v", err))
	}
	catalog, failures, err := recovery.NewSnapshotCatalog(s).AllSnapshots(ctx, recovery.RevertibleLUNs(luns))
	if err != nil {
		panic(err)
	}
	for _, f := range failures {
		fmt.Printf("Warning: %v\n", f)
	}

	for _, e := range catalog.Entries() {
		fmt.Printf("LUN %s: %d snapshot(s)\n", e.LUNName, len(e.Snapshots))
		for i := 1; i < len(e.Snapshots); i++ {
			prev, cur := e.Snapshots[i-1], e.Snapshots[i]
			if cur.HasTimestamp() && (!prev.HasTimestamp() || cur.Created.After(prev.Created)) {
				panic(fmt.Errorf("snapshots of %s out of order at %d", e.LUNName, i))
			}
		}
		for _, snap := range recovery.Candidates(e) {
			fmt.Printf("  %s %s (%s)\n", snap.UUID, snap.Created, snap.TimestampField)
		}
	}
	fmt.Println("Test C Passed.")
}

func runTestD(ctx context.Context) {
	fmt.Println("=== Test D: Bad credentials are rejected ===")

	_, err := client.Login(ctx, username, password+"-wrong")
	if err == nil {
		panic("login with a wrong password succeeded")
	}
	if !synology.IsAuthError(err) {
		panic(fmt.Errorf("expected an auth error, got %v", err))
	}
	fmt.Printf("Rejected as expected: %v\n", err)
	fmt.Println("Test D Passed.")
}
