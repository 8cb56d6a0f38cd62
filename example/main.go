package main

import (
	"context"
	"fmt"

	synology "github.com/scaleoutsean/synology-go"
)

func main() {
	// Example usage
	config := synology.ClientConfig{
		ApiHost:   "10.0.0.1",
		ApiPort:   5001,
		UseSSL:    true,
		VerifyTLS: false,
		// CACertPEM: "-----BEGIN CERTIFICATE-----...", // Optional
	}

	ctx := context.Background()
	client := synology.NewAPIClient(ctx, config)
	fmt.Println("Client created for", client.BaseURL())

	session, err := client.Login(ctx, "admin", "password")
	if err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	defer session.Logout(ctx)

	luns, err := session.ListLUNs(ctx)
	if err != nil {
		fmt.Println("ListLUNs failed:", err)
		return
	}
	for _, lun := range luns {
		snaps, err := session.ListSnapshots(ctx, lun.UUID)
		if err != nil {
			fmt.Printf("%s: %v\n", lun.Name, err)
			continue
		}
		fmt.Printf("LUN %s (%s) has %d snapshot(s)\n", lun.Name, lun.UUID, len(snaps))
		for _, s := range snaps {
			fmt.Printf("  %s %q\n", s.ID(), s.Description)
		}
	}
}
