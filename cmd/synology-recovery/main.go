package main

import (
	"os"

	"github.com/scaleoutsean/synology-go/cli"
)

func main() {
	os.Exit(cli.Execute())
}
