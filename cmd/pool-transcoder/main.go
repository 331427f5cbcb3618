package main

import (
	"os"

	"pool-transcoder/cmd/pool-transcoder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
