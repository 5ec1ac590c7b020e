package main

import (
	"os"

	"TradeDesk/cmd/deskctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
