// ABOUTME: Entry point for the FamQuest gateway
// ABOUTME: Dispatches to the serve, health and config commands

package main

import (
	"fmt"
	"os"

	"github.com/famquest/gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
