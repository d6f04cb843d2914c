// cashweb-relay CLI - relay message and stamp tooling
//
// This CLI seals, opens and inspects relay protocol messages and derives the
// stamp addresses a sender must pay.
//
// Example usage:
//
//	# Create a key
//	cashweb-relay keygen > alice.wif
//
//	# Show the outputs to fund for a payload digest
//	cashweb-relay stamp-scripts --to <pubkey hex> --digest <hex> --profile 1
//
//	# Seal a text message
//	cashweb-relay seal --key alice.wif --to <pubkey hex> --text "hi"
//
//	# Open messages addressed to us
//	cashweb-relay open --key bob.wif <message hex>...
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/suffix-labs/cashweb-relay/internal/log"
)

func main() {
	cmd, err := newRootCmd().ExecuteC()
	if err != nil {
		log.Error("command failed", zap.String("command", cmd.CommandPath()), zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
