// Package main provides tpauth, a small CLI over the authentication SDK.
// It drives the browser login, inspects the stored session, forces a token
// refresh, and clears the session again.
package main

import (
	"fmt"
	"os"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/cmd/tpauth/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
