package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess  = 0
	ExitRPCError = 1 // the call returned a JSON-RPC error
	ExitError    = 2 // configuration or transport failure
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isRPCError(err) {
			os.Exit(ExitRPCError)
		}
		os.Exit(ExitError)
	}
}
