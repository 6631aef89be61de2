// Copyright 2021 Converter Systems LLC. All rights reserved.

// Command uahelper reads, writes and subscribes to the nodes of an OPC UA server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
