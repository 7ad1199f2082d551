package main

import (
	"log"
	"os"
)

// @title ballotproxy API
// @version 1.0
// @description Upgradeable voting service behind a delegating proxy.
// @BasePath /

// Process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (storage + proxy + voting implementations).
// 3) Serve HTTP, relay the outbox, or submit one call.
func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Printf("ballotproxy: %v", err)
		os.Exit(1)
	}
}
