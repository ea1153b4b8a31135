package main

import (
	"os"

	"github.com/lucas-albers-lz4/ciprep/pkg/exitcodes"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// main runs the root command and turns its error into an exit code.
func main() {
	if err := Execute(); err != nil {
		log.Error("ciprep failed", "error", err)
		os.Exit(exitcodes.CodeFor(err))
	}
}
