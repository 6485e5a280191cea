// Command catalogctl fetches, inspects and exports the medicine catalog
// from the command line using the same configuration as the server.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Overload()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
