// Command resilient runs the resilient call layer: a Temporal worker serving the
// chat and crop suitability workflows, plus offline helpers for the rules scorer
// and one-off chat turns.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
