package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jmercier/leadpilot/internal/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// API keys (GEMINI_API_KEY, OLLAMA_HOST) may live in a local .env.
	_ = godotenv.Load()

	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
