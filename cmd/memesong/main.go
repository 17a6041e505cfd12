package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/memesong/memesong/pkg/cli"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	// Load .env if present so XAI_API_KEY can live there
	_ = godotenv.Load()

	// Create signal based context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Launch command
	cmd := cli.New(version, commit, date)
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
