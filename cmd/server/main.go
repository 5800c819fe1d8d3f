package main // Entry point package

import (
	"fmt"
	"os"

	"github.com/joho/godotenv" // .env loader for local development
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load() // A missing .env is fine; real deployments use the environment

	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
