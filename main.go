package main

import (
	"os"

	"routeqa/cmd"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if exists
	_ = godotenv.Load()
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
