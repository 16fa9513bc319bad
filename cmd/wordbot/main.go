package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/wordbot/core/cmd"
	"github.com/m3rciful/wordbot/internal/app"
)

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("wordbot: %v", err)
	}
}
