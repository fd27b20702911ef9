package main

import (
	"log"

	"github.com/antistereov/singularity-core/internal/core/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialise application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}
