package main

import (
	"log"

	"github.com/favbox/favbox/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ favbox failed to start: %v", err)
	}
}
