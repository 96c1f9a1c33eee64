package main

import (
	"log"

	"github.com/VeriScreen/OrderFlow/internal/api"
)

func main() {
	// Minimal bootstrap: in-memory store, backend settings from the
	// environment. The full binary with flags lives in cmd/OrderFlow.
	if err := api.Run(nil, nil, nil, nil, nil); err != nil {
		log.Fatalf("OrderFlow failed to run: %v", err)
	}
}
