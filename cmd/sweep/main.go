// Command sweep runs one reconciliation pass over the metadata store and
// prints the report as JSON. It reads the same configuration as the server.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/dmitrijs2005/gophgallery/internal/server"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close(ctx)

	report, sweepErr := app.Sweep(ctx)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Printf("encode report: %v", err)
		}
	}
	if sweepErr != nil {
		log.Printf("sweep: %v", sweepErr)
		app.Close(ctx)
		os.Exit(1)
	}

}
