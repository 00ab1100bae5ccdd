// Command etl loads SnowEx field data files into the database.
//
// Usage:
//
//	etl profiles --timezone MST data/pits/*.csv
//	etl points --campaign "Grand Mesa" --row-based-timezone data/depths.csv
//	etl sites --timezone MST data/pits/*_siteDetails.csv
//	etl rasters --type swe --epsg 26912 --date 2020-02-02 --campaign "Grand Mesa" swe.tif
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	// Embedded zone database so row-level timezone names resolve on minimal images.
	_ "time/tzdata"
)

func main() {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("etl failed", "error", err)
		os.Exit(1)
	}
}
