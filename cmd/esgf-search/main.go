// Command esgf-search queries the ESGF federated search API and prints the
// matching file granules. Useful for checking what a comparison run would
// download before running the full service.
//
// Usage:
//
//	go run ./cmd/esgf-search \
//	  -source-id CESM2 -experiment-id historical -variable-id tas \
//	  -frequency day -json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tallgrasslabs/climatecompare/internal/adapter/esgf"
	"github.com/tallgrasslabs/climatecompare/internal/domain"
	"github.com/tallgrasslabs/climatecompare/internal/observability"
)

func main() {
	searchURL := flag.String("search-url", "https://esgf-node.llnl.gov/esg-search/search", "ESGF search endpoint")
	project := flag.String("project", "CMIP6", "project facet")
	sourceID := flag.String("source-id", "CESM2", "source_id facet (model)")
	experimentID := flag.String("experiment-id", "historical", "experiment_id facet")
	variableID := flag.String("variable-id", "tas", "variable_id facet")
	frequency := flag.String("frequency", "day", "frequency facet")
	variantLabel := flag.String("variant-label", "", "variant_label facet (optional)")
	pageSize := flag.Int("page-size", 100, "results per page")
	timeout := flag.Duration("timeout", 60*time.Second, "per-request timeout")
	asJSON := flag.Bool("json", false, "print records as JSON instead of a table")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := esgf.NewClient(*searchURL, *pageSize, *timeout, observability.NewMetrics(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := client.Search(ctx, domain.CatalogQuery{
		Project:      *project,
		SourceID:     *sourceID,
		ExperimentID: *experimentID,
		VariableID:   *variableID,
		Frequency:    *frequency,
		VariantLabel: *variantLabel,
		Latest:       true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "search failed:", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			fmt.Fprintln(os.Stderr, "encode failed:", err)
			os.Exit(1)
		}
		return
	}

	var total int64
	for _, rec := range records {
		total += rec.Size
		fmt.Printf("%-80s %10s  %s\n", rec.Title, humanBytes(rec.Size), rec.URLFor("HTTPServer"))
	}
	fmt.Printf("\n%d granules, %s total\n", len(records), humanBytes(total))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
