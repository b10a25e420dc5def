package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"labelstation/internal/config"
	"labelstation/internal/logger"
	"labelstation/internal/service/dataset"
	"labelstation/internal/service/storage"
)

// split copies the consolidated dataset into train/val partitions and writes
// the dataset descriptor.
func main() {
	cfg := config.Load()
	source := flag.String("source", cfg.DatasetDirectory, "Consolidated dataset directory")
	out := flag.String("out", cfg.SplitDirectory, "Output directory for the partitions")
	ratio := flag.Float64("ratio", cfg.SplitRatio, "Share of entries assigned to train")
	seed := flag.Int64("seed", cfg.SplitSeed, "Shuffle seed, 0 for a random one")
	classes := flag.String("classes", strings.Join(cfg.Classes, ","), "Comma separated class names")
	flag.Parse()

	l := logger.NewLogger(cfg)
	defer l.Close()

	store, err := storage.NewDatasetStore(*source, l)
	if err != nil {
		log.Fatalf("Failed to open dataset: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	splitter := dataset.NewSplitter(store, *out, l, *seed)
	desc, err := splitter.Split(ctx, *ratio, splitList(*classes))
	if err != nil {
		log.Fatalf("Split failed: %v", err)
	}

	fmt.Printf("✅ Split complete: %d train, %d val\n", len(desc.TrainStems), len(desc.ValStems))
	if desc.Skipped > 0 {
		fmt.Printf("⚠️  Skipped %d orphaned files\n", desc.Skipped)
	}
	fmt.Printf("📄 Descriptor: %s\n", desc.Path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
