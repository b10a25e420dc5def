package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"labelstation/internal/config"
	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/service/dataset"
)

// scrub quarantines entries of the split partitions whose label files do not
// validate.
func main() {
	cfg := config.Load()
	splitDir := flag.String("dir", cfg.SplitDirectory, "Directory holding the partitions")
	quarantine := flag.String("quarantine", cfg.QuarantineDirectory, "Quarantine directory")
	partition := flag.String("partition", "", "Partition to scrub (train or val); empty scrubs both")
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()

	l := logger.NewLogger(cfg)
	defer l.Close()

	scrubber, err := dataset.NewScrubber(*splitDir, *quarantine, l)
	if err != nil {
		log.Fatalf("Failed to prepare quarantine: %v", err)
	}

	partitions := model.Partitions
	if *partition != "" {
		p, err := dataset.ParsePartition(*partition)
		if err != nil {
			log.Fatalf("%v", err)
		}
		partitions = []model.Partition{p}
	}

	total := 0
	for _, p := range partitions {
		report, err := scrubber.Scrub(p)
		if errors.Is(err, model.ErrNotFound) && *partition == "" {
			fmt.Printf("⏭  %s: not split yet\n", p)
			continue
		}
		if err != nil {
			log.Fatalf("Scrub of %s failed: %v", p, err)
		}
		fmt.Printf("🧹 %s: %d quarantined, %d orphans\n", p, report.Count(), len(report.Orphans))
		for _, stem := range report.Quarantined {
			fmt.Printf("   - %s\n", stem)
		}
		total += report.Count()
	}
	fmt.Printf("✅ Total quarantined: %d\n", total)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [flags]\n\n", os.Args[0])
	fmt.Fprintln(w, "Moves every label file with an invalid line, and its image, into the quarantine.")
	fmt.Fprintln(w, "A line is \"class x y w h\": class must be a non-negative integer written without")
	fmt.Fprintln(w, "a decimal point (\"1.0\" and \"-1\" are rejected), x y w h must lie in [0,1].")
	fmt.Fprintln(w, "Convert labels from other tools before scrubbing them.")
	fmt.Fprintln(w)
	flag.PrintDefaults()
}
