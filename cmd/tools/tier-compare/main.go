// Package main compares the SumThreshold implementation tiers on synthetic
// data. Every tier must produce the scalar mask bit for bit; the tool also
// reports how long each tier takes per full flagging run.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/banshee-data/rfi.flagger/internal/fsutil"
	"github.com/banshee-data/rfi.flagger/internal/security"
	"github.com/banshee-data/rfi.flagger/internal/rfi/strategy"
	"github.com/banshee-data/rfi.flagger/internal/rfi/sumthreshold"
	"github.com/banshee-data/rfi.flagger/internal/rfi/testset"
	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

// Config holds configuration for the comparison.
type Config struct {
	Width      int
	Height     int
	Pattern    string
	Seed       uint64
	Iterations int
	OutputJSON string
}

// TierStats holds the measurements for one tier.
type TierStats struct {
	Tier       string        `json:"tier"`
	Identical  bool          `json:"identical"`
	Mismatches int           `json:"mismatches"`
	Flagged    int           `json:"flagged"`
	Average    time.Duration `json:"average_ns"`
	Speedup    float64       `json:"speedup"`
}

// ComparisonResult holds the results of a tier comparison.
type ComparisonResult struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Pattern    string      `json:"pattern"`
	Seed       uint64      `json:"seed"`
	Iterations int         `json:"iterations"`
	Best       string      `json:"best"`
	Tiers      []TierStats `json:"tiers"`
}

func main() {
	cfg := parseFlags()
	if cfg.OutputJSON != "" {
		if err := security.ValidateDefaultOutputPath(cfg.OutputJSON); err != nil {
			log.Fatalf("Invalid -json path: %v", err)
		}
	}

	result, err := runComparison(cfg)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}
	printResults(os.Stdout, result)

	if cfg.OutputJSON != "" {
		if err := fsutil.WriteJSON(fsutil.OSFileSystem{}, cfg.OutputJSON, result); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", cfg.OutputJSON)
		}
	}
	for _, ts := range result.Tiers {
		if !ts.Identical {
			os.Exit(1)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.IntVar(&cfg.Width, "width", 2048, "Time steps")
	flag.IntVar(&cfg.Height, "height", 512, "Frequency channels")
	flag.StringVar(&cfg.Pattern, "pattern", "intermittent-spectral-lines", "Injected RFI pattern")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "Random seed")
	flag.IntVar(&cfg.Iterations, "iterations", 5, "Timed runs per tier")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON file (e.g., tiers.json)")

	flag.Parse()

	return cfg
}

func runComparison(cfg Config) (*ComparisonResult, error) {
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	pattern, err := testset.ParsePattern(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	set := testset.Generate(testset.Config{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Background: testset.Gaussian,
		Pattern:    pattern,
		Seed:       cfg.Seed,
	})

	result := &ComparisonResult{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Pattern:    pattern.String(),
		Seed:       cfg.Seed,
		Iterations: cfg.Iterations,
		Best:       sumthreshold.Best().String(),
	}

	var reference *tfgrid.Mask
	var scalarTime time.Duration
	for _, tier := range sumthreshold.Tiers {
		tc := strategy.NewThresholdConfig()
		tc.InitializeLengthsDefault(0)
		tc.InitializeThresholdsFromFirstThreshold(6, strategy.Gaussian)
		tc.SetTier(tier)

		var mask *tfgrid.Mask
		var total time.Duration
		for i := 0; i < cfg.Iterations; i++ {
			mask = tfgrid.NewMaskFor(set.Grid, false)
			res, err := tc.Execute(set.Grid, mask, false, 1, 1)
			if err != nil {
				return nil, fmt.Errorf("tier %s: %w", tier, err)
			}
			total += res.Duration
		}

		ts := TierStats{
			Tier:    tier.String(),
			Flagged: mask.Count(true),
			Average: total / time.Duration(cfg.Iterations),
		}
		if reference == nil {
			reference = mask
			scalarTime = ts.Average
		}
		ts.Mismatches = countMismatches(reference, mask)
		ts.Identical = ts.Mismatches == 0
		if ts.Average > 0 {
			ts.Speedup = float64(scalarTime) / float64(ts.Average)
		}
		result.Tiers = append(result.Tiers, ts)
	}
	return result, nil
}

func countMismatches(a, b *tfgrid.Mask) int {
	n := 0
	for y := 0; y < a.Height(); y++ {
		ra, rb := a.Row(y), b.Row(y)
		for x := range ra {
			if ra[x] != rb[x] {
				n++
			}
		}
	}
	return n
}

func printResults(w io.Writer, r *ComparisonResult) {
	fmt.Fprintf(w, "%dx%d %s seed=%d, %d iterations, best tier for this CPU: %s\n",
		r.Width, r.Height, r.Pattern, r.Seed, r.Iterations, r.Best)
	fmt.Fprintf(w, "%-8s %-10s %-10s %-12s %s\n", "tier", "identical", "flagged", "average", "speedup")
	for _, ts := range r.Tiers {
		fmt.Fprintf(w, "%-8s %-10t %-10d %-12s %.2fx\n", ts.Tier, ts.Identical, ts.Flagged, ts.Average, ts.Speedup)
	}
}
