// Command rfiflag generates synthetic time-frequency sets, flags them with a
// strategy file and reports how well the flags match the injected
// interference.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/rfi.flagger/internal/config"
	"github.com/banshee-data/rfi.flagger/internal/fsutil"
	"github.com/banshee-data/rfi.flagger/internal/monitoring"
	"github.com/banshee-data/rfi.flagger/internal/rfi/storage/sqlite"
	"github.com/banshee-data/rfi.flagger/internal/rfi/strategy"
	"github.com/banshee-data/rfi.flagger/internal/rfi/testset"
	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
	"github.com/banshee-data/rfi.flagger/internal/security"
	"github.com/banshee-data/rfi.flagger/internal/version"
)

// Config holds the command line options.
type Config struct {
	StrategyPath string
	Width        int
	Height       int
	Background   string
	Pattern      string
	Sigma        float64
	Strength     float64
	Seed         uint64
	Sets         int
	Tier         string
	ReportPath   string
	DBPath       string
	Notes        string
	LogLevel     string
	LogJSON      bool
	ShowVersion  bool
}

// SetReport is the outcome for one generated set.
type SetReport struct {
	Seed       uint64          `json:"seed"`
	Background string          `json:"background"`
	Pattern    string          `json:"pattern"`
	Result     strategy.Result `json:"result"`
	Score      testset.Score   `json:"score"`
	Recall     float64         `json:"recall"`
	Precision  float64         `json:"precision"`
	RunID      string          `json:"run_id,omitempty"`
}

// Report is written with -report.
type Report struct {
	Build        version.Info `json:"build"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Distribution string       `json:"distribution"`
	Method       string       `json:"method"`
	Tier         string       `json:"tier"`
	Sets         []SetReport  `json:"sets"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, fsutil.OSFileSystem{}); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "rfiflag: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, out io.Writer) (Config, error) {
	cfg := Config{}
	fs := flag.NewFlagSet("rfiflag", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&cfg.StrategyPath, "strategy", "", "Strategy JSON file (default: built-in defaults)")
	fs.IntVar(&cfg.Width, "width", 512, "Time steps per set")
	fs.IntVar(&cfg.Height, "height", 256, "Frequency channels per set")
	fs.StringVar(&cfg.Background, "background", "gaussian", "Background noise: empty, gaussian, rayleigh")
	fs.StringVar(&cfg.Pattern, "pattern", "spectral-lines", "Injected RFI: none, spectral-lines, intermittent-spectral-lines, full-band-bursts, half-band-bursts")
	fs.Float64Var(&cfg.Sigma, "sigma", 1, "Background noise level")
	fs.Float64Var(&cfg.Strength, "strength", 1, "RFI strength in units of sigma")
	fs.Uint64Var(&cfg.Seed, "seed", 1, "Seed of the first set; set i uses seed+i")
	fs.IntVar(&cfg.Sets, "sets", 1, "Number of sets to generate and flag concurrently")
	fs.StringVar(&cfg.Tier, "tier", "", "Override the strategy tier: auto, scalar, lanes4, lanes8")
	fs.StringVar(&cfg.ReportPath, "report", "", "Write a JSON report to this path")
	fs.StringVar(&cfg.DBPath, "db", "", "Record runs in this SQLite database")
	fs.StringVar(&cfg.Notes, "notes", "", "Free text stored with recorded runs")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.LogJSON, "log-json", false, "Log JSON lines instead of console output")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, fmt.Errorf("width and height must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Sets < 1 {
		return cfg, fmt.Errorf("sets must be at least 1, got %d", cfg.Sets)
	}
	return cfg, nil
}

func run(args []string, stdout io.Writer, fsys fsutil.FileSystem) error {
	cfg, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Fprintln(stdout, version.Current().String("rfiflag"))
		return nil
	}

	level, err := monitoring.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	monitoring.Configure(os.Stderr, level, !cfg.LogJSON)
	log := monitoring.Logger("rfiflag")

	if err := validateOutputs(cfg, fsys); err != nil {
		return err
	}

	tuning, err := loadStrategy(fsys, cfg.StrategyPath)
	if err != nil {
		return err
	}
	if cfg.Tier != "" {
		tuning.Tier = &cfg.Tier
	}
	tc, err := strategy.FromTuning(tuning)
	if err != nil {
		return err
	}
	background, err := testset.ParseBackground(cfg.Background)
	if err != nil {
		return err
	}
	pattern, err := testset.ParsePattern(cfg.Pattern)
	if err != nil {
		return err
	}

	sets := make([]testset.Set, cfg.Sets)
	jobs := make([]strategy.Job, cfg.Sets)
	for i := range sets {
		sets[i] = testset.Generate(testset.Config{
			Width:      cfg.Width,
			Height:     cfg.Height,
			Background: background,
			Pattern:    pattern,
			Sigma:      cfg.Sigma,
			Strength:   cfg.Strength,
			Seed:       cfg.Seed + uint64(i),
		})
		jobs[i] = strategy.Job{
			Grid:                 sets[i].Grid,
			Mask:                 tfgrid.NewMaskFor(sets[i].Grid, false),
			Additive:             tuning.GetAdditive(),
			TimeSensitivity:      tuning.GetTimeSensitivity(),
			FrequencySensitivity: tuning.GetFrequencySensitivity(),
		}
	}
	log.Info().
		Int("sets", cfg.Sets).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Str("tier", tc.Tier().String()).
		Msg("flagging synthetic sets")

	results, err := tc.ExecuteBatch(context.Background(), jobs, tuning.GetBatchWorkers())
	if err != nil {
		return err
	}

	report := Report{
		Build:        version.Current(),
		Width:        cfg.Width,
		Height:       cfg.Height,
		Distribution: tc.Distribution().String(),
		Method:       tc.Method().String(),
		Tier:         tc.Tier().String(),
		Sets:         make([]SetReport, len(results)),
	}
	for i, res := range results {
		score := testset.Compare(jobs[i].Mask, sets[i].Truth)
		report.Sets[i] = SetReport{
			Seed:       cfg.Seed + uint64(i),
			Background: background.String(),
			Pattern:    pattern.String(),
			Result:     res,
			Score:      score,
			Recall:     score.Recall(),
			Precision:  score.Precision(),
		}
	}

	if cfg.DBPath != "" {
		if err := recordRuns(cfg, tc, &report); err != nil {
			return err
		}
	}

	printSummary(stdout, &report)

	if cfg.ReportPath != "" {
		if err := fsutil.WriteJSON(fsys, cfg.ReportPath, report); err != nil {
			return err
		}
		log.Info().Str("path", cfg.ReportPath).Msg("report written")
	}
	return nil
}

func loadStrategy(fsys fsutil.FileSystem, path string) (*config.StrategyConfig, error) {
	if path == "" {
		return config.DefaultStrategyConfig(), nil
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy: %w", err)
	}
	return config.ParseStrategyConfig(data)
}

// validateOutputs confines files written to disk to the temp and working
// directories. In-memory filesystems are only checked for the database.
func validateOutputs(cfg Config, fsys fsutil.FileSystem) error {
	if cfg.DBPath != "" {
		if err := security.ValidateDefaultOutputPath(cfg.DBPath); err != nil {
			return fmt.Errorf("invalid -db: %w", err)
		}
	}
	if _, onDisk := fsys.(fsutil.OSFileSystem); onDisk && cfg.ReportPath != "" {
		if err := security.ValidateDefaultOutputPath(cfg.ReportPath); err != nil {
			return fmt.Errorf("invalid -report: %w", err)
		}
	}
	return nil
}

func recordRuns(cfg Config, tc *strategy.ThresholdConfig, report *Report) error {
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewRunStore(db.DB)
	for i := range report.Sets {
		s := &report.Sets[i]
		run := sqlite.NewRun(tc, cfg.Width, cfg.Height, s.Result)
		seed := s.Seed
		score := s.Score
		run.Background = s.Background
		run.Pattern = s.Pattern
		run.Seed = &seed
		run.Score = &score
		run.Notes = cfg.Notes
		if err := store.Insert(run); err != nil {
			return err
		}
		s.RunID = run.RunID
	}
	return nil
}

func printSummary(w io.Writer, report *Report) {
	fmt.Fprintf(w, "%dx%d  distribution=%s method=%s tier=%s\n",
		report.Width, report.Height, report.Distribution, report.Method, report.Tier)
	fmt.Fprintf(w, "%-8s %-10s %-10s %-10s %-8s %-8s %s\n",
		"seed", "flagged", "filtered", "stddev", "recall", "prec", "time")
	for _, s := range report.Sets {
		fmt.Fprintf(w, "%-8d %-10d %-10d %-10.4f %-8.3f %-8.3f %s\n",
			s.Seed, s.Result.Flagged, s.Result.Filtered, s.Result.Noise.StdDev,
			s.Recall, s.Precision, s.Result.Duration)
	}
}
