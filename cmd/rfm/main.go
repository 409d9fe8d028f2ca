package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"rfmcli/internal/app"
	"rfmcli/internal/config"
	"rfmcli/internal/infrastructure"
	"rfmcli/internal/operations"
	"rfmcli/pkg/contracts"
)

const usage = `usage: rfm <command> [flags]

commands:
  run      segment customers and export the target segment
  serve    run the pipeline and serve the report API
  version  print version information
`

// exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	switch args[0] {
	case "run":
		return runCommand(args[1:], stdout, stderr)
	case "serve":
		return serveCommand(args[1:], stderr)
	case "version", "-v", "--version":
		fmt.Fprintln(stdout, contracts.GetVersionString())
		return exitOK
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
}

// pipelineFlags are shared by run and serve; empty values keep the config
type pipelineFlags struct {
	configFile string
	input      string
	sheet      string
	format     string
	outDir     string
	loyalFile  string
	scored     string
	reference  string
	segment    string
	outliers   bool
	bom        bool
}

func bindPipelineFlags(fs *flag.FlagSet) *pipelineFlags {
	f := &pipelineFlags{}
	fs.StringVar(&f.configFile, "config", "", "YAML config file (default $"+config.ConfigFileEnv+")")
	fs.StringVar(&f.input, "in", "", "transaction table (.xlsx or .csv)")
	fs.StringVar(&f.sheet, "sheet", "", "workbook sheet name")
	fs.StringVar(&f.format, "format", "", "input format: auto, xlsx or csv")
	fs.StringVar(&f.outDir, "out", "", "output directory")
	fs.StringVar(&f.loyalFile, "loyal", "", "segment export file name")
	fs.StringVar(&f.scored, "scored", "", "optional scored table (.xlsx or .csv)")
	fs.StringVar(&f.reference, "ref", "", "reference date YYYY-MM-DD (default: day after last invoice)")
	fs.StringVar(&f.segment, "segment", "", "segment to export")
	fs.BoolVar(&f.outliers, "outliers", false, "run the outlier scan")
	fs.BoolVar(&f.bom, "bom", false, "prefix exported CSV files with a UTF-8 BOM")
	return f
}

// loadConfig layers the flags over file and environment configuration
func (f *pipelineFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configFile != "" {
		cfg, err = config.LoadFile(f.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		value  string
		target *string
	}{
		{f.input, &cfg.Input.Path},
		{f.sheet, &cfg.Input.Sheet},
		{f.format, &cfg.Input.Format},
		{f.outDir, &cfg.Output.Dir},
		{f.loyalFile, &cfg.Output.LoyalFile},
		{f.scored, &cfg.Output.ScoredFile},
		{f.reference, &cfg.Analysis.ReferenceDate},
		{f.segment, &cfg.Output.TargetSegment},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}
	if f.outliers {
		cfg.Analysis.ScanOutliers = true
	}
	if f.bom {
		cfg.Output.BOMPrefix = true
	}
	return cfg, nil
}

func runCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := bindPipelineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, logger, code := setup(flags, stderr)
	if code != exitOK {
		return code
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.String("error", err.Error()))
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := application.RunPipeline(ctx)
	if closeErr := application.Close(context.Background()); closeErr != nil {
		logger.Warn("telemetry shutdown failed", slog.String("error", closeErr.Error()))
	}
	if err != nil {
		reportFailure(stderr, state, err)
		return exitError
	}

	printSummary(stdout, state)
	return exitOK
}

func serveCommand(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := bindPipelineFlags(fs)
	port := fs.Int("port", 0, "listen port (default from config)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, logger, code := setup(flags, stderr)
	if code != exitOK {
		return code
	}
	defer infrastructure.CloseLogFile()

	if *port > 0 {
		cfg.Server.Port = *port
	}
	// the /metrics endpoint needs the prometheus registry
	cfg.Telemetry.EnableMetrics = true

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.String("error", err.Error()))
		return exitError
	}

	state, err := application.RunPipeline(context.Background())
	if err != nil {
		_ = application.Close(context.Background())
		reportFailure(stderr, state, err)
		return exitError
	}

	if err := application.Run(); err != nil {
		logger.Error("report server failed", slog.String("error", err.Error()))
		return exitError
	}
	return exitOK
}

// setup loads and validates the configuration and initializes the logger
func setup(flags *pipelineFlags, stderr io.Writer) (*config.Config, *slog.Logger, int) {
	cfg, err := flags.loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return nil, nil, exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return nil, nil, exitUsage
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return nil, nil, exitError
	}
	return cfg, logger, exitOK
}

func reportFailure(w io.Writer, state *operations.RunState, err error) {
	var opErr *operations.OperationError
	if errors.As(err, &opErr) {
		fmt.Fprintf(w, "pipeline failed at step %s: %v\n", opErr.Step, err)
	} else {
		fmt.Fprintf(w, "pipeline failed: %v\n", err)
	}
	if state != nil {
		fmt.Fprintf(w, "run %s: %d of %d steps completed\n",
			state.ID, len(state.GetCompletedStages()), len(state.Steps))
	}
}

func printSummary(w io.Writer, state *operations.RunState) {
	res := state.Result

	fmt.Fprintf(w, "run %s completed in %s\n", state.ID, state.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "rows: %d loaded, %d canceled, %d incomplete, %d clean\n",
		res.CleanReport.InputRows, res.CleanReport.CanceledRows,
		res.CleanReport.IncompleteRows, res.CleanReport.CleanRows)
	fmt.Fprintf(w, "reference date: %s\n", res.Reference.Format("2006-01-02"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEGMENT\tCUSTOMERS\tRECENCY\tFREQUENCY\tMONETARY")
	for _, s := range res.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.2f\n",
			s.Segment, s.Customers, s.Recency.Mean, s.Frequency.Mean, s.Monetary.Mean)
	}
	tw.Flush()

	fmt.Fprintf(w, "exported %d customers to %s\n", res.Exported, res.LoyalPath)
	if res.ScoredPath != "" {
		fmt.Fprintf(w, "scored table written to %s\n", res.ScoredPath)
	}
}
