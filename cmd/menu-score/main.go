// cmd/menu-score/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"menu-scorecard/internal/analysis"
	"menu-scorecard/internal/capture"
	"menu-scorecard/internal/common/config"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/observability"
	"menu-scorecard/internal/scorecard"
)

func main() {
	analyzeCmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	schemaCmd := flag.NewFlagSet("schema", flag.ExitOnError)

	// Analyze command flags
	file := analyzeCmd.String("file", "", "Menu image or PDF to score")
	mediaType := analyzeCmd.String("type", "", "Media type of the file (sniffed when empty)")
	configPath := analyzeCmd.String("config", "", "Config file (defaults to configs/config.yaml)")
	asJSON := analyzeCmd.Bool("json", false, "Print the scorecard as JSON")
	verbose := analyzeCmd.Bool("v", false, "Log at debug level")

	// Validate command flags
	input := validateCmd.String("file", "", "Model response to check (- for stdin)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		analyzeCmd.Parse(os.Args[2:])
		if *file == "" {
			fmt.Println("Error: -file is required for analyze.")
			analyzeCmd.Usage()
			os.Exit(1)
		}
		if err := runAnalyze(*file, *mediaType, *configPath, *asJSON, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if *input == "" {
			fmt.Println("Error: -file is required for validate.")
			validateCmd.Usage()
			os.Exit(1)
		}
		if err := runValidate(*input); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "schema":
		schemaCmd.Parse(os.Args[2:])
		printJSON(scorecard.ResponseSchema())

	default:
		help()
		os.Exit(1)
	}
}

func help() {
	fmt.Println("Usage: menu-score <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  analyze   Score a menu image or PDF")
	fmt.Println("  validate  Check a raw model response against the scorecard contract")
	fmt.Println("  schema    Print the response schema sent to the model")
}

func runAnalyze(path, mediaType, configPath string, asJSON, verbose bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, "console")

	analyzer, err := analysis.New(analysis.ConfigFrom(cfg), log, observability.Noop())
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	in, err := capture.FromFile(f, mediaType, cfg.Capture.MaxUploadBytes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := analyzer.Analyze(ctx, in)
	if err != nil {
		return err
	}

	if asJSON {
		printJSON(result)
		return nil
	}
	printScorecard(os.Stdout, result, analyzer.Name(), time.Since(start))
	return nil
}

func runValidate(path string) error {
	var (
		body []byte
		err  error
	)
	if path == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	result, err := scorecard.Decode(body)
	if err != nil {
		var decodeErr *scorecard.DecodeError
		if errors.As(err, &decodeErr) && len(decodeErr.Fields) > 0 {
			fmt.Println("❌ Response violates the scorecard contract:")
			for _, f := range decodeErr.Fields {
				fmt.Printf("   - %s: %s\n", valueOr(f.Field, "(root)"), f.Reason)
			}
			return errors.New("validation failed")
		}
		return err
	}

	fmt.Println("✅ Response is a valid scorecard after repair:")
	printJSON(result)
	return nil
}

func printScorecard(w io.Writer, r *scorecard.AnalysisResult, analyzer string, took time.Duration) {
	fmt.Fprintf(w, "Menu score: %d/100 (%s confidence)\n", r.OverallScore, r.ConfidenceLevel)
	fmt.Fprintf(w, "%s\n\n", r.OneSentenceSummary)

	fmt.Fprintln(w, "Breakdown")
	fmt.Fprintf(w, "  Simplicity  %2d/25\n", r.Breakdown.SimplicityScore)
	fmt.Fprintf(w, "  Pricing     %2d/25\n", r.Breakdown.PricingScore)
	fmt.Fprintf(w, "  Balance     %2d/25\n", r.Breakdown.BalanceScore)
	fmt.Fprintf(w, "  Margin      %2d/25\n\n", r.Breakdown.MarginScore)

	m := r.Metrics
	fmt.Fprintf(w, "Items: %d (%s), complexity %d/10\n", m.TotalItems, m.SizeCategory, m.ComplexityScore)
	fmt.Fprintf(w, "Prices: %.2f to %.2f, median %.2f\n\n", m.Pricing.MinPrice, m.Pricing.MaxPrice, m.Pricing.MedianPrice)

	printList(w, "Positives", r.Positives)
	printList(w, "Issues", r.Issues)
	printList(w, "Quick wins", r.QuickWins)

	fmt.Fprintf(w, "(%s analyzer, %s)\n", analyzer, took.Round(time.Millisecond))
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for i, item := range items {
		fmt.Fprintf(w, "  %d. %s\n", i+1, strings.TrimSpace(item))
	}
	fmt.Fprintln(w)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
