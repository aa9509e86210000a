// Command parse-closing reads pasted chat text on stdin and prints the
// closings found with their classification as JSON. Nothing is stored.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/audit"
	"github.com/garyjia/cierres-audit/internal/config"
	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/parser"
	"github.com/garyjia/cierres-audit/pkg/utils"
)

// Output is the JSON document printed on stdout
type Output struct {
	Closings []ClassifiedClosing `json:"closings"`
	Errors   []string            `json:"errors"`
	Warnings []string            `json:"warnings"`
}

// ClassifiedClosing is one parsed closing and its assessment
type ClassifiedClosing struct {
	Closing        entity.Closing        `json:"closing"`
	Classification entity.Classification `json:"classification"`
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	inputPath := flag.String("in", "", "read the text from this file instead of stdin")
	verbose := flag.Bool("v", false, "log debug output to stderr")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := utils.NewCLILogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	in := io.Reader(os.Stdin)
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			logger.Fatal("Failed to open input", zap.Error(err))
		}
		defer f.Close()
		in = f
	}

	out, err := run(in, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to parse closings", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal("Failed to write output", zap.Error(err))
	}
	if len(out.Closings) == 0 {
		os.Exit(2)
	}
}

func run(in io.Reader, cfg *config.Config, logger *zap.Logger) (*Output, error) {
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	clock, err := dates.NewClock(cfg.Audit.Timezone)
	if err != nil {
		return nil, err
	}

	p := parser.New(
		parser.DefaultPatterns(),
		parser.NewBusinessResolver(cfg.Business.Aliases, cfg.Business.Names),
		dates.NewParser(dates.DefaultTables(), clock.Location),
		clock,
	)
	classifier := audit.NewClassifier(cfg.Audit.Thresholds())

	result := p.Parse(string(raw))
	logger.Debug("Parsed input",
		zap.Int("bytes", len(raw)),
		zap.Int("records", len(result.Records)),
		zap.Int("errors", len(result.Errors)))

	out := &Output{
		Closings: make([]ClassifiedClosing, 0, len(result.Records)),
		Errors:   result.Errors,
		Warnings: result.Warnings,
	}
	for _, closing := range result.Records {
		out.Closings = append(out.Closings, ClassifiedClosing{
			Closing:        closing,
			Classification: classifier.Classify(closing),
		})
	}
	return out, nil
}
