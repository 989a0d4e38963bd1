package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/assembler"
	"github.com/BarkinBalci/channel-attribution-service/internal/attribution"
	"github.com/BarkinBalci/channel-attribution-service/internal/config"
	"github.com/BarkinBalci/channel-attribution-service/internal/journey"
	"github.com/BarkinBalci/channel-attribution-service/internal/logger"
	"github.com/BarkinBalci/channel-attribution-service/internal/markov"
	"github.com/BarkinBalci/channel-attribution-service/internal/service"
)

// stdout is the output path that writes to standard output
const stdout = "-"

func main() {
	input := flag.String("input", "", "touchpoint CSV with user_id, date, step and channel columns")
	widePath := flag.String("wide", "", "wide credit table output path, - for stdout")
	longPath := flag.String("long", stdout, "long credit table output path, - for stdout")
	workers := flag.Int("workers", 0, "concurrent Markov removal solves, 0 for one per CPU")
	environment := flag.String("env", "development", "logging environment")
	flag.Parse()

	log, err := logger.New(*environment, "attribute")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *input, *widePath, *longPath, *workers, log); err != nil {
		log.Error("Attribution failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, input, widePath, longPath string, workers int, log *zap.Logger) error {
	header, rows, err := readCSV(input)
	if err != nil {
		return err
	}

	events, err := journey.ParseTable(header, rows)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", input, err)
	}

	solver := markov.NewSolver(markov.SolverConfig{Workers: workers}, log)
	svc := service.NewAttributionService(nil, nil,
		attribution.Models(markov.NewModel(solver)), nil, config.Attribution{}, log)

	result, err := svc.Attribute(ctx, events)
	if err != nil {
		return err
	}

	log.Info("Attribution computed",
		zap.Int("touchpoint_count", len(events)),
		zap.Int("converter_count", len(result.Wide.UserIDs)),
		zap.Int("column_count", len(result.Wide.Columns)))

	if widePath != "" {
		if err := writeOutput(widePath, func(w io.Writer) error {
			return assembler.WriteWideCSV(w, result.Wide)
		}); err != nil {
			return fmt.Errorf("failed to write wide table: %w", err)
		}
	}

	if longPath != "" {
		if err := writeOutput(longPath, func(w io.Writer) error {
			return assembler.WriteLongCSV(w, result.Long)
		}); err != nil {
			return fmt.Errorf("failed to write long table: %w", err)
		}
	}

	return nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}

	return records[0], records[1:], nil
}

func writeOutput(path string, write func(io.Writer) error) error {
	if path == stdout {
		return write(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
