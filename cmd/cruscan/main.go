package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/wnqng/fastPASTA/internal/config"
	"github.com/wnqng/fastPASTA/internal/ioreader"
	"github.com/wnqng/fastPASTA/internal/logging"
	"github.com/wnqng/fastPASTA/internal/pipeline"
	"github.com/wnqng/fastPASTA/internal/rdh"
	"github.com/wnqng/fastPASTA/internal/sanity"
	"github.com/wnqng/fastPASTA/internal/stats"
	"github.com/wnqng/fastPASTA/internal/validator"
	"github.com/wnqng/fastPASTA/internal/view"
	"github.com/wnqng/fastPASTA/internal/writer"
)

// flags is the command line surface; it's layered over config.Config the
// same way the YAML file is, so an unset flag never clobbers a value the
// config file set.
type flags struct {
	configPath string
	input      string
	output     string
	link       int
	view       bool
	checkMode  string
	debug      bool
}

var cmd flags

var rootCmd = &cobra.Command{
	Use:   "cruscan",
	Short: "Streaming validator and viewer for ALICE CRU/ITS readout data",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.configPath, "config", "c", "", "path to a cruscan YAML config")
	rootCmd.Flags().StringVarP(&cmd.input, "input", "i", "", "input file (default: stdin)")
	rootCmd.Flags().StringVarP(&cmd.output, "output", "o", "", "filtered CDP output path ('stdout' for standard output)")
	rootCmd.Flags().IntVarP(&cmd.link, "link", "l", -1, "keep only this link ID (default: keep all)")
	rootCmd.Flags().BoolVar(&cmd.view, "view", false, "render the HBF text view instead of writing filtered output")
	rootCmd.Flags().StringVar(&cmd.checkMode, "check-mode", "", "none|sanity|all")
	rootCmd.Flags().BoolVar(&cmd.debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	level := zapcore.InfoLevel
	if f.debug {
		level = zapcore.DebugLevel
	}
	log, atomicLevel, err := logging.Init(&logging.Config{Level: level})
	if err != nil {
		return fmt.Errorf("cruscan: %w", err)
	}
	defer log.Sync()
	_ = atomicLevel

	in, closeIn, err := openInput(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("cruscan: open input: %w", err)
	}
	defer closeIn()

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)

	switch cfg.RdhVersion {
	case config.RdhVersionV6:
		g.Go(func() error { return runVersion[rdh.V6](ctx, in, cfg, log) })
	default:
		g.Go(func() error { return runVersion[rdh.V7](ctx, in, cfg, log) })
	}
	g.Go(func() error {
		err := waitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	if err := g.Wait(); err != nil {
		var sig interrupted
		if errors.As(err, &sig) {
			return nil
		}
		return err
	}
	return nil
}

func loadConfig(f flags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if f.input != "" {
		cfg.InputPath = &f.input
	}
	if f.output != "" {
		cfg.OutputPath = f.output
	}
	if f.link >= 0 {
		link := uint8(f.link)
		cfg.FilterLink = &link
	}
	if f.view {
		cfg.View = true
	}
	if f.checkMode != "" {
		cfg.CheckMode = f.checkMode
	}
	return cfg, nil
}

func openInput(path *string) (ioreader.BufferedReader, func() error, error) {
	if path == nil {
		return ioreader.NewStreamReader(os.Stdin, 0), func() error { return nil }, nil
	}
	file, err := os.Open(*path)
	if err != nil {
		return nil, nil, err
	}
	if info, err := file.Stat(); err == nil && info.Mode().IsRegular() {
		return ioreader.NewFileReader(file), file.Close, nil
	}
	return ioreader.NewStreamReader(file, 0), file.Close, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "stdout" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

// runVersion builds and runs the full pipeline for a single RDHCRU
// phantom version, chosen once by the caller from cfg.RdhVersion.
func runVersion[V rdh.Version](ctx context.Context, in ioreader.BufferedReader, cfg *config.Config, log *zap.SugaredLogger) error {
	var filter ioreader.LinkFilter
	if cfg.FilterLink != nil {
		link := *cfg.FilterLink
		filter = func(linkID uint8) bool { return linkID == link }
	}

	scanner := ioreader.NewScanner[V](in, filter)

	var runningValidator *validator.Running[V]
	if cfg.CheckMode != config.CheckModeNone {
		sanityOpts := sanity.DefaultOptions()
		sanityOpts.ITS = cfg.System == config.SystemITS
		runningValidator = validator.New[V](sanityOpts)
		runningValidator.RunningChecks = cfg.CheckMode == config.CheckModeAll
	}

	aggregator := stats.NewAggregator()

	var viewWriter *view.Writer
	var filterWriter *writer.Filter[V]
	if cfg.View {
		out, closeOut, err := openOutput(cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("cruscan: open view output: %w", err)
		}
		defer closeOut()
		viewWriter = view.NewWriter(out)
		if err := viewWriter.PrintHeader(); err != nil {
			return fmt.Errorf("cruscan: write view header: %w", err)
		}
	} else if cfg.OutputPath != "" {
		out, closeOut, err := openOutput(cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("cruscan: open filter output: %w", err)
		}
		defer closeOut()
		filterWriter = writer.NewFilter[V](out, cfg.FlushThreshold, log)
	}

	pcfg := pipeline.Config[V]{
		Scanner:         scanner,
		ChunkSize:       cfg.ChunkSize,
		ChannelCapacity: cfg.ChannelCapacity,
		Validator:       runningValidator,
		Sink:            aggregator,
		View:            viewWriter,
		FilterWriter:    filterWriter,
	}

	if err := pipeline.Run(ctx, pcfg, pipeline.WithLog(log)); err != nil {
		return err
	}

	log.Infow("run complete",
		"rdhs", aggregator.RDHs,
		"payload_bytes", aggregator.PayloadBytes,
		"errors", aggregator.Errors,
		"trigger_soc", aggregator.TriggerSOC,
		"trigger_hb", aggregator.TriggerHB,
		"trigger_pht", aggregator.TriggerPhT,
	)
	return nil
}

type interrupted struct {
	os.Signal
}

func (m interrupted) Error() string {
	return m.String()
}

// waitInterrupted blocks until SIGINT/SIGTERM arrives or ctx is
// cancelled, matching the coordinator's own interrupt-wait loop.
func waitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
