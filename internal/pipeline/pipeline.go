// Package pipeline wires the reader, the running validator, and the
// output sinks into the three-stage concurrent pipeline spec.md
// describes: one reader goroutine, one validator/sink goroutine, and a
// bounded channel between them.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wnqng/fastPASTA/internal/cdp"
	"github.com/wnqng/fastPASTA/internal/gbt"
	"github.com/wnqng/fastPASTA/internal/ioreader"
	"github.com/wnqng/fastPASTA/internal/rdh"
	"github.com/wnqng/fastPASTA/internal/stats"
	"github.com/wnqng/fastPASTA/internal/validator"
	"github.com/wnqng/fastPASTA/internal/view"
	"github.com/wnqng/fastPASTA/internal/writer"
)

// options holds the functional-option-configurable pieces, following the
// teacher's stage.WithLog pattern.
type options struct {
	log *zap.SugaredLogger
}

func newOptions() *options {
	return &options{log: zap.NewNop().Sugar()}
}

// Option configures a Run call.
type Option func(*options)

// WithLog sets the logger used for resync and shutdown diagnostics.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// Config bundles the stages a Run call needs. ChunkSize and
// ChannelCapacity mirror spec.md §5's N=100 defaults; a Config zero value
// is not runnable — use config.DefaultConfig to seed sensible values
// upstream and translate into this shape at the call site.
type Config[V rdh.Version] struct {
	Scanner         *ioreader.Scanner[V]
	ChunkSize       int
	ChannelCapacity int
	// Validator runs per-word sanity and cross-word checks over every
	// GBT word; nil disables word-level processing entirely (CheckMode
	// "none"), leaving only the per-CDP counters and writer/view stages.
	Validator *validator.Running[V]
	Sink            stats.Sink
	View            *view.Writer
	FilterWriter    *writer.Filter[V]
	Shutdown        *Shutdown
}

// Run spawns the reader and validator/sink goroutines under an errgroup
// and blocks until both finish or ctx is cancelled. The first non-nil
// error from either stage is returned; a failed send after shutdown was
// requested is treated as routine and not propagated.
func Run[V rdh.Version](ctx context.Context, cfg Config[V], opts ...Option) error {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}
	if cfg.Shutdown == nil {
		cfg.Shutdown = &Shutdown{}
	}

	chunks := make(chan *cdp.Chunk[V], cfg.ChannelCapacity)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runReader(ctx, cfg, chunks, o.log)
	})
	g.Go(func() error {
		return runValidator(ctx, cfg, chunks, o.log)
	})

	return g.Wait()
}

func runReader[V rdh.Version](ctx context.Context, cfg Config[V], out chan<- *cdp.Chunk[V], log *zap.SugaredLogger) error {
	defer close(out)

	for {
		if cfg.Shutdown.Get() || ctx.Err() != nil {
			log.Info("reader stopping: shutdown requested")
			return nil
		}

		chunk, err := cfg.Scanner.GetChunk(cfg.ChunkSize)
		if err != nil {
			if errors.Is(err, ioreader.ErrEndOfInput) {
				log.Info("reader stopping: end of input")
				return nil
			}
			log.Errorw("reader stopping: decode error", "error", err)
			return fmt.Errorf("pipeline: reader: %w", err)
		}
		if chunk == nil {
			return nil
		}

		select {
		case out <- chunk:
		case <-ctx.Done():
			return nil
		}

		if cfg.Shutdown.Get() {
			return nil
		}
		if chunk.Len() < cfg.ChunkSize {
			log.Info("reader stopping: final partial chunk")
			return nil
		}
	}
}

func runValidator[V rdh.Version](ctx context.Context, cfg Config[V], in <-chan *cdp.Chunk[V], log *zap.SugaredLogger) error {
	for {
		if cfg.Shutdown.Get() {
			return nil
		}

		select {
		case chunk, ok := <-in:
			if !ok {
				return nil
			}
			processChunk(cfg, chunk, log)
		case <-ctx.Done():
			return nil
		}

		if cfg.Shutdown.Get() {
			return nil
		}
	}
}

func processChunk[V rdh.Version](cfg Config[V], chunk *cdp.Chunk[V], log *zap.SugaredLogger) {
	for _, rec := range chunk.Records() {
		cfg.Sink.Emit(stats.NewCounterEvent(stats.CounterRDHs, 1))
		cfg.Sink.Emit(stats.NewCounterEvent(stats.CounterPayloadBytes, uint64(len(rec.Payload))))
		cfg.Sink.Emit(stats.NewCounterEvent(triggerCounterKind(rec.RDH), 1))

		if cfg.FilterWriter != nil {
			if err := cfg.FilterWriter.Write(rec.RDH, rec.Payload); err != nil {
				log.Errorw("filter writer failed", "error", err)
			}
		}

		if cfg.View != nil {
			if err := view.PrintRDH(cfg.View, rec.RDH, rec.RdhMemPos); err != nil {
				log.Errorw("view write failed", "error", err)
			}
		}

		if cfg.Validator == nil {
			continue
		}
		cfg.Validator.SetCurrentRDH(rec.RDH, rec.RdhMemPos)

		it, err := gbt.NewIterator(rec.Payload, rec.RDH.DataFormat)
		if err != nil {
			log.Warnw("invalid payload stride, resetting state", "error", err)
			cfg.Sink.Emit(stats.NewErrorEvent(fmt.Sprintf("%s: %v", "InvalidFormat", err)))
			continue
		}

		for {
			w, _, ok := it.Next()
			if !ok {
				break
			}
			label, memPos, msgs := cfg.Validator.Check(w)
			for _, msg := range msgs {
				cfg.Sink.Emit(stats.NewErrorEvent(msg))
			}
			if cfg.View != nil {
				_ = cfg.View.PrintWord(memPos, label, w)
			}
		}
	}
}

func triggerCounterKind[V rdh.Version](h rdh.RDHCRU[V]) stats.CounterKind {
	switch validator.TriggerCategory(h.Rdh2.TriggerType) {
	case "SOC":
		return stats.CounterTriggerSOC
	case "HB":
		return stats.CounterTriggerHB
	case "PhT":
		return stats.CounterTriggerPhT
	default:
		return stats.CounterTriggerOther
	}
}
