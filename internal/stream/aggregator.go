// ABOUTME: Aggregates streamed completion fragments into throttled full-text snapshots
// ABOUTME: Each snapshot carries everything generated so far, never a delta

package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/groq-relay/internal/llm"
	"github.com/2389/groq-relay/internal/session"
)

// DefaultFlushThreshold is how many pending characters trigger a snapshot.
const DefaultFlushThreshold = 100

// Completer is the upstream completion service.
type Completer interface {
	Complete(ctx context.Context, turns []session.Turn, model string) (<-chan llm.Chunk, error)
}

// Snapshot is one outbound update: the entire text generated so far.
// The last snapshot of a stream has Final set; a failed stream additionally
// carries a *GenerationError with the partial text.
type Snapshot struct {
	Text  string
	Final bool
	Err   error
}

// GenerationError reports an upstream completion failure together with
// whatever text had been accumulated before it.
type GenerationError struct {
	Partial string
	Cause   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Aggregator turns a fragment stream into a bounded number of snapshots.
// Delivery channels charge per update and cap payload size, so fragments are
// buffered until the pending text exceeds the threshold.
type Aggregator struct {
	completer Completer
	threshold int
	logger    *slog.Logger
}

// New creates an Aggregator. threshold <= 0 selects DefaultFlushThreshold.
func New(completer Completer, threshold int, logger *slog.Logger) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		completer: completer,
		threshold: threshold,
		logger:    logger.With("component", "stream"),
	}
}

// Stream runs one completion and emits snapshots on the returned channel.
// Snapshots are monotonic: each extends the previous one. A final snapshot
// is always emitted, even when no text was generated, so the caller can
// finish its bookkeeping. The channel closes after the final snapshot.
func (a *Aggregator) Stream(ctx context.Context, turns []session.Turn, model string) (<-chan Snapshot, error) {
	chunks, err := a.completer.Complete(ctx, turns, model)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot)

	go func() {
		defer close(out)

		var full strings.Builder
		pending := 0

		for chunk := range chunks {
			if chunk.Err != nil {
				genErr := &GenerationError{Partial: full.String(), Cause: chunk.Err}
				a.logger.Warn("stream aborted",
					"model", model,
					"partial_len", full.Len(),
					"error", chunk.Err)
				out <- Snapshot{Text: full.String(), Final: true, Err: genErr}
				return
			}

			full.WriteString(chunk.Text)
			pending += len(chunk.Text)

			if pending > a.threshold {
				out <- Snapshot{Text: full.String()}
				pending = 0
			}
		}

		// Final flush covers whatever the threshold never released.
		out <- Snapshot{Text: full.String(), Final: true}
	}()

	return out, nil
}
