// ABOUTME: Tests for the stream aggregator
// ABOUTME: Covers threshold flushes, monotonic snapshots, final flush and failures

package stream

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/groq-relay/internal/llm"
	"github.com/2389/groq-relay/internal/session"
)

// fakeCompleter replays canned chunks.
type fakeCompleter struct {
	chunks []llm.Chunk
	err    error
}

func (f *fakeCompleter) Complete(ctx context.Context, turns []session.Turn, model string) (<-chan llm.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llm.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func fragments(texts ...string) []llm.Chunk {
	chunks := make([]llm.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = llm.Chunk{Text: t}
	}
	return chunks
}

func collect(t *testing.T, agg *Aggregator, chunks []llm.Chunk) []Snapshot {
	t.Helper()
	out, err := agg.Stream(context.Background(), []session.Turn{{Role: session.RoleUser, Content: "hi"}}, "m1")
	require.NoError(t, err)

	var snaps []Snapshot
	for snap := range out {
		snaps = append(snaps, snap)
	}
	return snaps
}

func TestStream_ThresholdScenario(t *testing.T) {
	// Threshold 3: "Hel" stays pending, "lo " flushes "Hello ", "wor" stays
	// pending, "ld" flushes "Hello world", then the final flush repeats it.
	completer := &fakeCompleter{chunks: fragments("Hel", "lo ", "wor", "ld")}
	agg := New(completer, 3, nil)

	snaps := collect(t, agg, completer.chunks)

	require.Len(t, snaps, 3)
	assert.Equal(t, "Hello ", snaps[0].Text)
	assert.Equal(t, "Hello world", snaps[1].Text)
	assert.Equal(t, "Hello world", snaps[2].Text)
	assert.True(t, snaps[2].Final)
	assert.False(t, snaps[0].Final)
	assert.False(t, snaps[1].Final)
}

func TestStream_SnapshotsAreMonotonicPrefixes(t *testing.T) {
	completer := &fakeCompleter{chunks: fragments("a", "bc", "def", "ghij", "klmno")}
	agg := New(completer, 2, nil)

	snaps := collect(t, agg, completer.chunks)
	require.NotEmpty(t, snaps)

	prev := ""
	for _, snap := range snaps {
		assert.True(t, strings.HasPrefix(snap.Text, prev),
			"snapshot %q does not extend %q", snap.Text, prev)
		prev = snap.Text
	}
	assert.Equal(t, "abcdefghijklmno", snaps[len(snaps)-1].Text)
	assert.True(t, snaps[len(snaps)-1].Final)
}

func TestStream_FinalFlushBelowThreshold(t *testing.T) {
	completer := &fakeCompleter{chunks: fragments("hi")}
	agg := New(completer, 100, nil)

	snaps := collect(t, agg, completer.chunks)

	require.Len(t, snaps, 1)
	assert.Equal(t, "hi", snaps[0].Text)
	assert.True(t, snaps[0].Final)
}

func TestStream_EmptyStreamEmitsEmptyFinal(t *testing.T) {
	completer := &fakeCompleter{}
	agg := New(completer, 100, nil)

	snaps := collect(t, agg, nil)

	require.Len(t, snaps, 1)
	assert.Empty(t, snaps[0].Text)
	assert.True(t, snaps[0].Final)
	assert.NoError(t, snaps[0].Err)
}

func TestStream_FailureCarriesPartialText(t *testing.T) {
	cause := errors.New("rate limited")
	completer := &fakeCompleter{chunks: append(fragments("partial ", "answer"), llm.Chunk{Err: cause})}
	agg := New(completer, 3, nil)

	snaps := collect(t, agg, completer.chunks)
	require.NotEmpty(t, snaps)

	last := snaps[len(snaps)-1]
	assert.True(t, last.Final)
	require.Error(t, last.Err)

	var genErr *GenerationError
	require.ErrorAs(t, last.Err, &genErr)
	assert.Equal(t, "partial answer", genErr.Partial)
	assert.ErrorIs(t, last.Err, cause)

	// No snapshots after the failure
	assert.Equal(t, "partial answer", last.Text)
}

func TestStream_UpfrontCompleterErrorPropagates(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("no api key")}
	agg := New(completer, 100, nil)

	out, err := agg.Stream(context.Background(), []session.Turn{{Role: session.RoleUser, Content: "hi"}}, "m1")
	require.Error(t, err)
	assert.Nil(t, out)
}

func TestNew_ZeroThresholdUsesDefault(t *testing.T) {
	agg := New(&fakeCompleter{}, 0, nil)
	assert.Equal(t, DefaultFlushThreshold, agg.threshold)
}
