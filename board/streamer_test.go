package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingSink struct {
	err    error
	sent   int
	closed int
}

func (f *failingSink) Send(Event) error { f.sent++; return f.err }
func (f *failingSink) Close() error     { f.closed++; return nil }

func TestStreamer_ForwardsInOrder(t *testing.T) {
	rec := &RecordingSink{}
	s := NewStreamer(rec, zap.NewNop())

	s.Emit(NewProgress("a", 0, 4))
	s.Emit(NewAttempt(1, 1, "Attempt 1 of 1"))
	s.Emit(SuccessEvent{Type: EventSuccess, ArtifactLocator: "x"})

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventProgress, events[0].EventType())
	assert.Equal(t, EventAttempt, events[1].EventType())
	assert.Equal(t, EventSuccess, events[2].EventType())
	assert.True(t, s.Terminated())
}

func TestStreamer_AtMostOneTerminal(t *testing.T) {
	rec := &RecordingSink{}
	s := NewStreamer(rec, nil)

	s.Emit(NewError("first", 1))
	s.Emit(NewError("second", 2))
	s.Emit(NewProgress("late", 1, 1))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "first", events[0].(ErrorEvent).Message)
}

func TestStreamer_CloseIdempotent(t *testing.T) {
	rec := &RecordingSink{}
	s := NewStreamer(rec, nil)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, rec.CloseCount())

	s.Emit(NewProgress("after close", 0, 1))
	assert.Empty(t, rec.Events())
}

func TestStreamer_StreamAddsMissingTerminal(t *testing.T) {
	rec := &RecordingSink{}
	s := NewStreamer(rec, nil)

	err := s.Stream(context.Background(), func(ctx context.Context, emit Emitter) {
		emit(NewProgress("working", 0, 1))
	})
	require.NoError(t, err)

	events := rec.Events()
	require.Len(t, events, 2)
	last := events[1].(ErrorEvent)
	assert.Equal(t, "run ended without a result", last.Message)
	assert.Equal(t, 1, rec.CloseCount())
}

func TestStreamer_StreamRecoversPanic(t *testing.T) {
	rec := &RecordingSink{}
	s := NewStreamer(rec, nil)

	err := s.Stream(context.Background(), func(ctx context.Context, emit Emitter) {
		panic("boom")
	})
	require.Error(t, err)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "unexpected error: boom", events[0].(ErrorEvent).Message)
	assert.Equal(t, 1, rec.CloseCount())
}

func TestStreamer_StreamKeepsExistingTerminal(t *testing.T) {
	rec := &RecordingSink{}
	s := NewStreamer(rec, nil)

	err := s.Stream(context.Background(), func(ctx context.Context, emit Emitter) {
		emit(SuccessEvent{Type: EventSuccess, ArtifactLocator: "loc"})
	})
	require.NoError(t, err)
	require.Len(t, rec.Events(), 1)
	assert.Equal(t, EventSuccess, rec.Events()[0].EventType())
}

func TestStreamer_BrokenSinkCancelsRun(t *testing.T) {
	sink := &failingSink{err: errors.New("client gone")}
	s := NewStreamer(sink, nil)

	var cancelled bool
	err := s.Stream(context.Background(), func(ctx context.Context, emit Emitter) {
		emit(NewProgress("first", 0, 1))
		cancelled = ctx.Err() != nil
		emit(NewProgress("second", 0, 1))
	})
	require.NoError(t, err)

	assert.True(t, cancelled)
	assert.Equal(t, 1, sink.sent)
	assert.Equal(t, 1, sink.closed)
	assert.EqualError(t, s.Err(), "client gone")
}

func TestStreamer_WithOrchestrator(t *testing.T) {
	h := newHarness(&fakeImage{}, &fakeEvaluator{responses: []string{scoreText("9")}}, DefaultPolicy())
	rec := &RecordingSink{}
	s := NewStreamer(rec, nil)

	err := s.Stream(context.Background(), func(ctx context.Context, emit Emitter) {
		h.orch.Run(ctx, sampleRequest(), emit)
	})
	require.NoError(t, err)

	events := rec.Events()
	assert.Equal(t, 1, countType(events, EventSuccess))
	assert.Equal(t, 0, countType(events, EventError))
	assert.Equal(t, 1, rec.CloseCount())
}

func TestTeeSink_SecondaryFailureIgnored(t *testing.T) {
	primary := &RecordingSink{}
	secondary := &failingSink{err: errors.New("journal down")}
	tee := NewTeeSink(primary, zap.NewNop(), secondary)

	require.NoError(t, tee.Send(NewProgress("x", 0, 1)))
	require.NoError(t, tee.Close())

	assert.Len(t, primary.Events(), 1)
	assert.Equal(t, 1, secondary.sent)
	assert.Equal(t, 1, secondary.closed)
	assert.Equal(t, 1, primary.CloseCount())
}

func TestRecordingSink_SendAfterClose(t *testing.T) {
	rec := &RecordingSink{}
	require.NoError(t, rec.Close())
	assert.ErrorIs(t, rec.Send(NewProgress("x", 0, 1)), ErrStreamClosed)
}
