package runlog

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/visionboard/board"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Journal 测试
// =============================================================================

// recordingSink 内存主通道
type recordingSink struct {
	mu     sync.Mutex
	events []board.Event
}

func (r *recordingSink) Send(ev board.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func (r *recordingSink) Events() []board.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]board.Event(nil), r.events...)
}

func setupJournal(t *testing.T, cfg Config) (*miniredis.Miniredis, *Journal) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg.Addr = mr.Addr()
	client, err := Connect(context.Background(), cfg)
	require.NoError(t, err)

	journal, err := NewJournal(client, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return mr, journal
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}

func TestNewJournal_Defaults(t *testing.T) {
	_, err := NewJournal(nil, Config{}, nil)
	assert.Error(t, err)

	_, journal := setupJournal(t, Config{})
	assert.Equal(t, 24*time.Hour, journal.config.TTL)
	assert.Equal(t, int64(1000), journal.config.MaxLen)
	assert.Equal(t, "visionboard:run:abc:events", journal.Key("abc"))
	assert.NoError(t, journal.Ping(context.Background()))
}

func TestJournal_AppendAndReplay(t *testing.T) {
	mr, journal := setupJournal(t, Config{TTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, journal.Append(ctx, "run-1", board.NewProgress("Starting", 0, 10)))
	require.NoError(t, journal.Append(ctx, "run-1", board.NewAttempt(1, 3, "Attempt 1 of 3")))
	assert.Equal(t, time.Duration(0), mr.TTL(journal.Key("run-1")))

	require.NoError(t, journal.Append(ctx, "run-1", board.SuccessEvent{
		Type: board.EventSuccess, ArtifactLocator: "file:///x.png", FinalScore: 8, AttemptsUsed: 1,
	}))
	assert.Equal(t, time.Hour, mr.TTL(journal.Key("run-1")))

	entries, err := journal.Replay(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, board.EventProgress, entries[0].Type)
	assert.Equal(t, board.EventAttempt, entries[1].Type)
	assert.Equal(t, board.EventSuccess, entries[2].Type)

	var success board.SuccessEvent
	require.NoError(t, json.Unmarshal(entries[2].Event, &success))
	assert.Equal(t, "file:///x.png", success.ArtifactLocator)
	assert.Equal(t, 8, success.FinalScore)
}

func TestJournal_ReplayMissing(t *testing.T) {
	_, journal := setupJournal(t, Config{})
	_, err := journal.Replay(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestJournal_MaxLen(t *testing.T) {
	_, journal := setupJournal(t, Config{MaxLen: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, journal.Append(ctx, "run-2", board.NewProgress("p", i, 5)))
	}

	entries, err := journal.Replay(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var last board.ProgressEvent
	require.NoError(t, json.Unmarshal(entries[1].Event, &last))
	assert.Equal(t, 4, last.Step)
}

// xaddRecorder 记录事务管道中 XADD 命令的参数
type xaddRecorder struct {
	mu   sync.Mutex
	args [][]any
}

func (h *xaddRecorder) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *xaddRecorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h *xaddRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.mu.Lock()
		for _, cmd := range cmds {
			if strings.EqualFold(cmd.Name(), "xadd") {
				h.args = append(h.args, cmd.Args())
			}
		}
		h.mu.Unlock()
		return next(ctx, cmds)
	}
}

var _ redis.Hook = (*xaddRecorder)(nil)

func TestJournal_AppendTrimsApproximately(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rec := &xaddRecorder{}
	client.AddHook(rec)

	journal, err := NewJournal(client, Config{MaxLen: 50}, zap.NewNop())
	require.NoError(t, err)
	defer journal.Close()

	require.NoError(t, journal.Append(context.Background(), "run-7", board.NewProgress("Starting", 0, 4)))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.args, 1)
	args := rec.args[0]
	require.GreaterOrEqual(t, len(args), 5)
	assert.Equal(t, "maxlen", strings.ToLower(args[2].(string)))
	assert.Equal(t, "~", args[3])
	assert.EqualValues(t, 50, args[4])
}

func TestJournalSink_TeeWithStreamer(t *testing.T) {
	mr, journal := setupJournal(t, Config{TTL: time.Minute})

	primary := &recordingSink{}
	tee := board.NewTeeSink(primary, zap.NewNop(), journal.Sink(context.Background(), "run-3"))
	streamer := board.NewStreamer(tee, zap.NewNop())

	err := streamer.Stream(context.Background(), func(ctx context.Context, emit board.Emitter) {
		emit(board.NewProgress("Starting", 0, 4))
		emit(board.NewError("Failed to generate an image after 1 attempts", 1))
	})
	require.NoError(t, err)

	entries, err := journal.Replay(context.Background(), "run-3")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, board.EventError, entries[1].Type)
	assert.Len(t, primary.Events(), 2)
	assert.Equal(t, time.Minute, mr.TTL(journal.Key("run-3")))
}

func TestJournalSink_RedisDownDoesNotBreakPrimary(t *testing.T) {
	mr, journal := setupJournal(t, Config{})

	primary := &recordingSink{}
	tee := board.NewTeeSink(primary, zap.NewNop(), journal.Sink(context.Background(), "run-4"))
	mr.Close()

	require.NoError(t, tee.Send(board.NewProgress("Starting", 0, 4)))
	require.NoError(t, tee.Close())
	assert.Len(t, primary.Events(), 1)
}

func TestJournal_ForeignClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	journal, err := NewJournal(client, Config{KeyPrefix: "custom"}, nil)
	require.NoError(t, err)
	defer journal.Close()

	require.NoError(t, journal.Append(context.Background(), "r", board.NewProgress("x", 0, 1)))
	assert.True(t, mr.Exists("custom:run:r:events"))
}
