package daily

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/pavilion/internal/parser"
	"github.com/hyperengineering/pavilion/internal/store"
	"github.com/hyperengineering/pavilion/internal/types"
)

const (
	validWisdom = `{"text":"知者不惑","source":"论语","interpretation":"明理则不困。"}`
	validQuiz   = `{"question":"《论语》的编者是？","options":["孔子弟子","老子","庄子","孟子"],"answer":0,"explanation":"由孔子弟子及再传弟子编撰。"}`
)

type mockSource struct {
	wisdom, quiz string
	err          error
	wisdomCalls  atomic.Int32
	quizCalls    atomic.Int32
	// gate, when set, blocks calls until closed.
	gate chan struct{}
}

func (m *mockSource) DailyWisdom(ctx context.Context) (string, error) {
	m.wisdomCalls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	return m.wisdom, m.err
}

func (m *mockSource) DailyQuiz(ctx context.Context) (string, error) {
	m.quizCalls.Add(1)
	return m.quiz, m.err
}

var day = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestKey(t *testing.T) {
	assert.Equal(t, "daily/wisdom/2026-03-14", Key(KindWisdom, day))
	assert.Equal(t, "daily/quiz/2026-03-14", Key(KindQuiz, day))
}

func TestWisdom_CachesParsedResult(t *testing.T) {
	kv := store.NewMemoryStore()
	src := &mockSource{wisdom: validWisdom}
	svc := New(kv, src)
	ctx := context.Background()

	first, err := svc.Wisdom(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, parser.Parsed, first.Outcome)
	assert.Equal(t, "知者不惑", first.Value.Text)
	assert.True(t, kv.Has(Key(KindWisdom, day)))

	second, err := svc.Wisdom(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, int32(1), src.wisdomCalls.Load(), "second load should hit the cache")
}

func TestWisdom_NewDayFetchesAgain(t *testing.T) {
	src := &mockSource{wisdom: validWisdom}
	svc := New(store.NewMemoryStore(), src)

	_, err := svc.Wisdom(context.Background(), day)
	require.NoError(t, err)
	_, err = svc.Wisdom(context.Background(), day.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.wisdomCalls.Load())
}

func TestQuiz_FallbackIsNotCached(t *testing.T) {
	kv := store.NewMemoryStore()
	src := &mockSource{quiz: "not json at all"}
	svc := New(kv, src)

	res, err := svc.Quiz(context.Background(), day)
	require.NoError(t, err)
	assert.True(t, res.IsFallback())
	assert.Equal(t, parser.FallbackQuiz(), res.Value)
	assert.False(t, kv.Has(Key(KindQuiz, day)))

	_, _ = svc.Quiz(context.Background(), day)
	assert.Equal(t, int32(2), src.quizCalls.Load())
}

func TestQuiz_GatewayErrorReturnsFallbackAndError(t *testing.T) {
	boom := errors.New("upstream down")
	svc := New(store.NewMemoryStore(), &mockSource{err: boom})

	res, err := svc.Quiz(context.Background(), day)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, res.IsFallback())
	assert.ErrorIs(t, res.Reason, boom)
	assert.Equal(t, parser.FallbackQuiz(), res.Value)
}

func TestWisdom_MalformedCacheEntryRefetches(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), Key(KindWisdom, day), []byte("{broken")))
	src := &mockSource{wisdom: validWisdom}

	res, err := New(kv, src).Wisdom(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, parser.Parsed, res.Outcome)
	assert.Equal(t, int32(1), src.wisdomCalls.Load())
}

func TestWisdom_ConcurrentLoadsCollapse(t *testing.T) {
	src := &mockSource{wisdom: validWisdom, gate: make(chan struct{})}
	svc := New(store.NewMemoryStore(), src)

	var wg sync.WaitGroup
	results := make([]types.WisdomQuote, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Wisdom(context.Background(), day)
			if err == nil {
				results[i] = res.Value
			}
		}(i)
	}

	// Let every goroutine reach the singleflight group before releasing.
	require.Eventually(t, func() bool { return src.wisdomCalls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.wisdomCalls.Load())
	for _, r := range results {
		assert.Equal(t, "知者不惑", r.Text)
	}
}

func TestForget(t *testing.T) {
	kv := store.NewMemoryStore()
	svc := New(kv, &mockSource{wisdom: validWisdom, quiz: validQuiz})
	ctx := context.Background()

	_, err := svc.Wisdom(ctx, day)
	require.NoError(t, err)
	_, err = svc.Quiz(ctx, day)
	require.NoError(t, err)

	require.NoError(t, svc.Forget(ctx, day))
	assert.False(t, kv.Has(Key(KindWisdom, day)))
	assert.False(t, kv.Has(Key(KindQuiz, day)))
	require.NoError(t, svc.Forget(ctx, day), "forget should be idempotent")
}
