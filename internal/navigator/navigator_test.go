package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jun/drivelookup/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher assigns matches[i] ids to file i.
type fakeFetcher struct {
	mu      sync.Mutex
	matches map[string]int
	fail    map[string]error
	calls   []string
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeFetcher) fetch(ctx context.Context, file model.FileRecord, start int) (model.FileRecord, int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, file.ID)
	gate, started := f.gate, f.started
	err := f.fail[file.ID]
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return file, start - 1, err
	}

	n := f.matches[file.ID]
	file.ContentStatus = model.ContentReady
	file.Content = fmt.Sprintf("%d matches", n)
	file.Range = &model.Range{Min: start, Max: start + n - 1}
	return file, start - 1 + n, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func pendingFiles(ids ...string) []model.FileRecord {
	files := make([]model.FileRecord, len(ids))
	for i, id := range ids {
		files[i] = model.FileRecord{ID: id, ContentStatus: model.ContentPending, Index: i}
	}
	return files
}

func TestStep_FetchesOnDemandAndClamps(t *testing.T) {
	f := &fakeFetcher{matches: map[string]int{"a": 2, "b": 0, "c": 3}}
	nav := New("s", pendingFiles("a", "b", "c"), nil, f.fetch, Options{})
	ctx := context.Background()

	st, applied := nav.Step(ctx, 1)
	require.True(t, applied)
	assert.Equal(t, 1, st.CurrentIndex)
	require.NotNil(t, st.TotalMatchCount)
	assert.Equal(t, 2, *st.TotalMatchCount)
	assert.True(t, st.Expanded[0])
	assert.Equal(t, "s-1", st.ActiveMarkerID)
	assert.Equal(t, 1, f.callCount())

	st, _ = nav.Step(ctx, 1)
	assert.Equal(t, 2, st.CurrentIndex)
	assert.Equal(t, 1, f.callCount())

	// Past the end: exactly one fetch, which finds nothing, so the cursor clamps.
	st, _ = nav.Step(ctx, 1)
	assert.Equal(t, 2, st.CurrentIndex)
	assert.Equal(t, 2, f.callCount())
	assert.Equal(t, 0, st.Files[1].Range.Count())
	assert.True(t, st.MoreFilesToOpen)

	st, _ = nav.Step(ctx, 1)
	assert.Equal(t, 3, st.CurrentIndex)
	assert.Equal(t, 5, *st.TotalMatchCount)
	assert.True(t, st.Expanded[2])
	assert.Equal(t, "s-3", st.ActiveMarkerID)
	assert.False(t, st.MoreFilesToOpen)
	assert.Equal(t, 3, f.callCount())

	st, _ = nav.Step(ctx, 1)
	st, _ = nav.Step(ctx, 1)
	st, _ = nav.Step(ctx, 1)
	assert.Equal(t, 5, st.CurrentIndex)
	assert.Equal(t, 3, f.callCount())

	for range 6 {
		st, _ = nav.Step(ctx, -1)
	}
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, "s-1", st.ActiveMarkerID)
}

func TestStep_KnownTotalSkipsInitialFetch(t *testing.T) {
	f := &fakeFetcher{matches: map[string]int{"b": 1}}
	files := pendingFiles("a", "b")
	files[0].ContentStatus = model.ContentReady
	files[0].Range = &model.Range{Min: 1, Max: 2}
	total := 2
	nav := New("s", files, &total, f.fetch, Options{})

	st, _ := nav.Step(context.Background(), 1)
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, 0, f.callCount())

	st, _ = nav.Step(context.Background(), -1)
	assert.Equal(t, 1, st.CurrentIndex)
}

func TestStep_ZeroTotalStaysAtZero(t *testing.T) {
	f := &fakeFetcher{matches: map[string]int{}}
	nav := New("s", pendingFiles("a"), nil, f.fetch, Options{})

	st, applied := nav.Step(context.Background(), 1)
	require.True(t, applied)
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Equal(t, 0, *st.TotalMatchCount)
	assert.Empty(t, st.ActiveMarkerID)

	st, _ = nav.Step(context.Background(), -1)
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Equal(t, 1, f.callCount())
}

func TestStep_InvalidDirection(t *testing.T) {
	f := &fakeFetcher{}
	nav := New("s", pendingFiles("a"), nil, f.fetch, Options{})
	_, applied := nav.Step(context.Background(), 2)
	assert.False(t, applied)
	assert.Equal(t, 0, f.callCount())
}

func TestSingleFlight(t *testing.T) {
	f := &fakeFetcher{
		matches: map[string]int{"a": 1, "b": 1},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	nav := New("s", pendingFiles("a", "b"), nil, f.fetch, Options{})
	ctx := context.Background()

	done := make(chan State)
	go func() {
		st, _ := nav.Step(ctx, 1)
		done <- st
	}()
	<-f.started

	st, applied := nav.Step(ctx, 1)
	assert.False(t, applied)
	assert.Equal(t, 0, st.FetchingFile)

	_, applied = nav.FetchFileContent(ctx, 1)
	assert.False(t, applied)

	close(f.gate)
	st = <-done
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, NoFetch, st.FetchingFile)
	assert.Equal(t, 1, f.callCount())
}

func TestStep_ConcurrentStepsWithoutFetchAllApply(t *testing.T) {
	f := &fakeFetcher{}
	files := pendingFiles("a", "b")
	files[0].ContentStatus = model.ContentReady
	files[0].Range = &model.Range{Min: 1, Max: 10}
	files[1].ContentStatus = model.ContentReady
	files[1].Range = &model.Range{Min: 11, Max: 20}
	total := 20
	nav := New("s", files, &total, f.fetch, Options{})

	const steps = 8
	var wg sync.WaitGroup
	applied := make(chan bool, steps)
	for range steps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := nav.Step(context.Background(), 1)
			applied <- ok
		}()
	}
	wg.Wait()
	close(applied)

	for ok := range applied {
		assert.True(t, ok)
	}
	assert.Equal(t, steps, nav.State().CurrentIndex)
	assert.Equal(t, 0, f.callCount())
}

func TestFetchFileContent(t *testing.T) {
	f := &fakeFetcher{matches: map[string]int{"a": 1, "b": 2}}
	nav := New("s", pendingFiles("a", "b"), nil, f.fetch, Options{})
	ctx := context.Background()

	st, applied := nav.FetchFileContent(ctx, 1)
	require.True(t, applied)
	assert.True(t, st.Expanded[1])
	assert.Equal(t, model.Range{Min: 1, Max: 2}, *st.Files[1].Range)
	assert.Equal(t, 2, *st.TotalMatchCount)
	assert.True(t, st.MoreFilesToOpen)

	_, applied = nav.FetchFileContent(ctx, 1)
	assert.False(t, applied, "already fetched")
	_, applied = nav.FetchFileContent(ctx, 7)
	assert.False(t, applied, "out of range")

	st, _ = nav.FetchFileContent(ctx, 0)
	assert.Equal(t, model.Range{Min: 3, Max: 3}, *st.Files[0].Range)
	assert.Equal(t, 3, *st.TotalMatchCount)
	assert.False(t, st.MoreFilesToOpen)
}

func TestFetchError_ClearsItself(t *testing.T) {
	f := &fakeFetcher{fail: map[string]error{"a": errors.New("export failed")}}
	nav := New("s", pendingFiles("a"), nil, f.fetch, Options{ErrorClearDelay: 20 * time.Millisecond})
	defer nav.Close()

	st, applied := nav.FetchFileContent(context.Background(), 0)
	require.True(t, applied)
	assert.Contains(t, st.FileErrors[0], "Getting File Content Unsuccessful")
	assert.True(t, st.Files[0].Pending())
	assert.Equal(t, NoFetch, st.FetchingFile)

	require.Eventually(t, func() bool {
		return len(nav.State().FileErrors) == 0
	}, time.Second, 5*time.Millisecond)

	// The file stays fetchable after a failure.
	f.mu.Lock()
	f.fail = nil
	f.mu.Unlock()
	_, applied = nav.FetchFileContent(context.Background(), 0)
	assert.True(t, applied)
}

func TestSnapshotsAreImmutable(t *testing.T) {
	f := &fakeFetcher{matches: map[string]int{"a": 2}}
	nav := New("s", pendingFiles("a"), nil, f.fetch, Options{})

	before := nav.State()
	nav.Step(context.Background(), 1)

	assert.Nil(t, before.TotalMatchCount)
	assert.True(t, before.Files[0].Pending())
	assert.Empty(t, before.Expanded)
	assert.Equal(t, 0, before.CurrentIndex)
}

func TestSubscribe(t *testing.T) {
	f := &fakeFetcher{matches: map[string]int{"a": 1}}
	nav := New("s", pendingFiles("a"), nil, f.fetch, Options{})

	var mu sync.Mutex
	var seen []State
	unsubscribe := nav.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	nav.Step(context.Background(), 1)
	mu.Lock()
	count := len(seen)
	last := seen[len(seen)-1]
	mu.Unlock()
	assert.GreaterOrEqual(t, count, 2)
	assert.Equal(t, 1, last.CurrentIndex)

	unsubscribe()
	nav.Step(context.Background(), 1)
	mu.Lock()
	assert.Equal(t, count, len(seen))
	mu.Unlock()
}
