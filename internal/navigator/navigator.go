// Package navigator moves a cursor over the highlighted matches of one
// search, fetching further file content on demand.
package navigator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jun/drivelookup/internal/adapter"
	"github.com/jun/drivelookup/internal/highlight"
	"github.com/jun/drivelookup/internal/logging"
	"github.com/jun/drivelookup/internal/model"
	"go.uber.org/zap"
)

const DefaultErrorClearDelay = 5 * time.Second

// FetchFunc fetches and highlights file, numbering matches from start.
// It returns the processed record and the new global total.
type FetchFunc func(ctx context.Context, file model.FileRecord, start int) (model.FileRecord, int, error)

// Options configures a Navigator.
type Options struct {
	ErrorClearDelay time.Duration
	Logger          *zap.Logger
}

// Navigator owns the cursor state of one search. At most one fetch runs at a
// time; Step and FetchFileContent calls arriving meanwhile do nothing. Cursor
// moves are serialized by mu.
type Navigator struct {
	fetch FetchFunc
	opts  Options
	log   *zap.Logger

	busy atomic.Bool

	mu      sync.Mutex
	state   State
	errGen  map[int]uint64
	timers  map[int]*time.Timer
	gen     uint64
	subs    map[int]func(State)
	nextSub int
	closed  bool
}

// New creates a Navigator over files. total is nil when no content was fetched yet.
func New(searchID string, files []model.FileRecord, total *int, fetch FetchFunc, opts Options) *Navigator {
	if opts.ErrorClearDelay <= 0 {
		opts.ErrorClearDelay = DefaultErrorClearDelay
	}
	log := opts.Logger
	if log == nil {
		log = logging.ForComponent(logging.CompNavigator)
	}

	st := State{
		SearchID:     searchID,
		Files:        files,
		Expanded:     make(map[int]bool),
		FetchingFile: NoFetch,
		FileErrors:   make(map[int]string),
	}
	st = st.clone()
	if total != nil {
		t := *total
		st.TotalMatchCount = &t
	}
	st.MoreFilesToOpen = st.nextPending() >= 0

	return &Navigator{
		fetch:  fetch,
		opts:   opts,
		log:    log.With(zap.String("search_id", searchID)),
		state:  st,
		errGen: make(map[int]uint64),
		timers: make(map[int]*time.Timer),
		subs:   make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Subscribe registers fn to receive every new snapshot.
func (n *Navigator) Subscribe(fn func(State)) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Close stops pending error-clear timers.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for idx, t := range n.timers {
		t.Stop()
		delete(n.timers, idx)
	}
}

// update applies fn to a copy of the state, stores it and notifies subscribers.
func (n *Navigator) update(fn func(*State)) State {
	n.mu.Lock()
	next := n.state.clone()
	fn(&next)
	n.state = next
	subs := make([]func(State), 0, len(n.subs))
	for _, s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.Unlock()

	for _, s := range subs {
		s(next)
	}
	return next
}

// Step moves the cursor by dir (+1 or -1). applied is false when a fetch was
// in flight and nothing happened. Steps that need no fetch never take the
// fetch flag, so concurrent plain steps are all applied.
func (n *Navigator) Step(ctx context.Context, dir int) (State, bool) {
	if dir != 1 && dir != -1 {
		return n.State(), false
	}
	if n.busy.Load() {
		return n.State(), false
	}

	if needsFetch(n.State(), dir) {
		if !n.busy.CompareAndSwap(false, true) {
			return n.State(), false
		}
		defer n.busy.Store(false)
		if st := n.State(); needsFetch(st, dir) {
			n.fetchFile(ctx, st.nextPending(), false)
		}
	}

	return n.update(func(s *State) {
		candidate := s.CurrentIndex + dir
		total := s.Total()
		if candidate > total {
			candidate = total
		}
		if candidate < 1 {
			candidate = 1
		}
		if total == 0 {
			candidate = 0
		}
		s.CurrentIndex = candidate
		s.ActiveMarkerID = ""
		if candidate > 0 {
			if idx := s.FileFor(candidate); idx >= 0 {
				s.Expanded[idx] = true
			}
			s.ActiveMarkerID = highlight.MarkerID(s.SearchID, candidate)
		}
	}), true
}

// needsFetch reports whether stepping by dir first has to open a pending file:
// either nothing was fetched yet or the cursor would run past the known matches.
func needsFetch(st State, dir int) bool {
	if st.nextPending() < 0 {
		return false
	}
	return st.TotalMatchCount == nil || st.CurrentIndex+dir > st.Total()
}

// FetchFileContent fetches a file still waiting for its content.
// applied is false when a fetch is in flight or the file is not pending.
func (n *Navigator) FetchFileContent(ctx context.Context, index int) (State, bool) {
	if !n.busy.CompareAndSwap(false, true) {
		return n.State(), false
	}
	defer n.busy.Store(false)

	st := n.State()
	if index < 0 || index >= len(st.Files) || !st.Files[index].Pending() {
		return st, false
	}
	return n.fetchFile(ctx, index, true), true
}

// fetchFile runs one fetch. The caller holds the busy flag.
func (n *Navigator) fetchFile(ctx context.Context, idx int, expand bool) State {
	st := n.update(func(s *State) {
		s.FetchingFile = idx
	})

	updated, total, err := n.fetch(ctx, st.Files[idx], st.Total()+1)
	if err != nil {
		n.log.Warn("file content fetch failed", zap.Int("file_index", idx), zap.Error(err))
		msg := model.NewError(model.KindFile, err.Error(), "Getting File Content Unsuccessful", adapter.StatusCode(err), nil).Error()
		return n.update(func(s *State) {
			s.FetchingFile = NoFetch
			s.FileErrors[idx] = msg
			n.scheduleErrorClear(idx)
		})
	}

	return n.update(func(s *State) {
		s.FetchingFile = NoFetch
		s.Files[idx] = updated
		s.TotalMatchCount = &total
		s.MoreFilesToOpen = s.nextPending() >= 0
		if expand {
			s.Expanded[idx] = true
		}
	})
}

// scheduleErrorClear removes the error of file idx after the clear delay
// unless a newer error replaced it. Called with n.mu held.
func (n *Navigator) scheduleErrorClear(idx int) {
	if n.closed {
		return
	}
	n.gen++
	gen := n.gen
	n.errGen[idx] = gen
	if t, ok := n.timers[idx]; ok {
		t.Stop()
	}
	n.timers[idx] = time.AfterFunc(n.opts.ErrorClearDelay, func() {
		n.update(func(s *State) {
			if n.errGen[idx] != gen {
				return
			}
			delete(n.errGen, idx)
			delete(n.timers, idx)
			delete(s.FileErrors, idx)
		})
	})
}
