package database

import (
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventAll    EventType = "*"
)

const (
	TableArticles    = "articles"
	TableImageChecks = "image_checks"
	TableTextChecks  = "text_checks"
	TableStrategies  = "strategies"
	TableFeedback    = "feedback"
	TableAll         = "*"
)

// Change describes a committed row change.
type Change struct {
	Table     string
	Event     EventType
	RowID     string
	ArticleID string
	At        time.Time
}

const subscriberBuffer = 64

type subscription struct {
	table string
	event EventType
	ch    chan Change
	done  chan struct{}
}

func (s *subscription) matches(change Change) bool {
	return (s.table == TableAll || s.table == change.Table) &&
		(s.event == EventAll || s.event == change.Event)
}

// ChangeFeed fans committed changes out to subscribers. Each subscriber has
// its own goroutine and buffer so a slow callback never blocks a writer.
type ChangeFeed struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	wg     sync.WaitGroup
	closed bool
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{
		subs: make(map[int]*subscription),
	}
}

// Subscribe registers fn for changes on table with the given event kind.
// Either may be "*". The returned function unsubscribes; notifications still
// buffered for this subscriber are discarded.
func (f *ChangeFeed) Subscribe(table string, event EventType, fn func(Change)) func() {
	sub := &subscription{
		table: table,
		event: event,
		ch:    make(chan Change, subscriberBuffer),
		done:  make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		for {
			select {
			case change := <-sub.ch:
				fn(change)
			case <-sub.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub.done)
			}
			f.mu.Unlock()
		})
	}
}

// Publish delivers change to every matching subscriber without blocking.
func (f *ChangeFeed) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subs {
		if !sub.matches(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			// Dropping is safe: the notifications already queued will be
			// handled after this change was committed.
			slog.Debug("Change notification dropped, subscriber busy", "table", change.Table, "row_id", change.RowID)
		}
	}
}

// Close removes every subscriber and waits for their goroutines to finish.
func (f *ChangeFeed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub.done)
	}
	f.mu.Unlock()

	f.wg.Wait()
}
