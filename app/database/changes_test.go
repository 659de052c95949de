package database

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestChangeFeedMatching(t *testing.T) {
	defer goleak.VerifyNone(t)

	feed := NewChangeFeed()
	defer feed.Close()

	var textOnly, everything atomic.Int32
	feed.Subscribe(TableTextChecks, EventInsert, func(Change) { textOnly.Add(1) })
	feed.Subscribe(TableAll, EventAll, func(Change) { everything.Add(1) })

	feed.Publish(Change{Table: TableArticles, Event: EventInsert, RowID: "a"})
	feed.Publish(Change{Table: TableTextChecks, Event: EventInsert, RowID: "t"})

	waitFor(t, func() bool { return everything.Load() == 2 && textOnly.Load() == 1 })
}

func TestChangeFeedUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	feed := NewChangeFeed()
	defer feed.Close()

	var calls atomic.Int32
	unsubscribe := feed.Subscribe(TableArticles, EventAll, func(Change) { calls.Add(1) })

	feed.Publish(Change{Table: TableArticles, Event: EventInsert})
	waitFor(t, func() bool { return calls.Load() == 1 })

	unsubscribe()
	unsubscribe()

	feed.Publish(Change{Table: TableArticles, Event: EventInsert})
	time.Sleep(20 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("Expected no delivery after unsubscribe, got %d calls", calls.Load())
	}
}

func TestChangeFeedSubscribeAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	feed := NewChangeFeed()
	feed.Close()

	unsubscribe := feed.Subscribe(TableArticles, EventAll, func(Change) {
		t.Error("Closed feed must not deliver")
	})
	unsubscribe()
	feed.Publish(Change{Table: TableArticles, Event: EventInsert})
}
