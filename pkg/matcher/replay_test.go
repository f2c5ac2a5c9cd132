package matcher_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"hybrix/pkg/matcher"
	"hybrix/pkg/xnats"

	"github.com/stretchr/testify/require"
)

// fakeChecker reports a pass committed from its nth check on, n < 0 never.
type fakeChecker struct {
	mu     sync.Mutex
	after  map[string]int
	checks map[string]int
	err    error
}

func (c *fakeChecker) PassCommitted(_ context.Context, passID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	c.checks[passID]++
	n := c.after[passID]
	return n >= 0 && c.checks[passID] >= n, nil
}

func journalLines(t *testing.T, ids ...string) []string {
	lines := make([]string, 0, len(ids))
	for i, id := range ids {
		data, err := json.Marshal(xnats.PassMsg{ID: id, Symbol: "BTC_USDT", Round: int64(i + 1)})
		require.Nil(t, err)
		lines = append(lines, string(data))
	}
	return lines
}

func newRepublisher(checker *fakeChecker, publisher *fakePublisher) *matcher.Republisher {
	r := matcher.NewRepublisher(checker, publisher, time.Second)
	r.Attempts = 4
	r.Wait = time.Millisecond
	r.MaxWait = 2 * time.Millisecond
	return r
}

func TestRepublishWaitsForCommitInFlight(t *testing.T) {
	// p2 is journaled but its transaction lands only on the third check
	checker := &fakeChecker{after: map[string]int{"p1": 1, "p2": 3, "p3": 1}, checks: map[string]int{}}
	publisher := &fakePublisher{}
	r := newRepublisher(checker, publisher)

	n, err := r.Republish(context.Background(), journalLines(t, "p1", "p2", "p3"))
	require.Nil(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 3, checker.checks["p2"])

	ids := []string{}
	for _, msg := range publisher.msgs {
		ids = append(ids, msg.ID)
	}
	require.Equal(t, []string{"p1", "p2", "p3"}, ids)
}

func TestRepublishSkipsNeverCommitted(t *testing.T) {
	checker := &fakeChecker{after: map[string]int{"p1": -1, "p2": 1}, checks: map[string]int{}}
	publisher := &fakePublisher{}
	r := newRepublisher(checker, publisher)

	n, err := r.Republish(context.Background(), journalLines(t, "p1", "p2"))
	require.Nil(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 4, checker.checks["p1"])
	require.Len(t, publisher.msgs, 1)
	require.Equal(t, "p2", publisher.msgs[0].ID)
}

func TestRepublishErrors(t *testing.T) {
	publisher := &fakePublisher{}
	r := newRepublisher(&fakeChecker{err: errors.New("mysql down")}, publisher)
	_, err := r.Republish(context.Background(), journalLines(t, "p1"))
	require.NotNil(t, err)
	require.Empty(t, publisher.msgs)

	r = newRepublisher(&fakeChecker{after: map[string]int{}, checks: map[string]int{}}, publisher)
	_, err = r.Republish(context.Background(), []string{"{"})
	require.NotNil(t, err)

	publisher.err = errors.New("nats down")
	_, err = r.Republish(context.Background(), journalLines(t, "p1"))
	require.Equal(t, publisher.err, err)
}

func TestRepublishStopsWithContext(t *testing.T) {
	checker := &fakeChecker{after: map[string]int{"p1": -1}, checks: map[string]int{}}
	r := newRepublisher(checker, &fakePublisher{})
	r.Attempts = 1000
	r.Wait = time.Hour
	r.MaxWait = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Republish(ctx, journalLines(t, "p1"))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}
