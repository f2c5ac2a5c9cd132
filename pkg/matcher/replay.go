package matcher

import (
	"context"
	"encoding/json"
	"time"

	"hybrix/pkg/xnats"
)

// CommitChecker tells whether a journaled pass reached the database.
type CommitChecker interface {
	PassCommitted(ctx context.Context, passID string) (bool, error)
}

// Republisher publishes journaled passes again once they are committed.
//
// The matcher journals a pass before committing it, so a followed journal
// usually delivers a line while its transaction is still in flight. Such a
// pass is checked again with a doubling wait, capped at MaxWait, for up to
// Attempts checks before it is dropped as never committed.
type Republisher struct {
	Checker   CommitChecker
	Publisher Publisher

	Attempts int
	Wait     time.Duration
	MaxWait  time.Duration
}

// NewRepublisher waits for a pending commit about as long as a pass may run.
func NewRepublisher(checker CommitChecker, publisher Publisher, passTimeout time.Duration) *Republisher {
	if passTimeout <= 0 {
		passTimeout = 30 * time.Second
	}
	return &Republisher{
		Checker:   checker,
		Publisher: publisher,
		Attempts:  8,
		Wait:      100 * time.Millisecond,
		MaxWait:   passTimeout / 4,
	}
}

func (r *Republisher) backoff(retry int) time.Duration {
	if retry > 30 {
		return r.MaxWait
	}
	d := r.Wait * time.Duration(1<<retry)
	if r.MaxWait > 0 && d > r.MaxWait {
		return r.MaxWait
	}
	return d
}

// committed polls the checker until the pass shows up or the attempts run out.
func (r *Republisher) committed(ctx context.Context, passID string) (ok bool, err error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; ; i++ {
		ok, err = r.Checker.PassCommitted(ctx, passID)
		if err != nil || ok || i+1 >= attempts {
			return
		}

		t := time.NewTimer(r.backoff(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		case <-t.C:
		}
	}
}

// Republish handles one batch of journal lines in order.
func (r *Republisher) Republish(ctx context.Context, lines []string) (n int, err error) {
	for _, line := range lines {
		var msg xnats.PassMsg
		err = json.Unmarshal([]byte(line), &msg)
		if err != nil {
			return
		}

		var ok bool
		ok, err = r.committed(ctx, msg.ID)
		if err != nil {
			return
		}
		if !ok {
			logger.Warnf("republish skips pass %s of %s round %d, never committed", msg.ID, msg.Symbol, msg.Round)
			continue
		}

		err = r.Publisher.PublishPass(ctx, msg)
		if err != nil {
			return
		}
		n++
	}
	return
}
