package xnats_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"hybrix/pkg/xnats"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	require.Equal(t, "MATCHER.BTC_USDT.pass", xnats.Subject("MATCHER", "btc_usdt"))
}

func TestPassMsgJSON(t *testing.T) {
	msg := xnats.PassMsg{
		ID:      "p1",
		Symbol:  "BTC_USDT",
		Matched: true,
		Price:   decimal.RequireFromString("1.021"),
	}
	b, err := json.Marshal(msg)
	require.Nil(t, err)
	require.Contains(t, string(b), `"price":"1.021"`)
	require.NotContains(t, string(b), "fills")
}

// needs a live JetStream enabled server, e.g. HYBRIX_NATS=nats://127.0.0.1:4222
func TestPublishPass(t *testing.T) {
	url := os.Getenv("HYBRIX_NATS")
	if url == "" {
		t.Skip("HYBRIX_NATS not set")
	}
	stream := "HYBRIXTEST"
	p, err := xnats.Connect(url, stream)
	require.Nil(t, err)
	defer p.Close()

	nc, err := nats.Connect(url)
	require.Nil(t, err)
	defer nc.Close()
	js, err := nc.JetStream()
	require.Nil(t, err)
	sub, err := js.SubscribeSync(xnats.Subject(stream, "BTC_USDT"), nats.DeliverNew())
	require.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg := xnats.PassMsg{ID: uuid.NewString(), Symbol: "BTC_USDT", Round: 7}
	require.Nil(t, p.PublishPass(ctx, msg))
	require.Nil(t, p.PublishPass(ctx, msg))

	m, err := sub.NextMsg(5 * time.Second)
	require.Nil(t, err)
	var got xnats.PassMsg
	require.Nil(t, json.Unmarshal(m.Data, &got))
	require.Equal(t, msg.ID, got.ID)
	require.Equal(t, int64(7), got.Round)

	// the second publish was deduplicated
	_, err = sub.NextMsg(500 * time.Millisecond)
	require.Equal(t, nats.ErrTimeout, err)
}
