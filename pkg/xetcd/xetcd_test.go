package xetcd_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"hybrix/pkg/xetcd"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	require.Equal(t, "hybrix/matcher/btc_usdt", xetcd.KeyMatcher("BTC_USDT"))
	require.Equal(t, "hybrix/nats", xetcd.KeyNatsService())
}

// needs a live etcd, e.g. HYBRIX_ETCD=127.0.0.1:2379
func newWorker(t *testing.T) *xetcd.Worker {
	url := os.Getenv("HYBRIX_ETCD")
	if url == "" {
		t.Skip("HYBRIX_ETCD not set")
	}
	w, err := xetcd.New([]string{url})
	require.Nil(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestRegisterMatcher(t *testing.T) {
	w := newWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	symbol := "T" + uuid.NewString()[:8] + "_USDT"
	err := w.RegisterMatcher(ctx, symbol, xetcd.Registration{InstanceID: "a"}, 5)
	require.Nil(t, err)

	err = w.RegisterMatcher(ctx, symbol, xetcd.Registration{InstanceID: "b"}, 5)
	require.True(t, errors.Is(err, xetcd.ErrAlreadyRegistered))
}

func TestResolveNatsURL(t *testing.T) {
	w := newWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := w.Cli.Delete(ctx, xetcd.KeyNatsService())
	require.Nil(t, err)
	url, err := w.ResolveNatsURL(ctx, "nats://fallback:4222")
	require.Nil(t, err)
	require.Equal(t, "nats://fallback:4222", url)

	require.Nil(t, w.Put(ctx, xetcd.KeyNatsService(), "nats://etcd:4222"))
	url, err = w.ResolveNatsURL(ctx, "nats://fallback:4222")
	require.Nil(t, err)
	require.Equal(t, "nats://etcd:4222", url)
}
