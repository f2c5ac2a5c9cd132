// Package xetcd wraps the etcd client for matcher registration and service discovery.
package xetcd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hybrix/pkg/xlog"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var (
	ErrNotFound          = errors.New("xetcd: key not found")
	ErrAlreadyRegistered = errors.New("xetcd: matcher already registered")
)

type Worker struct {
	Cli *clientv3.Client
}

var Shared *Worker
var logger = xlog.GetLogger()

func New(urls []string) (w *Worker, err error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   urls,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return
	}

	w = &Worker{
		Cli: cli,
	}
	return
}

func InitShared(urls []string) (err error) {
	Shared, err = New(urls)
	return
}

func (w *Worker) Close() error {
	return w.Cli.Close()
}

func (w *Worker) Get(ctx context.Context, k string) (v string, err error) {
	defer func() {
		if err != nil {
			logger.Errorf("xetcd Get k:%s failed with err:%s", k, err)
		} else {
			logger.Debugf("xetcd Get k:%s, v:%s", k, v)
		}
	}()

	r, err := w.Cli.Get(ctx, k)
	if err != nil {
		return
	}
	if len(r.Kvs) == 0 {
		err = ErrNotFound
		return
	}

	v = string(r.Kvs[0].Value)
	return
}

func (w *Worker) Put(ctx context.Context, k string, v string) (err error) {
	defer func() {
		if err != nil {
			logger.Errorf("xetcd Put k:%s, v:%s failed with err:%s", k, v, err)
		} else {
			logger.Debugf("xetcd Put k:%s, v:%s", k, v)
		}
	}()

	_, err = w.Cli.Put(ctx, k, v)
	return
}

// Registration is the value stored under KeyMatcher.
type Registration struct {
	InstanceID string `json:"instanceID"`
	Version    string `json:"version"`
	Since      int64  `json:"since"`
}

// RegisterMatcher claims symbol for this instance under a lease of ttl
// seconds, kept alive until ctx is done. Only one instance may hold a symbol.
func (w *Worker) RegisterMatcher(ctx context.Context, symbol string, reg Registration, ttl int64) (err error) {
	key := KeyMatcher(symbol)
	defer func() {
		if err != nil {
			logger.Errorf("xetcd RegisterMatcher %s failed with err:%s", key, err)
		} else {
			logger.Infof("xetcd RegisterMatcher %s done, instance:%s", key, reg.InstanceID)
		}
	}()

	val, err := json.Marshal(reg)
	if err != nil {
		return
	}

	lease, err := w.Cli.Grant(ctx, ttl)
	if err != nil {
		return
	}

	resp, err := w.Cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(val), clientv3.WithLease(lease.ID))).
		Else(clientv3.OpGet(key)).
		Commit()
	if err != nil {
		return
	}
	if !resp.Succeeded {
		_, _ = w.Cli.Revoke(context.Background(), lease.ID)
		holder := ""
		if rr := resp.Responses[0].GetResponseRange(); rr != nil && len(rr.Kvs) > 0 {
			holder = string(rr.Kvs[0].Value)
		}
		err = fmt.Errorf("%w: %s held by %s", ErrAlreadyRegistered, symbol, holder)
		return
	}

	ch, err := w.Cli.KeepAlive(ctx, lease.ID)
	if err != nil {
		return
	}
	go func() {
		for range ch {
		}
		// ctx is done or the lease was lost; the key expires with the lease
		logger.Infof("xetcd lease of %s ended", key)
	}()
	return
}

// ResolveNatsURL returns the NATS url published in etcd, or fallback when none is.
func (w *Worker) ResolveNatsURL(ctx context.Context, fallback string) (url string, err error) {
	url, err = w.Get(ctx, KeyNatsService())
	if errors.Is(err, ErrNotFound) && fallback != "" {
		return fallback, nil
	}
	return
}

func KeyMatcher(symbol string) string {
	return "hybrix/matcher/" + strings.ToLower(symbol)
}

func KeyNatsService() string {
	return "hybrix/nats"
}
