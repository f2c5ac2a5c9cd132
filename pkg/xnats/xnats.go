// Package xnats publishes matching passes on NATS JetStream.
package xnats

import (
	"context"
	"encoding/json"
	"errors"

	"hybrix/pkg/xlog"

	"github.com/nats-io/nats.go"
)

var logger = xlog.GetLogger()

type Publisher struct {
	Stream string

	nc *nats.Conn
	js nats.JetStreamContext
}

// Connect opens url and makes sure the stream exists.
func Connect(url string, stream string) (p *Publisher, err error) {
	defer func() {
		if err != nil {
			logger.Errorf("xnats Connect %s failed with err:%s", url, err)
		} else {
			logger.Infof("xnats connected %s, stream:%s", url, stream)
		}
	}()

	nc, err := nats.Connect(url, nats.Name("hybrix"), nats.MaxReconnects(-1))
	if err != nil {
		return
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: []string{stream + ".*.pass"},
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return
	}

	return &Publisher{Stream: stream, nc: nc, js: js}, nil
}

// PublishPass publishes msg with its id as the JetStream message id, so a
// republished pass is dropped as a duplicate.
func (p *Publisher) PublishPass(ctx context.Context, msg PassMsg) (err error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_, err = p.js.Publish(Subject(p.Stream, msg.Symbol), data, nats.MsgId(msg.ID), nats.Context(ctx))
	return
}

func (p *Publisher) Close() {
	p.nc.Close()
}
