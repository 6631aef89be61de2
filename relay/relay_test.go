// Copyright 2021 Converter Systems LLC. All rights reserved.

package relay_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/relay"
	"github.com/awcullen/uahelper/server"
	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gotest.tools/assert"
	"gotest.tools/poll"
)

type published struct {
	subject string
	data    []byte
}

// fakePublisher records what is published.
type fakePublisher struct {
	sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.Lock()
	defer p.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject, data})
	return nil
}

func (p *fakePublisher) messages() []published {
	p.Lock()
	defer p.Unlock()
	return append([]published(nil), p.msgs...)
}

func TestSubject(t *testing.T) {
	r := relay.New(&fakePublisher{}, "plant.", zerolog.Nop())
	assert.Equal(t, r.Subject("line1"), "plant.line1")
	assert.Equal(t, r.Subject("line 1.*>"), "plant.line_1___")
	assert.Equal(t, relay.New(&fakePublisher{}, "", zerolog.Nop()).Subject("line1"), "line1")
}

func TestPublish(t *testing.T) {
	pub := &fakePublisher{}
	r := relay.New(pub, "uahelper", zerolog.Nop())
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.NilError(t, r.Publish(relay.Message{Key: "line1", Node: "ns=2;s=A", Value: "42", Type: "Int32", Status: "Good", SourceTimestamp: ts, SequenceNumber: 3}))
	msgs := pub.messages()
	assert.Equal(t, len(msgs), 1)
	assert.Equal(t, msgs[0].subject, "uahelper.line1")
	var got relay.Message
	assert.NilError(t, json.Unmarshal(msgs[0].data, &got))
	assert.Equal(t, got.Value, "42")
	assert.Equal(t, got.SourceTimestamp, ts)
	assert.Equal(t, r.Published(), uint64(1))

	pub.err = errors.New("nats: connection closed")
	err := r.Publish(relay.Message{Key: "line1"})
	assert.ErrorContains(t, err, "publish to uahelper.line1")
	assert.Equal(t, r.Failed(), uint64(1))
}

func TestRelayNotifications(t *testing.T) {
	srv, err := server.New(server.WithMinSamplingInterval(10 * time.Millisecond))
	assert.NilError(t, err)
	defer srv.Close()
	ctx := context.Background()
	c, err := client.Dial(ctx, srv.EndpointURL(), client.WithTransport(srv.Transport()))
	assert.NilError(t, err)
	defer c.Close(ctx)

	pub := &fakePublisher{}
	r := relay.New(pub, "uahelper", zerolog.Nop())
	_, err = c.AddSubscription(ctx, "line1", []string{"ns=2;s=Channel1.Device1.Tag1"}, r.Handle)
	assert.NilError(t, err)
	assert.NilError(t, c.WriteNode(ctx, "ns=2;s=Channel1.Device1.Tag1", "42"))

	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		for _, m := range pub.messages() {
			var msg relay.Message
			if err := json.Unmarshal(m.data, &msg); err != nil {
				return poll.Error(err)
			}
			if m.subject == "uahelper.line1" && msg.Value == "42" {
				if msg.Type != ua.BuiltInTypeInt32.String() || msg.Node != "ns=2;s=Channel1.Device1.Tag1" || msg.Status != "Good" {
					return poll.Error(errors.Errorf("unexpected message %+v", msg))
				}
				return poll.Success()
			}
		}
		return poll.Continue("waiting for relayed value")
	}, poll.WithDelay(10*time.Millisecond))
}
