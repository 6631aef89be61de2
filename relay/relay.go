// Copyright 2021 Converter Systems LLC. All rights reserved.

// Package relay forwards subscription notifications to NATS as JSON messages.
package relay

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/ua"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Publisher publishes data to a subject. *nats.Conn is a Publisher.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON body of a relayed notification.
type Message struct {
	Key             string    `json:"key"`
	Node            string    `json:"node"`
	Value           string    `json:"value"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	SourceTimestamp time.Time `json:"sourceTimestamp"`
	ServerTimestamp time.Time `json:"serverTimestamp"`
	SequenceNumber  uint32    `json:"sequenceNumber"`
}

// Relay publishes the notifications of subscriptions on "<prefix>.<key>".
type Relay struct {
	pub       Publisher
	prefix    string
	logger    zerolog.Logger
	published atomic.Uint64
	failed    atomic.Uint64
}

// New returns a relay publishing through pub.
func New(pub Publisher, prefix string, logger zerolog.Logger) *Relay {
	return &Relay{pub: pub, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// Subject returns the subject of the subscription key. Characters that NATS reserves for
// tokens and wildcards are replaced by '_'.
func (r *Relay) Subject(key string) string {
	token := strings.Map(func(c rune) rune {
		switch c {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return c
	}, key)
	if r.prefix == "" {
		return token
	}
	return r.prefix + "." + token
}

// Handle publishes a notification. It has the signature of a client.NotificationHandler.
func (r *Relay) Handle(key string, item *client.MonitoredItem, n client.Notification) {
	msg := Message{
		Key:             key,
		Node:            item.Address(),
		Value:           ua.FormatValue(n.Value.Value),
		Type:            ua.BuiltInTypeOfValue(n.Value.Value).String(),
		Status:          n.Value.StatusCode.String(),
		SourceTimestamp: n.Value.SourceTimestamp,
		ServerTimestamp: n.Value.ServerTimestamp,
		SequenceNumber:  n.SequenceNumber,
	}
	if err := r.Publish(msg); err != nil {
		r.logger.Warn().Err(err).Str("subscription", key).Str("node", msg.Node).Msg("error relaying notification")
	}
}

// Publish encodes the message and publishes it on the subject of its key.
func (r *Relay) Publish(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		r.failed.Add(1)
		return errors.Wrap(err, "encode notification")
	}
	subject := r.Subject(msg.Key)
	if err := r.pub.Publish(subject, data); err != nil {
		r.failed.Add(1)
		return errors.Wrapf(err, "publish to %s", subject)
	}
	r.published.Add(1)
	return nil
}

// Published returns the number of messages published.
func (r *Relay) Published() uint64 {
	return r.published.Load()
}

// Failed returns the number of messages that could not be published.
func (r *Relay) Failed() uint64 {
	return r.failed.Load()
}

// Connect connects to the NATS server at url, reconnecting forever after a disconnect.
func Connect(url, name string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Str("url", url).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error().Err(err).Msg("nats error")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect nats %s", url)
	}
	return nc, nil
}
