// Copyright 2021 Converter Systems LLC. All rights reserved.

package client_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/server"
	"github.com/awcullen/uahelper/ua"
	"github.com/prometheus/client_golang/prometheus"
	"gotest.tools/assert"
)

const (
	tag1 = "ns=2;s=Channel1.Device1.Tag1"
	tag2 = "ns=2;s=Channel1.Device1.Tag2"
)

func newTestServer(t *testing.T, opts ...server.Option) *server.Server {
	t.Helper()
	opts = append([]server.Option{
		server.WithMinSamplingInterval(10 * time.Millisecond),
		server.WithUser("root", "secret"),
	}, opts...)
	srv, err := server.New(opts...)
	assert.NilError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// newTestClient connects a client to the server, with short keep-alive and reconnect periods.
func newTestClient(t *testing.T, srv *server.Server, opts ...client.Option) (*client.Client, *client.Metrics) {
	t.Helper()
	m := client.NewMetrics(prometheus.NewRegistry())
	opts = append([]client.Option{
		client.WithTransport(srv.Transport()),
		client.WithKeepAliveInterval(50 * time.Millisecond),
		client.WithReconnectPeriod(50 * time.Millisecond),
		client.WithOperationTimeout(10 * time.Second),
		client.WithMetrics(m),
	}, opts...)
	c, err := client.Dial(context.Background(), srv.EndpointURL(), opts...)
	assert.NilError(t, err)
	t.Cleanup(func() { c.Close(context.Background()) })
	return c, m
}

// recorder collects the notifications of a subscription.
type recorder struct {
	sync.Mutex
	values []string
}

func (r *recorder) handle(key string, item *client.MonitoredItem, n client.Notification) {
	r.Lock()
	defer r.Unlock()
	r.values = append(r.values, item.Address()+"="+ua.FormatValue(n.Value.Value))
}

func (r *recorder) snapshot() []string {
	r.Lock()
	defer r.Unlock()
	res := make([]string, len(r.values))
	copy(res, r.values)
	return res
}

func (r *recorder) contains(value string) bool {
	for _, v := range r.snapshot() {
		if v == value {
			return true
		}
	}
	return false
}

func (r *recorder) count(value string) int {
	n := 0
	for _, v := range r.snapshot() {
		if v == value {
			n++
		}
	}
	return n
}
