// Copyright 2021 Converter Systems LLC. All rights reserved.

package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/server"
	"github.com/awcullen/uahelper/ua"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/assert"
	"gotest.tools/poll"
)

func reconnected(c prometheus.Collector, method string) func(t poll.LogT) poll.Result {
	return func(t poll.LogT) poll.Result {
		if n := testutil.ToFloat64(c); n >= 1 {
			return poll.Success()
		}
		return poll.Continue("waiting for %s reconnect", method)
	}
}

func inState(c *client.Client, state client.State) func(t poll.LogT) poll.Result {
	return func(t poll.LogT) poll.Result {
		if s := c.State(); s != state {
			return poll.Continue("state is %s, want %s", s, state)
		}
		return poll.Success()
	}
}

func TestReconnectReactivate(t *testing.T) {
	srv := newTestServer(t)
	c, m := newTestClient(t, srv)
	ctx := context.Background()

	r := &recorder{}
	_, err := c.AddSubscription(ctx, "monitor", []string{tag1}, r.handle)
	assert.NilError(t, err)
	poll.WaitOn(t, waitFor(r, tag1+"=0"), poll.WithDelay(10*time.Millisecond))
	session := c.Session()

	srv.DropChannels()
	poll.WaitOn(t, reconnected(m.Reconnects.WithLabelValues("reactivate"), "reactivate"), poll.WithDelay(10*time.Millisecond))
	poll.WaitOn(t, inState(c, client.StateConnected), poll.WithDelay(10*time.Millisecond))
	assert.Equal(t, c.Session().SessionID(), session.SessionID())
	assert.Equal(t, testutil.ToFloat64(m.Reconnects.WithLabelValues("transfer")), 0.0)
	assert.Assert(t, testutil.ToFloat64(m.KeepAliveFailures) >= 1)

	// the subscription continues on the new channel
	assert.NilError(t, c.WriteNode(ctx, tag1, "21"))
	poll.WaitOn(t, waitFor(r, tag1+"=21"), poll.WithDelay(10*time.Millisecond))
}

func TestReconnectTransfer(t *testing.T) {
	srv := newTestServer(t)
	c, m := newTestClient(t, srv)
	ctx := context.Background()

	r := &recorder{}
	sub, err := c.AddSubscription(ctx, "monitor", []string{tag1}, r.handle)
	assert.NilError(t, err)
	poll.WaitOn(t, waitFor(r, tag1+"=0"), poll.WithDelay(10*time.Millisecond))
	id := sub.SubscriptionID()
	session := c.Session()

	srv.ExpireSessions(false)
	poll.WaitOn(t, reconnected(m.Reconnects.WithLabelValues("transfer"), "transfer"), poll.WithDelay(10*time.Millisecond))
	poll.WaitOn(t, inState(c, client.StateConnected), poll.WithDelay(10*time.Millisecond))
	assert.Assert(t, c.Session().SessionID() != session.SessionID())
	assert.Equal(t, sub.SubscriptionID(), id)

	// initial values are sent again after a transfer
	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		if r.count(tag1+"=0") >= 2 {
			return poll.Success()
		}
		return poll.Continue("waiting for the initial value, got %v", r.snapshot())
	}, poll.WithDelay(10*time.Millisecond))

	assert.NilError(t, c.WriteNode(ctx, tag1, "22"))
	poll.WaitOn(t, waitFor(r, tag1+"=22"), poll.WithDelay(10*time.Millisecond))
}

func TestReconnectRecreate(t *testing.T) {
	srv := newTestServer(t, server.WithoutTransferSubscriptions())
	c, m := newTestClient(t, srv)
	ctx := context.Background()

	r := &recorder{}
	sub, err := c.AddSubscription(ctx, "monitor", []string{tag1}, r.handle)
	assert.NilError(t, err)
	poll.WaitOn(t, waitFor(r, tag1+"=0"), poll.WithDelay(10*time.Millisecond))
	id := sub.SubscriptionID()

	srv.ExpireSessions(true)
	poll.WaitOn(t, reconnected(m.Reconnects.WithLabelValues("recreate"), "recreate"), poll.WithDelay(10*time.Millisecond))
	poll.WaitOn(t, inState(c, client.StateConnected), poll.WithDelay(10*time.Millisecond))
	assert.Assert(t, sub.SubscriptionID() != id)
	_, ok := srv.SubscriptionManager().Get(sub.SubscriptionID())
	assert.Assert(t, ok)
	assert.Equal(t, len(c.Subscriptions()), 1)

	assert.NilError(t, c.WriteNode(ctx, tag1, "23"))
	poll.WaitOn(t, waitFor(r, tag1+"=23"), poll.WithDelay(10*time.Millisecond))
}

func TestReconnectOffline(t *testing.T) {
	srv := newTestServer(t)
	c, m := newTestClient(t, srv)
	ctx := context.Background()

	srv.SetOffline(true)
	poll.WaitOn(t, inState(c, client.StateReconnecting), poll.WithDelay(10*time.Millisecond))
	assert.Equal(t, testutil.ToFloat64(m.State), float64(client.StateReconnecting))

	_, err := c.AddSubscription(ctx, "monitor", []string{tag1}, nil)
	assert.Assert(t, errors.Is(err, client.ErrNotConnected))

	// keeps retrying while the server is offline
	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		if testutil.ToFloat64(m.ReconnectAttempts) >= 2 {
			return poll.Success()
		}
		return poll.Continue("waiting for attempts")
	}, poll.WithDelay(10*time.Millisecond))
	assert.Equal(t, c.State(), client.StateReconnecting)

	srv.SetOffline(false)
	poll.WaitOn(t, inState(c, client.StateConnected), poll.WithDelay(10*time.Millisecond))
	v, err := c.ReadNode(ctx, tag1)
	assert.NilError(t, err)
	assert.Equal(t, *v, "0")
}

func TestReconnectServerHalted(t *testing.T) {
	srv := newTestServer(t)
	c, m := newTestClient(t, srv)
	ctx := context.Background()

	srv.SetState(ua.ServerStateSuspended)
	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		if testutil.ToFloat64(m.KeepAliveFailures) >= 1 {
			return poll.Success()
		}
		return poll.Continue("waiting for a keep-alive failure")
	}, poll.WithDelay(10*time.Millisecond))

	srv.SetState(ua.ServerStateRunning)
	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		if c.State() != client.StateConnected {
			return poll.Continue("state is %s", c.State())
		}
		if _, err := c.ReadNode(ctx, tag1); err != nil {
			return poll.Continue("read failed: %v", err)
		}
		return poll.Success()
	}, poll.WithDelay(10*time.Millisecond))
}

func TestCloseWhileReconnecting(t *testing.T) {
	srv := newTestServer(t)
	c, _ := newTestClient(t, srv)
	ctx := context.Background()

	srv.SetOffline(true)
	poll.WaitOn(t, inState(c, client.StateReconnecting), poll.WithDelay(10*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- c.Close(ctx) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return")
	}
	assert.Equal(t, c.State(), client.StateDisconnected)
	_, err := c.ReadNode(ctx, tag1)
	assert.Assert(t, errors.Is(err, client.ErrNotConnected))

	// no reconnect after close
	srv.SetOffline(false)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, c.State(), client.StateDisconnected)
}
