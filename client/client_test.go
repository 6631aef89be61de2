// Copyright 2021 Converter Systems LLC. All rights reserved.

package client_test

import (
	"context"
	"errors"
	"testing"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/server"
	"github.com/awcullen/uahelper/ua"
	"gotest.tools/assert"
)

func TestConnect(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	t.Run("empty url", func(t *testing.T) {
		c, err := client.New(client.WithTransport(srv.Transport()))
		assert.NilError(t, err)
		err = c.Connect(ctx, "")
		var ce *client.ConnectionError
		assert.Assert(t, errors.As(err, &ce))
		assert.Assert(t, errors.Is(err, client.ErrEmptyURL))
	})
	t.Run("no transport", func(t *testing.T) {
		c, err := client.New(client.WithTransport(nil))
		assert.NilError(t, err)
		assert.Assert(t, errors.Is(c.Connect(ctx, srv.EndpointURL()), client.ErrNoTransport))
	})
	t.Run("already connected", func(t *testing.T) {
		c, _ := newTestClient(t, srv)
		assert.Equal(t, c.State(), client.StateConnected)
		assert.Assert(t, c.Session() != nil)
		assert.Assert(t, errors.Is(c.Connect(ctx, srv.EndpointURL()), client.ErrAlreadyConnected))
	})
	t.Run("closed", func(t *testing.T) {
		c, _ := newTestClient(t, srv)
		assert.NilError(t, c.Close(ctx))
		assert.NilError(t, c.Close(ctx))
		assert.Equal(t, c.State(), client.StateDisconnected)
		assert.Assert(t, errors.Is(c.Connect(ctx, srv.EndpointURL()), client.ErrClosed))
		_, err := c.ReadNode(ctx, tag1)
		assert.Assert(t, errors.Is(err, client.ErrNotConnected))
	})
	t.Run("server offline", func(t *testing.T) {
		offline := newTestServer(t)
		offline.SetOffline(true)
		c, err := client.New(client.WithTransport(offline.Transport()))
		assert.NilError(t, err)
		err = c.Connect(ctx, offline.EndpointURL())
		var ce *client.ConnectionError
		assert.Assert(t, errors.As(err, &ce))
		assert.Equal(t, ce.URL, offline.EndpointURL())
		assert.Assert(t, errors.Is(err, ua.BadServerNotConnected))
	})
}

func TestUserNameIdentity(t *testing.T) {
	srv := newTestServer(t, server.WithAnonymousIdentity(false))
	c, _ := newTestClient(t, srv, client.WithUserNameIdentity("root", "secret"))
	v, err := c.ReadNode(context.Background(), tag1)
	assert.NilError(t, err)
	assert.Equal(t, *v, "0")

	_, err = client.Dial(context.Background(), srv.EndpointURL(), client.WithTransport(srv.Transport()), client.WithUserNameIdentity("root", "wrong"))
	assert.Assert(t, errors.Is(err, ua.BadUserAccessDenied))

	_, err = client.Dial(context.Background(), srv.EndpointURL(), client.WithTransport(srv.Transport()))
	assert.Assert(t, errors.Is(err, ua.BadIdentityTokenRejected))
}

func TestNotConnected(t *testing.T) {
	c, err := client.New()
	assert.NilError(t, err)
	ctx := context.Background()
	_, err = c.ReadNode(ctx, tag1)
	assert.Assert(t, errors.Is(err, client.ErrNotConnected))
	assert.Assert(t, errors.Is(c.WriteNode(ctx, tag1, "1"), client.ErrNotConnected))
	_, err = c.AddSubscription(ctx, "monitor", []string{tag1}, nil)
	assert.Assert(t, errors.Is(err, client.ErrNotConnected))
	assert.NilError(t, c.RemoveSubscription(ctx, "monitor"))
}

func TestReadNodes(t *testing.T) {
	srv := newTestServer(t)
	c, _ := newTestClient(t, srv)
	ctx := context.Background()

	values, err := c.ReadNodes(ctx, []string{tag1, "ns=2;s=Nope", "ns=2;s=Demo.StringArray", tag2})
	assert.NilError(t, err)
	assert.Equal(t, len(values), 4)
	assert.Equal(t, *values[0], "0")
	assert.Assert(t, values[1] == nil)
	assert.Equal(t, *values[2], "[a, b, c]")
	assert.Equal(t, *values[3], "0")

	values, err = c.ReadNodes(ctx, nil)
	assert.NilError(t, err)
	assert.Equal(t, len(values), 0)

	dv, err := c.ReadValue(ctx, ua.ParseNodeID("ns=2;s=Nope"))
	assert.NilError(t, err)
	assert.Equal(t, dv.StatusCode, ua.BadNodeIDUnknown)
}

func TestWriteNode(t *testing.T) {
	srv := newTestServer(t)
	c, _ := newTestClient(t, srv)
	ctx := context.Background()

	assert.NilError(t, c.WriteNode(ctx, tag2, "111"))
	v, err := c.ReadNode(ctx, tag2)
	assert.NilError(t, err)
	assert.Equal(t, *v, "111")

	assert.NilError(t, c.WriteNodes(ctx, []string{tag1, tag2}, []string{"100", "100"}))
	values, err := c.ReadNodes(ctx, []string{tag1, tag2})
	assert.NilError(t, err)
	assert.Equal(t, *values[0], "100")
	assert.Equal(t, *values[1], "100")
}

func TestWriteNodeTypes(t *testing.T) {
	srv := newTestServer(t)
	c, _ := newTestClient(t, srv)
	ctx := context.Background()

	for _, tc := range []struct {
		address string
		text    string
		want    string
	}{
		{"ns=2;s=Demo.Boolean", "true", "true"},
		{"ns=2;s=Demo.SByte", "-8", "-8"},
		{"ns=2;s=Demo.UInt64", "18446744073709551615", "18446744073709551615"},
		{"ns=2;s=Demo.Float", "1.5", "1.5"},
		{"ns=2;s=Demo.String", "hello", "hello"},
		{"ns=2;s=Demo.DateTime", "2021-03-04T05:06:07Z", "2021-03-04T05:06:07Z"},
		{"ns=2;s=Demo.Guid", "5ce9dbce-5d79-434c-9ac3-1cfba9a6e92c", "5ce9dbce-5d79-434c-9ac3-1cfba9a6e92c"},
		// custom subtypes resolve to their built-in ancestor
		{"ns=2;s=Demo.Temperature", "21.5", "21.5"},
		{"ns=2;s=Demo.BatchNumber", "7", "7"},
		{"ns=2;s=Demo.Duration", "250", "250"},
	} {
		t.Run(tc.address, func(t *testing.T) {
			assert.NilError(t, c.WriteNode(ctx, tc.address, tc.text))
			v, err := c.ReadNode(ctx, tc.address)
			assert.NilError(t, err)
			assert.Equal(t, *v, tc.want)
		})
	}
}

func TestWriteNodesLengthMismatch(t *testing.T) {
	srv := newTestServer(t)
	c, _ := newTestClient(t, srv)
	err := c.WriteNodes(context.Background(), []string{tag1, tag2}, []string{"1"})
	assert.Assert(t, errors.Is(err, client.ErrLengthMismatch))
}

func TestWriteNodeErrors(t *testing.T) {
	srv := newTestServer(t)
	c, _ := newTestClient(t, srv)
	ctx := context.Background()

	t.Run("unknown node", func(t *testing.T) {
		err := c.WriteNode(ctx, "ns=2;s=Nope", "1")
		var tre *client.TypeResolutionError
		assert.Assert(t, errors.As(err, &tre))
		assert.Equal(t, tre.NodeID, ua.ParseNodeID("ns=2;s=Nope"))
		assert.Assert(t, errors.Is(err, ua.BadNodeIDUnknown))
	})
	t.Run("cast", func(t *testing.T) {
		err := c.WriteNode(ctx, tag2, "abc")
		var we *client.WriteError
		assert.Assert(t, errors.As(err, &we))
		var ce *ua.CastError
		assert.Assert(t, errors.As(err, &ce))
		assert.Equal(t, ce.Type, ua.BuiltInTypeInt32)
		assert.Equal(t, we.StatusCode(), ua.BadTypeMismatch)
	})
	t.Run("not writable", func(t *testing.T) {
		err := c.WriteNode(ctx, "ns=2;s=Demo.ReadOnly", "x")
		var we *client.WriteError
		assert.Assert(t, errors.As(err, &we))
		assert.Equal(t, we.StatusCode(), ua.BadNotWritable)
	})
	t.Run("batch", func(t *testing.T) {
		err := c.WriteNodes(ctx, []string{tag1, "ns=2;s=Demo.ReadOnly"}, []string{"5", "x"})
		var errs client.WriteErrors
		assert.Assert(t, errors.As(err, &errs))
		assert.Equal(t, len(errs), 1)
		assert.Equal(t, errs[0].NodeID, ua.ParseNodeID("ns=2;s=Demo.ReadOnly"))
		v, err := c.ReadNode(ctx, tag1)
		assert.NilError(t, err)
		assert.Equal(t, *v, "5")
	})
	t.Run("batch cast fails before writing", func(t *testing.T) {
		err := c.WriteNodes(ctx, []string{tag1, tag2}, []string{"6", "abc"})
		var we *client.WriteError
		assert.Assert(t, errors.As(err, &we))
		assert.Equal(t, we.NodeID, ua.ParseNodeID(tag2))
		v, err := c.ReadNode(ctx, tag1)
		assert.NilError(t, err)
		assert.Equal(t, *v, "5")
	})
}
