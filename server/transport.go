// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
)

// loopbackTransport connects clients to a server in the same process.
type loopbackTransport struct {
	srv *Server
}

func (t *loopbackTransport) GetEndpoints(ctx context.Context, req *ua.GetEndpointsRequest) (*ua.GetEndpointsResponse, error) {
	if err := t.srv.available(); err != nil {
		return nil, errors.Wrapf(err, "connect %s", req.EndpointURL)
	}
	return t.srv.handleGetEndpoints(req), nil
}

func (t *loopbackTransport) Open(ctx context.Context, endpoint ua.EndpointDescription, config client.ChannelConfig) (client.Channel, error) {
	if err := t.srv.available(); err != nil {
		return nil, errors.Wrapf(err, "connect %s", endpoint.EndpointURL)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := t.srv.channelManager.open()
	t.srv.logger.Debug().Uint32("channel", ch.id).Str("application", config.ApplicationName).Msg("channel opened")
	return ch, nil
}

func (srv *Server) available() error {
	select {
	case <-srv.closing:
		return ua.BadServerNotConnected
	default:
	}
	if srv.IsOffline() {
		return ua.BadServerNotConnected
	}
	return nil
}

// loopbackChannel carries the requests of one client connection.
type loopbackChannel struct {
	id     uint32
	srv    *Server
	ctx    context.Context
	cancel context.CancelFunc
}

type result struct {
	res ua.ServiceResponse
	err error
}

// Request handles the request on the worker pool of the server. Publish requests wait for
// notifications on the calling goroutine.
func (ch *loopbackChannel) Request(ctx context.Context, req ua.ServiceRequest) (ua.ServiceResponse, error) {
	if ch.ctx.Err() != nil {
		return nil, ua.BadSecureChannelClosed
	}
	if r, ok := req.(*ua.PublishRequest); ok {
		return ch.srv.handlePublish(ctx, ch, r)
	}
	if ch.srv.workerpool.Stopped() {
		return nil, ua.BadShutdown
	}
	done := make(chan result, 1)
	ch.srv.workerpool.Submit(func() {
		res, err := ch.srv.handleRequest(ctx, ch, req)
		done <- result{res, err}
	})
	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ch.ctx.Done():
		return nil, ua.BadSecureChannelClosed
	}
}

func (ch *loopbackChannel) Close(ctx context.Context) error {
	ch.srv.channelManager.Delete(ch)
	ch.cancel()
	return nil
}

func (ch *loopbackChannel) Abort(ctx context.Context) error {
	return ch.Close(ctx)
}
