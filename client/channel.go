// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"time"

	"github.com/awcullen/uahelper/ua"
)

// Channel carries service requests to one server endpoint.
type Channel interface {
	// Request sends a request and waits for the response.
	Request(ctx context.Context, req ua.ServiceRequest) (ua.ServiceResponse, error)
	// Close closes the channel gracefully.
	Close(ctx context.Context) error
	// Abort closes the channel without waiting for the server.
	Abort(ctx context.Context) error
}

// ChannelConfig configures a channel opened by a Transport.
type ChannelConfig struct {
	ApplicationName string
	UserIdentity    ua.UserIdentity
	RequestTimeout  time.Duration
	SessionTimeout  time.Duration
}

// Transport discovers endpoints and opens channels.
type Transport interface {
	GetEndpoints(ctx context.Context, req *ua.GetEndpointsRequest) (*ua.GetEndpointsResponse, error)
	Open(ctx context.Context, endpoint ua.EndpointDescription, config ChannelConfig) (Channel, error)
}
