// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/awcullen/uahelper/ua"
)

// fakeServer is a Transport that answers the session and subscription services in memory.
type fakeServer struct {
	offline atomic.Bool
	ids     atomic.Uint32

	mu       sync.Mutex
	channels []*fakeChannel
}

func (srv *fakeServer) GetEndpoints(ctx context.Context, req *ua.GetEndpointsRequest) (*ua.GetEndpointsResponse, error) {
	if srv.offline.Load() {
		return nil, ua.BadServerNotConnected
	}
	return &ua.GetEndpointsResponse{Endpoints: []ua.EndpointDescription{
		{EndpointURL: req.EndpointURL, SecurityMode: ua.MessageSecurityModeNone, SecurityPolicyURI: ua.SecurityPolicyURINone},
	}}, nil
}

func (srv *fakeServer) Open(ctx context.Context, endpoint ua.EndpointDescription, config ChannelConfig) (Channel, error) {
	if srv.offline.Load() {
		return nil, ua.BadServerNotConnected
	}
	ch := &fakeChannel{server: srv}
	srv.mu.Lock()
	srv.channels = append(srv.channels, ch)
	srv.mu.Unlock()
	return ch, nil
}

// channel returns the i-th channel opened.
func (srv *fakeServer) channel(i int) *fakeChannel {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.channels[i]
}

type fakeChannel struct {
	server  *fakeServer
	aborted atomic.Bool
	closed  atomic.Bool
}

func (ch *fakeChannel) Request(ctx context.Context, req ua.ServiceRequest) (ua.ServiceResponse, error) {
	if ch.aborted.Load() || ch.closed.Load() || ch.server.offline.Load() {
		return nil, ua.BadSecureChannelClosed
	}
	switch r := req.(type) {
	case *ua.CreateSessionRequest:
		id := ch.server.ids.Add(1)
		return &ua.CreateSessionResponse{
			SessionID:           ua.NewNodeIDNumeric(1, id),
			AuthenticationToken: ua.NewNodeIDNumeric(0, 1000+id),
		}, nil
	case *ua.ActivateSessionRequest:
		return &ua.ActivateSessionResponse{}, nil
	case *ua.CloseSessionRequest:
		return &ua.CloseSessionResponse{}, nil
	case *ua.ReadRequest:
		res := &ua.ReadResponse{Results: make([]ua.DataValue, len(r.NodesToRead))}
		for i, n := range r.NodesToRead {
			switch n.NodeID {
			case ua.VariableIDServerNamespaceArray:
				res.Results[i].Value = []string{"http://opcfoundation.org/UA/"}
			case ua.VariableIDServerServerStatusState:
				res.Results[i].Value = ua.ServerStateRunning
			default:
				res.Results[i].StatusCode = ua.BadNodeIDUnknown
			}
		}
		return res, nil
	case *ua.CreateSubscriptionRequest:
		return &ua.CreateSubscriptionResponse{SubscriptionID: ch.server.ids.Add(1)}, nil
	case *ua.CreateMonitoredItemsRequest:
		res := &ua.CreateMonitoredItemsResponse{Results: make([]ua.MonitoredItemCreateResult, len(r.ItemsToCreate))}
		for i := range res.Results {
			res.Results[i].MonitoredItemID = ch.server.ids.Add(1)
		}
		return res, nil
	case *ua.DeleteSubscriptionsRequest:
		return &ua.DeleteSubscriptionsResponse{Results: make([]ua.StatusCode, len(r.SubscriptionIDs))}, nil
	case *ua.PublishRequest:
		// notifications are injected by the tests
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, ua.BadServiceUnsupported
}

func (ch *fakeChannel) Close(ctx context.Context) error {
	ch.closed.Store(true)
	return nil
}

func (ch *fakeChannel) Abort(ctx context.Context) error {
	ch.aborted.Store(true)
	return nil
}
