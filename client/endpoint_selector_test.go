// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"errors"
	"testing"

	"github.com/awcullen/uahelper/ua"
	"gotest.tools/assert"
)

// fakeTransport returns a fixed set of endpoints.
type fakeTransport struct {
	endpoints []ua.EndpointDescription
	result    ua.StatusCode
	err       error
	requested string
}

func (t *fakeTransport) GetEndpoints(ctx context.Context, req *ua.GetEndpointsRequest) (*ua.GetEndpointsResponse, error) {
	t.requested = req.EndpointURL
	if t.err != nil {
		return nil, t.err
	}
	return &ua.GetEndpointsResponse{
		ResponseHeader: ua.ResponseHeader{ServiceResult: t.result},
		Endpoints:      t.endpoints,
	}, nil
}

func (t *fakeTransport) Open(ctx context.Context, endpoint ua.EndpointDescription, config ChannelConfig) (Channel, error) {
	return nil, ua.BadServiceUnsupported
}

var testEndpoints = []ua.EndpointDescription{
	{EndpointURL: "opc.tcp://server.internal:4840", SecurityMode: ua.MessageSecurityModeNone, SecurityPolicyURI: ua.SecurityPolicyURINone, SecurityLevel: 0},
	{EndpointURL: "opc.tcp://server.internal:4840", SecurityMode: ua.MessageSecurityModeSign, SecurityPolicyURI: "http://opcfoundation.org/UA/SecurityPolicy#Basic256Sha256", SecurityLevel: 2},
	{EndpointURL: "opc.tcp://server.internal:4840", SecurityMode: ua.MessageSecurityModeSignAndEncrypt, SecurityPolicyURI: "http://opcfoundation.org/UA/SecurityPolicy#Basic256Sha256", SecurityLevel: 3},
	{EndpointURL: "https://server.internal:443", SecurityMode: ua.MessageSecurityModeSignAndEncrypt, SecurityLevel: 9},
}

func TestSelectEndpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("without security", func(t *testing.T) {
		e, err := SelectEndpoint(ctx, &fakeTransport{endpoints: testEndpoints}, "opc.tcp://127.0.0.1:48010", false)
		assert.NilError(t, err)
		assert.Equal(t, e.SecurityMode, ua.MessageSecurityModeNone)
		// host and port of the discovery url replace those of the endpoint
		assert.Equal(t, e.EndpointURL, "opc.tcp://127.0.0.1:48010")
	})
	t.Run("with security picks the highest level", func(t *testing.T) {
		e, err := SelectEndpoint(ctx, &fakeTransport{endpoints: testEndpoints}, "opc.tcp://127.0.0.1:48010", true)
		assert.NilError(t, err)
		assert.Equal(t, e.SecurityMode, ua.MessageSecurityModeSignAndEncrypt)
		assert.Equal(t, e.SecurityLevel, byte(3))
		assert.Equal(t, e.EndpointURL, "opc.tcp://127.0.0.1:48010")
	})
	t.Run("falls back to the first endpoint", func(t *testing.T) {
		endpoints := testEndpoints[1:3]
		e, err := SelectEndpoint(ctx, &fakeTransport{endpoints: endpoints}, "opc.tcp://127.0.0.1:48010", false)
		assert.NilError(t, err)
		assert.Equal(t, e.SecurityMode, ua.MessageSecurityModeSign)
	})
	t.Run("appends discovery to other schemes", func(t *testing.T) {
		tr := &fakeTransport{endpoints: testEndpoints}
		e, err := SelectEndpoint(ctx, tr, "https://127.0.0.1:8443", true)
		assert.NilError(t, err)
		assert.Equal(t, tr.requested, "https://127.0.0.1:8443/discovery")
		assert.Equal(t, e.SecurityLevel, byte(9))
		assert.Equal(t, e.EndpointURL, "https://127.0.0.1:8443")
	})
	t.Run("no endpoints", func(t *testing.T) {
		_, err := SelectEndpoint(ctx, &fakeTransport{}, "opc.tcp://127.0.0.1:48010", false)
		var ne *NoEndpointError
		assert.Assert(t, errors.As(err, &ne))
		assert.Equal(t, ne.DiscoveryURL, "opc.tcp://127.0.0.1:48010")
	})
	t.Run("bad service result", func(t *testing.T) {
		_, err := SelectEndpoint(ctx, &fakeTransport{result: ua.BadServerHalted}, "opc.tcp://127.0.0.1:48010", false)
		assert.Assert(t, errors.Is(err, ua.BadServerHalted))
	})
	t.Run("transport error", func(t *testing.T) {
		_, err := SelectEndpoint(ctx, &fakeTransport{err: ua.BadTimeout}, "opc.tcp://127.0.0.1:48010", false)
		assert.Assert(t, errors.Is(err, ua.BadTimeout))
	})
}
