// Copyright 2021 Converter Systems LLC. All rights reserved.

package server_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/server"
	"github.com/awcullen/uahelper/ua"
	"gotest.tools/assert"
)

var (
	tag1 = ua.ParseNodeID("ns=2;s=Channel1.Device1.Tag1")
	tag2 = ua.ParseNodeID("ns=2;s=Channel1.Device1.Tag2")
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

func openChannel(t *testing.T, srv *server.Server) client.Channel {
	t.Helper()
	ch, err := srv.Transport().Open(context.Background(), srv.Endpoints()[0], client.ChannelConfig{ApplicationName: "test"})
	assert.NilError(t, err)
	t.Cleanup(func() { ch.Close(context.Background()) })
	return ch
}

func call(t *testing.T, ch client.Channel, req ua.ServiceRequest) ua.ServiceResponse {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := ch.Request(ctx, req)
	assert.NilError(t, err)
	return res
}

func createSession(t *testing.T, ch client.Channel) ua.NodeID {
	t.Helper()
	res := call(t, ch, &ua.CreateSessionRequest{SessionName: t.Name(), RequestedSessionTimeout: 60000})
	assert.Equal(t, res.Header().ServiceResult, ua.Good)
	return res.(*ua.CreateSessionResponse).AuthenticationToken
}

func activate(t *testing.T, ch client.Channel, token ua.NodeID, identity interface{}) ua.StatusCode {
	t.Helper()
	res := call(t, ch, &ua.ActivateSessionRequest{
		RequestHeader:     ua.RequestHeader{AuthenticationToken: token},
		UserIdentityToken: identity,
	})
	return res.Header().ServiceResult
}

func openSession(t *testing.T, srv *server.Server) (client.Channel, ua.NodeID) {
	t.Helper()
	ch := openChannel(t, srv)
	token := createSession(t, ch)
	assert.Equal(t, activate(t, ch, token, ua.AnonymousIdentityToken{PolicyID: "anonymous"}), ua.Good)
	return ch, token
}

func header(token ua.NodeID) ua.RequestHeader {
	return ua.RequestHeader{AuthenticationToken: token, Timestamp: time.Now()}
}

func readValues(t *testing.T, ch client.Channel, token ua.NodeID, ids ...ua.NodeID) []ua.DataValue {
	t.Helper()
	nodes := make([]ua.ReadValueID, len(ids))
	for i, id := range ids {
		nodes[i] = ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue}
	}
	res := call(t, ch, &ua.ReadRequest{RequestHeader: header(token), NodesToRead: nodes, TimestampsToReturn: ua.TimestampsToReturnBoth})
	assert.Equal(t, res.Header().ServiceResult, ua.Good)
	return res.(*ua.ReadResponse).Results
}

func write(t *testing.T, ch client.Channel, token ua.NodeID, id ua.NodeID, v ua.Variant) ua.StatusCode {
	t.Helper()
	res := call(t, ch, &ua.WriteRequest{RequestHeader: header(token), NodesToWrite: []ua.WriteValue{
		{NodeID: id, AttributeID: ua.AttributeIDValue, Value: ua.DataValue{Value: v}},
	}})
	assert.Equal(t, res.Header().ServiceResult, ua.Good)
	return res.(*ua.WriteResponse).Results[0]
}

func TestGetEndpoints(t *testing.T) {
	srv := newTestServer(t)
	res, err := srv.Transport().GetEndpoints(context.Background(), &ua.GetEndpointsRequest{EndpointURL: srv.EndpointURL()})
	assert.NilError(t, err)
	assert.Equal(t, len(res.Endpoints), 1)
	ep := res.Endpoints[0]
	assert.Equal(t, ep.SecurityPolicyURI, ua.SecurityPolicyURINone)
	assert.Equal(t, len(ep.UserIdentityTokens), 2)
	assert.Equal(t, ep.UserIdentityTokens[0].TokenType, ua.UserTokenTypeAnonymous)
	assert.Equal(t, ep.UserIdentityTokens[1].TokenType, ua.UserTokenTypeUserName)

	res, err = srv.Transport().GetEndpoints(context.Background(), &ua.GetEndpointsRequest{ProfileURIs: []string{"urn:unknown"}})
	assert.NilError(t, err)
	assert.Equal(t, len(res.Endpoints), 0)
}

func TestActivateSession(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		srv := newTestServer(t)
		ch := openChannel(t, srv)
		assert.Equal(t, activate(t, ch, createSession(t, ch), ua.AnonymousIdentityToken{PolicyID: "anonymous"}), ua.Good)
		assert.Equal(t, srv.SessionManager().Len(), 1)
	})
	t.Run("anonymous rejected", func(t *testing.T) {
		srv := newTestServer(t, server.WithAnonymousIdentity(false))
		ch := openChannel(t, srv)
		assert.Equal(t, activate(t, ch, createSession(t, ch), ua.AnonymousIdentityToken{PolicyID: "anonymous"}), ua.BadIdentityTokenRejected)
	})
	t.Run("user name", func(t *testing.T) {
		srv := newTestServer(t)
		ch := openChannel(t, srv)
		token := createSession(t, ch)
		assert.Equal(t, activate(t, ch, token, ua.UserNameIdentityToken{PolicyID: "username", UserName: "root", Password: "wrong"}), ua.BadUserAccessDenied)
		assert.Equal(t, activate(t, ch, token, ua.UserNameIdentityToken{PolicyID: "username", UserName: "nobody", Password: "secret"}), ua.BadUserAccessDenied)
		assert.Equal(t, activate(t, ch, token, ua.UserNameIdentityToken{PolicyID: "username", UserName: "root", Password: "secret"}), ua.Good)
	})
	t.Run("unknown token", func(t *testing.T) {
		srv := newTestServer(t)
		ch := openChannel(t, srv)
		assert.Equal(t, activate(t, ch, ua.NewNodeIDNumeric(0, 42), nil), ua.BadSessionIDInvalid)
	})
	t.Run("not activated", func(t *testing.T) {
		srv := newTestServer(t)
		ch := openChannel(t, srv)
		token := createSession(t, ch)
		res := call(t, ch, &ua.ReadRequest{RequestHeader: header(token), NodesToRead: []ua.ReadValueID{{NodeID: tag1, AttributeID: ua.AttributeIDValue}}})
		assert.Equal(t, res.Header().ServiceResult, ua.BadSessionNotActivated)
	})
}

func TestSessionBoundToChannel(t *testing.T) {
	srv := newTestServer(t)
	_, token := openSession(t, srv)
	other := openChannel(t, srv)
	res := call(t, other, &ua.ReadRequest{RequestHeader: header(token), NodesToRead: []ua.ReadValueID{{NodeID: tag1, AttributeID: ua.AttributeIDValue}}})
	assert.Equal(t, res.Header().ServiceResult, ua.BadSecureChannelIDInvalid)

	// activating on the other channel moves the session
	assert.Equal(t, activate(t, other, token, ua.AnonymousIdentityToken{PolicyID: "anonymous"}), ua.Good)
	assert.Equal(t, len(readValues(t, other, token, tag1)), 1)
}

func TestReadWrite(t *testing.T) {
	srv := newTestServer(t)
	ch, token := openSession(t, srv)

	assert.Equal(t, write(t, ch, token, tag2, int32(111)), ua.Good)
	values := readValues(t, ch, token, tag1, tag2, ua.ParseNodeID("ns=2;s=Nope"))
	assert.Equal(t, len(values), 3)
	assert.Equal(t, values[0].Value, int32(0))
	assert.Equal(t, values[1].Value, int32(111))
	assert.Assert(t, !values[1].SourceTimestamp.IsZero())
	assert.Equal(t, values[2].StatusCode, ua.BadNodeIDUnknown)

	assert.Equal(t, write(t, ch, token, tag2, "111"), ua.BadTypeMismatch)
	assert.Equal(t, write(t, ch, token, ua.ParseNodeID("ns=2;s=Demo.ReadOnly"), "x"), ua.BadNotWritable)
	assert.Equal(t, write(t, ch, token, ua.ParseNodeID("ns=2;s=Demo.Temperature"), float64(21.5)), ua.Good)
	assert.Equal(t, write(t, ch, token, ua.ParseNodeID("ns=2;s=Demo.Temperature"), float32(21.5)), ua.BadTypeMismatch)
	assert.Equal(t, write(t, ch, token, ua.ObjectIDServer, int32(1)), ua.BadAttributeIDInvalid)
}

func TestReadAttributes(t *testing.T) {
	srv := newTestServer(t)
	ch, token := openSession(t, srv)
	temperature := ua.ParseNodeID("ns=2;s=Demo.Temperature")
	res := call(t, ch, &ua.ReadRequest{RequestHeader: header(token), NodesToRead: []ua.ReadValueID{
		{NodeID: temperature, AttributeID: ua.AttributeIDDataType},
		{NodeID: temperature, AttributeID: ua.AttributeIDNodeClass},
		{NodeID: ua.ParseNodeID("ns=2;s=Demo.StringArray"), AttributeID: ua.AttributeIDValueRank},
		{NodeID: ua.ParseNodeID("ns=2;s=Demo.ReadOnly"), AttributeID: ua.AttributeIDAccessLevel},
		{NodeID: ua.ObjectIDServer, AttributeID: ua.AttributeIDValue},
		{NodeID: ua.VariableIDServerServerStatusState, AttributeID: ua.AttributeIDValue},
	}})
	results := res.(*ua.ReadResponse).Results
	assert.Equal(t, results[0].Value, server.DataTypeIDTemperature)
	assert.Equal(t, results[1].Value, int32(ua.NodeClassVariable))
	assert.Equal(t, results[2].Value, int32(1))
	assert.Equal(t, results[3].Value, ua.AccessLevelsCurrentRead)
	assert.Equal(t, results[4].StatusCode, ua.BadAttributeIDInvalid)
	assert.Equal(t, results[5].Value, int32(ua.ServerStateRunning))

	srv.SetState(ua.ServerStateSuspended)
	assert.Equal(t, readValues(t, ch, token, ua.VariableIDServerServerStatusState)[0].Value, int32(ua.ServerStateSuspended))
}

func TestBrowseDataTypes(t *testing.T) {
	srv := newTestServer(t)
	ch, token := openSession(t, srv)
	res := call(t, ch, &ua.BrowseRequest{RequestHeader: header(token), NodesToBrowse: []ua.BrowseDescription{
		{NodeID: server.DataTypeIDTemperature, BrowseDirection: ua.BrowseDirectionInverse, ReferenceTypeID: ua.ReferenceTypeIDHasSubtype},
		{NodeID: ua.ParseNodeID("ns=2;s=Nope"), BrowseDirection: ua.BrowseDirectionInverse},
	}})
	results := res.(*ua.BrowseResponse).Results
	assert.Equal(t, results[0].StatusCode, ua.Good)
	assert.Equal(t, len(results[0].References), 1)
	assert.Equal(t, results[0].References[0].NodeID, server.DataTypeIDAnalogValue)
	assert.Equal(t, results[0].References[0].IsForward, false)
	assert.Equal(t, results[1].StatusCode, ua.BadNodeIDUnknown)

	assert.Equal(t, srv.NamespaceManager().BuiltInType(server.DataTypeIDTemperature), ua.BuiltInTypeDouble)
	assert.Equal(t, srv.NamespaceManager().BuiltInType(server.DataTypeIDBatchNumber), ua.BuiltInTypeUInt32)
}

func TestAddVariable(t *testing.T) {
	srv := newTestServer(t)
	id := ua.ParseNodeID("ns=2;s=Extra.Counter")
	_, err := srv.AddVariable(id, ua.DataTypeIDUInt16, uint16(7), true)
	assert.NilError(t, err)
	_, err = srv.AddVariable(id, ua.DataTypeIDUInt16, uint16(7), true)
	assert.Assert(t, errors.Is(err, ua.BadNodeIDExists))

	ch, token := openSession(t, srv)
	assert.Equal(t, readValues(t, ch, token, id)[0].Value, uint16(7))
}

func subscribe(t *testing.T, ch client.Channel, token ua.NodeID, ids ...ua.NodeID) uint32 {
	t.Helper()
	res := call(t, ch, &ua.CreateSubscriptionRequest{
		RequestHeader:               header(token),
		RequestedPublishingInterval: 20,
		RequestedMaxKeepAliveCount:  5,
		RequestedLifetimeCount:      60,
		PublishingEnabled:           true,
	})
	assert.Equal(t, res.Header().ServiceResult, ua.Good)
	subID := res.(*ua.CreateSubscriptionResponse).SubscriptionID
	items := make([]ua.MonitoredItemCreateRequest, len(ids))
	for i, id := range ids {
		items[i] = ua.MonitoredItemCreateRequest{
			ItemToMonitor:       ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue},
			MonitoringMode:      ua.MonitoringModeReporting,
			RequestedParameters: ua.MonitoringParameters{ClientHandle: uint32(i + 1), SamplingInterval: 10, QueueSize: 1, DiscardOldest: true},
		}
	}
	res = call(t, ch, &ua.CreateMonitoredItemsRequest{RequestHeader: header(token), SubscriptionID: subID, ItemsToCreate: items, TimestampsToReturn: ua.TimestampsToReturnBoth})
	assert.Equal(t, res.Header().ServiceResult, ua.Good)
	for _, r := range res.(*ua.CreateMonitoredItemsResponse).Results {
		assert.Equal(t, r.StatusCode, ua.Good)
	}
	return subID
}

// publishData publishes until a message with data arrives.
func publishData(t *testing.T, ch client.Channel, token ua.NodeID, acks []ua.SubscriptionAcknowledgement) *ua.PublishResponse {
	t.Helper()
	for i := 0; i < 50; i++ {
		res := call(t, ch, &ua.PublishRequest{RequestHeader: header(token), SubscriptionAcknowledgements: acks})
		assert.Equal(t, res.Header().ServiceResult, ua.Good)
		pr := res.(*ua.PublishResponse)
		if len(pr.NotificationMessage.NotificationData) > 0 {
			return pr
		}
		acks = nil
	}
	t.Fatal("no data change received")
	return nil
}

func valuesOf(pr *ua.PublishResponse) []ua.Variant {
	var res []ua.Variant
	for _, d := range pr.NotificationMessage.NotificationData {
		if dcn, ok := d.(*ua.DataChangeNotification); ok {
			for _, n := range dcn.MonitoredItems {
				res = append(res, n.Value.Value)
			}
		}
	}
	return res
}

func TestPublish(t *testing.T) {
	srv := newTestServer(t)
	ch, token := openSession(t, srv)

	res := call(t, ch, &ua.PublishRequest{RequestHeader: header(token)})
	assert.Equal(t, res.Header().ServiceResult, ua.BadNoSubscription)

	subID := subscribe(t, ch, token, tag1)
	pr := publishData(t, ch, token, nil)
	assert.Equal(t, pr.SubscriptionID, subID)
	assert.DeepEqual(t, valuesOf(pr), []ua.Variant{int32(0)})

	assert.Equal(t, write(t, ch, token, tag1, int32(5)), ua.Good)
	ack := ua.SubscriptionAcknowledgement{SubscriptionID: subID, SequenceNumber: pr.NotificationMessage.SequenceNumber}
	next := publishData(t, ch, token, []ua.SubscriptionAcknowledgement{ack})
	assert.DeepEqual(t, valuesOf(next), []ua.Variant{int32(5)})
	assert.DeepEqual(t, next.Results, []ua.StatusCode{ua.Good})
	assert.Equal(t, next.NotificationMessage.SequenceNumber, pr.NotificationMessage.SequenceNumber+1)

	// keep-alive after publishing interval times max keep-alive count
	res = call(t, ch, &ua.PublishRequest{RequestHeader: header(token)})
	assert.Equal(t, len(res.(*ua.PublishResponse).NotificationMessage.NotificationData), 0)

	res = call(t, ch, &ua.DeleteSubscriptionsRequest{RequestHeader: header(token), SubscriptionIDs: []uint32{subID, 9999}})
	assert.DeepEqual(t, res.(*ua.DeleteSubscriptionsResponse).Results, []ua.StatusCode{ua.Good, ua.BadSubscriptionIDInvalid})
	assert.Equal(t, srv.SubscriptionManager().Len(), 0)
}

func TestDeleteMonitoredItems(t *testing.T) {
	srv := newTestServer(t)
	ch, token := openSession(t, srv)
	subID := subscribe(t, ch, token, tag1, tag2)
	sub, ok := srv.SubscriptionManager().Get(subID)
	assert.Assert(t, ok)
	items := sub.Items()
	assert.Equal(t, len(items), 2)

	res := call(t, ch, &ua.DeleteMonitoredItemsRequest{RequestHeader: header(token), SubscriptionID: subID, MonitoredItemIDs: []uint32{items[0].ID(), 0}})
	assert.DeepEqual(t, res.(*ua.DeleteMonitoredItemsResponse).Results, []ua.StatusCode{ua.Good, ua.BadMonitoredItemIDInvalid})
	assert.Equal(t, len(sub.Items()), 1)
}

func TestTransferSubscriptions(t *testing.T) {
	srv := newTestServer(t)
	ch, token := openSession(t, srv)
	subID := subscribe(t, ch, token, tag1)
	publishData(t, ch, token, nil)

	srv.ExpireSessions(false)
	assert.Equal(t, srv.SessionManager().Len(), 0)
	assert.Equal(t, srv.SubscriptionManager().Len(), 1)

	ch2, token2 := openSession(t, srv)
	res := call(t, ch2, &ua.TransferSubscriptionsRequest{RequestHeader: header(token2), SubscriptionIDs: []uint32{subID, 9999}, SendInitialValues: true})
	results := res.(*ua.TransferSubscriptionsResponse).Results
	assert.Equal(t, results[0].StatusCode, ua.Good)
	assert.Equal(t, results[1].StatusCode, ua.BadSubscriptionIDInvalid)

	pr := publishData(t, ch2, token2, nil)
	assert.Equal(t, pr.SubscriptionID, subID)
	assert.DeepEqual(t, valuesOf(pr), []ua.Variant{int32(0)})
}

func TestTransferSubscriptionsDisabled(t *testing.T) {
	srv := newTestServer(t, server.WithoutTransferSubscriptions())
	ch, token := openSession(t, srv)
	subID := subscribe(t, ch, token, tag1)
	srv.ExpireSessions(true)
	assert.Equal(t, srv.SubscriptionManager().Len(), 0)

	ch2, token2 := openSession(t, srv)
	res := call(t, ch2, &ua.TransferSubscriptionsRequest{RequestHeader: header(token2), SubscriptionIDs: []uint32{subID}})
	assert.Equal(t, res.Header().ServiceResult, ua.BadServiceUnsupported)
}

func TestDropChannels(t *testing.T) {
	srv := newTestServer(t)
	ch, token := openSession(t, srv)
	srv.DropChannels()

	_, err := ch.Request(context.Background(), &ua.ReadRequest{RequestHeader: header(token)})
	assert.Assert(t, errors.Is(err, ua.BadSecureChannelClosed))

	// the session survives and is activated on a new channel
	ch2 := openChannel(t, srv)
	assert.Equal(t, activate(t, ch2, token, ua.AnonymousIdentityToken{PolicyID: "anonymous"}), ua.Good)
}

func TestOffline(t *testing.T) {
	srv := newTestServer(t)
	srv.SetOffline(true)
	_, err := srv.Transport().Open(context.Background(), srv.Endpoints()[0], client.ChannelConfig{})
	assert.Assert(t, errors.Is(err, ua.BadServerNotConnected))
	_, err = srv.Transport().GetEndpoints(context.Background(), &ua.GetEndpointsRequest{})
	assert.Assert(t, errors.Is(err, ua.BadServerNotConnected))

	srv.SetOffline(false)
	openSession(t, srv)
}

func TestClose(t *testing.T) {
	srv, err := server.New()
	assert.NilError(t, err)
	ch, token := openSession(t, srv)
	subscribe(t, ch, token, tag1)

	done := make(chan bool, 1)
	go func() {
		// drain the initial value, then wait
		ch.Request(context.Background(), &ua.PublishRequest{RequestHeader: header(token)})
		res, err := ch.Request(context.Background(), &ua.PublishRequest{RequestHeader: header(token)})
		done <- err != nil || res.Header().ServiceResult.IsBad()
	}()
	time.Sleep(100 * time.Millisecond)
	assert.NilError(t, srv.Close())
	select {
	case failed := <-done:
		assert.Assert(t, failed)
	case <-time.After(5 * time.Second):
		t.Fatal("publish did not return after close")
	}
	assert.Equal(t, srv.State(), ua.ServerStateShutdown)
	_, err = srv.Transport().Open(context.Background(), srv.Endpoints()[0], client.ChannelConfig{})
	assert.Assert(t, errors.Is(err, ua.BadServerNotConnected))
}
