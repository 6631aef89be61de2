// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"reflect"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/google/uuid"
)

// handleRequest dispatches a service request of the channel.
func (srv *Server) handleRequest(ctx context.Context, ch *loopbackChannel, req ua.ServiceRequest) (ua.ServiceResponse, error) {
	switch r := req.(type) {
	case *ua.CreateSessionRequest:
		return srv.handleCreateSession(ch, r), nil
	case *ua.ActivateSessionRequest:
		return srv.handleActivateSession(ch, r), nil
	case *ua.CloseSessionRequest:
		return srv.handleCloseSession(ch, r), nil
	case *ua.ReadRequest:
		return srv.handleRead(ctx, ch, r), nil
	case *ua.WriteRequest:
		return srv.handleWrite(ch, r), nil
	case *ua.BrowseRequest:
		return srv.handleBrowse(ch, r), nil
	case *ua.CreateSubscriptionRequest:
		return srv.handleCreateSubscription(ch, r), nil
	case *ua.DeleteSubscriptionsRequest:
		return srv.handleDeleteSubscriptions(ch, r), nil
	case *ua.TransferSubscriptionsRequest:
		return srv.handleTransferSubscriptions(ch, r), nil
	case *ua.CreateMonitoredItemsRequest:
		return srv.handleCreateMonitoredItems(ch, r), nil
	case *ua.DeleteMonitoredItemsRequest:
		return srv.handleDeleteMonitoredItems(ch, r), nil
	case *ua.GetEndpointsRequest:
		return srv.handleGetEndpoints(r), nil
	default:
		return serviceFault(req, ua.BadServiceUnsupported), nil
	}
}

func responseHeader(req ua.ServiceRequest) ua.ResponseHeader {
	return ua.ResponseHeader{
		Timestamp:     time.Now(),
		RequestHandle: req.Header().RequestHandle,
	}
}

func serviceFault(req ua.ServiceRequest, result ua.StatusCode) *ua.ServiceFault {
	header := responseHeader(req)
	header.ServiceResult = result
	return &ua.ServiceFault{ResponseHeader: header}
}

// sessionFor returns the activated session of the request.
func (srv *Server) sessionFor(ch *loopbackChannel, req ua.ServiceRequest) (*Session, ua.StatusCode) {
	session, ok := srv.sessionManager.Get(req.Header().AuthenticationToken)
	if !ok {
		return nil, ua.BadSessionIDInvalid
	}
	if result := session.check(ch.id); result.IsBad() {
		return nil, result
	}
	return session, ua.Good
}

// handleGetEndpoints returns the endpoint descriptions supported by the server.
func (srv *Server) handleGetEndpoints(req *ua.GetEndpointsRequest) *ua.GetEndpointsResponse {
	eps := make([]ua.EndpointDescription, 0, 1)
	for _, ep := range srv.Endpoints() {
		if len(req.ProfileURIs) > 0 {
			for _, pu := range req.ProfileURIs {
				if ep.TransportProfileURI == pu {
					eps = append(eps, ep)
					break
				}
			}
		} else {
			eps = append(eps, ep)
		}
	}
	return &ua.GetEndpointsResponse{
		ResponseHeader: responseHeader(req),
		Endpoints:      eps,
	}
}

// handleCreateSession creates a session. The session must be activated before use.
func (srv *Server) handleCreateSession(ch *loopbackChannel, req *ua.CreateSessionRequest) ua.ServiceResponse {
	timeout := time.Duration(req.RequestedSessionTimeout * float64(time.Millisecond))
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	session := NewSession(
		ua.NewNodeIDGUID(1, uuid.New()),
		req.SessionName,
		ua.NewNodeIDGUID(0, uuid.New()),
		timeout,
	)
	if err := srv.sessionManager.Add(session); err != nil {
		return serviceFault(req, ua.BadTooManySessions)
	}
	srv.logger.Debug().Str("session", session.SessionName()).Uint32("channel", ch.id).Msg("session created")
	return &ua.CreateSessionResponse{
		ResponseHeader:        responseHeader(req),
		SessionID:             session.SessionID(),
		AuthenticationToken:   session.AuthenticationToken(),
		RevisedSessionTimeout: float64(timeout / time.Millisecond),
		ServerEndpoints:       srv.Endpoints(),
	}
}

// handleActivateSession authenticates the user and binds the session to the channel.
func (srv *Server) handleActivateSession(ch *loopbackChannel, req *ua.ActivateSessionRequest) ua.ServiceResponse {
	session, ok := srv.sessionManager.Get(req.RequestHeader.AuthenticationToken)
	if !ok {
		return serviceFault(req, ua.BadSessionIDInvalid)
	}
	var identity ua.UserIdentity
	switch token := req.UserIdentityToken.(type) {
	case nil, ua.AnonymousIdentityToken:
		if !srv.allowAnonymous {
			return serviceFault(req, ua.BadIdentityTokenRejected)
		}
		identity = ua.AnonymousIdentity{}
	case ua.UserNameIdentityToken:
		if token.PolicyID != userNamePolicyID {
			return serviceFault(req, ua.BadIdentityTokenInvalid)
		}
		user := ua.UserNameIdentity{UserName: token.UserName, Password: string(token.Password)}
		if err := srv.authenticator.AuthenticateUserNameIdentity(user, srv.endpointURL); err != nil {
			srv.logger.Info().Str("user", token.UserName).Msg("user access denied")
			return serviceFault(req, ua.BadUserAccessDenied)
		}
		identity = user
	default:
		return serviceFault(req, ua.BadIdentityTokenInvalid)
	}
	session.activate(ch.id, identity)
	srv.logger.Debug().Str("session", session.SessionName()).Uint32("channel", ch.id).Msg("session activated")
	return &ua.ActivateSessionResponse{ResponseHeader: responseHeader(req)}
}

// handleCloseSession closes a session, and deletes its subscriptions if requested.
func (srv *Server) handleCloseSession(ch *loopbackChannel, req *ua.CloseSessionRequest) ua.ServiceResponse {
	session, result := srv.sessionFor(ch, req)
	if result.IsBad() {
		return serviceFault(req, result)
	}
	srv.sessionManager.Delete(session)
	srv.subscriptionManager.detach(session, req.DeleteSubscriptions)
	srv.logger.Debug().Str("session", session.SessionName()).Msg("session closed")
	return &ua.CloseSessionResponse{ResponseHeader: responseHeader(req)}
}

// handleRead returns values of attributes of one or more nodes.
func (srv *Server) handleRead(ctx context.Context, ch *loopbackChannel, req *ua.ReadRequest) ua.ServiceResponse {
	if _, result := srv.sessionFor(ch, req); result.IsBad() {
		return serviceFault(req, result)
	}
	if req.TimestampsToReturn > ua.TimestampsToReturnNeither {
		return serviceFault(req, ua.BadInvalidArgument)
	}
	if len(req.NodesToRead) == 0 {
		return serviceFault(req, ua.BadNothingToDo)
	}
	results := make([]ua.DataValue, len(req.NodesToRead))
	for i, rv := range req.NodesToRead {
		results[i] = withTimestamps(srv.readValue(ctx, rv), req.TimestampsToReturn)
	}
	return &ua.ReadResponse{
		ResponseHeader: responseHeader(req),
		Results:        results,
	}
}

func (srv *Server) readValue(ctx context.Context, rv ua.ReadValueID) ua.DataValue {
	now := time.Now().UTC()
	bad := func(code ua.StatusCode) ua.DataValue {
		return ua.NewDataValue(nil, code, time.Time{}, 0, now, 0)
	}
	n, ok := srv.namespaceManager.FindNode(rv.NodeID)
	if !ok {
		return bad(ua.BadNodeIDUnknown)
	}
	if !n.IsAttributeIDValid(rv.AttributeID) {
		return bad(ua.BadAttributeIDInvalid)
	}
	good := func(v ua.Variant) ua.DataValue {
		return ua.NewDataValue(v, ua.Good, time.Time{}, 0, now, 0)
	}
	switch rv.AttributeID {
	case ua.AttributeIDNodeID:
		return good(n.NodeID())
	case ua.AttributeIDNodeClass:
		return good(int32(n.NodeClass()))
	case ua.AttributeIDBrowseName:
		return good(n.BrowseName())
	case ua.AttributeIDDisplayName:
		return good(n.DisplayName())
	}
	vn, ok := n.(*VariableNode)
	if !ok {
		return bad(ua.BadAttributeIDInvalid)
	}
	switch rv.AttributeID {
	case ua.AttributeIDValue:
		if vn.AccessLevel()&ua.AccessLevelsCurrentRead == 0 {
			return bad(ua.BadNotReadable)
		}
		return vn.Value(ctx)
	case ua.AttributeIDDataType:
		return good(vn.DataType())
	case ua.AttributeIDValueRank:
		return good(valueRank(vn.Value(ctx).Value))
	case ua.AttributeIDAccessLevel, ua.AttributeIDUserAccessLevel:
		return good(vn.AccessLevel())
	}
	return bad(ua.BadAttributeIDInvalid)
}

// valueRank returns 1 for one dimensional arrays and -1 for scalars.
func valueRank(v ua.Variant) int32 {
	if v == nil {
		return -1
	}
	if t := reflect.TypeOf(v); t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
		return 1
	}
	return -1
}

// handleWrite sets values of attributes of one or more nodes.
func (srv *Server) handleWrite(ch *loopbackChannel, req *ua.WriteRequest) ua.ServiceResponse {
	session, result := srv.sessionFor(ch, req)
	if result.IsBad() {
		return serviceFault(req, result)
	}
	if len(req.NodesToWrite) == 0 {
		return serviceFault(req, ua.BadNothingToDo)
	}
	results := make([]ua.StatusCode, len(req.NodesToWrite))
	for i, wv := range req.NodesToWrite {
		results[i] = srv.writeValue(wv)
		if results[i].IsBad() {
			srv.logger.Debug().Str("session", session.SessionName()).Str("node", wv.NodeID.String()).Stringer("result", results[i]).Msg("write failed")
		}
	}
	return &ua.WriteResponse{
		ResponseHeader: responseHeader(req),
		Results:        results,
	}
}

func (srv *Server) writeValue(wv ua.WriteValue) ua.StatusCode {
	n, ok := srv.namespaceManager.FindNode(wv.NodeID)
	if !ok {
		return ua.BadNodeIDUnknown
	}
	if !n.IsAttributeIDValid(wv.AttributeID) {
		return ua.BadAttributeIDInvalid
	}
	vn, ok := n.(*VariableNode)
	if !ok || wv.AttributeID != ua.AttributeIDValue {
		return ua.BadNotWritable
	}
	if vn.AccessLevel()&ua.AccessLevelsCurrentWrite == 0 {
		return ua.BadNotWritable
	}
	expected := srv.namespaceManager.BuiltInType(vn.DataType())
	if expected != ua.BuiltInTypeVariant && expected != ua.BuiltInTypeOfValue(wv.Value.Value) {
		return ua.BadTypeMismatch
	}
	if valueRank(wv.Value.Value) != valueRank(vn.Value(context.Background()).Value) {
		return ua.BadTypeMismatch
	}
	v := wv.Value
	now := time.Now().UTC()
	if v.SourceTimestamp.IsZero() {
		v.SourceTimestamp = now
	}
	v.ServerTimestamp = now
	vn.SetValue(v)
	return ua.Good
}

// handleBrowse returns the references of one or more nodes.
func (srv *Server) handleBrowse(ch *loopbackChannel, req *ua.BrowseRequest) ua.ServiceResponse {
	if _, result := srv.sessionFor(ch, req); result.IsBad() {
		return serviceFault(req, result)
	}
	if len(req.NodesToBrowse) == 0 {
		return serviceFault(req, ua.BadNothingToDo)
	}
	results := make([]ua.BrowseResult, len(req.NodesToBrowse))
	for i, d := range req.NodesToBrowse {
		if d.BrowseDirection > ua.BrowseDirectionBoth {
			results[i] = ua.BrowseResult{StatusCode: ua.BadInvalidArgument}
			continue
		}
		refs, code := srv.namespaceManager.Browse(d.NodeID, d.BrowseDirection, d.ReferenceTypeID, d.IncludeSubtypes)
		results[i] = ua.BrowseResult{StatusCode: code, References: refs}
	}
	return &ua.BrowseResponse{
		ResponseHeader: responseHeader(req),
		Results:        results,
	}
}

// handleCreateSubscription creates a subscription of the session.
func (srv *Server) handleCreateSubscription(ch *loopbackChannel, req *ua.CreateSubscriptionRequest) ua.ServiceResponse {
	session, result := srv.sessionFor(ch, req)
	if result.IsBad() {
		return serviceFault(req, result)
	}
	s := srv.subscriptionManager.Create(session, req)
	session.signal()
	return &ua.CreateSubscriptionResponse{
		ResponseHeader:            responseHeader(req),
		SubscriptionID:            s.id,
		RevisedPublishingInterval: float64(s.publishingInterval) / float64(time.Millisecond),
		RevisedLifetimeCount:      s.lifetimeCount,
		RevisedMaxKeepAliveCount:  s.maxKeepAliveCount,
	}
}

// handleDeleteSubscriptions deletes subscriptions of the session.
func (srv *Server) handleDeleteSubscriptions(ch *loopbackChannel, req *ua.DeleteSubscriptionsRequest) ua.ServiceResponse {
	session, result := srv.sessionFor(ch, req)
	if result.IsBad() {
		return serviceFault(req, result)
	}
	if len(req.SubscriptionIDs) == 0 {
		return serviceFault(req, ua.BadNothingToDo)
	}
	results := make([]ua.StatusCode, len(req.SubscriptionIDs))
	for i, id := range req.SubscriptionIDs {
		s, ok := srv.subscriptionManager.Get(id)
		if !ok || s.Session() != session {
			results[i] = ua.BadSubscriptionIDInvalid
			continue
		}
		srv.subscriptionManager.Delete(id)
	}
	session.signal()
	return &ua.DeleteSubscriptionsResponse{
		ResponseHeader: responseHeader(req),
		Results:        results,
	}
}

// handleTransferSubscriptions moves subscriptions to the session of the request.
func (srv *Server) handleTransferSubscriptions(ch *loopbackChannel, req *ua.TransferSubscriptionsRequest) ua.ServiceResponse {
	if srv.transferDisabled {
		return serviceFault(req, ua.BadServiceUnsupported)
	}
	session, result := srv.sessionFor(ch, req)
	if result.IsBad() {
		return serviceFault(req, result)
	}
	if len(req.SubscriptionIDs) == 0 {
		return serviceFault(req, ua.BadNothingToDo)
	}
	results := make([]ua.TransferResult, len(req.SubscriptionIDs))
	for i, id := range req.SubscriptionIDs {
		s, ok := srv.subscriptionManager.Get(id)
		if !ok {
			results[i] = ua.TransferResult{StatusCode: ua.BadSubscriptionIDInvalid}
			continue
		}
		s.setSession(session)
		if req.SendInitialValues {
			s.resend()
		}
		s.Lock()
		available := s.availableSequenceNumbers()
		s.Unlock()
		results[i] = ua.TransferResult{StatusCode: ua.Good, AvailableSequenceNumbers: available}
		srv.logger.Debug().Uint32("subscription", id).Str("session", session.SessionName()).Msg("subscription transferred")
	}
	return &ua.TransferSubscriptionsResponse{
		ResponseHeader: responseHeader(req),
		Results:        results,
	}
}

// handleCreateMonitoredItems creates monitored items in a subscription of the session.
func (srv *Server) handleCreateMonitoredItems(ch *loopbackChannel, req *ua.CreateMonitoredItemsRequest) ua.ServiceResponse {
	session, result := srv.sessionFor(ch, req)
	if result.IsBad() {
		return serviceFault(req, result)
	}
	sub, ok := srv.subscriptionManager.Get(req.SubscriptionID)
	if !ok || sub.Session() != session {
		return serviceFault(req, ua.BadSubscriptionIDInvalid)
	}
	if req.TimestampsToReturn > ua.TimestampsToReturnNeither {
		return serviceFault(req, ua.BadInvalidArgument)
	}
	if len(req.ItemsToCreate) == 0 {
		return serviceFault(req, ua.BadNothingToDo)
	}
	results := make([]ua.MonitoredItemCreateResult, len(req.ItemsToCreate))
	for i, item := range req.ItemsToCreate {
		n, ok := srv.namespaceManager.FindNode(item.ItemToMonitor.NodeID)
		if !ok {
			results[i] = ua.MonitoredItemCreateResult{StatusCode: ua.BadNodeIDUnknown}
			continue
		}
		vn, ok := n.(*VariableNode)
		if !ok || item.ItemToMonitor.AttributeID != ua.AttributeIDValue {
			results[i] = ua.MonitoredItemCreateResult{StatusCode: ua.BadAttributeIDInvalid}
			continue
		}
		if vn.AccessLevel()&ua.AccessLevelsCurrentRead == 0 {
			results[i] = ua.MonitoredItemCreateResult{StatusCode: ua.BadNotReadable}
			continue
		}
		mi := NewMonitoredItem(sub, vn, item, req.TimestampsToReturn)
		sub.addItem(mi)
		results[i] = ua.MonitoredItemCreateResult{
			StatusCode:              ua.Good,
			MonitoredItemID:         mi.ID(),
			RevisedSamplingInterval: float64(mi.SamplingInterval()) / float64(time.Millisecond),
			RevisedQueueSize:        uint32(mi.QueueSize()),
		}
	}
	return &ua.CreateMonitoredItemsResponse{
		ResponseHeader: responseHeader(req),
		Results:        results,
	}
}

// handleDeleteMonitoredItems deletes monitored items of a subscription of the session.
func (srv *Server) handleDeleteMonitoredItems(ch *loopbackChannel, req *ua.DeleteMonitoredItemsRequest) ua.ServiceResponse {
	session, result := srv.sessionFor(ch, req)
	if result.IsBad() {
		return serviceFault(req, result)
	}
	sub, ok := srv.subscriptionManager.Get(req.SubscriptionID)
	if !ok || sub.Session() != session {
		return serviceFault(req, ua.BadSubscriptionIDInvalid)
	}
	if len(req.MonitoredItemIDs) == 0 {
		return serviceFault(req, ua.BadNothingToDo)
	}
	results := make([]ua.StatusCode, len(req.MonitoredItemIDs))
	for i, id := range req.MonitoredItemIDs {
		if !sub.deleteItem(id) {
			results[i] = ua.BadMonitoredItemIDInvalid
		}
	}
	return &ua.DeleteMonitoredItemsResponse{
		ResponseHeader: responseHeader(req),
		Results:        results,
	}
}

// handlePublish acknowledges messages and waits for the next notification message or keep-alive
// of a subscription of the session.
func (srv *Server) handlePublish(ctx context.Context, ch *loopbackChannel, req *ua.PublishRequest) (ua.ServiceResponse, error) {
	session, result := srv.sessionFor(ch, req)
	if result.IsBad() {
		return serviceFault(req, result), nil
	}
	acks := make([]ua.StatusCode, len(req.SubscriptionAcknowledgements))
	for i, ack := range req.SubscriptionAcknowledgements {
		s, ok := srv.subscriptionManager.Get(ack.SubscriptionID)
		if !ok || s.Session() != session {
			acks[i] = ua.BadSubscriptionIDInvalid
			continue
		}
		acks[i] = s.acknowledge(ack.SequenceNumber)
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		if result := session.check(ch.id); result.IsBad() {
			return serviceFault(req, result), nil
		}
		if _, ok := srv.sessionManager.Get(session.AuthenticationToken()); !ok {
			return serviceFault(req, ua.BadSessionClosed), nil
		}
		subs := srv.subscriptionManager.GetBySession(session)
		if len(subs) == 0 {
			return serviceFault(req, ua.BadNoSubscription), nil
		}
		now := time.Now()
		wait := time.Duration(-1)
		for _, s := range subs {
			msg, available, ok, d := s.publish(now)
			if ok {
				return &ua.PublishResponse{
					ResponseHeader:           responseHeader(req),
					SubscriptionID:           s.id,
					AvailableSequenceNumbers: available,
					NotificationMessage:      msg,
					Results:                  acks,
				}, nil
			}
			if wait < 0 || d < wait {
				wait = d
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch.ctx.Done():
			return nil, ua.BadSecureChannelClosed
		case <-srv.closing:
			return serviceFault(req, ua.BadShutdown), nil
		case <-session.wake:
		case <-timer.C:
		}
	}
}
