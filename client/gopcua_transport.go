// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/google/uuid"
	gopcua "github.com/gopcua/opcua"
	gua "github.com/gopcua/opcua/ua"
	"github.com/pkg/errors"
)

const gopcuaAbortTimeout = 2 * time.Second

// GopcuaTransport is a Transport that speaks the OPC UA binary protocol over opc.tcp,
// using github.com/gopcua/opcua for the secure channel and session handshake.
type GopcuaTransport struct {
	// CertificateFile and PrivateKeyFile hold the PEM encoded application instance certificate
	// presented on secure endpoints. Optional.
	CertificateFile string
	PrivateKeyFile  string
}

// NewGopcuaTransport returns a transport for opc.tcp endpoints.
func NewGopcuaTransport() *GopcuaTransport {
	return &GopcuaTransport{}
}

// GetEndpoints returns the endpoints of the server at the EndpointURL of the request.
func (t *GopcuaTransport) GetEndpoints(ctx context.Context, req *ua.GetEndpointsRequest) (*ua.GetEndpointsResponse, error) {
	eps, err := gopcua.GetEndpoints(ctx, req.EndpointURL)
	if err != nil {
		return nil, errors.Wrap(err, "get endpoints")
	}
	res := &ua.GetEndpointsResponse{
		ResponseHeader: ua.ResponseHeader{Timestamp: time.Now(), RequestHandle: req.RequestHeader.RequestHandle},
		Endpoints:      make([]ua.EndpointDescription, 0, len(eps)),
	}
	for _, ep := range eps {
		if ep != nil {
			res.Endpoints = append(res.Endpoints, fromGopcuaEndpoint(ep))
		}
	}
	return res, nil
}

// Open connects to the endpoint. The returned channel serves the session services locally,
// since the session is created and activated by the handshake of the connection.
func (t *GopcuaTransport) Open(ctx context.Context, endpoint ua.EndpointDescription, config ChannelConfig) (Channel, error) {
	gep := toGopcuaEndpoint(endpoint)
	opts := []gopcua.Option{
		gopcua.AutoReconnect(false),
		gopcua.ApplicationName(config.ApplicationName),
	}
	if config.RequestTimeout > 0 {
		opts = append(opts, gopcua.RequestTimeout(config.RequestTimeout))
	}
	if config.SessionTimeout > 0 {
		opts = append(opts, gopcua.SessionTimeout(config.SessionTimeout))
	}
	if t.CertificateFile != "" && t.PrivateKeyFile != "" {
		opts = append(opts, gopcua.CertificateFile(t.CertificateFile), gopcua.PrivateKeyFile(t.PrivateKeyFile))
	}
	switch id := config.UserIdentity.(type) {
	case ua.UserNameIdentity:
		opts = append(opts,
			gopcua.AuthUsername(id.UserName, id.Password),
			gopcua.SecurityFromEndpoint(gep, gua.UserTokenTypeUserName))
	default:
		opts = append(opts,
			gopcua.AuthAnonymous(),
			gopcua.SecurityFromEndpoint(gep, gua.UserTokenTypeAnonymous))
	}
	c, err := gopcua.NewClient(endpoint.EndpointURL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new client")
	}
	if err := c.Connect(ctx); err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	return &gopcuaChannel{
		client:    c,
		sessionID: ua.NewNodeIDGUID(1, uuid.New()),
		authToken: ua.NewNodeIDGUID(0, uuid.New()),
		notify:    make(chan *gopcua.PublishNotificationData, 64),
		subs:      make(map[uint32]*gopcua.Subscription),
		closed:    make(chan struct{}),
	}, nil
}

// gopcuaChannel maps the services of the client onto a connected gopcua client.
type gopcuaChannel struct {
	client    *gopcua.Client
	sessionID ua.NodeID
	authToken ua.NodeID
	notify    chan *gopcua.PublishNotificationData
	seq       uint32

	mu   sync.Mutex
	subs map[uint32]*gopcua.Subscription

	closeOnce sync.Once
	closed    chan struct{}
}

func (ch *gopcuaChannel) Request(ctx context.Context, req ua.ServiceRequest) (ua.ServiceResponse, error) {
	select {
	case <-ch.closed:
		return nil, ua.BadSecureChannelClosed
	default:
	}
	header := ua.ResponseHeader{Timestamp: time.Now(), RequestHandle: req.Header().RequestHandle}
	switch r := req.(type) {
	case *ua.CreateSessionRequest:
		return &ua.CreateSessionResponse{
			ResponseHeader:        header,
			SessionID:             ch.sessionID,
			AuthenticationToken:   ch.authToken,
			RevisedSessionTimeout: r.RequestedSessionTimeout,
		}, nil

	case *ua.ActivateSessionRequest:
		// a session of another connection cannot be moved here
		if r.RequestHeader.AuthenticationToken != ch.authToken {
			header.ServiceResult = ua.BadSessionIDInvalid
		}
		return &ua.ActivateSessionResponse{ResponseHeader: header}, nil

	case *ua.CloseSessionRequest:
		return &ua.CloseSessionResponse{ResponseHeader: header}, nil

	case *ua.ReadRequest:
		return ch.read(ctx, header, r)

	case *ua.WriteRequest:
		return ch.write(ctx, header, r)

	case *ua.BrowseRequest:
		return ch.browse(ctx, header, r)

	case *ua.CreateSubscriptionRequest:
		sub, err := ch.client.Subscribe(ctx, &gopcua.SubscriptionParameters{
			Interval:                   time.Duration(r.RequestedPublishingInterval) * time.Millisecond,
			LifetimeCount:              r.RequestedLifetimeCount,
			MaxKeepAliveCount:          r.RequestedMaxKeepAliveCount,
			MaxNotificationsPerPublish: r.MaxNotificationsPerPublish,
			Priority:                   r.Priority,
		}, ch.notify)
		if err != nil {
			return nil, errors.Wrap(err, "subscribe")
		}
		ch.mu.Lock()
		ch.subs[sub.SubscriptionID] = sub
		ch.mu.Unlock()
		return &ua.CreateSubscriptionResponse{
			ResponseHeader:            header,
			SubscriptionID:            sub.SubscriptionID,
			RevisedPublishingInterval: r.RequestedPublishingInterval,
			RevisedLifetimeCount:      r.RequestedLifetimeCount,
			RevisedMaxKeepAliveCount:  r.RequestedMaxKeepAliveCount,
		}, nil

	case *ua.CreateMonitoredItemsRequest:
		return ch.createMonitoredItems(ctx, header, r)

	case *ua.DeleteMonitoredItemsRequest:
		sub, ok := ch.subscription(r.SubscriptionID)
		if !ok {
			header.ServiceResult = ua.BadSubscriptionIDInvalid
			return &ua.DeleteMonitoredItemsResponse{ResponseHeader: header}, nil
		}
		res, err := sub.Unmonitor(ctx, r.MonitoredItemIDs...)
		if err != nil {
			return nil, errors.Wrap(err, "unmonitor")
		}
		results := make([]ua.StatusCode, len(res.Results))
		for i, code := range res.Results {
			results[i] = ua.StatusCode(code)
		}
		return &ua.DeleteMonitoredItemsResponse{ResponseHeader: header, Results: results}, nil

	case *ua.DeleteSubscriptionsRequest:
		results := make([]ua.StatusCode, len(r.SubscriptionIDs))
		for i, id := range r.SubscriptionIDs {
			ch.mu.Lock()
			sub, ok := ch.subs[id]
			delete(ch.subs, id)
			ch.mu.Unlock()
			if !ok {
				results[i] = ua.BadSubscriptionIDInvalid
				continue
			}
			if err := sub.Cancel(ctx); err != nil {
				results[i] = statusOf(err)
			}
		}
		return &ua.DeleteSubscriptionsResponse{ResponseHeader: header, Results: results}, nil

	case *ua.TransferSubscriptionsRequest:
		// subscriptions are owned by the connection that created them
		header.ServiceResult = ua.BadServiceUnsupported
		return &ua.TransferSubscriptionsResponse{ResponseHeader: header}, nil

	case *ua.PublishRequest:
		return ch.publish(ctx, header)
	}
	header.ServiceResult = ua.BadServiceUnsupported
	return &ua.ServiceFault{ResponseHeader: header}, nil
}

func (ch *gopcuaChannel) subscription(id uint32) (*gopcua.Subscription, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	sub, ok := ch.subs[id]
	return sub, ok
}

func (ch *gopcuaChannel) read(ctx context.Context, header ua.ResponseHeader, r *ua.ReadRequest) (ua.ServiceResponse, error) {
	req := &gua.ReadRequest{
		MaxAge:             r.MaxAge,
		TimestampsToReturn: gua.TimestampsToReturn(r.TimestampsToReturn),
		NodesToRead:        make([]*gua.ReadValueID, len(r.NodesToRead)),
	}
	for i, n := range r.NodesToRead {
		req.NodesToRead[i] = &gua.ReadValueID{
			NodeID:      toGopcuaNodeID(n.NodeID),
			AttributeID: gua.AttributeID(n.AttributeID),
			IndexRange:  n.IndexRange,
		}
	}
	res, err := ch.client.Read(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	results := make([]ua.DataValue, len(res.Results))
	for i, dv := range res.Results {
		results[i] = fromGopcuaDataValue(dv)
	}
	return &ua.ReadResponse{ResponseHeader: header, Results: results}, nil
}

func (ch *gopcuaChannel) write(ctx context.Context, header ua.ResponseHeader, r *ua.WriteRequest) (ua.ServiceResponse, error) {
	req := &gua.WriteRequest{NodesToWrite: make([]*gua.WriteValue, len(r.NodesToWrite))}
	for i, n := range r.NodesToWrite {
		v, err := toGopcuaVariant(n.Value.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "encode value of %s", n.NodeID)
		}
		req.NodesToWrite[i] = &gua.WriteValue{
			NodeID:      toGopcuaNodeID(n.NodeID),
			AttributeID: gua.AttributeID(n.AttributeID),
			IndexRange:  n.IndexRange,
			Value: &gua.DataValue{
				EncodingMask: gua.DataValueValue,
				Value:        v,
			},
		}
	}
	res, err := ch.client.Write(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "write")
	}
	results := make([]ua.StatusCode, len(res.Results))
	for i, code := range res.Results {
		results[i] = ua.StatusCode(code)
	}
	return &ua.WriteResponse{ResponseHeader: header, Results: results}, nil
}

func (ch *gopcuaChannel) browse(ctx context.Context, header ua.ResponseHeader, r *ua.BrowseRequest) (ua.ServiceResponse, error) {
	req := &gua.BrowseRequest{
		View:          &gua.ViewDescription{ViewID: gua.NewTwoByteNodeID(0)},
		NodesToBrowse: make([]*gua.BrowseDescription, len(r.NodesToBrowse)),
	}
	for i, n := range r.NodesToBrowse {
		req.NodesToBrowse[i] = &gua.BrowseDescription{
			NodeID:          toGopcuaNodeID(n.NodeID),
			BrowseDirection: gua.BrowseDirection(n.BrowseDirection),
			ReferenceTypeID: toGopcuaNodeID(n.ReferenceTypeID),
			IncludeSubtypes: n.IncludeSubtypes,
			ResultMask:      uint32(gua.BrowseResultMaskAll),
		}
	}
	res, err := ch.client.Browse(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "browse")
	}
	results := make([]ua.BrowseResult, len(res.Results))
	for i, br := range res.Results {
		if br == nil {
			results[i].StatusCode = ua.BadUnexpectedError
			continue
		}
		results[i].StatusCode = ua.StatusCode(br.StatusCode)
		for _, ref := range br.References {
			if ref == nil || ref.NodeID == nil {
				continue
			}
			results[i].References = append(results[i].References, ua.ReferenceDescription{
				ReferenceTypeID: fromGopcuaNodeID(ref.ReferenceTypeID),
				IsForward:       ref.IsForward,
				NodeID:          fromGopcuaNodeID(ref.NodeID.NodeID),
			})
		}
	}
	return &ua.BrowseResponse{ResponseHeader: header, Results: results}, nil
}

func (ch *gopcuaChannel) createMonitoredItems(ctx context.Context, header ua.ResponseHeader, r *ua.CreateMonitoredItemsRequest) (ua.ServiceResponse, error) {
	sub, ok := ch.subscription(r.SubscriptionID)
	if !ok {
		header.ServiceResult = ua.BadSubscriptionIDInvalid
		return &ua.CreateMonitoredItemsResponse{ResponseHeader: header}, nil
	}
	items := make([]*gua.MonitoredItemCreateRequest, len(r.ItemsToCreate))
	for i, item := range r.ItemsToCreate {
		items[i] = &gua.MonitoredItemCreateRequest{
			ItemToMonitor: &gua.ReadValueID{
				NodeID:      toGopcuaNodeID(item.ItemToMonitor.NodeID),
				AttributeID: gua.AttributeID(item.ItemToMonitor.AttributeID),
			},
			MonitoringMode: gua.MonitoringMode(item.MonitoringMode),
			RequestedParameters: &gua.MonitoringParameters{
				ClientHandle:     item.RequestedParameters.ClientHandle,
				SamplingInterval: item.RequestedParameters.SamplingInterval,
				QueueSize:        item.RequestedParameters.QueueSize,
				DiscardOldest:    item.RequestedParameters.DiscardOldest,
			},
		}
	}
	res, err := sub.Monitor(ctx, gua.TimestampsToReturn(r.TimestampsToReturn), items...)
	if err != nil {
		return nil, errors.Wrap(err, "monitor")
	}
	results := make([]ua.MonitoredItemCreateResult, len(res.Results))
	for i, mr := range res.Results {
		if mr == nil {
			results[i].StatusCode = ua.BadUnexpectedError
			continue
		}
		results[i] = ua.MonitoredItemCreateResult{
			StatusCode:              ua.StatusCode(mr.StatusCode),
			MonitoredItemID:         mr.MonitoredItemID,
			RevisedSamplingInterval: mr.RevisedSamplingInterval,
			RevisedQueueSize:        mr.RevisedQueueSize,
		}
	}
	return &ua.CreateMonitoredItemsResponse{ResponseHeader: header, Results: results}, nil
}

// publish waits for the next notification of any subscription of the connection.
func (ch *gopcuaChannel) publish(ctx context.Context, header ua.ResponseHeader) (ua.ServiceResponse, error) {
	var msg *gopcua.PublishNotificationData
	select {
	case msg = <-ch.notify:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ch.closed:
		return nil, ua.BadSecureChannelClosed
	}
	if msg.Error != nil {
		return nil, errors.Wrapf(msg.Error, "subscription %d", msg.SubscriptionID)
	}
	res := &ua.PublishResponse{
		ResponseHeader: header,
		SubscriptionID: msg.SubscriptionID,
		NotificationMessage: ua.NotificationMessage{
			SequenceNumber: atomic.AddUint32(&ch.seq, 1),
			PublishTime:    time.Now().UTC(),
		},
	}
	switch n := msg.Value.(type) {
	case *gua.DataChangeNotification:
		dcn := &ua.DataChangeNotification{MonitoredItems: make([]ua.MonitoredItemNotification, 0, len(n.MonitoredItems))}
		for _, item := range n.MonitoredItems {
			if item == nil {
				continue
			}
			dcn.MonitoredItems = append(dcn.MonitoredItems, ua.MonitoredItemNotification{
				ClientHandle: item.ClientHandle,
				Value:        fromGopcuaDataValue(item.Value),
			})
		}
		res.NotificationMessage.NotificationData = []interface{}{dcn}
	case *gua.StatusChangeNotification:
		res.NotificationMessage.NotificationData = []interface{}{&ua.StatusChangeNotification{Status: ua.StatusCode(n.Status)}}
	}
	return res, nil
}

func (ch *gopcuaChannel) Close(ctx context.Context) error {
	var err error
	ch.closeOnce.Do(func() {
		close(ch.closed)
		err = ch.client.Close(ctx)
	})
	return err
}

func (ch *gopcuaChannel) Abort(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, gopcuaAbortTimeout)
	defer cancel()
	return ch.Close(ctx)
}

func statusOf(err error) ua.StatusCode {
	var code gua.StatusCode
	if errors.As(err, &code) {
		return ua.StatusCode(code)
	}
	return ua.BadCommunicationError
}

func toGopcuaNodeID(id ua.NodeID) *gua.NodeID {
	if id.IsNil() {
		return gua.NewTwoByteNodeID(0)
	}
	n, err := gua.ParseNodeID(id.String())
	if err != nil {
		return gua.NewTwoByteNodeID(0)
	}
	return n
}

func fromGopcuaNodeID(id *gua.NodeID) ua.NodeID {
	if id == nil {
		return ua.NilNodeID
	}
	return ua.ParseNodeID(id.String())
}

func fromGopcuaDataValue(dv *gua.DataValue) ua.DataValue {
	if dv == nil {
		return ua.DataValue{StatusCode: ua.BadUnexpectedError}
	}
	res := ua.DataValue{
		StatusCode:      ua.StatusCode(dv.Status),
		SourceTimestamp: dv.SourceTimestamp,
		ServerTimestamp: dv.ServerTimestamp,
	}
	if dv.Value != nil {
		res.Value = fromGopcuaValue(dv.Value.Value())
	}
	return res
}

// fromGopcuaValue converts the value of a gopcua variant to the value types of package ua.
func fromGopcuaValue(v interface{}) ua.Variant {
	switch x := v.(type) {
	case *gua.GUID:
		if g, err := uuid.Parse(x.String()); err == nil {
			return g
		}
		return nil
	case []byte:
		return ua.ByteString(x)
	case gua.XMLElement:
		return ua.XMLElement(x)
	case *gua.NodeID:
		return fromGopcuaNodeID(x)
	case *gua.ExpandedNodeID:
		if x == nil {
			return ua.NilNodeID
		}
		return fromGopcuaNodeID(x.NodeID)
	case gua.StatusCode:
		return ua.StatusCode(x)
	case *gua.QualifiedName:
		if x == nil {
			return ua.QualifiedName{}
		}
		return ua.QualifiedName{NamespaceIndex: x.NamespaceIndex, Name: x.Name}
	case *gua.LocalizedText:
		if x == nil {
			return ua.LocalizedText{}
		}
		return ua.LocalizedText{Text: x.Text, Locale: x.Locale}
	}
	return v
}

// toGopcuaVariant converts a value cast by package ua to a gopcua variant.
func toGopcuaVariant(v ua.Variant) (*gua.Variant, error) {
	switch x := v.(type) {
	case uuid.UUID:
		v = gua.NewGUID(x.String())
	case ua.ByteString:
		v = []byte(x)
	case ua.XMLElement:
		v = gua.XMLElement(x)
	case ua.NodeID:
		v = toGopcuaNodeID(x)
	case ua.StatusCode:
		v = gua.StatusCode(x)
	case ua.QualifiedName:
		v = &gua.QualifiedName{NamespaceIndex: x.NamespaceIndex, Name: x.Name}
	case ua.LocalizedText:
		v = gua.NewLocalizedText(x.Text)
	}
	return gua.NewVariant(v)
}

func fromGopcuaEndpoint(ep *gua.EndpointDescription) ua.EndpointDescription {
	res := ua.EndpointDescription{
		EndpointURL:         ep.EndpointURL,
		ServerCertificate:   ua.ByteString(ep.ServerCertificate),
		SecurityMode:        ua.MessageSecurityMode(ep.SecurityMode),
		SecurityPolicyURI:   ep.SecurityPolicyURI,
		TransportProfileURI: ep.TransportProfileURI,
		SecurityLevel:       ep.SecurityLevel,
	}
	if ep.Server != nil {
		res.Server = ua.ApplicationDescription{
			ApplicationURI:  ep.Server.ApplicationURI,
			ProductURI:      ep.Server.ProductURI,
			ApplicationType: ua.ApplicationType(ep.Server.ApplicationType),
			DiscoveryURLs:   ep.Server.DiscoveryURLs,
		}
		if ep.Server.ApplicationName != nil {
			res.Server.ApplicationName = ua.LocalizedText{Text: ep.Server.ApplicationName.Text, Locale: ep.Server.ApplicationName.Locale}
		}
	}
	for _, p := range ep.UserIdentityTokens {
		if p == nil {
			continue
		}
		res.UserIdentityTokens = append(res.UserIdentityTokens, ua.UserTokenPolicy{
			PolicyID:          p.PolicyID,
			TokenType:         ua.UserTokenType(p.TokenType),
			SecurityPolicyURI: p.SecurityPolicyURI,
		})
	}
	return res
}

func toGopcuaEndpoint(ep ua.EndpointDescription) *gua.EndpointDescription {
	res := &gua.EndpointDescription{
		EndpointURL: ep.EndpointURL,
		Server: &gua.ApplicationDescription{
			ApplicationURI:  ep.Server.ApplicationURI,
			ProductURI:      ep.Server.ProductURI,
			ApplicationName: gua.NewLocalizedText(ep.Server.ApplicationName.Text),
			ApplicationType: gua.ApplicationType(ep.Server.ApplicationType),
			DiscoveryURLs:   ep.Server.DiscoveryURLs,
		},
		ServerCertificate:   []byte(ep.ServerCertificate),
		SecurityMode:        gua.MessageSecurityMode(ep.SecurityMode),
		SecurityPolicyURI:   ep.SecurityPolicyURI,
		TransportProfileURI: ep.TransportProfileURI,
		SecurityLevel:       ep.SecurityLevel,
	}
	for _, p := range ep.UserIdentityTokens {
		res.UserIdentityTokens = append(res.UserIdentityTokens, &gua.UserTokenPolicy{
			PolicyID:          p.PolicyID,
			TokenType:         gua.UserTokenType(p.TokenType),
			SecurityPolicyURI: p.SecurityPolicyURI,
		})
	}
	return res
}
