// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultApplicationName   = "uahelper"
	defaultSessionTimeout    = 60 * time.Second
	defaultOperationTimeout  = 6000 * time.Second
	defaultKeepAliveInterval = 5 * time.Second
	defaultReconnectPeriod   = 10 * time.Second
	closeTimeout             = 10 * time.Second
)

// State is the connection state of a client.
type State int32

// States
const (
	StateDisconnected State = iota
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateReconnecting:
		return "Reconnecting"
	}
	return "Disconnected"
}

// Client reads, writes and subscribes to the nodes of one OPC UA server.
// The session is kept alive and re-established in the background when the connection is lost.
type Client struct {
	transport         Transport
	logger            zerolog.Logger
	trace             bool
	useSecurity       bool
	userIdentity      ua.UserIdentity
	applicationName   string
	sessionTimeout    time.Duration
	operationTimeout  time.Duration
	keepAliveInterval time.Duration
	reconnectPeriod   time.Duration
	validator         CertificateValidator
	metrics           *Metrics

	session       atomic.Pointer[Session]
	state         atomic.Int32
	registry      *registry
	events        chan SessionEvent
	wake          chan struct{}
	clientHandles uint32

	mu        sync.Mutex
	endpoint  ua.EndpointDescription
	reconnect *ReconnectHandler
	closed    bool
	started   bool
	subMu     sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a disconnected client with the given options.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		transport:         NewGopcuaTransport(),
		logger:            zerolog.Nop(),
		userIdentity:      ua.AnonymousIdentity{},
		applicationName:   defaultApplicationName,
		sessionTimeout:    defaultSessionTimeout,
		operationTimeout:  defaultOperationTimeout,
		keepAliveInterval: defaultKeepAliveInterval,
		reconnectPeriod:   defaultReconnectPeriod,
		registry:          newRegistry(),
		events:            make(chan SessionEvent, 16),
		wake:              make(chan struct{}, 1),
	}

	// apply each option to the default
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.validator.logger = c.logger
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Dial returns a client connected to the OPC UA server with the given URL and options.
func Dial(ctx context.Context, endpointURL string, opts ...Option) (*Client, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx, endpointURL); err != nil {
		c.Close(ctx)
		return nil, err
	}
	return c, nil
}

// Connect selects the best endpoint of the server, opens a channel, and activates a session.
func (c *Client) Connect(ctx context.Context, endpointURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.session.Load() != nil {
		return ErrAlreadyConnected
	}
	if endpointURL == "" {
		return &ConnectionError{URL: endpointURL, Err: ErrEmptyURL}
	}
	if c.transport == nil {
		return &ConnectionError{URL: endpointURL, Err: ErrNoTransport}
	}

	endpoint, err := SelectEndpoint(ctx, c.transport, endpointURL, c.useSecurity)
	if err != nil {
		return &ConnectionError{URL: endpointURL, Err: err}
	}
	if err := c.validator.Validate(endpoint); err != nil {
		return &ConnectionError{URL: endpointURL, Err: err}
	}
	s, err := c.openSession(ctx, endpoint)
	if err != nil {
		return &ConnectionError{URL: endpointURL, Err: err}
	}

	c.endpoint = endpoint
	c.session.Store(s)
	c.setState(StateConnected)
	s.startKeepAlive(c.ctx, c.keepAliveInterval, c.events)
	if !c.started {
		c.started = true
		c.wg.Add(2)
		go c.supervise(c.ctx)
		go c.publishLoop(c.ctx)
	}
	c.logger.Info().Str("endpoint", endpoint.EndpointURL).Str("policy", endpoint.SecurityPolicyURI).
		Str("session", s.SessionID().String()).Msg("connected")
	return nil
}

// channelConfig returns the configuration of the channels opened by the client.
func (c *Client) channelConfig() ChannelConfig {
	return ChannelConfig{
		ApplicationName: c.applicationName,
		UserIdentity:    c.userIdentity,
		RequestTimeout:  c.operationTimeout,
		SessionTimeout:  c.sessionTimeout,
	}
}

// openSession opens a channel to the endpoint and creates a new session.
func (c *Client) openSession(ctx context.Context, endpoint ua.EndpointDescription) (*Session, error) {
	ch, err := c.transport.Open(ctx, endpoint, c.channelConfig())
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	s := newSession(ch, endpoint, c.logger, c.trace, c.metrics)
	if err := s.create(ctx, c.applicationName, c.sessionTimeout, c.userIdentity); err != nil {
		ch.Abort(ctx)
		return nil, err
	}
	return s, nil
}

// Close cancels any reconnect, closes the session and channel, and stops notification delivery.
// Close is idempotent. A closed client cannot be connected again.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	h := c.reconnect
	c.reconnect = nil
	c.mu.Unlock()

	if h != nil {
		h.cancel()
	}
	c.cancel()
	for _, sub := range c.registry.removeAll() {
		sub.stop()
	}
	c.metrics.setSubscriptions(0)
	s := c.session.Swap(nil)
	c.setState(StateDisconnected)

	var err error
	if s != nil {
		ctx, cancel := context.WithTimeout(ctx, closeTimeout)
		err = s.close(ctx)
		cancel()
		c.logger.Info().Str("session", s.SessionID().String()).Msg("disconnected")
	}
	c.wg.Wait()
	return err
}

// State returns the connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(state State) {
	c.state.Store(int32(state))
	c.metrics.setState(state)
}

// Session returns the current session, or nil if not connected.
func (c *Client) Session() *Session {
	return c.session.Load()
}

// currentSession returns the current session, or ErrNotConnected.
func (c *Client) currentSession() (*Session, error) {
	s := c.session.Load()
	if s == nil {
		return nil, ErrNotConnected
	}
	return s, nil
}

// operationContext bounds an operation by the operation timeout and by the lifetime of the client.
func (c *Client) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.operationTimeout)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// ReadValue reads the value attribute of a node. Check the StatusCode of the result before using its Value.
func (c *Client) ReadValue(ctx context.Context, nodeID ua.NodeID) (ua.DataValue, error) {
	results, err := c.ReadValues(ctx, []ua.NodeID{nodeID})
	if err != nil {
		return ua.DataValue{}, err
	}
	return results[0], nil
}

// ReadValues reads the value attributes of nodes in one request. Results are in the order of the nodes;
// a node that cannot be read has a bad StatusCode and does not fail the others.
func (c *Client) ReadValues(ctx context.Context, nodeIDs []ua.NodeID) ([]ua.DataValue, error) {
	return c.readAttributes(ctx, nodeIDs, ua.AttributeIDValue)
}

func (c *Client) readAttributes(ctx context.Context, nodeIDs []ua.NodeID, attributeID uint32) ([]ua.DataValue, error) {
	if len(nodeIDs) == 0 {
		return []ua.DataValue{}, nil
	}
	s, err := c.currentSession()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.operationContext(ctx)
	defer cancel()
	req := &ua.ReadRequest{
		TimestampsToReturn: ua.TimestampsToReturnBoth,
		NodesToRead:        make([]ua.ReadValueID, len(nodeIDs)),
	}
	for i, id := range nodeIDs {
		req.NodesToRead[i] = ua.ReadValueID{NodeID: id, AttributeID: attributeID}
	}
	res, err := s.Read(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	if len(res.Results) != len(nodeIDs) {
		return nil, errors.Wrap(ua.BadUnexpectedError, "read")
	}
	for i, r := range res.Results {
		if !r.StatusCode.IsGood() {
			c.logger.Debug().Err(&ReadFailure{NodeID: nodeIDs[i], StatusCode: r.StatusCode}).Msg("read failure")
		}
	}
	return res.Results, nil
}

// WriteValue reads the data type of a node, casts the text to that type, and writes it to the value attribute.
func (c *Client) WriteValue(ctx context.Context, nodeID ua.NodeID, text string) error {
	err := c.WriteValues(ctx, []ua.NodeID{nodeID}, []string{text})
	var errs WriteErrors
	if errors.As(err, &errs) && len(errs) == 1 {
		return errs[0]
	}
	return err
}

// WriteValues writes texts to the value attributes of nodes, pairing them by position.
// The data types of all nodes are read first; a failed lookup returns a *TypeResolutionError and a failed
// cast returns a *WriteError, and nothing is written. The writes are sent in one request, and every
// node the server rejects is reported in the returned WriteErrors.
func (c *Client) WriteValues(ctx context.Context, nodeIDs []ua.NodeID, texts []string) error {
	if len(nodeIDs) != len(texts) {
		return ErrLengthMismatch
	}
	if len(nodeIDs) == 0 {
		return nil
	}
	s, err := c.currentSession()
	if err != nil {
		return err
	}
	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	types, err := c.resolveTypes(ctx, s, nodeIDs)
	if err != nil {
		return err
	}
	req := &ua.WriteRequest{NodesToWrite: make([]ua.WriteValue, len(nodeIDs))}
	for i, id := range nodeIDs {
		v, err := ua.Cast(texts[i], types[i])
		if err != nil {
			return &WriteError{NodeID: id, Err: err}
		}
		req.NodesToWrite[i] = ua.WriteValue{
			NodeID:      id,
			AttributeID: ua.AttributeIDValue,
			Value:       ua.DataValue{Value: v},
		}
	}
	res, err := s.Write(ctx, req)
	if err != nil {
		return errors.Wrap(err, "write")
	}
	if len(res.Results) != len(nodeIDs) {
		return errors.Wrap(ua.BadUnexpectedError, "write")
	}
	var errs WriteErrors
	for i, code := range res.Results {
		if code.IsBad() {
			errs = append(errs, &WriteError{NodeID: nodeIDs[i], Err: code})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// resolveTypes reads the DataType attribute of the nodes and resolves their built-in types.
func (c *Client) resolveTypes(ctx context.Context, s *Session, nodeIDs []ua.NodeID) ([]ua.BuiltInType, error) {
	req := &ua.ReadRequest{
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead:        make([]ua.ReadValueID, len(nodeIDs)),
	}
	for i, id := range nodeIDs {
		req.NodesToRead[i] = ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDDataType}
	}
	res, err := s.Read(ctx, req)
	if err != nil {
		return nil, &TypeResolutionError{NodeID: nodeIDs[0], Err: err}
	}
	if len(res.Results) != len(nodeIDs) {
		return nil, &TypeResolutionError{NodeID: nodeIDs[0], Err: ua.BadUnexpectedError}
	}
	types := make([]ua.BuiltInType, len(nodeIDs))
	for i, r := range res.Results {
		if !r.StatusCode.IsGood() {
			return nil, &TypeResolutionError{NodeID: nodeIDs[i], Err: r.StatusCode}
		}
		typeID, ok := r.Value.(ua.NodeID)
		if !ok {
			return nil, &TypeResolutionError{NodeID: nodeIDs[i], Err: ua.BadTypeMismatch}
		}
		t, err := s.resolveDataType(ctx, typeID)
		if err != nil {
			return nil, &TypeResolutionError{NodeID: nodeIDs[i], Err: err}
		}
		types[i] = t
	}
	return types, nil
}
