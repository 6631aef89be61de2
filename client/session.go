// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SessionEventKind is the kind of a session lifecycle event.
type SessionEventKind int

// SessionEventKinds
const (
	KeepAliveOK SessionEventKind = iota
	KeepAliveFailed
)

func (k SessionEventKind) String() string {
	if k == KeepAliveOK {
		return "KeepAliveOK"
	}
	return "KeepAliveFailed"
}

// SessionEvent is a lifecycle event emitted by the keep-alive of a session.
type SessionEvent struct {
	Session *Session
	Kind    SessionEventKind
	Status  ua.StatusCode
	Time    time.Time
}

// Session is an activated session with a server over one channel.
// A Session is never reused after it has been replaced or closed.
type Session struct {
	channel       Channel
	endpoint      ua.EndpointDescription
	sessionID     ua.NodeID
	authToken     ua.NodeID
	namespaceURIs []string
	types         *ua.TypeTable
	requestHandle uint32
	logger        zerolog.Logger
	trace         bool
	metrics       *Metrics
	cancel        context.CancelFunc
	closeOnce     sync.Once
	wg            sync.WaitGroup
}

func newSession(channel Channel, endpoint ua.EndpointDescription, logger zerolog.Logger, trace bool, metrics *Metrics) *Session {
	return &Session{
		channel:  channel,
		endpoint: endpoint,
		types:    ua.NewTypeTable(),
		logger:   logger,
		trace:    trace,
		metrics:  metrics,
		cancel:   func() {},
	}
}

// SessionID gets the id of the session.
func (s *Session) SessionID() ua.NodeID {
	return s.sessionID
}

// EndpointURL gets the EndpointURL of the server.
func (s *Session) EndpointURL() string {
	return s.endpoint.EndpointURL
}

// NamespaceURIs gets the namespace table of the server.
func (s *Session) NamespaceURIs() []string {
	return s.namespaceURIs
}

// TypeTree gets the data type hierarchy learned from the server.
func (s *Session) TypeTree() ua.TypeTree {
	return s.types
}

// request sends a service request over the channel of the session.
func (s *Session) request(ctx context.Context, req ua.ServiceRequest) (ua.ServiceResponse, error) {
	h := req.Header()
	h.AuthenticationToken = s.authToken
	h.Timestamp = time.Now()
	h.RequestHandle = atomic.AddUint32(&s.requestHandle, 1)
	if deadline, ok := ctx.Deadline(); ok {
		h.TimeoutHint = uint32(math.Min(float64(time.Until(deadline).Milliseconds()), math.MaxUint32))
	}
	name := serviceName(req)
	if s.trace {
		s.logger.Debug().Str("service", name).Uint32("handle", h.RequestHandle).Msg("request")
	}
	res, err := s.channel.Request(ctx, req)
	if err != nil {
		s.metrics.observeRequest(name, err)
		if s.trace {
			s.logger.Debug().Str("service", name).Uint32("handle", h.RequestHandle).Err(err).Msg("response")
		}
		return nil, err
	}
	result := res.Header().ServiceResult
	if s.trace {
		s.logger.Debug().Str("service", name).Uint32("handle", h.RequestHandle).Stringer("result", result).Msg("response")
	}
	if result.IsBad() {
		s.metrics.observeRequest(name, result)
		return nil, result
	}
	s.metrics.observeRequest(name, nil)
	return res, nil
}

func serviceName(req ua.ServiceRequest) string {
	return strings.TrimSuffix(strings.TrimPrefix(fmt.Sprintf("%T", req), "*ua."), "Request")
}

// identityToken returns the token of the given identity, using a policy offered by the endpoint.
func identityToken(endpoint ua.EndpointDescription, identity ua.UserIdentity) (interface{}, error) {
	policyID := func(tokenType ua.UserTokenType, fallback string) (string, error) {
		if len(endpoint.UserIdentityTokens) == 0 {
			return fallback, nil
		}
		for _, t := range endpoint.UserIdentityTokens {
			if t.TokenType == tokenType {
				return t.PolicyID, nil
			}
		}
		return "", ua.BadIdentityTokenRejected
	}
	switch ui := identity.(type) {
	case ua.UserNameIdentity:
		id, err := policyID(ua.UserTokenTypeUserName, "username")
		if err != nil {
			return nil, err
		}
		return ua.UserNameIdentityToken{PolicyID: id, UserName: ui.UserName, Password: ua.ByteString(ui.Password)}, nil
	default:
		id, err := policyID(ua.UserTokenTypeAnonymous, "anonymous")
		if err != nil {
			return nil, err
		}
		return ua.AnonymousIdentityToken{PolicyID: id}, nil
	}
}

// create creates and activates a new session on the channel.
func (s *Session) create(ctx context.Context, applicationName string, sessionTimeout time.Duration, identity ua.UserIdentity) error {
	res, err := s.createSession(ctx, &ua.CreateSessionRequest{
		ClientDescription: ua.ApplicationDescription{
			ApplicationName: ua.LocalizedText{Text: applicationName},
			ApplicationType: ua.ApplicationTypeClient,
		},
		EndpointURL:             s.endpoint.EndpointURL,
		SessionName:             applicationName,
		RequestedSessionTimeout: float64(sessionTimeout.Milliseconds()),
	})
	if err != nil {
		return errors.Wrap(err, "create session")
	}
	s.sessionID = res.SessionID
	s.authToken = res.AuthenticationToken
	return s.activate(ctx, identity)
}

// activate activates the session on the channel. An existing session can be activated on a new channel.
func (s *Session) activate(ctx context.Context, identity ua.UserIdentity) error {
	token, err := identityToken(s.endpoint, identity)
	if err != nil {
		return err
	}
	if _, err := s.activateSession(ctx, &ua.ActivateSessionRequest{
		UserIdentityToken: token,
		LocaleIDs:         []string{"en"},
	}); err != nil {
		return errors.Wrap(err, "activate session")
	}

	// fetch namespace array
	res, err := s.Read(ctx, &ua.ReadRequest{
		NodesToRead: []ua.ReadValueID{
			{NodeID: ua.VariableIDServerNamespaceArray, AttributeID: ua.AttributeIDValue},
		},
	})
	if err != nil {
		return errors.Wrap(err, "read namespace array")
	}
	if len(res.Results) == 1 && res.Results[0].StatusCode.IsGood() {
		if value, ok := res.Results[0].Value.([]string); ok {
			s.namespaceURIs = value
		}
	}
	return nil
}

// startKeepAlive reads the server state every interval and reports the outcome on events.
func (s *Session) startKeepAlive(ctx context.Context, interval time.Duration, events chan<- SessionEvent) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			status := s.keepAlive(ctx, interval)
			if ctx.Err() != nil {
				return
			}
			ev := SessionEvent{Session: s, Kind: KeepAliveOK, Status: status, Time: time.Now()}
			if status.IsBad() {
				ev.Kind = KeepAliveFailed
				s.metrics.keepAliveFailed()
				s.logger.Warn().Stringer("status", status).Str("session", s.sessionID.String()).Msg("keep-alive failed")
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Session) keepAlive(ctx context.Context, timeout time.Duration) ua.StatusCode {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := s.Read(ctx, &ua.ReadRequest{
		NodesToRead: []ua.ReadValueID{
			{NodeID: ua.VariableIDServerServerStatusState, AttributeID: ua.AttributeIDValue},
		},
	})
	if err != nil {
		var code ua.StatusCode
		if errors.As(err, &code) {
			return code
		}
		return ua.BadCommunicationError
	}
	if len(res.Results) != 1 {
		return ua.BadUnexpectedError
	}
	result := res.Results[0]
	if result.StatusCode.IsBad() {
		return result.StatusCode
	}
	switch state := result.Value.(type) {
	case ua.ServerState:
		if state != ua.ServerStateRunning {
			return ua.BadServerHalted
		}
	case int32:
		if ua.ServerState(state) != ua.ServerStateRunning {
			return ua.BadServerHalted
		}
	}
	return ua.Good
}

// resolveDataType learns the supertypes of a data type from the server until a standard type is reached.
func (s *Session) resolveDataType(ctx context.Context, typeID ua.NodeID) (ua.BuiltInType, error) {
	for i := 0; i < 16; i++ {
		if t := ua.BuiltInTypeOf(typeID, s.types); t != ua.BuiltInTypeNull {
			return t, nil
		}
		// walk to the last known ancestor
		current := typeID
		for j := 0; j < 16; j++ {
			super, ok := s.types.SuperType(current)
			if !ok {
				break
			}
			current = super
		}
		res, err := s.Browse(ctx, &ua.BrowseRequest{
			NodesToBrowse: []ua.BrowseDescription{{
				NodeID:          current,
				BrowseDirection: ua.BrowseDirectionInverse,
				ReferenceTypeID: ua.ReferenceTypeIDHasSubtype,
			}},
		})
		if err != nil {
			return ua.BuiltInTypeNull, err
		}
		if len(res.Results) != 1 || res.Results[0].StatusCode.IsBad() || len(res.Results[0].References) == 0 {
			return ua.BuiltInTypeNull, ua.BadDataTypeIDUnknown
		}
		s.types.Add(current, res.Results[0].References[0].NodeID)
	}
	return ua.BuiltInTypeNull, ua.BadDataTypeIDUnknown
}

// close closes the server session and the channel.
func (s *Session) close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		if _, err = s.closeSession(ctx, &ua.CloseSessionRequest{DeleteSubscriptions: true}); err != nil {
			s.channel.Abort(ctx)
			return
		}
		err = s.channel.Close(ctx)
	})
	s.wg.Wait()
	return err
}

// discard aborts the channel and leaves the server session, which may have been activated elsewhere.
func (s *Session) discard(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.cancel()
		s.channel.Abort(ctx)
	})
	s.wg.Wait()
}
