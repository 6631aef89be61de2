// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/ua"
	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
)

const (
	// the default url of the endpoint.
	defaultEndpointURL = "opc.tcp://localhost:4840"
	// the default uri of the server application.
	defaultApplicationURI = "urn:uahelper:server"
	// the default number of worker threads that may be created.
	defaultMaxWorkerThreads int = 4
	// the default number of milliseconds that a session may be unused before being closed by the server. (2 min)
	defaultSessionTimeout = 120 * time.Second
	// the default shortest sampling interval.
	defaultMinSamplingInterval = 50 * time.Millisecond
	// the default step interval of the ramp variable.
	defaultRampInterval = time.Second
	// the policy ids of the user token policies of the endpoint.
	anonymousPolicyID = "anonymous"
	userNamePolicyID  = "username"
)

// Server is an in-process OPC UA server. Clients connect to it through the Transport of the server.
type Server struct {
	sync.RWMutex
	endpointURL         string
	applicationURI      string
	logger              zerolog.Logger
	allowAnonymous      bool
	users               bcryptAuthenticator
	authenticator       UserNameIdentityAuthenticator
	maxWorkerThreads    int
	maxSessionCount     uint32
	minSamplingInterval time.Duration
	rampInterval        time.Duration
	transferDisabled    bool
	workerpool          *workerpool.WorkerPool
	channelManager      *ChannelManager
	sessionManager      *SessionManager
	subscriptionManager *SubscriptionManager
	namespaceManager    *NamespaceManager
	scheduler           *Scheduler
	state               ua.ServerState
	offline             bool
	startTime           time.Time
	closing             chan struct{}
	closeOnce           sync.Once
}

// New initializes a new, running server.
func New(options ...Option) (*Server, error) {
	srv := &Server{
		endpointURL:         defaultEndpointURL,
		applicationURI:      defaultApplicationURI,
		logger:              zerolog.Nop(),
		allowAnonymous:      true,
		users:               bcryptAuthenticator{},
		maxWorkerThreads:    defaultMaxWorkerThreads,
		minSamplingInterval: defaultMinSamplingInterval,
		rampInterval:        defaultRampInterval,
		state:               ua.ServerStateRunning,
		startTime:           time.Now().UTC(),
		closing:             make(chan struct{}),
	}

	// apply each option to the default
	for _, opt := range options {
		if err := opt(srv); err != nil {
			return nil, err
		}
	}
	if srv.authenticator == nil {
		srv.authenticator = srv.users
	}

	srv.workerpool = workerpool.New(srv.maxWorkerThreads)
	srv.channelManager = NewChannelManager(srv)
	srv.sessionManager = NewSessionManager(srv)
	srv.subscriptionManager = NewSubscriptionManager(srv)
	srv.namespaceManager = NewNamespaceManager(srv)
	srv.scheduler = NewScheduler(srv)

	if err := srv.initializeNamespace(); err != nil {
		srv.logger.Error().Err(err).Msg("error initializing namespace")
		return nil, err
	}
	return srv, nil
}

// EndpointURL gets the endpoint url.
func (srv *Server) EndpointURL() string {
	return srv.endpointURL
}

// Endpoints gets the endpoint descriptions.
func (srv *Server) Endpoints() []ua.EndpointDescription {
	var tokens []ua.UserTokenPolicy
	if srv.allowAnonymous {
		tokens = append(tokens, ua.UserTokenPolicy{PolicyID: anonymousPolicyID, TokenType: ua.UserTokenTypeAnonymous})
	}
	tokens = append(tokens, ua.UserTokenPolicy{PolicyID: userNamePolicyID, TokenType: ua.UserTokenTypeUserName, SecurityPolicyURI: ua.SecurityPolicyURINone})
	return []ua.EndpointDescription{
		{
			EndpointURL: srv.endpointURL,
			Server: ua.ApplicationDescription{
				ApplicationURI:  srv.applicationURI,
				ProductURI:      "https://github.com/awcullen/uahelper",
				ApplicationName: ua.LocalizedText{Text: "uahelper loopback server"},
				ApplicationType: ua.ApplicationTypeServer,
				DiscoveryURLs:   []string{srv.endpointURL},
			},
			SecurityMode:        ua.MessageSecurityModeNone,
			SecurityPolicyURI:   ua.SecurityPolicyURINone,
			UserIdentityTokens:  tokens,
			TransportProfileURI: ua.TransportProfileURIUaTcpTransport,
			SecurityLevel:       0,
		},
	}
}

// Transport returns a transport that connects clients to the server in-process.
func (srv *Server) Transport() client.Transport {
	return &loopbackTransport{srv: srv}
}

// Closing gets a channel that broadcasts the closing of the server.
func (srv *Server) Closing() <-chan struct{} {
	return srv.closing
}

// State gets the ServerState.
func (srv *Server) State() ua.ServerState {
	srv.RLock()
	defer srv.RUnlock()
	return srv.state
}

// SetState sets the ServerState reported by the server status variable.
func (srv *Server) SetState(value ua.ServerState) {
	srv.Lock()
	srv.state = value
	srv.Unlock()
	srv.logger.Info().Int32("state", int32(value)).Msg("server state changed")
}

// NamespaceManager gets the namespace manager.
func (srv *Server) NamespaceManager() *NamespaceManager {
	return srv.namespaceManager
}

// SessionManager gets the session manager.
func (srv *Server) SessionManager() *SessionManager {
	return srv.sessionManager
}

// SubscriptionManager gets the subscription manager.
func (srv *Server) SubscriptionManager() *SubscriptionManager {
	return srv.subscriptionManager
}

// ChannelManager gets the channel manager.
func (srv *Server) ChannelManager() *ChannelManager {
	return srv.channelManager
}

// Scheduler gets the polling scheduler.
func (srv *Server) Scheduler() *Scheduler {
	return srv.scheduler
}

// WorkerPool gets a pool of workers.
func (srv *Server) WorkerPool() *workerpool.WorkerPool {
	return srv.workerpool
}

// AddVariable adds a variable of the data type to the demo namespace.
func (srv *Server) AddVariable(nodeID ua.NodeID, dataType ua.NodeID, value ua.Variant, writable bool) (*VariableNode, error) {
	access := ua.AccessLevelsCurrentRead
	if writable {
		access |= ua.AccessLevelsCurrentWrite
	}
	now := time.Now().UTC()
	n := NewVariableNode(
		nodeID,
		ua.QualifiedName{NamespaceIndex: nodeID.NamespaceIndex(), Name: nodeID.String()},
		[]Reference{NewReference(ua.ReferenceTypeIDOrganizes, true, ua.ObjectIDObjectsFolder)},
		ua.NewDataValue(value, ua.Good, now, 0, now, 0),
		dataType,
		access,
	)
	if err := srv.namespaceManager.AddNodes(n); err != nil {
		return nil, err
	}
	return n, nil
}

// AddDataType adds a data type that is a subtype of superType.
func (srv *Server) AddDataType(nodeID ua.NodeID, superType ua.NodeID) error {
	return srv.namespaceManager.AddNodes(NewDataTypeNode(nodeID, ua.QualifiedName{NamespaceIndex: nodeID.NamespaceIndex(), Name: nodeID.String()}, superType, false))
}

// DropChannels aborts every open channel. Sessions survive and may be activated on new channels.
func (srv *Server) DropChannels() {
	srv.logger.Info().Int("channels", srv.channelManager.Len()).Msg("dropping channels")
	srv.channelManager.closeChannels()
}

// SetOffline drops every channel and refuses new ones while offline.
func (srv *Server) SetOffline(offline bool) {
	srv.Lock()
	srv.offline = offline
	srv.Unlock()
	if offline {
		srv.DropChannels()
	}
	srv.logger.Info().Bool("offline", offline).Msg("server availability changed")
}

// IsOffline returns true if the server refuses new channels.
func (srv *Server) IsOffline() bool {
	srv.RLock()
	defer srv.RUnlock()
	return srv.offline
}

// ExpireSessions closes every session and drops every channel. Unless deleteSubscriptions, the
// subscriptions of the sessions remain and may be transferred to a new session.
func (srv *Server) ExpireSessions(deleteSubscriptions bool) {
	for _, s := range srv.sessionManager.Expire() {
		srv.subscriptionManager.detach(s, deleteSubscriptions)
	}
	srv.DropChannels()
}

// Close stops the server. Open channels are closed and pending requests complete with BadShutdown.
func (srv *Server) Close() error {
	srv.closeOnce.Do(func() {
		srv.SetState(ua.ServerStateShutdown)
		close(srv.closing)
		srv.channelManager.closeChannels()
		srv.workerpool.StopWait()
	})
	return nil
}
