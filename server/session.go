// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
	"time"

	"github.com/awcullen/uahelper/ua"
)

// Session is a session of a client with the server.
type Session struct {
	sync.RWMutex
	sessionID           ua.NodeID
	sessionName         string
	authenticationToken ua.NodeID
	timeout             time.Duration
	userIdentity        ua.UserIdentity
	channelID           uint32
	activated           bool
	lastAccess          time.Time
	// signalled when a subscription of the session has notifications
	wake chan struct{}
}

// NewSession constructs a new Session.
func NewSession(sessionID ua.NodeID, sessionName string, authenticationToken ua.NodeID, timeout time.Duration) *Session {
	return &Session{
		sessionID:           sessionID,
		sessionName:         sessionName,
		authenticationToken: authenticationToken,
		timeout:             timeout,
		lastAccess:          time.Now(),
		wake:                make(chan struct{}, 1),
	}
}

// IsExpired returns true if the session has not been used for longer than its timeout.
func (s *Session) IsExpired() bool {
	return s.expiredAt(time.Now())
}

func (s *Session) expiredAt(now time.Time) bool {
	s.RLock()
	defer s.RUnlock()
	return now.After(s.lastAccess.Add(s.timeout))
}

// SessionID returns the id of the session.
func (s *Session) SessionID() ua.NodeID {
	return s.sessionID
}

// SessionName returns the name of the session.
func (s *Session) SessionName() string {
	return s.sessionName
}

// AuthenticationToken returns the secret token of the session.
func (s *Session) AuthenticationToken() ua.NodeID {
	return s.authenticationToken
}

// UserIdentity returns the identity of the user that activated the session.
func (s *Session) UserIdentity() ua.UserIdentity {
	s.RLock()
	defer s.RUnlock()
	return s.userIdentity
}

// SetLastAccess sets the time the session was last used.
func (s *Session) SetLastAccess(value time.Time) {
	s.Lock()
	defer s.Unlock()
	s.lastAccess = value
}

// activate binds the session to the channel.
func (s *Session) activate(channelID uint32, userIdentity ua.UserIdentity) {
	s.Lock()
	defer s.Unlock()
	s.channelID = channelID
	s.userIdentity = userIdentity
	s.activated = true
	s.lastAccess = time.Now()
}

// check returns a bad status if the session may not serve requests of the channel.
func (s *Session) check(channelID uint32) ua.StatusCode {
	s.RLock()
	defer s.RUnlock()
	if !s.activated {
		return ua.BadSessionNotActivated
	}
	if s.channelID != channelID {
		return ua.BadSecureChannelIDInvalid
	}
	return ua.Good
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
