// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
	"time"

	"github.com/awcullen/uahelper/ua"
)

// the interval between checks for sessions that exceeded their timeout.
const sessionExpiryInterval = time.Second

// SessionManager tracks the sessions of a server by authentication token.
type SessionManager struct {
	sync.RWMutex
	server   *Server
	sessions map[ua.NodeID]*Session
}

// NewSessionManager instantiates a new SessionManager, which closes sessions that exceed their timeout.
func NewSessionManager(server *Server) *SessionManager {
	m := &SessionManager{server: server, sessions: make(map[ua.NodeID]*Session)}
	go m.run()
	return m
}

func (m *SessionManager) run() {
	ticker := time.NewTicker(sessionExpiryInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			for _, s := range m.removeIf(func(s *Session) bool { return s.expiredAt(now) }) {
				m.server.logger.Debug().Str("session", s.sessionID.String()).Msg("session expired")
				m.server.subscriptionManager.detach(s, false)
			}
		case <-m.server.closing:
			m.removeIf(func(*Session) bool { return true })
			return
		}
	}
}

// Get returns the session of the authentication token, and marks it as used.
func (m *SessionManager) Get(authenticationToken ua.NodeID) (*Session, bool) {
	m.RLock()
	s, ok := m.sessions[authenticationToken]
	m.RUnlock()
	if ok {
		s.SetLastAccess(time.Now())
	}
	return s, ok
}

// Add registers the session. Returns BadTooManySessions if the server is at its limit.
func (m *SessionManager) Add(s *Session) error {
	m.Lock()
	defer m.Unlock()
	if limit := m.server.maxSessionCount; limit > 0 && uint32(len(m.sessions)) >= limit {
		return ua.BadTooManySessions
	}
	m.sessions[s.authenticationToken] = s
	return nil
}

// Delete removes the session, waking any publish request waiting on it.
// Returns false if the session was already removed.
func (m *SessionManager) Delete(s *Session) bool {
	m.Lock()
	_, ok := m.sessions[s.authenticationToken]
	delete(m.sessions, s.authenticationToken)
	m.Unlock()
	s.signal()
	return ok
}

// Expire removes every session, as if each had timed out, and returns them.
func (m *SessionManager) Expire() []*Session {
	return m.removeIf(func(*Session) bool { return true })
}

// Len returns the number of sessions.
func (m *SessionManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.sessions)
}

// removeIf removes the sessions that match, and wakes them.
func (m *SessionManager) removeIf(match func(*Session) bool) []*Session {
	m.Lock()
	var removed []*Session
	for token, s := range m.sessions {
		if match(s) {
			delete(m.sessions, token)
			removed = append(removed, s)
		}
	}
	m.Unlock()
	for _, s := range removed {
		s.signal()
	}
	return removed
}
