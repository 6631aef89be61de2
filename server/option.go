// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Option is a functional option to be applied to a server during initialization.
type Option func(*Server) error

// WithLogger sets the logger of the server.
func WithLogger(logger zerolog.Logger) Option {
	return func(srv *Server) error {
		srv.logger = logger
		return nil
	}
}

// WithEndpointURL sets the url of the endpoint the server advertises. Default "opc.tcp://localhost:4840".
func WithEndpointURL(endpointURL string) Option {
	return func(srv *Server) error {
		srv.endpointURL = endpointURL
		return nil
	}
}

// WithApplicationURI sets the uri of the server application.
func WithApplicationURI(uri string) Option {
	return func(srv *Server) error {
		srv.applicationURI = uri
		return nil
	}
}

// WithAnonymousIdentity sets whether anonymous users may activate sessions. Default true.
func WithAnonymousIdentity(allow bool) Option {
	return func(srv *Server) error {
		srv.allowAnonymous = allow
		return nil
	}
}

// WithUser adds a user that may activate sessions with the user name and password.
// The password is stored as a bcrypt hash.
func WithUser(userName, password string) Option {
	return func(srv *Server) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			return errors.Wrapf(err, "hash password of %q", userName)
		}
		srv.users[userName] = hash
		return nil
	}
}

// WithUserHash adds a user with a bcrypt hash of the password.
func WithUserHash(userName string, hash []byte) Option {
	return func(srv *Server) error {
		if _, err := bcrypt.Cost(hash); err != nil {
			return errors.Wrapf(err, "hash of %q", userName)
		}
		srv.users[userName] = hash
		return nil
	}
}

// WithAuthenticator sets the authenticator of user name identities, replacing the users of the server.
func WithAuthenticator(authenticator UserNameIdentityAuthenticator) Option {
	return func(srv *Server) error {
		srv.authenticator = authenticator
		return nil
	}
}

// WithMaxWorkerThreads sets the number of workers that handle service requests. Default 4.
func WithMaxWorkerThreads(value int) Option {
	return func(srv *Server) error {
		if value < 1 {
			return errors.Errorf("max worker threads must be positive, got %d", value)
		}
		srv.maxWorkerThreads = value
		return nil
	}
}

// WithMaxSessionCount sets the number of sessions that may be active. Default 0, unlimited.
func WithMaxSessionCount(value uint32) Option {
	return func(srv *Server) error {
		srv.maxSessionCount = value
		return nil
	}
}

// WithMinSamplingInterval sets the shortest interval monitored items are sampled at. Default 50ms.
func WithMinSamplingInterval(interval time.Duration) Option {
	return func(srv *Server) error {
		srv.minSamplingInterval = interval
		return nil
	}
}

// WithRampInterval sets the interval of the steps of the "Demo.Ramp" variable. Default 1s.
func WithRampInterval(interval time.Duration) Option {
	return func(srv *Server) error {
		if interval <= 0 {
			return errors.Errorf("ramp interval must be positive, got %s", interval)
		}
		srv.rampInterval = interval
		return nil
	}
}

// WithoutTransferSubscriptions makes the server reject TransferSubscriptions.
func WithoutTransferSubscriptions() Option {
	return func(srv *Server) error {
		srv.transferDisabled = true
		return nil
	}
}
