// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/rs/zerolog"
)

// Option is a functional option to be applied to a client during initialization.
type Option func(*Client) error

// WithTransport sets the transport used to discover endpoints and open channels. (default: gopcua transport)
func WithTransport(transport Transport) Option {
	return func(c *Client) error {
		c.transport = transport
		return nil
	}
}

// WithLogger sets the logger. (default: zerolog.Nop())
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithTrace logs all ServiceRequests and ServiceResponses at debug level.
func WithTrace() Option {
	return func(c *Client) error {
		c.trace = true
		return nil
	}
}

// WithSecurity selects the most secure endpoint instead of an endpoint with security policy of None. (default: false)
func WithSecurity(useSecurity bool) Option {
	return func(c *Client) error {
		c.useSecurity = useSecurity
		return nil
	}
}

// WithUserNameIdentity sets the user identity to a UserNameIdentity created from a username and password. (default: AnonymousIdentity)
func WithUserNameIdentity(userName, password string) Option {
	return func(c *Client) error {
		c.userIdentity = ua.UserNameIdentity{UserName: userName, Password: password}
		return nil
	}
}

// WithApplicationName sets the name of the client application. (default: uahelper)
func WithApplicationName(value string) Option {
	return func(c *Client) error {
		c.applicationName = value
		return nil
	}
}

// WithSessionTimeout sets the duration that a session may be unused before being closed by the server. (default: 60 s)
func WithSessionTimeout(value time.Duration) Option {
	return func(c *Client) error {
		c.sessionTimeout = value
		return nil
	}
}

// WithOperationTimeout sets the duration to wait for a read or write to complete. (default: 6000 s)
func WithOperationTimeout(value time.Duration) Option {
	return func(c *Client) error {
		c.operationTimeout = value
		return nil
	}
}

// WithKeepAliveInterval sets the interval of the session keep-alive. (default: 5 s)
func WithKeepAliveInterval(value time.Duration) Option {
	return func(c *Client) error {
		c.keepAliveInterval = value
		return nil
	}
}

// WithReconnectPeriod sets the interval between reconnect attempts. (default: 10 s)
func WithReconnectPeriod(value time.Duration) Option {
	return func(c *Client) error {
		c.reconnectPeriod = value
		return nil
	}
}

// WithTrustedCertificatesFile sets the file path of the trusted server certificates or certificate authorities.
func WithTrustedCertificatesFile(path string) Option {
	return func(c *Client) error {
		c.validator.TrustedCertsFile = path
		return nil
	}
}

// WithRejectUntrustedCertificates rejects server certificates of secure endpoints that fail validation
// against the trusted certificates. (default: accept every certificate)
func WithRejectUntrustedCertificates() Option {
	return func(c *Client) error {
		c.validator.RejectUntrusted = true
		return nil
	}
}

// WithSuppressHostNameInvalid skips the check of the endpoint host name against the server certificate.
func WithSuppressHostNameInvalid() Option {
	return func(c *Client) error {
		c.validator.SuppressHostNameInvalid = true
		return nil
	}
}

// WithMetrics records client activity in the given metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}
