// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"fmt"
	"strings"

	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
)

var (
	// ErrNotConnected is returned when an operation needs a session and there is none.
	ErrNotConnected = errors.New("client is not connected")
	// ErrAlreadyConnected is returned by Connect when a session is established.
	ErrAlreadyConnected = errors.New("client is already connected")
	// ErrLengthMismatch is returned when addresses and values differ in length.
	ErrLengthMismatch = errors.New("number of node ids and values differ")
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("client is closed")
	// ErrNoTransport is the cause of a ConnectionError when no Transport is configured.
	ErrNoTransport = errors.New("no transport configured")
	// ErrEmptyURL is the cause of a ConnectionError when the endpoint url is empty.
	ErrEmptyURL = errors.New("endpoint url is empty")
)

// ConnectionError reports a failure to establish a session with a server.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %q: %s", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NoEndpointError reports that discovery returned no usable endpoint.
type NoEndpointError struct {
	DiscoveryURL string
}

func (e *NoEndpointError) Error() string {
	return fmt.Sprintf("no endpoint found at %q", e.DiscoveryURL)
}

// TypeResolutionError reports a failure to learn the data type of a node before a write.
type TypeResolutionError struct {
	NodeID ua.NodeID
	Err    error
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("resolve data type of %s: %s", e.NodeID, e.Err)
}

func (e *TypeResolutionError) Unwrap() error { return e.Err }

// WriteError reports a write that failed for one node.
// Err is the bad ua.StatusCode returned by the server, or the *ua.CastError of the value.
type WriteError struct {
	NodeID ua.NodeID
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %s", e.NodeID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// StatusCode returns the status of the write, or BadTypeMismatch if the value could not be cast.
func (e *WriteError) StatusCode() ua.StatusCode {
	var code ua.StatusCode
	if errors.As(e.Err, &code) {
		return code
	}
	return ua.BadTypeMismatch
}

// WriteErrors collects the failed writes of a batch, in request order.
type WriteErrors []*WriteError

func (e WriteErrors) Error() string {
	s := make([]string, len(e))
	for i, err := range e {
		s[i] = err.Error()
	}
	return strings.Join(s, "; ")
}

// Unwrap returns the individual write errors.
func (e WriteErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// ReadFailure describes a node that could not be read. Reads absorb these into
// their results; ReadFailures are only reported through the logger and metrics.
type ReadFailure struct {
	NodeID     ua.NodeID
	StatusCode ua.StatusCode
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("read %s: %s", e.NodeID, e.StatusCode)
}

func (e *ReadFailure) Unwrap() error { return e.StatusCode }
