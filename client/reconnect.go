// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"sync/atomic"

	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Reconnect methods, in the order they are tried.
const (
	reconnectReactivate = "reactivate"
	reconnectTransfer   = "transfer"
	reconnectRecreate   = "recreate"
)

// ReconnectHandler re-establishes the session of a client, retrying every reconnect period until it
// succeeds or is cancelled. At most one handler is live per client.
type ReconnectHandler struct {
	client   *Client
	old      *Session
	endpoint ua.EndpointDescription
	limiter  *rate.Limiter
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	attempts atomic.Int32
}

func newReconnectHandler(c *Client, old *Session, endpoint ua.EndpointDescription) *ReconnectHandler {
	limiter := rate.NewLimiter(rate.Every(c.reconnectPeriod), 1)
	// first attempt after one period
	limiter.Allow()
	ctx, cancel := context.WithCancel(c.ctx)
	return &ReconnectHandler{
		client:   c,
		old:      old,
		endpoint: endpoint,
		limiter:  limiter,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Done is closed when the handler completes or is cancelled.
func (h *ReconnectHandler) Done() <-chan struct{} {
	return h.done
}

// Attempts returns the number of attempts made.
func (h *ReconnectHandler) Attempts() int {
	return int(h.attempts.Load())
}

func (h *ReconnectHandler) run() {
	c := h.client
	defer c.wg.Done()
	defer close(h.done)
	for {
		if err := h.limiter.Wait(h.ctx); err != nil {
			return
		}
		attempt := h.attempts.Add(1)
		c.metrics.reconnectAttempted()
		s, method, err := c.reopen(h.ctx, h.old, h.endpoint)
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Int32("attempt", attempt).Msg("reconnect failed")
			continue
		}
		c.completeReconnect(h, s, method)
		return
	}
}

// supervise observes the session events and starts a reconnect when the current session fails.
func (c *Client) supervise(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.onSessionEvent(ev)
		}
	}
}

func (c *Client) onSessionEvent(ev SessionEvent) {
	if ev.Kind != KeepAliveFailed {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// ignore events from discarded sessions, and failures while reconnecting
	if c.closed || ev.Session != c.session.Load() || c.reconnect != nil {
		return
	}
	c.logger.Warn().Stringer("status", ev.Status).Msg("connection lost, reconnecting")
	c.setState(StateReconnecting)
	h := newReconnectHandler(c, ev.Session, c.endpoint)
	c.reconnect = h
	c.wg.Add(1)
	go h.run()
}

// reconnectHandler returns the live reconnect handler, if any.
func (c *Client) reconnectHandler() *ReconnectHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnect
}

// completeReconnect installs the new session, unless the handler has been superseded or the client closed.
func (c *Client) completeReconnect(h *ReconnectHandler, s *Session, method string) {
	c.mu.Lock()
	if c.reconnect != h || c.closed {
		c.mu.Unlock()
		s.discard(context.Background())
		return
	}
	old := c.session.Swap(s)
	c.reconnect = nil
	h.cancel()
	c.setState(StateConnected)
	s.startKeepAlive(c.ctx, c.keepAliveInterval, c.events)
	c.mu.Unlock()

	if old != nil {
		old.discard(context.Background())
	}
	c.metrics.reconnected(method)
	c.wakePublisher()
	c.logger.Info().Str("method", method).Str("session", s.SessionID().String()).Int("attempts", h.Attempts()).Msg("reconnected")
}

// reopen opens a new channel and re-activates the session of old on it. If the server no longer knows
// the session, a new session is created and the subscriptions are transferred to it; if the transfer
// fails, the subscriptions are created again.
func (c *Client) reopen(ctx context.Context, old *Session, endpoint ua.EndpointDescription) (*Session, string, error) {
	ch, err := c.transport.Open(ctx, endpoint, c.channelConfig())
	if err != nil {
		return nil, "", errors.Wrap(err, "open channel")
	}
	s := newSession(ch, endpoint, c.logger, c.trace, c.metrics)
	s.sessionID, s.authToken = old.sessionID, old.authToken
	err = s.activate(ctx, c.userIdentity)
	if err == nil {
		return s, reconnectReactivate, nil
	}
	c.logger.Debug().Err(err).Msg("session could not be reactivated")

	s.sessionID, s.authToken = ua.NilNodeID, ua.NilNodeID
	if err := s.create(ctx, c.applicationName, c.sessionTimeout, c.userIdentity); err != nil {
		ch.Abort(ctx)
		return nil, "", err
	}
	failed, err := c.transferSubscriptions(ctx, s)
	if err != nil {
		c.logger.Debug().Err(err).Msg("subscriptions could not be transferred")
		if err := c.recreateSubscriptions(ctx, s, c.registry.snapshot()); err != nil {
			s.close(ctx)
			return nil, "", err
		}
		return s, reconnectRecreate, nil
	}
	if len(failed) > 0 {
		if err := c.recreateSubscriptions(ctx, s, failed); err != nil {
			s.close(ctx)
			return nil, "", err
		}
	}
	return s, reconnectTransfer, nil
}

// transferSubscriptions moves the registered subscriptions to the session.
// Returns the subscriptions the server could not transfer.
func (c *Client) transferSubscriptions(ctx context.Context, s *Session) ([]*Subscription, error) {
	subs := c.registry.snapshot()
	if len(subs) == 0 {
		return nil, nil
	}
	ids := make([]uint32, len(subs))
	for i, sub := range subs {
		ids[i] = sub.SubscriptionID()
	}
	res, err := s.TransferSubscriptions(ctx, &ua.TransferSubscriptionsRequest{SubscriptionIDs: ids, SendInitialValues: true})
	if err != nil {
		return nil, err
	}
	var failed []*Subscription
	for i, sub := range subs {
		if i >= len(res.Results) || res.Results[i].StatusCode.IsBad() {
			failed = append(failed, sub)
		}
	}
	return failed, nil
}

// recreateSubscriptions creates the subscriptions again in the session.
func (c *Client) recreateSubscriptions(ctx context.Context, s *Session, subs []*Subscription) error {
	for _, sub := range subs {
		id, err := c.createOnServer(ctx, s, sub)
		if err != nil {
			return err
		}
		if !c.registry.rebind(sub, id) {
			// removed meanwhile
			s.DeleteSubscriptions(ctx, &ua.DeleteSubscriptionsRequest{SubscriptionIDs: []uint32{id}})
		}
	}
	return nil
}
