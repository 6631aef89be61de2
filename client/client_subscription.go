// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"sync/atomic"

	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
)

// AddSubscription subscribes to the values of the nodes and registers the subscription under the key.
// A subscription already registered under the key is deleted first.
// The handler receives every data change until the subscription is removed.
func (c *Client) AddSubscription(ctx context.Context, key string, nodeIDs []string, handler NotificationHandler) (*Subscription, error) {
	if handler == nil {
		handler = func(string, *MonitoredItem, Notification) {}
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.State() == StateReconnecting {
		return nil, ErrNotConnected
	}
	s, err := c.currentSession()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	// replacement, not merge
	if old, ok := c.registry.remove(key); ok {
		old.stop()
		if err := c.deleteOnServer(ctx, s, old); err != nil {
			c.logger.Warn().Err(err).Str("subscription", key).Msg("error deleting replaced subscription")
		}
	}

	items := make([]*MonitoredItem, len(nodeIDs))
	for i, address := range nodeIDs {
		items[i] = &MonitoredItem{
			address:      address,
			nodeID:       ua.ParseNodeID(address),
			clientHandle: atomic.AddUint32(&c.clientHandles, 1),
		}
	}
	sub := newSubscription(key, items, handler, c.logger, c.metrics)
	id, err := c.createOnServer(ctx, s, sub)
	if err != nil {
		return nil, err
	}
	sub.setSubscriptionID(id)
	c.registry.add(sub)
	sub.start()
	c.metrics.setSubscriptions(c.registry.len())
	c.wakePublisher()
	c.logger.Debug().Str("subscription", key).Uint32("id", id).Int("items", len(items)).Msg("subscription added")
	return sub, nil
}

// RemoveSubscription deletes the subscription registered under the key. Does nothing if there is none.
func (c *Client) RemoveSubscription(ctx context.Context, key string) error {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	sub, ok := c.registry.remove(key)
	if !ok {
		return nil
	}
	sub.stop()
	c.metrics.setSubscriptions(c.registry.len())
	s := c.session.Load()
	if s == nil || c.State() != StateConnected {
		return nil
	}
	ctx, cancel := c.operationContext(ctx)
	defer cancel()
	return c.deleteOnServer(ctx, s, sub)
}

// RemoveAllSubscriptions deletes every registered subscription.
func (c *Client) RemoveAllSubscriptions(ctx context.Context) error {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	subs := c.registry.removeAll()
	if len(subs) == 0 {
		return nil
	}
	ids := make([]uint32, len(subs))
	for i, sub := range subs {
		sub.stop()
		ids[i] = sub.SubscriptionID()
	}
	c.metrics.setSubscriptions(0)
	s := c.session.Load()
	if s == nil || c.State() != StateConnected {
		return nil
	}
	ctx, cancel := c.operationContext(ctx)
	defer cancel()
	if _, err := s.DeleteSubscriptions(ctx, &ua.DeleteSubscriptionsRequest{SubscriptionIDs: ids}); err != nil {
		return errors.Wrap(err, "delete subscriptions")
	}
	return nil
}

// Subscriptions returns the registered subscriptions.
func (c *Client) Subscriptions() []*Subscription {
	return c.registry.snapshot()
}

// createOnServer creates the subscription and its monitored items in the session.
func (c *Client) createOnServer(ctx context.Context, s *Session, sub *Subscription) (uint32, error) {
	res, err := s.CreateSubscription(ctx, &ua.CreateSubscriptionRequest{
		RequestedPublishingInterval: publishingInterval,
		RequestedLifetimeCount:      lifetimeCount,
		RequestedMaxKeepAliveCount:  maxKeepAliveCount,
		MaxNotificationsPerPublish:  maxNotificationsPerPublish,
		PublishingEnabled:           true,
		Priority:                    subscriptionPriority,
	})
	if err != nil {
		return 0, errors.Wrap(err, "create subscription")
	}
	id := res.SubscriptionID

	req := &ua.CreateMonitoredItemsRequest{
		SubscriptionID:     id,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
		ItemsToCreate:      make([]ua.MonitoredItemCreateRequest, len(sub.items)),
	}
	for i, item := range sub.items {
		req.ItemsToCreate[i] = ua.MonitoredItemCreateRequest{
			ItemToMonitor:  ua.ReadValueID{NodeID: item.nodeID, AttributeID: ua.AttributeIDValue},
			MonitoringMode: ua.MonitoringModeReporting,
			RequestedParameters: ua.MonitoringParameters{
				ClientHandle:     item.clientHandle,
				SamplingInterval: samplingInterval,
				QueueSize:        monitoredItemQueueSize,
				DiscardOldest:    true,
			},
		}
	}
	if len(req.ItemsToCreate) > 0 {
		res2, err := s.CreateMonitoredItems(ctx, req)
		if err != nil {
			s.DeleteSubscriptions(ctx, &ua.DeleteSubscriptionsRequest{SubscriptionIDs: []uint32{id}})
			return 0, errors.Wrap(err, "create monitored items")
		}
		for i, r := range res2.Results {
			if i >= len(sub.items) {
				break
			}
			sub.items[i].setResult(r)
			if r.StatusCode.IsBad() {
				c.logger.Warn().Str("subscription", sub.key).Str("node", sub.items[i].address).
					Stringer("status", r.StatusCode).Msg("error creating monitored item")
			}
		}
	}
	return id, nil
}

// deleteOnServer deletes the subscription in the session, discarding its pending notifications.
func (c *Client) deleteOnServer(ctx context.Context, s *Session, sub *Subscription) error {
	res, err := s.DeleteSubscriptions(ctx, &ua.DeleteSubscriptionsRequest{SubscriptionIDs: []uint32{sub.SubscriptionID()}})
	if err != nil {
		return errors.Wrap(err, "delete subscription")
	}
	if len(res.Results) == 1 && res.Results[0].IsBad() {
		return errors.Wrap(res.Results[0], "delete subscription")
	}
	return nil
}
