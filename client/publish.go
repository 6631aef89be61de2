// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"time"

	"github.com/awcullen/uahelper/ua"
)

const (
	publishTimeout    = 2 * time.Duration(publishingInterval*maxKeepAliveCount) * time.Millisecond
	publishRetryDelay = 500 * time.Millisecond
)

// wakePublisher signals the publish loop that a subscription was added or the session replaced.
func (c *Client) wakePublisher() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// publishLoop sends publish requests on the current session while subscriptions are registered,
// and dispatches the notification messages to the queues of the subscriptions.
func (c *Client) publishLoop(ctx context.Context) {
	defer c.wg.Done()
	var acks []ua.SubscriptionAcknowledgement
	var last *Session
	for {
		s := c.session.Load()
		if s == nil || c.State() != StateConnected || c.registry.len() == 0 {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
			case <-time.After(publishRetryDelay):
			}
			continue
		}
		if s != last {
			acks = nil
			last = s
		}

		rctx, cancel := context.WithTimeout(ctx, publishTimeout)
		res, err := s.Publish(rctx, &ua.PublishRequest{SubscriptionAcknowledgements: acks})
		cancel()
		acks = nil
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug().Err(err).Msg("publish failed")
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
			case <-time.After(publishRetryDelay):
			}
			continue
		}
		if len(res.NotificationMessage.NotificationData) > 0 {
			acks = append(acks, ua.SubscriptionAcknowledgement{
				SubscriptionID: res.SubscriptionID,
				SequenceNumber: res.NotificationMessage.SequenceNumber,
			})
		}
		c.dispatch(res.SubscriptionID, res.NotificationMessage)
	}
}

// dispatch routes a notification message to the subscription with the id.
// Messages of subscriptions that are no longer registered are dropped.
func (c *Client) dispatch(subscriptionID uint32, msg ua.NotificationMessage) {
	sub, ok := c.registry.lookup(subscriptionID)
	if !ok {
		return
	}
	for _, data := range msg.NotificationData {
		switch n := data.(type) {
		case *ua.DataChangeNotification:
			sub.enqueue(msg, n)
		case *ua.StatusChangeNotification:
			c.logger.Warn().Str("subscription", sub.key).Stringer("status", n.Status).Msg("subscription status changed")
		}
	}
}
