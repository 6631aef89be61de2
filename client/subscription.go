// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"sync"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/gammazero/deque"
	"github.com/rs/zerolog"
)

// Publishing parameters of every subscription.
const (
	publishingInterval         = 100.0
	maxKeepAliveCount          = 1000
	lifetimeCount              = 1000
	maxNotificationsPerPublish = 1000
	subscriptionPriority       = 100
	samplingInterval           = 100.0
	monitoredItemQueueSize     = 1
)

// Notification is a changed value of a monitored item.
type Notification struct {
	Value          ua.DataValue
	SequenceNumber uint32
	PublishTime    time.Time
}

// NotificationHandler receives the notifications of a subscription.
// Handlers run on the dispatcher of their subscription, never on the caller of AddSubscription.
// A panic in a handler is recovered and logged.
type NotificationHandler func(key string, item *MonitoredItem, n Notification)

// MonitoredItem binds a node to the sampling parameters of a subscription.
type MonitoredItem struct {
	address      string
	nodeID       ua.NodeID
	clientHandle uint32

	mu               sync.Mutex
	monitoredItemID  uint32
	samplingInterval float64
	statusCode       ua.StatusCode
}

// Address returns the node address the item was created from.
func (m *MonitoredItem) Address() string {
	return m.address
}

// NodeID returns the monitored node.
func (m *MonitoredItem) NodeID() ua.NodeID {
	return m.nodeID
}

// ClientHandle returns the handle that identifies the item in notifications.
func (m *MonitoredItem) ClientHandle() uint32 {
	return m.clientHandle
}

// MonitoredItemID returns the id assigned by the server.
func (m *MonitoredItem) MonitoredItemID() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitoredItemID
}

// StatusCode returns the result of creating the item on the server.
func (m *MonitoredItem) StatusCode() ua.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCode
}

func (m *MonitoredItem) setResult(r ua.MonitoredItemCreateResult) {
	m.mu.Lock()
	m.monitoredItemID = r.MonitoredItemID
	m.samplingInterval = r.RevisedSamplingInterval
	m.statusCode = r.StatusCode
	m.mu.Unlock()
}

type queuedNotification struct {
	item *MonitoredItem
	n    Notification
}

// Subscription is a set of monitored items registered under a key.
// Notifications are queued and delivered to the handler by a dispatcher goroutine of the subscription.
type Subscription struct {
	key      string
	handler  NotificationHandler
	items    []*MonitoredItem
	byHandle map[uint32]*MonitoredItem
	logger   zerolog.Logger
	metrics  *Metrics

	mu             sync.Mutex
	subscriptionID uint32
	queue          *deque.Deque[queuedNotification]
	closed         bool
	signal         chan struct{}
	done           chan struct{}
}

func newSubscription(key string, items []*MonitoredItem, handler NotificationHandler, logger zerolog.Logger, metrics *Metrics) *Subscription {
	sub := &Subscription{
		key:      key,
		handler:  handler,
		items:    items,
		byHandle: make(map[uint32]*MonitoredItem, len(items)),
		logger:   logger.With().Str("subscription", key).Logger(),
		metrics:  metrics,
		queue:    deque.New[queuedNotification](),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, item := range items {
		sub.byHandle[item.clientHandle] = item
	}
	return sub
}

// Key returns the key of the subscription.
func (s *Subscription) Key() string {
	return s.key
}

// SubscriptionID returns the id assigned by the server.
func (s *Subscription) SubscriptionID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptionID
}

// Items returns the monitored items of the subscription.
func (s *Subscription) Items() []*MonitoredItem {
	return s.items
}

func (s *Subscription) setSubscriptionID(id uint32) {
	s.mu.Lock()
	s.subscriptionID = id
	s.mu.Unlock()
}

// enqueue queues the data changes of a notification message for delivery.
func (s *Subscription) enqueue(msg ua.NotificationMessage, dcn *ua.DataChangeNotification) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for _, n := range dcn.MonitoredItems {
		item, ok := s.byHandle[n.ClientHandle]
		if !ok {
			continue
		}
		s.queue.PushBack(queuedNotification{item, Notification{
			Value:          n.Value,
			SequenceNumber: msg.SequenceNumber,
			PublishTime:    msg.PublishTime,
		}})
	}
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// start starts the dispatcher.
func (s *Subscription) start() {
	go s.run()
}

func (s *Subscription) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for s.queue.Len() == 0 && !s.closed {
			s.mu.Unlock()
			<-s.signal
			s.mu.Lock()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		qn := s.queue.PopFront()
		s.mu.Unlock()
		s.deliver(qn)
	}
}

func (s *Subscription) deliver(qn queuedNotification) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("node", qn.item.address).Msg("notification handler panicked")
		}
	}()
	s.handler(s.key, qn.item, qn.n)
	s.metrics.notificationDelivered(s.key)
}

// stop discards pending notifications and stops the dispatcher.
// A handler call already started completes; no handler call starts after stop returns.
func (s *Subscription) stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue.Clear()
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}
