// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/awcullen/uahelper/ua"
)

const (
	// the shortest publishing interval.
	minPublishingInterval = 10 * time.Millisecond
	// the number of unacknowledged messages kept per subscription.
	maxRetransmissionQueueSize = 16
)

// SubscriptionManager manages the subscriptions for a server.
type SubscriptionManager struct {
	sync.RWMutex
	server            *Server
	subscriptionsByID map[uint32]*Subscription
	nextID            uint32
}

// NewSubscriptionManager instantiates a new SubscriptionManager.
func NewSubscriptionManager(server *Server) *SubscriptionManager {
	m := &SubscriptionManager{server: server, subscriptionsByID: make(map[uint32]*Subscription)}
	go func(m *SubscriptionManager) {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkForExpiredSubscriptions()
			case <-m.server.closing:
				m.RLock()
				for _, v := range m.subscriptionsByID {
					v.delete()
				}
				m.RUnlock()
				return
			}
		}
	}(m)
	return m
}

// Create creates a subscription of the session.
func (m *SubscriptionManager) Create(session *Session, req *ua.CreateSubscriptionRequest) *Subscription {
	interval := time.Duration(req.RequestedPublishingInterval * float64(time.Millisecond))
	if interval < minPublishingInterval {
		interval = minPublishingInterval
	}
	keepAlive := req.RequestedMaxKeepAliveCount
	if keepAlive == 0 {
		keepAlive = 10
	}
	lifetime := req.RequestedLifetimeCount
	if lifetime < 3*keepAlive {
		lifetime = 3 * keepAlive
	}
	now := time.Now()
	m.Lock()
	defer m.Unlock()
	m.nextID++
	s := &Subscription{
		manager:                    m,
		id:                         m.nextID,
		session:                    session,
		publishingInterval:         interval,
		maxKeepAliveCount:          keepAlive,
		lifetimeCount:              lifetime,
		maxNotificationsPerPublish: req.MaxNotificationsPerPublish,
		priority:                   req.Priority,
		lastMessage:                now,
		unacked:                    make(map[uint32]ua.NotificationMessage),
	}
	m.subscriptionsByID[s.id] = s
	return s
}

// Get a subscription from the server.
func (m *SubscriptionManager) Get(id uint32) (*Subscription, bool) {
	m.RLock()
	defer m.RUnlock()
	s, ok := m.subscriptionsByID[id]
	return s, ok
}

// Delete the subscription from the server.
func (m *SubscriptionManager) Delete(id uint32) (*Subscription, bool) {
	m.Lock()
	s, ok := m.subscriptionsByID[id]
	delete(m.subscriptionsByID, id)
	m.Unlock()
	if ok {
		s.delete()
	}
	return s, ok
}

// Len returns the number of subscriptions.
func (m *SubscriptionManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.subscriptionsByID)
}

// GetBySession returns subscriptions for the session, highest priority first.
func (m *SubscriptionManager) GetBySession(session *Session) []*Subscription {
	m.RLock()
	subs := make([]*Subscription, 0, 4)
	for _, sub := range m.subscriptionsByID {
		if sub.Session() == session {
			subs = append(subs, sub)
		}
	}
	m.RUnlock()
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority > subs[j].priority
		}
		return subs[i].id < subs[j].id
	})
	return subs
}

// detach releases the subscriptions of a closed session, or deletes them.
func (m *SubscriptionManager) detach(session *Session, deleteSubscriptions bool) {
	for _, sub := range m.GetBySession(session) {
		if deleteSubscriptions {
			m.Delete(sub.id)
			continue
		}
		sub.setSession(nil)
	}
}

func (m *SubscriptionManager) checkForExpiredSubscriptions() {
	m.Lock()
	expired := []*Subscription{}
	for k, s := range m.subscriptionsByID {
		if s.IsExpired() {
			delete(m.subscriptionsByID, k)
			expired = append(expired, s)
		}
	}
	m.Unlock()
	for _, s := range expired {
		m.server.logger.Debug().Uint32("subscription", s.id).Msg("subscription expired")
		s.delete()
	}
}

// Subscription is a subscription of a session, and the monitored items it reports.
type Subscription struct {
	sync.Mutex
	manager                    *SubscriptionManager
	id                         uint32
	session                    *Session
	publishingInterval         time.Duration
	maxKeepAliveCount          uint32
	lifetimeCount              uint32
	maxNotificationsPerPublish uint32
	priority                   byte
	items                      []*MonitoredItem
	seqNum                     uint32
	lastPublish                time.Time
	lastMessage                time.Time
	detachedAt                 time.Time
	unacked                    map[uint32]ua.NotificationMessage
}

// ID returns the id of the subscription.
func (s *Subscription) ID() uint32 {
	return s.id
}

// Session returns the session the subscription belongs to, or nil if detached.
func (s *Subscription) Session() *Session {
	s.Lock()
	defer s.Unlock()
	return s.session
}

func (s *Subscription) setSession(session *Session) {
	s.Lock()
	s.session = session
	if session == nil {
		s.detachedAt = time.Now()
	}
	s.Unlock()
	if session != nil {
		session.signal()
	}
}

// IsExpired returns true if the subscription has been detached for longer than its lifetime.
func (s *Subscription) IsExpired() bool {
	s.Lock()
	defer s.Unlock()
	return s.session == nil && time.Since(s.detachedAt) > s.publishingInterval*time.Duration(s.lifetimeCount)
}

// Items returns the monitored items of the subscription.
func (s *Subscription) Items() []*MonitoredItem {
	s.Lock()
	defer s.Unlock()
	res := make([]*MonitoredItem, len(s.items))
	copy(res, s.items)
	return res
}

func (s *Subscription) addItem(item *MonitoredItem) {
	s.Lock()
	s.items = append(s.items, item)
	s.Unlock()
	s.signal()
}

func (s *Subscription) deleteItem(id uint32) bool {
	s.Lock()
	var item *MonitoredItem
	for i, mi := range s.items {
		if mi.id == id {
			item = mi
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.Unlock()
	if item == nil {
		return false
	}
	item.Delete()
	return true
}

func (s *Subscription) delete() {
	s.Lock()
	items := s.items
	s.items = nil
	s.session = nil
	s.Unlock()
	for _, item := range items {
		item.Delete()
	}
}

// signal wakes a publish request of the session.
func (s *Subscription) signal() {
	if session := s.Session(); session != nil {
		session.signal()
	}
}

// resend queues the current value of every item.
func (s *Subscription) resend() {
	for _, item := range s.Items() {
		item.resend()
	}
	s.signal()
}

func (s *Subscription) acknowledge(seq uint32) ua.StatusCode {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.unacked[seq]; !ok {
		return ua.BadSequenceNumberUnknown
	}
	delete(s.unacked, seq)
	return ua.Good
}

func (s *Subscription) availableSequenceNumbers() []uint32 {
	res := make([]uint32, 0, len(s.unacked))
	for seq := range s.unacked {
		res = append(res, seq)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// publish returns the next notification message if one is due, or else how long until the next check.
// A message without notifications is a keep-alive and does not consume a sequence number.
func (s *Subscription) publish(now time.Time) (msg ua.NotificationMessage, available []uint32, ok bool, wait time.Duration) {
	s.Lock()
	defer s.Unlock()
	if next := s.lastPublish.Add(s.publishingInterval); now.Before(next) {
		return msg, nil, false, next.Sub(now)
	}
	max := int(s.maxNotificationsPerPublish)
	if max == 0 {
		max = math.MaxInt32
	}
	var notes []ua.MonitoredItemNotification
	for _, item := range s.items {
		if len(notes) >= max {
			break
		}
		notes = append(notes, item.notifications(max-len(notes))...)
	}
	if len(notes) > 0 {
		s.seqNum++
		msg = ua.NotificationMessage{
			SequenceNumber:   s.seqNum,
			PublishTime:      now.UTC(),
			NotificationData: []interface{}{&ua.DataChangeNotification{MonitoredItems: notes}},
		}
		s.unacked[s.seqNum] = msg
		if len(s.unacked) > maxRetransmissionQueueSize {
			delete(s.unacked, s.seqNum-maxRetransmissionQueueSize)
		}
		s.lastPublish, s.lastMessage = now, now
		return msg, s.availableSequenceNumbers(), true, 0
	}
	keepAlive := s.lastMessage.Add(s.publishingInterval * time.Duration(s.maxKeepAliveCount))
	if !now.Before(keepAlive) {
		s.lastPublish, s.lastMessage = now, now
		msg = ua.NotificationMessage{SequenceNumber: s.seqNum + 1, PublishTime: now.UTC()}
		return msg, s.availableSequenceNumbers(), true, 0
	}
	return msg, nil, false, keepAlive.Sub(now)
}
