// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import "sync"

// registry maps keys to subscriptions, and server subscription ids to subscriptions.
type registry struct {
	sync.RWMutex
	byKey map[string]*Subscription
	byID  map[uint32]*Subscription
}

func newRegistry() *registry {
	return &registry{
		byKey: make(map[string]*Subscription),
		byID:  make(map[uint32]*Subscription),
	}
}

// add registers the subscription, which must not share its key with a registered subscription.
func (r *registry) add(sub *Subscription) {
	r.Lock()
	defer r.Unlock()
	r.byKey[sub.key] = sub
	r.byID[sub.SubscriptionID()] = sub
}

// lookup returns the subscription with the server subscription id.
func (r *registry) lookup(id uint32) (*Subscription, bool) {
	r.RLock()
	defer r.RUnlock()
	sub, ok := r.byID[id]
	return sub, ok
}

// remove unregisters the subscription of the key.
func (r *registry) remove(key string) (*Subscription, bool) {
	r.Lock()
	defer r.Unlock()
	sub, ok := r.byKey[key]
	if !ok {
		return nil, false
	}
	delete(r.byKey, key)
	if r.byID[sub.SubscriptionID()] == sub {
		delete(r.byID, sub.SubscriptionID())
	}
	return sub, true
}

// removeAll unregisters every subscription.
func (r *registry) removeAll() []*Subscription {
	r.Lock()
	defer r.Unlock()
	subs := make([]*Subscription, 0, len(r.byKey))
	for _, sub := range r.byKey {
		subs = append(subs, sub)
	}
	r.byKey = make(map[string]*Subscription)
	r.byID = make(map[uint32]*Subscription)
	return subs
}

// rebind moves a registered subscription to a new server subscription id.
// Returns false if the subscription is no longer registered.
func (r *registry) rebind(sub *Subscription, id uint32) bool {
	r.Lock()
	defer r.Unlock()
	if r.byKey[sub.key] != sub {
		return false
	}
	if old := sub.SubscriptionID(); r.byID[old] == sub {
		delete(r.byID, old)
	}
	sub.setSubscriptionID(id)
	r.byID[id] = sub
	return true
}

// snapshot returns the registered subscriptions.
func (r *registry) snapshot() []*Subscription {
	r.RLock()
	defer r.RUnlock()
	subs := make([]*Subscription, 0, len(r.byKey))
	for _, sub := range r.byKey {
		subs = append(subs, sub)
	}
	return subs
}

func (r *registry) len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.byKey)
}
