// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"sync"
	"sync/atomic"
)

// ChannelManager manages the loopback channels for a server.
type ChannelManager struct {
	sync.RWMutex
	server       *Server
	channelsByID map[uint32]*loopbackChannel
	nextID       uint32
}

// NewChannelManager instantiates a new ChannelManager.
func NewChannelManager(server *Server) *ChannelManager {
	return &ChannelManager{server: server, channelsByID: make(map[uint32]*loopbackChannel)}
}

// open adds a new channel to the server.
func (m *ChannelManager) open() *loopbackChannel {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &loopbackChannel{
		id:     atomic.AddUint32(&m.nextID, 1),
		srv:    m.server,
		ctx:    ctx,
		cancel: cancel,
	}
	m.Lock()
	m.channelsByID[ch.id] = ch
	m.Unlock()
	return ch
}

// Get a channel from the server.
func (m *ChannelManager) Get(id uint32) (*loopbackChannel, bool) {
	m.RLock()
	defer m.RUnlock()
	ch, ok := m.channelsByID[id]
	return ch, ok
}

// Delete the channel from the server.
func (m *ChannelManager) Delete(ch *loopbackChannel) {
	m.Lock()
	defer m.Unlock()
	delete(m.channelsByID, ch.id)
}

// Len returns the number of open channels.
func (m *ChannelManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.channelsByID)
}

func (m *ChannelManager) closeChannels() {
	m.Lock()
	channels := make([]*loopbackChannel, 0, len(m.channelsByID))
	for k, ch := range m.channelsByID {
		channels = append(channels, ch)
		delete(m.channelsByID, k)
	}
	m.Unlock()
	for _, ch := range channels {
		ch.cancel()
	}
}
