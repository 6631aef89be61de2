// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/uahelper/ua"
	deque "github.com/gammazero/deque"
)

const (
	maxQueueSize        = 1024
	maxSamplingInterval = 60 * time.Second
)

var (
	monitoredItemID = uint32(0)
)

// MonitoredItem specifies the node that is monitored for data changes.
type MonitoredItem struct {
	sync.Mutex
	id                  uint32
	sub                 *Subscription
	node                *VariableNode
	itemToMonitor       ua.ReadValueID
	clientHandle        uint32
	samplingInterval    time.Duration
	queueSize           int
	discardOldest       bool
	timestampsToReturn  ua.TimestampsToReturn
	queue               *deque.Deque[ua.DataValue]
	previousQueuedValue ua.DataValue
}

// NewMonitoredItem constructs a new MonitoredItem and starts sampling the node.
func NewMonitoredItem(sub *Subscription, node *VariableNode, req ua.MonitoredItemCreateRequest, timestampsToReturn ua.TimestampsToReturn) *MonitoredItem {
	mi := &MonitoredItem{
		id:                  atomic.AddUint32(&monitoredItemID, 1),
		sub:                 sub,
		node:                node,
		itemToMonitor:       req.ItemToMonitor,
		clientHandle:        req.RequestedParameters.ClientHandle,
		discardOldest:       req.RequestedParameters.DiscardOldest,
		timestampsToReturn:  timestampsToReturn,
		queue:               deque.New[ua.DataValue](),
		previousQueuedValue: ua.NewDataValue(nil, ua.BadWaitingForInitialData, time.Time{}, 0, time.Time{}, 0),
	}
	mi.setQueueSize(req.RequestedParameters.QueueSize)
	mi.setSamplingInterval(req.RequestedParameters.SamplingInterval, sub.publishingInterval)
	mi.startMonitoring()
	return mi
}

// ID returns the id of the item.
func (mi *MonitoredItem) ID() uint32 {
	return mi.id
}

// SamplingInterval returns the revised sampling interval.
func (mi *MonitoredItem) SamplingInterval() time.Duration {
	return mi.samplingInterval
}

// QueueSize returns the revised queue size.
func (mi *MonitoredItem) QueueSize() int {
	return mi.queueSize
}

// Delete stops sampling and clears the queue.
func (mi *MonitoredItem) Delete() {
	mi.stopMonitoring()
	mi.Lock()
	defer mi.Unlock()
	mi.queue.Clear()
}

func (mi *MonitoredItem) setQueueSize(queueSize uint32) {
	switch {
	case queueSize == 0:
		mi.queueSize = 1
	case queueSize > maxQueueSize:
		mi.queueSize = maxQueueSize
	default:
		mi.queueSize = int(queueSize)
	}
}

// setSamplingInterval revises the interval. A negative interval samples at the publishing interval.
func (mi *MonitoredItem) setSamplingInterval(samplingInterval float64, publishingInterval time.Duration) {
	interval := time.Duration(samplingInterval * float64(time.Millisecond))
	if samplingInterval < 0 {
		interval = publishingInterval
	}
	if interval > maxSamplingInterval {
		interval = maxSamplingInterval
	}
	mi.samplingInterval = mi.sub.manager.server.Scheduler().Revise(interval)
}

func (mi *MonitoredItem) startMonitoring() {
	mi.Lock()
	mi.sample(true)
	mi.Unlock()
	mi.sub.manager.server.Scheduler().Add(mi.samplingInterval, mi)
}

func (mi *MonitoredItem) stopMonitoring() {
	mi.sub.manager.server.Scheduler().Remove(mi.samplingInterval, mi)
}

// Poll reads the value of the itemToMonitor.
func (mi *MonitoredItem) Poll() {
	mi.Lock()
	changed := mi.sample(false)
	mi.Unlock()
	if changed {
		mi.sub.signal()
	}
}

// resend queues the current value, whether changed or not.
func (mi *MonitoredItem) resend() {
	mi.Lock()
	mi.sample(true)
	mi.Unlock()
}

// sample reads the value and queues it if changed or forced. Call with the lock held.
func (mi *MonitoredItem) sample(force bool) bool {
	v := mi.node.Value(context.Background())
	if v.ServerTimestamp.IsZero() {
		v.ServerTimestamp = time.Now().UTC()
	}
	if !force && !mi.isDataChange(v, mi.previousQueuedValue) {
		return false
	}
	mi.enqueue(withTimestamps(v, mi.timestampsToReturn))
	mi.previousQueuedValue = v
	return true
}

func (mi *MonitoredItem) enqueue(item ua.DataValue) {
	if mi.discardOldest {
		for mi.queue.Len() >= mi.queueSize {
			mi.queue.PopFront() // discard oldest
		}
		mi.queue.PushBack(item)
		return
	}
	for mi.queue.Len() >= mi.queueSize {
		mi.queue.PopBack() // discard newest
	}
	mi.queue.PushBack(item)
}

func (mi *MonitoredItem) notifications(max int) []ua.MonitoredItemNotification {
	mi.Lock()
	defer mi.Unlock()
	var notifications []ua.MonitoredItemNotification
	for i := 0; i < max && mi.queue.Len() > 0; i++ {
		notifications = append(notifications, ua.MonitoredItemNotification{
			ClientHandle: mi.clientHandle,
			Value:        mi.queue.PopFront(),
		})
	}
	return notifications
}

func (mi *MonitoredItem) isDataChange(current, previous ua.DataValue) bool {
	if current.StatusCode&0xFFFFF000 != previous.StatusCode&0xFFFFF000 {
		return true
	}
	return !reflect.DeepEqual(current.Value, previous.Value)
}

func withTimestamps(value ua.DataValue, timestampsToReturn ua.TimestampsToReturn) ua.DataValue {
	switch timestampsToReturn {
	case ua.TimestampsToReturnSource:
		return ua.NewDataValue(value.Value, value.StatusCode, value.SourceTimestamp, value.SourcePicoseconds, time.Time{}, 0)
	case ua.TimestampsToReturnServer:
		return ua.NewDataValue(value.Value, value.StatusCode, time.Time{}, 0, value.ServerTimestamp, value.ServerPicoseconds)
	case ua.TimestampsToReturnNeither:
		return ua.NewDataValue(value.Value, value.StatusCode, time.Time{}, 0, time.Time{}, 0)
	default:
		return value
	}
}
