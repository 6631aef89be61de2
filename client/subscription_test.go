// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"gotest.tools/assert"
	"gotest.tools/poll"
)

func dataChange(seq uint32, handle uint32, value ua.Variant) (ua.NotificationMessage, *ua.DataChangeNotification) {
	dcn := &ua.DataChangeNotification{MonitoredItems: []ua.MonitoredItemNotification{
		{ClientHandle: handle, Value: ua.DataValue{Value: value}},
	}}
	return ua.NotificationMessage{SequenceNumber: seq, PublishTime: time.Now(), NotificationData: []interface{}{dcn}}, dcn
}

func TestSubscriptionDispatch(t *testing.T) {
	var mu sync.Mutex
	var got []int32
	items := []*MonitoredItem{{address: "ns=2;s=A", clientHandle: 1}, {address: "ns=2;s=B", clientHandle: 2}}
	m := NewMetrics(prometheus.NewRegistry())
	sub := newSubscription("monitor", items, func(key string, item *MonitoredItem, n Notification) {
		mu.Lock()
		got = append(got, n.Value.Value.(int32))
		mu.Unlock()
		if n.Value.Value.(int32) == 2 {
			panic("handler failed")
		}
	}, zerolog.Nop(), m)
	sub.start()
	defer sub.stop()

	for i := int32(1); i <= 4; i++ {
		sub.enqueue(dataChange(uint32(i), 1, i))
	}
	// unknown handle
	sub.enqueue(dataChange(5, 9, int32(5)))

	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		mu.Lock()
		defer mu.Unlock()
		if len(got) < 4 {
			return poll.Continue("got %v", got)
		}
		return poll.Success()
	}, poll.WithDelay(time.Millisecond))
	mu.Lock()
	assert.DeepEqual(t, got, []int32{1, 2, 3, 4})
	mu.Unlock()
	// the panicking delivery is not counted
	assert.Equal(t, testutil.ToFloat64(m.NotificationsDelivered.WithLabelValues("monitor")), 3.0)
}

func TestSubscriptionStop(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	delivered := 0
	items := []*MonitoredItem{{address: "ns=2;s=A", clientHandle: 1}}
	sub := newSubscription("monitor", items, func(key string, item *MonitoredItem, n Notification) {
		<-release
		mu.Lock()
		delivered++
		mu.Unlock()
	}, zerolog.Nop(), nil)
	sub.start()

	for i := int32(1); i <= 3; i++ {
		sub.enqueue(dataChange(uint32(i), 1, i))
	}
	sub.stop()
	sub.stop()
	close(release)
	select {
	case <-sub.done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	// at most the delivery in progress completes
	assert.Assert(t, delivered <= 1)

	// nothing is queued after stop
	sub.enqueue(dataChange(4, 1, int32(4)))
	assert.Equal(t, sub.queue.Len(), 0)
}

func TestSubscriptionDeliverAfterStop(t *testing.T) {
	var calls atomic.Int32
	items := []*MonitoredItem{{address: "ns=2;s=A", clientHandle: 1}}
	sub := newSubscription("monitor", items, func(string, *MonitoredItem, Notification) {
		calls.Add(1)
	}, zerolog.Nop(), nil)

	// a notification popped by the dispatcher just before stop
	qn := queuedNotification{items[0], Notification{Value: ua.DataValue{Value: int32(1)}}}
	sub.deliver(qn)
	assert.Equal(t, calls.Load(), int32(1))
	sub.stop()
	sub.deliver(qn)
	assert.Equal(t, calls.Load(), int32(1))
}
