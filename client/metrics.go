// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records the activity of a client. A nil *Metrics records nothing.
type Metrics struct {
	Requests               *prometheus.CounterVec
	NotificationsDelivered *prometheus.CounterVec
	KeepAliveFailures      prometheus.Counter
	ReconnectAttempts      prometheus.Counter
	Reconnects             *prometheus.CounterVec
	State                  prometheus.Gauge
	Subscriptions          prometheus.Gauge
}

// NewMetrics creates the client metrics and registers them with the registerer, if not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uahelper",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total number of service requests",
			},
			[]string{"service", "result"},
		),
		NotificationsDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uahelper",
				Subsystem: "client",
				Name:      "notifications_delivered_total",
				Help:      "Total number of notifications delivered to handlers",
			},
			[]string{"key"},
		),
		KeepAliveFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "uahelper",
				Subsystem: "client",
				Name:      "keepalive_failures_total",
				Help:      "Total number of failed keep-alive reads",
			},
		),
		ReconnectAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "uahelper",
				Subsystem: "client",
				Name:      "reconnect_attempts_total",
				Help:      "Total number of reconnect attempts",
			},
		),
		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uahelper",
				Subsystem: "client",
				Name:      "reconnects_total",
				Help:      "Total number of successful reconnects by method (reactivate, transfer, recreate)",
			},
			[]string{"method"},
		),
		State: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "uahelper",
				Subsystem: "client",
				Name:      "state",
				Help:      "Connection state (0=disconnected, 1=connected, 2=reconnecting)",
			},
		),
		Subscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "uahelper",
				Subsystem: "client",
				Name:      "subscriptions",
				Help:      "Number of registered subscriptions",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.NotificationsDelivered, m.KeepAliveFailures,
			m.ReconnectAttempts, m.Reconnects, m.State, m.Subscriptions)
	}
	return m
}

func (m *Metrics) observeRequest(service string, err error) {
	if m == nil {
		return
	}
	result := "Good"
	if err != nil {
		var code ua.StatusCode
		if errors.As(err, &code) {
			result = code.String()
		} else {
			result = "Error"
		}
	}
	m.Requests.WithLabelValues(service, result).Inc()
}

func (m *Metrics) notificationDelivered(key string) {
	if m == nil {
		return
	}
	m.NotificationsDelivered.WithLabelValues(key).Inc()
}

func (m *Metrics) keepAliveFailed() {
	if m == nil {
		return
	}
	m.KeepAliveFailures.Inc()
}

func (m *Metrics) reconnectAttempted() {
	if m == nil {
		return
	}
	m.ReconnectAttempts.Inc()
}

func (m *Metrics) reconnected(method string) {
	if m == nil {
		return
	}
	m.Reconnects.WithLabelValues(method).Inc()
}

func (m *Metrics) setState(state State) {
	if m == nil {
		return
	}
	m.State.Set(float64(state))
}

func (m *Metrics) setSubscriptions(n int) {
	if m == nil {
		return
	}
	m.Subscriptions.Set(float64(n))
}
