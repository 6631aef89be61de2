// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
	"time"
)

// Sampler is sampled by the Scheduler at its sampling interval.
type Sampler interface {
	Poll()
}

// Scheduler samples monitored items. Items with the same sampling interval share one ticker,
// which stops when its last item is removed.
type Scheduler struct {
	sync.Mutex
	groups              map[time.Duration]*samplingGroup
	minSamplingInterval time.Duration
	closing             <-chan struct{}
}

// NewScheduler instantiates a new Scheduler.
func NewScheduler(server *Server) *Scheduler {
	return &Scheduler{
		groups:              make(map[time.Duration]*samplingGroup),
		minSamplingInterval: server.minSamplingInterval,
		closing:             server.closing,
	}
}

// Revise returns the sampling interval the scheduler supports for the requested interval.
func (s *Scheduler) Revise(interval time.Duration) time.Duration {
	if interval < s.minSamplingInterval {
		return s.minSamplingInterval
	}
	return interval
}

// Add samples the sampler every interval, which must be a revised interval.
func (s *Scheduler) Add(interval time.Duration, sampler Sampler) {
	s.Lock()
	defer s.Unlock()
	g, ok := s.groups[interval]
	if !ok {
		g = &samplingGroup{samplers: make(map[Sampler]struct{}), stop: make(chan struct{})}
		s.groups[interval] = g
		go g.run(interval, s.closing)
	}
	g.Lock()
	g.samplers[sampler] = struct{}{}
	g.Unlock()
}

// Remove stops sampling the sampler.
func (s *Scheduler) Remove(interval time.Duration, sampler Sampler) {
	s.Lock()
	defer s.Unlock()
	g, ok := s.groups[interval]
	if !ok {
		return
	}
	g.Lock()
	delete(g.samplers, sampler)
	empty := len(g.samplers) == 0
	g.Unlock()
	if empty {
		close(g.stop)
		delete(s.groups, interval)
	}
}

// Len returns the number of running tickers.
func (s *Scheduler) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.groups)
}

type samplingGroup struct {
	sync.Mutex
	samplers map[Sampler]struct{}
	stop     chan struct{}
}

func (g *samplingGroup) run(interval time.Duration, closing <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-closing:
			return
		case <-g.stop:
			return
		case <-ticker.C:
			g.Lock()
			samplers := make([]Sampler, 0, len(g.samplers))
			for sampler := range g.samplers {
				samplers = append(samplers, sampler)
			}
			g.Unlock()
			for _, sampler := range samplers {
				sampler.Poll()
			}
		}
	}
}
