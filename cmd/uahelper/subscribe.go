// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/config"
	"github.com/awcullen/uahelper/relay"
	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSubscribeCmd(a *app) *cobra.Command {
	var (
		key      string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "subscribe [ADDRESS...]",
		Short: "Print the data changes of nodes",
		Long: `Subscribe to nodes and print their data changes until interrupted.
Without arguments, the subscriptions of the config file are created.
Notifications are relayed to NATS when nats.url is configured, and metrics are served
when metrics.listen is configured.

Examples:
  uahelper subscribe "ns=2;s=Channel1.Device1.Tag1"
  uahelper subscribe --simulate --duration 10s "ns=2;s=Demo.Ramp"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			subs := a.cfg.Subscriptions
			if len(args) > 0 {
				subs = []config.SubscriptionConfig{{Key: key, Nodes: args}}
			}
			if len(subs) == 0 {
				return errors.New("no nodes to subscribe to")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return a.subscribe(ctx, cmd.OutOrStdout(), subs)
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "monitor", "Key of the subscription of the arguments")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after the duration (default: until interrupted)")
	return cmd
}

// subscribe creates the subscriptions and serves notifications until ctx is done.
func (a *app) subscribe(ctx context.Context, out io.Writer, subs []config.SubscriptionConfig) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := client.NewMetrics(reg)

	c, closeFn, err := a.connect(ctx, client.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer closeFn()

	var mu sync.Mutex
	handler := func(key string, item *client.MonitoredItem, n client.Notification) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "%s:%s->%s\n", key, item.Address(), formatNotification(n))
	}
	if a.cfg.NATS.URL != "" {
		nc, err := relay.Connect(a.cfg.NATS.URL, a.cfg.ApplicationName, a.logger)
		if err != nil {
			return err
		}
		defer nc.Drain()
		r := relay.New(nc, a.cfg.NATS.SubjectPrefix, a.logger)
		show := handler
		handler = func(key string, item *client.MonitoredItem, n client.Notification) {
			show(key, item, n)
			r.Handle(key, item, n)
		}
	}

	for _, s := range subs {
		sub, err := c.AddSubscription(ctx, s.Key, s.Nodes, handler)
		if err != nil {
			return errors.Wrapf(err, "subscribe %s", s.Key)
		}
		for _, item := range sub.Items() {
			if code := item.StatusCode(); code.IsBad() {
				a.logger.Warn().Str("subscription", s.Key).Str("node", item.Address()).Stringer("status", code).Msg("node not monitored")
			}
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		hs := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.logger.Info().Str("listen", hs.Addr).Str("path", a.cfg.Metrics.Path).Msg("serving metrics")
			if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, "serve metrics")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

// formatNotification renders the value of a notification, or its status if the value is bad.
func formatNotification(n client.Notification) string {
	if n.Value.StatusCode.IsBad() {
		return n.Value.StatusCode.String()
	}
	return ua.FormatValue(n.Value.Value)
}
