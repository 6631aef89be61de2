// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/spf13/cobra"
)

const (
	demoTag1 = "ns=2;s=Channel1.Device1.Tag1"
	demoTag2 = "ns=2;s=Channel1.Device1.Tag2"
)

func newDemoCmd(a *app) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a short tour of the client",
		Long: `Read a node, write a node, read and write two nodes in one request, then subscribe
to Channel1.Device1.Tag1 and print its data changes.

Examples:
  uahelper demo --simulate
  uahelper demo -e opc.tcp://127.0.0.1:49320 --duration 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			c, closeFn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "single read")
			fmt.Fprintln(out, demoTag1)
			v, err := c.ReadNode(ctx, demoTag1)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, text(v))

			fmt.Fprintln(out, "single write")
			if err := c.WriteNode(ctx, demoTag2, "111"); err != nil {
				return err
			}
			fmt.Fprintln(out, demoTag2)
			if v, err = c.ReadNode(ctx, demoTag2); err != nil {
				return err
			}
			fmt.Fprintln(out, text(v))

			tags := []string{demoTag1, demoTag2}
			fmt.Fprintln(out, "batch read")
			values, err := c.ReadNodes(ctx, tags)
			if err != nil {
				return err
			}
			for _, v := range values {
				fmt.Fprintln(out, text(v))
			}

			fmt.Fprintln(out, "batch write")
			if err := c.WriteNodes(ctx, tags, []string{"100", "100"}); err != nil {
				return err
			}
			if values, err = c.ReadNodes(ctx, tags); err != nil {
				return err
			}
			for _, v := range values {
				fmt.Fprintln(out, text(v))
			}

			fmt.Fprintln(out, "subscription")
			_, err = c.AddSubscription(ctx, "monitor", []string{demoTag1}, func(key string, item *client.MonitoredItem, n client.Notification) {
				fmt.Fprintf(out, "%s:%s->%s\n", key, item.Address(), formatNotification(n))
			})
			if err != nil {
				return err
			}
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after the duration (default: until interrupted)")
	return cmd
}

func text(v *string) string {
	if v == nil {
		return "<unreadable>"
	}
	return *v
}
