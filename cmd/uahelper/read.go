// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read ADDRESS...",
		Short: "Read the values of nodes",
		Long: `Read the values of nodes in one request and print them as text.

Examples:
  uahelper read "ns=2;s=Channel1.Device1.Tag1"
  uahelper read "ns=2;s=Channel1.Device1.Tag1" "ns=2;s=Channel1.Device1.Tag2"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, closeFn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			values, err := c.ReadNodes(ctx, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, v := range values {
				if v == nil {
					fmt.Fprintf(out, "%s = <unreadable>\n", args[i])
					continue
				}
				fmt.Fprintf(out, "%s = %s\n", args[i], *v)
			}
			return nil
		},
	}
}
