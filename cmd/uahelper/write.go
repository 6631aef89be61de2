// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newWriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "write ADDRESS=VALUE...",
		Short: "Write values to nodes",
		Long: `Write values to nodes. Each value is cast to the data type of its node.

Examples:
  uahelper write "ns=2;s=Channel1.Device1.Tag2=111"
  uahelper write "ns=2;s=Channel1.Device1.Tag1=100" "ns=2;s=Channel1.Device1.Tag2=100"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, closeFn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := c.WriteNodes(ctx, addresses, values); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d value(s)\n", len(addresses))
			return nil
		},
	}
}

// parseAssignments splits "address=value" arguments at the last '='. Node ids contain '=' themselves,
// so values cannot.
func parseAssignments(args []string) ([]string, []string, error) {
	addresses := make([]string, len(args))
	values := make([]string, len(args))
	for i, arg := range args {
		j := strings.LastIndex(arg, "=")
		if j <= 0 || !strings.Contains(arg[:j], "=") {
			return nil, nil, errors.Errorf("invalid assignment %q, want ADDRESS=VALUE", arg)
		}
		addresses[i], values[i] = arg[:j], arg[j+1:]
	}
	return addresses, values, nil
}
