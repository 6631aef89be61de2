// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/ua"
	"github.com/spf13/cobra"
)

func newEndpointsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoints of a server",
		Long: `List the endpoints of a server, and mark the endpoint a connection would select.

Examples:
  uahelper endpoints -e opc.tcp://127.0.0.1:49320
  uahelper endpoints --security -e opc.tcp://127.0.0.1:49320`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var transport client.Transport = client.NewGopcuaTransport()
			url := a.cfg.Endpoint
			if a.simulate {
				srv, err := a.simulation()
				if err != nil {
					return err
				}
				defer srv.Close()
				transport, url = srv.Transport(), srv.EndpointURL()
			}
			res, err := client.GetEndpoints(ctx, transport, &ua.GetEndpointsRequest{EndpointURL: url})
			if err != nil {
				return err
			}
			selected, err := client.SelectEndpoint(ctx, transport, url, a.cfg.Security)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tURL\tMODE\tPOLICY\tLEVEL")
			for _, e := range res.Endpoints {
				mark := ""
				if e.SecurityMode == selected.SecurityMode && e.SecurityPolicyURI == selected.SecurityPolicyURI {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", mark, e.EndpointURL, e.SecurityMode, e.SecurityPolicyURI, e.SecurityLevel)
			}
			return w.Flush()
		},
	}
}
