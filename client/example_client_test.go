// Copyright 2021 Converter Systems LLC. All rights reserved.

package client_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/server"
	"github.com/awcullen/uahelper/ua"
)

func Example() {
	srv, err := server.New()
	if err != nil {
		fmt.Println("Error starting server.", err)
		return
	}
	defer srv.Close()

	ctx := context.Background()
	c, err := client.Dial(ctx, srv.EndpointURL(), client.WithTransport(srv.Transport()))
	if err != nil {
		fmt.Println("Error connecting.", err)
		return
	}
	defer c.Close(ctx)

	if err := c.WriteNode(ctx, "ns=2;s=Channel1.Device1.Tag2", "111"); err != nil {
		fmt.Println("Error writing.", err)
		return
	}
	values, err := c.ReadNodes(ctx, []string{"ns=2;s=Channel1.Device1.Tag2", "ns=2;s=Demo.StringArray", "ns=2;s=Nope"})
	if err != nil {
		fmt.Println("Error reading.", err)
		return
	}
	for _, v := range values {
		if v == nil {
			fmt.Println("<unreadable>")
			continue
		}
		fmt.Println(*v)
	}

	// Output:
	// 111
	// [a, b, c]
	// <unreadable>
}

func ExampleClient_AddSubscription() {
	srv, err := server.New()
	if err != nil {
		fmt.Println("Error starting server.", err)
		return
	}
	defer srv.Close()

	ctx := context.Background()
	c, err := client.Dial(ctx, srv.EndpointURL(), client.WithTransport(srv.Transport()))
	if err != nil {
		fmt.Println("Error connecting.", err)
		return
	}
	defer c.Close(ctx)

	received := make(chan string, 16)
	_, err = c.AddSubscription(ctx, "monitor", []string{"ns=2;s=Channel1.Device1.Tag1"}, func(key string, item *client.MonitoredItem, n client.Notification) {
		received <- fmt.Sprintf("%s: %s = %s", key, item.Address(), ua.FormatValue(n.Value.Value))
	})
	if err != nil {
		fmt.Println("Error subscribing.", err)
		return
	}
	fmt.Println(<-received)

	// Output:
	// monitor: ns=2;s=Channel1.Device1.Tag1 = 0
}

func ExampleClient_WriteNode() {
	srv, err := server.New()
	if err != nil {
		fmt.Println("Error starting server.", err)
		return
	}
	defer srv.Close()

	ctx := context.Background()
	c, err := client.Dial(ctx, srv.EndpointURL(), client.WithTransport(srv.Transport()))
	if err != nil {
		fmt.Println("Error connecting.", err)
		return
	}
	defer c.Close(ctx)

	err = c.WriteNode(ctx, "ns=2;s=Channel1.Device1.Tag1", "forty-two")
	var we *client.WriteError
	if errors.As(err, &we) {
		fmt.Println(we.NodeID, we.StatusCode())
	}

	// Output:
	// ns=2;s=Channel1.Device1.Tag1 BadTypeMismatch
}
