// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"

	"github.com/awcullen/uahelper/ua"
)

// ReadNode reads the value of the node with the given address, e.g. "ns=2;s=Channel1.Device1.Tag1",
// and renders it as text. Returns nil if the value is currently unreadable.
func (c *Client) ReadNode(ctx context.Context, address string) (*string, error) {
	values, err := c.ReadNodes(ctx, []string{address})
	if err != nil {
		return nil, err
	}
	return values[0], nil
}

// ReadNodes reads the values of the nodes in one request and renders them as text, in the order of the
// addresses. An element is nil if that value is currently unreadable.
func (c *Client) ReadNodes(ctx context.Context, addresses []string) ([]*string, error) {
	results, err := c.ReadValues(ctx, parseNodeIDs(addresses))
	if err != nil {
		return nil, err
	}
	values := make([]*string, len(results))
	for i, r := range results {
		if r.StatusCode.IsGood() {
			s := ua.FormatValue(r.Value)
			values[i] = &s
		}
	}
	return values, nil
}

// WriteNode writes the text to the node with the given address, cast to the data type of the node.
func (c *Client) WriteNode(ctx context.Context, address string, value string) error {
	return c.WriteValue(ctx, ua.ParseNodeID(address), value)
}

// WriteNodes writes the values to the nodes with the given addresses, pairing them by position.
// Returns ErrLengthMismatch if the lengths differ.
func (c *Client) WriteNodes(ctx context.Context, addresses []string, values []string) error {
	if len(addresses) != len(values) {
		return ErrLengthMismatch
	}
	return c.WriteValues(ctx, parseNodeIDs(addresses), values)
}

func parseNodeIDs(addresses []string) []ua.NodeID {
	ids := make([]ua.NodeID, len(addresses))
	for i, a := range addresses {
		ids[i] = ua.ParseNodeID(a)
	}
	return ids
}
