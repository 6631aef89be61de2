// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"sync"

	"github.com/awcullen/uahelper/ua"
)

// VariableNode is a Node class that holds a typed value.
type VariableNode struct {
	nodeBase
	sync.RWMutex
	value            ua.DataValue
	dataType         ua.NodeID
	accessLevel      byte
	readValueHandler func(context.Context) ua.DataValue
}

var _ Node = (*VariableNode)(nil)

// NewVariableNode creates a new VariableNode.
func NewVariableNode(nodeID ua.NodeID, browseName ua.QualifiedName, references []Reference, value ua.DataValue, dataType ua.NodeID, accessLevel byte) *VariableNode {
	return &VariableNode{
		nodeBase:    newNodeBase(nodeID, browseName, ua.LocalizedText{}, references),
		value:       value,
		dataType:    dataType,
		accessLevel: accessLevel,
	}
}

func (n *VariableNode) NodeClass() ua.NodeClass {
	return ua.NodeClassVariable
}

// Value returns the value of the Variable.
func (n *VariableNode) Value(ctx context.Context) ua.DataValue {
	n.RLock()
	h := n.readValueHandler
	v := n.value
	n.RUnlock()
	if h != nil {
		return h(ctx)
	}
	return v
}

// SetValue sets the value of the Variable.
func (n *VariableNode) SetValue(value ua.DataValue) {
	n.Lock()
	defer n.Unlock()
	n.value = value
}

// DataType returns the DataType attribute of this node.
func (n *VariableNode) DataType() ua.NodeID {
	return n.dataType
}

// AccessLevel returns the AccessLevel attribute of this node.
func (n *VariableNode) AccessLevel() byte {
	return n.accessLevel
}

// SetReadValueHandler sets the ReadValueHandler of this node.
func (n *VariableNode) SetReadValueHandler(value func(context.Context) ua.DataValue) {
	n.Lock()
	defer n.Unlock()
	n.readValueHandler = value
}

// IsAttributeIDValid returns true if attributeId is supported for the node.
func (n *VariableNode) IsAttributeIDValid(attributeID uint32) bool {
	switch attributeID {
	case ua.AttributeIDValue, ua.AttributeIDDataType, ua.AttributeIDValueRank,
		ua.AttributeIDAccessLevel, ua.AttributeIDUserAccessLevel:
		return true
	}
	return isBaseAttribute(attributeID)
}
