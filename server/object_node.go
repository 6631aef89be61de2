// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"github.com/awcullen/uahelper/ua"
)

// ObjectNode is a Node class that represents an object or folder.
type ObjectNode struct {
	nodeBase
}

var _ Node = (*ObjectNode)(nil)

// NewObjectNode creates a new ObjectNode.
func NewObjectNode(nodeID ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText, references []Reference) *ObjectNode {
	return &ObjectNode{newNodeBase(nodeID, browseName, displayName, references)}
}

func (n *ObjectNode) NodeClass() ua.NodeClass {
	return ua.NodeClassObject
}

func (n *ObjectNode) IsAttributeIDValid(attributeID uint32) bool {
	return isBaseAttribute(attributeID)
}
