// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"github.com/awcullen/uahelper/ua"
)

// DataTypeNode is a Node class that describes the syntax of a variable's Value.
// The supertype is held as an inverse HasSubtype reference.
type DataTypeNode struct {
	nodeBase
	isAbstract bool
}

var _ Node = (*DataTypeNode)(nil)

// NewDataTypeNode creates a new DataTypeNode that is a subtype of superType.
func NewDataTypeNode(nodeID ua.NodeID, browseName ua.QualifiedName, superType ua.NodeID, isAbstract bool) *DataTypeNode {
	var refs []Reference
	if !superType.IsNil() {
		refs = []Reference{NewReference(ua.ReferenceTypeIDHasSubtype, true, superType)}
	}
	return &DataTypeNode{
		nodeBase:   newNodeBase(nodeID, browseName, ua.LocalizedText{}, refs),
		isAbstract: isAbstract,
	}
}

func (n *DataTypeNode) NodeClass() ua.NodeClass {
	return ua.NodeClassDataType
}

// IsAbstract reports whether variables may have this exact data type.
func (n *DataTypeNode) IsAbstract() bool {
	return n.isAbstract
}

func (n *DataTypeNode) IsAttributeIDValid(attributeID uint32) bool {
	return isBaseAttribute(attributeID)
}
