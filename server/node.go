// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"

	"github.com/awcullen/uahelper/ua"
)

// Node is a node of the address space.
type Node interface {
	NodeID() ua.NodeID
	NodeClass() ua.NodeClass
	BrowseName() ua.QualifiedName
	DisplayName() ua.LocalizedText
	References() []Reference
	SetReferences([]Reference)
	IsAttributeIDValid(uint32) bool
}

// Reference is a typed link from a node to a target node.
type Reference struct {
	ReferenceTypeID ua.NodeID
	IsInverse       bool
	TargetID        ua.NodeID
}

// NewReference constructs a new Reference.
func NewReference(referenceTypeID ua.NodeID, isInverse bool, targetID ua.NodeID) Reference {
	return Reference{referenceTypeID, isInverse, targetID}
}

func isBaseAttribute(attributeID uint32) bool {
	switch attributeID {
	case ua.AttributeIDNodeID, ua.AttributeIDNodeClass, ua.AttributeIDBrowseName,
		ua.AttributeIDDisplayName, ua.AttributeIDDescription:
		return true
	}
	return false
}

// attributes common to every node class.
type nodeBase struct {
	mu          sync.RWMutex
	nodeID      ua.NodeID
	browseName  ua.QualifiedName
	displayName ua.LocalizedText
	references  []Reference
}

func newNodeBase(nodeID ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText, references []Reference) nodeBase {
	if displayName.Text == "" {
		displayName.Text = browseName.Name
	}
	return nodeBase{nodeID: nodeID, browseName: browseName, displayName: displayName, references: references}
}

func (n *nodeBase) NodeID() ua.NodeID { return n.nodeID }

func (n *nodeBase) BrowseName() ua.QualifiedName { return n.browseName }

func (n *nodeBase) DisplayName() ua.LocalizedText { return n.displayName }

// References returns the References of this node.
func (n *nodeBase) References() []Reference {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.references
}

// SetReferences replaces the References of this node.
func (n *nodeBase) SetReferences(value []Reference) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.references = value
}
