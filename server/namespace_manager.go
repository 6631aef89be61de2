// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"

	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
)

// maximum depth of a type hierarchy
const maxTypeDepth = 100

// NamespaceManager manages the namespaces and nodes of a server.
type NamespaceManager struct {
	sync.RWMutex
	server *Server
	uris   []string
	nodes  map[ua.NodeID]Node
}

var _ ua.TypeTree = (*NamespaceManager)(nil)

// NewNamespaceManager instantiates a new NamespaceManager.
func NewNamespaceManager(server *Server) *NamespaceManager {
	return &NamespaceManager{
		server: server,
		uris:   []string{"http://opcfoundation.org/UA/"},
		nodes:  make(map[ua.NodeID]Node),
	}
}

// Add adds a namespace uri and returns the index.
func (m *NamespaceManager) Add(nsu string) uint16 {
	m.Lock()
	defer m.Unlock()
	for i, u := range m.uris {
		if u == nsu {
			return uint16(i)
		}
	}
	m.uris = append(m.uris, nsu)
	return uint16(len(m.uris) - 1)
}

// Len returns the number of namespace uris.
func (m *NamespaceManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.uris)
}

// NamespaceUris returns the namespace uris.
func (m *NamespaceManager) NamespaceUris() []string {
	m.RLock()
	defer m.RUnlock()
	res := make([]string, len(m.uris))
	copy(res, m.uris)
	return res
}

// FindNode returns the node with the given NodeID from the namespace.
func (m *NamespaceManager) FindNode(id ua.NodeID) (node Node, ok bool) {
	m.RLock()
	defer m.RUnlock()
	node, ok = m.nodes[id]
	return
}

// FindVariable returns the variable with the given NodeID from the namespace.
func (m *NamespaceManager) FindVariable(id ua.NodeID) (node *VariableNode, ok bool) {
	m.RLock()
	defer m.RUnlock()
	if node1, ok1 := m.nodes[id]; ok1 {
		node, ok = node1.(*VariableNode)
	}
	return
}

// AddNodes adds the nodes to the namespace, and adds the inverse of their references to the targets.
func (m *NamespaceManager) AddNodes(nodes ...Node) error {
	m.Lock()
	defer m.Unlock()
	for _, node := range nodes {
		if _, ok := m.nodes[node.NodeID()]; ok {
			return errors.Wrapf(ua.BadNodeIDExists, "add node %s", node.NodeID())
		}
		m.nodes[node.NodeID()] = node
	}
	for _, node := range nodes {
		for _, r := range node.References() {
			if target, ok := m.nodes[r.TargetID]; ok {
				target.SetReferences(append(target.References(), NewReference(r.ReferenceTypeID, !r.IsInverse, node.NodeID())))
			}
		}
	}
	return nil
}

// SuperType returns the immediate supertype of the type.
func (m *NamespaceManager) SuperType(typeID ua.NodeID) (ua.NodeID, bool) {
	if n, ok := m.FindNode(typeID); ok {
		for _, r := range n.References() {
			if r.IsInverse && r.ReferenceTypeID == ua.ReferenceTypeIDHasSubtype {
				return r.TargetID, true
			}
		}
	}
	return ua.NilNodeID, false
}

// IsSubtype returns whether the subtype is derived from the given supertype in the namespace.
func (m *NamespaceManager) IsSubtype(subtype, supertype ua.NodeID) bool {
	id := subtype
	for i := 0; i < maxTypeDepth; i++ {
		super, ok := m.SuperType(id)
		if !ok {
			return false
		}
		if super == supertype {
			return true
		}
		id = super
	}
	return false
}

// BuiltInType returns the built-in type of values of the data type.
func (m *NamespaceManager) BuiltInType(dataType ua.NodeID) ua.BuiltInType {
	return ua.BuiltInTypeOf(dataType, m)
}

// Browse returns the references of the node in the direction, of the reference type or, if
// includeSubtypes, of its subtypes. A nil reference type matches every reference.
func (m *NamespaceManager) Browse(nodeID ua.NodeID, direction ua.BrowseDirection, referenceTypeID ua.NodeID, includeSubtypes bool) ([]ua.ReferenceDescription, ua.StatusCode) {
	n, ok := m.FindNode(nodeID)
	if !ok {
		return nil, ua.BadNodeIDUnknown
	}
	refs := []ua.ReferenceDescription{}
	for _, r := range n.References() {
		switch direction {
		case ua.BrowseDirectionForward:
			if r.IsInverse {
				continue
			}
		case ua.BrowseDirectionInverse:
			if !r.IsInverse {
				continue
			}
		}
		if !referenceTypeID.IsNil() && r.ReferenceTypeID != referenceTypeID &&
			!(includeSubtypes && m.IsSubtype(r.ReferenceTypeID, referenceTypeID)) {
			continue
		}
		refs = append(refs, ua.ReferenceDescription{
			ReferenceTypeID: r.ReferenceTypeID,
			IsForward:       !r.IsInverse,
			NodeID:          r.TargetID,
		})
	}
	return refs, ua.Good
}
