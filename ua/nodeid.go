// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDType is the kind of identifier of a NodeID.
type IDType byte

// IDTypes
const (
	IDTypeNumeric IDType = iota
	IDTypeString
	IDTypeGUID
	IDTypeOpaque
)

// NodeID identifies a Node. NodeIDs are comparable and may be used as map keys.
type NodeID struct {
	ns   uint16
	kind IDType
	num  uint32
	guid uuid.UUID
	// string identifier, or the bytes of an opaque identifier
	text string
}

// NilNodeID is the zero NodeID, "i=0".
var NilNodeID = NodeID{}

// NewNodeIDNumeric returns a NodeID with a numeric identifier.
func NewNodeIDNumeric(namespaceIndex uint16, identifier uint32) NodeID {
	return NodeID{ns: namespaceIndex, kind: IDTypeNumeric, num: identifier}
}

// NewNodeIDString returns a NodeID with a string identifier.
func NewNodeIDString(namespaceIndex uint16, identifier string) NodeID {
	return NodeID{ns: namespaceIndex, kind: IDTypeString, text: identifier}
}

// NewNodeIDGUID returns a NodeID with a GUID identifier.
func NewNodeIDGUID(namespaceIndex uint16, identifier uuid.UUID) NodeID {
	return NodeID{ns: namespaceIndex, kind: IDTypeGUID, guid: identifier}
}

// NewNodeIDOpaque returns a NodeID with an opaque identifier.
func NewNodeIDOpaque(namespaceIndex uint16, identifier ByteString) NodeID {
	return NodeID{ns: namespaceIndex, kind: IDTypeOpaque, text: string(identifier)}
}

func (n NodeID) NamespaceIndex() uint16 { return n.ns }

func (n NodeID) IDType() IDType { return n.kind }

// Identifier returns the identifier as a uint32, string, uuid.UUID or ByteString.
func (n NodeID) Identifier() interface{} {
	switch n.kind {
	case IDTypeString:
		return n.text
	case IDTypeGUID:
		return n.guid
	case IDTypeOpaque:
		return ByteString(n.text)
	default:
		return n.num
	}
}

// IsNil reports whether the NodeID has namespace zero and an empty identifier.
func (n NodeID) IsNil() bool {
	return n.ns == 0 && n.num == 0 && n.guid == uuid.Nil && n.text == ""
}

// isStandard reports whether the NodeID is a numeric identifier in namespace zero.
func (n NodeID) isStandard() (uint32, bool) {
	return n.num, n.ns == 0 && n.kind == IDTypeNumeric
}

// ParseNodeID returns a NodeID from a string representation, or NilNodeID if the string is malformed.
//   - ParseNodeID("i=85") // numeric in namespace 0
//   - ParseNodeID("ns=2;s=Channel1.Device1.Tag1")
//   - ParseNodeID("ns=2;g=5ce9dbce-5d79-434c-9ac3-1cfba9a6e92c")
//   - ParseNodeID("ns=2;b=YWJjZA==")
func ParseNodeID(s string) NodeID {
	var ns uint16
	if rest, ok := strings.CutPrefix(s, "ns="); ok {
		index, id, found := strings.Cut(rest, ";")
		if !found {
			return NilNodeID
		}
		v, err := strconv.ParseUint(index, 10, 16)
		if err != nil {
			return NilNodeID
		}
		ns, s = uint16(v), id
	}
	if len(s) < 2 || s[1] != '=' {
		return NilNodeID
	}
	id := s[2:]
	switch s[0] {
	case 'i':
		v, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return NilNodeID
		}
		return NewNodeIDNumeric(ns, uint32(v))
	case 's':
		return NewNodeIDString(ns, id)
	case 'g':
		g, err := uuid.Parse(id)
		if err != nil {
			return NilNodeID
		}
		return NewNodeIDGUID(ns, g)
	case 'b':
		b, err := base64.StdEncoding.DecodeString(id)
		if err != nil {
			return NilNodeID
		}
		return NewNodeIDOpaque(ns, ByteString(b))
	}
	return NilNodeID
}

// String returns the text form accepted by ParseNodeID. The namespace is omitted when zero.
func (n NodeID) String() string {
	var b strings.Builder
	if n.ns > 0 {
		b.WriteString("ns=")
		b.WriteString(strconv.FormatUint(uint64(n.ns), 10))
		b.WriteByte(';')
	}
	switch n.kind {
	case IDTypeNumeric:
		b.WriteString("i=")
		b.WriteString(strconv.FormatUint(uint64(n.num), 10))
	case IDTypeString:
		b.WriteString("s=")
		b.WriteString(n.text)
	case IDTypeGUID:
		b.WriteString("g=")
		b.WriteString(n.guid.String())
	case IDTypeOpaque:
		b.WriteString("b=")
		b.WriteString(base64.StdEncoding.EncodeToString([]byte(n.text)))
	}
	return b.String()
}
