// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import "sync"

// TypeTree answers the supertype of a data type.
type TypeTree interface {
	SuperType(typeID NodeID) (NodeID, bool)
}

// TypeTable is a TypeTree that is safe for concurrent use.
type TypeTable struct {
	sync.RWMutex
	supertypes map[NodeID]NodeID
}

// NewTypeTable returns a TypeTable seeded with the standard data type hierarchy.
func NewTypeTable() *TypeTable {
	t := &TypeTable{supertypes: make(map[NodeID]NodeID, 64)}
	for sub, super := range standardSupertypes {
		t.supertypes[NewNodeIDNumeric(0, sub)] = NewNodeIDNumeric(0, super)
	}
	return t
}

// Add records the supertype of a data type.
func (t *TypeTable) Add(typeID, superTypeID NodeID) {
	t.Lock()
	t.supertypes[typeID] = superTypeID
	t.Unlock()
}

// SuperType returns the supertype of a data type.
func (t *TypeTable) SuperType(typeID NodeID) (NodeID, bool) {
	t.RLock()
	super, ok := t.supertypes[typeID]
	t.RUnlock()
	return super, ok
}

var standardSupertypes = map[uint32]uint32{
	1:    24, // Boolean
	12:   24, // String
	13:   24, // DateTime
	14:   24, // Guid
	15:   24, // ByteString
	16:   24, // XmlElement
	17:   24, // NodeId
	18:   24, // ExpandedNodeId
	19:   24, // StatusCode
	20:   24, // QualifiedName
	21:   24, // LocalizedText
	22:   24, // Structure
	23:   24, // DataValue
	25:   24, // DiagnosticInfo
	26:   24, // Number
	27:   26, // Integer
	28:   27, // UInteger
	29:   24, // Enumeration
	2:    27, // SByte
	4:    27,
	6:    27,
	8:    27,
	3:    28, // Byte
	5:    28,
	7:    28,
	9:    28,
	10:   26, // Float
	11:   26, // Double
	50:   26, // Decimal
	30:   15, // Image
	2000: 30,
	2001: 30,
	2002: 30,
	2003: 30,
	288:  7,  // IntegerId
	289:  7,  // Counter
	290:  11, // Duration
	291:  12, // NumericRange
	292:  12, // Time
	293:  13, // Date
	294:  13, // UtcTime
	295:  12, // LocaleId
	852:  29, // ServerState
}

// maxTypeDepth bounds the walk through a malformed or cyclic hierarchy.
const maxTypeDepth = 64

// BuiltInTypeOf returns the built-in type that carries values of the given data type.
// Abstract types map to a concrete carrier: Enumeration to Int32, Number to Double,
// Integer to Int64, UInteger to UInt64 and BaseDataType to Variant.
// Returns BuiltInTypeNull if the type is unknown.
func BuiltInTypeOf(typeID NodeID, tree TypeTree) BuiltInType {
	for i := 0; i < maxTypeDepth; i++ {
		if id, ok := typeID.isStandard(); ok {
			switch {
			case id >= 1 && id <= 23, id == 25:
				return BuiltInType(id)
			case id == 24:
				return BuiltInTypeVariant
			case id == 26:
				return BuiltInTypeDouble
			case id == 27:
				return BuiltInTypeInt64
			case id == 28:
				return BuiltInTypeUInt64
			case id == 29:
				return BuiltInTypeInt32
			}
		}
		if tree == nil {
			return BuiltInTypeNull
		}
		super, ok := tree.SuperType(typeID)
		if !ok || super.IsNil() {
			return BuiltInTypeNull
		}
		typeID = super
	}
	return BuiltInTypeNull
}
