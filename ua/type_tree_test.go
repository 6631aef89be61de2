// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua_test

import (
	"testing"

	"github.com/awcullen/uahelper/ua"
	"gotest.tools/assert"
)

func TestBuiltInTypeOf(t *testing.T) {
	tree := ua.NewTypeTable()
	custom := ua.NewNodeIDString(2, "TemperatureType")
	tree.Add(custom, ua.DataTypeIDDouble)
	customEnum := ua.NewNodeIDNumeric(2, 3001)
	tree.Add(customEnum, ua.DataTypeIDEnumeration)
	derived := ua.NewNodeIDNumeric(2, 3002)
	tree.Add(derived, custom)

	cases := []struct {
		typeID ua.NodeID
		want   ua.BuiltInType
	}{
		{ua.DataTypeIDBoolean, ua.BuiltInTypeBoolean},
		{ua.DataTypeIDInt16, ua.BuiltInTypeInt16},
		{ua.DataTypeIDString, ua.BuiltInTypeString},
		{ua.DataTypeIDStructure, ua.BuiltInTypeExtensionObject},
		{ua.DataTypeIDBaseDataType, ua.BuiltInTypeVariant},
		{ua.DataTypeIDNumber, ua.BuiltInTypeDouble},
		{ua.DataTypeIDInteger, ua.BuiltInTypeInt64},
		{ua.DataTypeIDUInteger, ua.BuiltInTypeUInt64},
		{ua.DataTypeIDEnumeration, ua.BuiltInTypeInt32},
		{ua.DataTypeIDServerState, ua.BuiltInTypeInt32},
		{ua.DataTypeIDDuration, ua.BuiltInTypeDouble},
		{ua.DataTypeIDUtcTime, ua.BuiltInTypeDateTime},
		{ua.DataTypeIDImagePNG, ua.BuiltInTypeByteString},
		{ua.DataTypeIDCounter, ua.BuiltInTypeUInt32},
		{custom, ua.BuiltInTypeDouble},
		{customEnum, ua.BuiltInTypeInt32},
		{derived, ua.BuiltInTypeDouble},
		{ua.NewNodeIDNumeric(2, 9999), ua.BuiltInTypeNull},
		{ua.NilNodeID, ua.BuiltInTypeNull},
	}
	for _, c := range cases {
		assert.Equal(t, ua.BuiltInTypeOf(c.typeID, tree), c.want, c.typeID.String())
	}
}

type cyclicTree struct{}

func (cyclicTree) SuperType(typeID ua.NodeID) (ua.NodeID, bool) {
	return typeID, true
}

func TestBuiltInTypeOfCycle(t *testing.T) {
	assert.Equal(t, ua.BuiltInTypeOf(ua.NewNodeIDNumeric(2, 1), cyclicTree{}), ua.BuiltInTypeNull)
	assert.Equal(t, ua.BuiltInTypeOf(ua.NewNodeIDNumeric(2, 1), nil), ua.BuiltInTypeNull)
}
