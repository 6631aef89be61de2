// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/google/uuid"
)

// NamespaceURI is the uri of the namespace of the demo nodes.
const NamespaceURI = "urn:uahelper:demo"

// Custom data types of the demo namespace.
var (
	DataTypeIDAnalogValue = ua.NewNodeIDString(2, "AnalogValueType")
	DataTypeIDTemperature = ua.NewNodeIDString(2, "TemperatureType")
	DataTypeIDBatchNumber = ua.NewNodeIDString(2, "BatchNumberType")
)

// standard data types and their supertypes
var standardDataTypes = []struct {
	id       ua.NodeID
	name     string
	super    ua.NodeID
	abstract bool
}{
	{ua.DataTypeIDBaseDataType, "BaseDataType", ua.NilNodeID, true},
	{ua.DataTypeIDNumber, "Number", ua.DataTypeIDBaseDataType, true},
	{ua.DataTypeIDInteger, "Integer", ua.DataTypeIDNumber, true},
	{ua.DataTypeIDUInteger, "UInteger", ua.DataTypeIDNumber, true},
	{ua.DataTypeIDEnumeration, "Enumeration", ua.DataTypeIDBaseDataType, true},
	{ua.DataTypeIDBoolean, "Boolean", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDSByte, "SByte", ua.DataTypeIDInteger, false},
	{ua.DataTypeIDByte, "Byte", ua.DataTypeIDUInteger, false},
	{ua.DataTypeIDInt16, "Int16", ua.DataTypeIDInteger, false},
	{ua.DataTypeIDUInt16, "UInt16", ua.DataTypeIDUInteger, false},
	{ua.DataTypeIDInt32, "Int32", ua.DataTypeIDInteger, false},
	{ua.DataTypeIDUInt32, "UInt32", ua.DataTypeIDUInteger, false},
	{ua.DataTypeIDInt64, "Int64", ua.DataTypeIDInteger, false},
	{ua.DataTypeIDUInt64, "UInt64", ua.DataTypeIDUInteger, false},
	{ua.DataTypeIDFloat, "Float", ua.DataTypeIDNumber, false},
	{ua.DataTypeIDDouble, "Double", ua.DataTypeIDNumber, false},
	{ua.DataTypeIDString, "String", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDDateTime, "DateTime", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDGUID, "Guid", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDByteString, "ByteString", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDXMLElement, "XmlElement", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDNodeID, "NodeId", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDStatusCode, "StatusCode", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDQualifiedName, "QualifiedName", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDLocalizedText, "LocalizedText", ua.DataTypeIDBaseDataType, false},
	{ua.DataTypeIDDuration, "Duration", ua.DataTypeIDDouble, false},
	{ua.DataTypeIDUtcTime, "UtcTime", ua.DataTypeIDDateTime, false},
	{ua.DataTypeIDServerState, "ServerState", ua.DataTypeIDEnumeration, false},
}

// demo variables, writable unless noted
var demoVariables = []struct {
	name     string
	dataType ua.NodeID
	value    ua.Variant
	readOnly bool
}{
	{"Channel1.Device1.Tag1", ua.DataTypeIDInt32, int32(0), false},
	{"Channel1.Device1.Tag2", ua.DataTypeIDInt32, int32(0), false},
	{"Demo.Boolean", ua.DataTypeIDBoolean, false, false},
	{"Demo.SByte", ua.DataTypeIDSByte, int8(0), false},
	{"Demo.Byte", ua.DataTypeIDByte, uint8(0), false},
	{"Demo.Int16", ua.DataTypeIDInt16, int16(0), false},
	{"Demo.UInt16", ua.DataTypeIDUInt16, uint16(0), false},
	{"Demo.Int32", ua.DataTypeIDInt32, int32(0), false},
	{"Demo.UInt32", ua.DataTypeIDUInt32, uint32(0), false},
	{"Demo.Int64", ua.DataTypeIDInt64, int64(0), false},
	{"Demo.UInt64", ua.DataTypeIDUInt64, uint64(0), false},
	{"Demo.Float", ua.DataTypeIDFloat, float32(0), false},
	{"Demo.Double", ua.DataTypeIDDouble, float64(0), false},
	{"Demo.String", ua.DataTypeIDString, "", false},
	{"Demo.DateTime", ua.DataTypeIDDateTime, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), false},
	{"Demo.Guid", ua.DataTypeIDGUID, uuid.Nil, false},
	{"Demo.ByteString", ua.DataTypeIDByteString, ua.ByteString(""), false},
	{"Demo.XmlElement", ua.DataTypeIDXMLElement, ua.XMLElement("<a/>"), false},
	{"Demo.NodeId", ua.DataTypeIDNodeID, ua.NewNodeIDNumeric(0, 85), false},
	{"Demo.StatusCode", ua.DataTypeIDStatusCode, ua.Good, false},
	{"Demo.QualifiedName", ua.DataTypeIDQualifiedName, ua.QualifiedName{}, false},
	{"Demo.LocalizedText", ua.DataTypeIDLocalizedText, ua.LocalizedText{}, false},
	{"Demo.Temperature", DataTypeIDTemperature, float64(20.5), false},
	{"Demo.BatchNumber", DataTypeIDBatchNumber, uint32(1), false},
	{"Demo.Duration", ua.DataTypeIDDuration, float64(1000), false},
	{"Demo.ReadOnly", ua.DataTypeIDString, "read only", true},
	{"Demo.StringArray", ua.DataTypeIDString, []string{"a", "b", "c"}, true},
}

// initializeNamespace populates the address space with the standard types, the server object
// and the demo variables.
func (srv *Server) initializeNamespace() error {
	nm := srv.namespaceManager
	nm.Add(srv.applicationURI)
	nm.Add(NamespaceURI)

	nodes := []Node{
		NewObjectNode(ua.ObjectIDObjectsFolder, ua.QualifiedName{Name: "Objects"}, ua.LocalizedText{Text: "Objects"}, nil),
		NewObjectNode(ua.ObjectIDServer, ua.QualifiedName{Name: "Server"}, ua.LocalizedText{Text: "Server"}, []Reference{
			NewReference(ua.ReferenceTypeIDOrganizes, true, ua.ObjectIDObjectsFolder),
		}),
	}
	for _, t := range standardDataTypes {
		nodes = append(nodes, NewDataTypeNode(t.id, ua.QualifiedName{Name: t.name}, t.super, t.abstract))
	}
	nodes = append(nodes,
		NewDataTypeNode(DataTypeIDAnalogValue, ua.QualifiedName{NamespaceIndex: 2, Name: "AnalogValueType"}, ua.DataTypeIDDouble, false),
		NewDataTypeNode(DataTypeIDTemperature, ua.QualifiedName{NamespaceIndex: 2, Name: "TemperatureType"}, DataTypeIDAnalogValue, false),
		NewDataTypeNode(DataTypeIDBatchNumber, ua.QualifiedName{NamespaceIndex: 2, Name: "BatchNumberType"}, ua.DataTypeIDUInt32, false),
	)

	now := time.Now().UTC()
	serverVariable := func(id ua.NodeID, name string, dataType ua.NodeID, h func(context.Context) ua.DataValue) *VariableNode {
		n := NewVariableNode(id, ua.QualifiedName{Name: name}, []Reference{
			NewReference(ua.ReferenceTypeIDHasComponent, true, ua.ObjectIDServer),
		}, ua.DataValue{}, dataType, ua.AccessLevelsCurrentRead)
		n.SetReadValueHandler(h)
		return n
	}
	nodes = append(nodes,
		serverVariable(ua.VariableIDServerNamespaceArray, "NamespaceArray", ua.DataTypeIDString, func(context.Context) ua.DataValue {
			return ua.NewDataValue(nm.NamespaceUris(), ua.Good, now, 0, time.Now().UTC(), 0)
		}),
		serverVariable(ua.VariableIDServerServerArray, "ServerArray", ua.DataTypeIDString, func(context.Context) ua.DataValue {
			return ua.NewDataValue([]string{srv.applicationURI}, ua.Good, now, 0, time.Now().UTC(), 0)
		}),
		serverVariable(ua.VariableIDServerServerStatusStartTime, "StartTime", ua.DataTypeIDUtcTime, func(context.Context) ua.DataValue {
			return ua.NewDataValue(srv.startTime, ua.Good, now, 0, time.Now().UTC(), 0)
		}),
		serverVariable(ua.VariableIDServerServerStatusCurrentTime, "CurrentTime", ua.DataTypeIDUtcTime, func(context.Context) ua.DataValue {
			t := time.Now().UTC()
			return ua.NewDataValue(t, ua.Good, t, 0, t, 0)
		}),
		serverVariable(ua.VariableIDServerServerStatusState, "State", ua.DataTypeIDServerState, func(context.Context) ua.DataValue {
			return ua.NewDataValue(int32(srv.State()), ua.Good, now, 0, time.Now().UTC(), 0)
		}),
	)

	for _, v := range demoVariables {
		access := ua.AccessLevelsCurrentRead | ua.AccessLevelsCurrentWrite
		if v.readOnly {
			access = ua.AccessLevelsCurrentRead
		}
		nodes = append(nodes, NewVariableNode(
			ua.NewNodeIDString(2, v.name),
			ua.QualifiedName{NamespaceIndex: 2, Name: v.name},
			[]Reference{NewReference(ua.ReferenceTypeIDOrganizes, true, ua.ObjectIDObjectsFolder)},
			ua.NewDataValue(v.value, ua.Good, now, 0, now, 0),
			v.dataType,
			access,
		))
	}

	// counts 0 to 99, one step per ramp interval
	ramp := NewVariableNode(
		ua.NewNodeIDString(2, "Demo.Ramp"),
		ua.QualifiedName{NamespaceIndex: 2, Name: "Demo.Ramp"},
		[]Reference{NewReference(ua.ReferenceTypeIDOrganizes, true, ua.ObjectIDObjectsFolder)},
		ua.DataValue{},
		ua.DataTypeIDInt32,
		ua.AccessLevelsCurrentRead,
	)
	ramp.SetReadValueHandler(func(context.Context) ua.DataValue {
		t := time.Now().UTC()
		return ua.NewDataValue(int32(t.Sub(srv.startTime)/srv.rampInterval%100), ua.Good, t, 0, t, 0)
	})
	nodes = append(nodes, ramp)

	return nm.AddNodes(nodes...)
}
