// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

// DataTypeIDs of the standard data types.
var (
	DataTypeIDBoolean        = NewNodeIDNumeric(0, 1)
	DataTypeIDSByte          = NewNodeIDNumeric(0, 2)
	DataTypeIDByte           = NewNodeIDNumeric(0, 3)
	DataTypeIDInt16          = NewNodeIDNumeric(0, 4)
	DataTypeIDUInt16         = NewNodeIDNumeric(0, 5)
	DataTypeIDInt32          = NewNodeIDNumeric(0, 6)
	DataTypeIDUInt32         = NewNodeIDNumeric(0, 7)
	DataTypeIDInt64          = NewNodeIDNumeric(0, 8)
	DataTypeIDUInt64         = NewNodeIDNumeric(0, 9)
	DataTypeIDFloat          = NewNodeIDNumeric(0, 10)
	DataTypeIDDouble         = NewNodeIDNumeric(0, 11)
	DataTypeIDString         = NewNodeIDNumeric(0, 12)
	DataTypeIDDateTime       = NewNodeIDNumeric(0, 13)
	DataTypeIDGUID           = NewNodeIDNumeric(0, 14)
	DataTypeIDByteString     = NewNodeIDNumeric(0, 15)
	DataTypeIDXMLElement     = NewNodeIDNumeric(0, 16)
	DataTypeIDNodeID         = NewNodeIDNumeric(0, 17)
	DataTypeIDExpandedNodeID = NewNodeIDNumeric(0, 18)
	DataTypeIDStatusCode     = NewNodeIDNumeric(0, 19)
	DataTypeIDQualifiedName  = NewNodeIDNumeric(0, 20)
	DataTypeIDLocalizedText  = NewNodeIDNumeric(0, 21)
	DataTypeIDStructure      = NewNodeIDNumeric(0, 22)
	DataTypeIDDataValue      = NewNodeIDNumeric(0, 23)
	DataTypeIDBaseDataType   = NewNodeIDNumeric(0, 24)
	DataTypeIDDiagnosticInfo = NewNodeIDNumeric(0, 25)
	DataTypeIDNumber         = NewNodeIDNumeric(0, 26)
	DataTypeIDInteger        = NewNodeIDNumeric(0, 27)
	DataTypeIDUInteger       = NewNodeIDNumeric(0, 28)
	DataTypeIDEnumeration    = NewNodeIDNumeric(0, 29)
	DataTypeIDImage          = NewNodeIDNumeric(0, 30)
	DataTypeIDDecimal        = NewNodeIDNumeric(0, 50)
	DataTypeIDIntegerID      = NewNodeIDNumeric(0, 288)
	DataTypeIDCounter        = NewNodeIDNumeric(0, 289)
	DataTypeIDDuration       = NewNodeIDNumeric(0, 290)
	DataTypeIDNumericRange   = NewNodeIDNumeric(0, 291)
	DataTypeIDTime           = NewNodeIDNumeric(0, 292)
	DataTypeIDDate           = NewNodeIDNumeric(0, 293)
	DataTypeIDUtcTime        = NewNodeIDNumeric(0, 294)
	DataTypeIDLocaleID       = NewNodeIDNumeric(0, 295)
	DataTypeIDServerState    = NewNodeIDNumeric(0, 852)
	DataTypeIDImageBMP       = NewNodeIDNumeric(0, 2000)
	DataTypeIDImageGIF       = NewNodeIDNumeric(0, 2001)
	DataTypeIDImageJPG       = NewNodeIDNumeric(0, 2002)
	DataTypeIDImagePNG       = NewNodeIDNumeric(0, 2003)
)

// VariableIDs of the server object used by the client.
var (
	VariableIDServerServerArray             = NewNodeIDNumeric(0, 2254)
	VariableIDServerNamespaceArray          = NewNodeIDNumeric(0, 2255)
	VariableIDServerServerStatusStartTime   = NewNodeIDNumeric(0, 2257)
	VariableIDServerServerStatusCurrentTime = NewNodeIDNumeric(0, 2258)
	VariableIDServerServerStatusState       = NewNodeIDNumeric(0, 2259)
)

// ReferenceTypeIDs
var (
	ReferenceTypeIDOrganizes    = NewNodeIDNumeric(0, 35)
	ReferenceTypeIDHasSubtype   = NewNodeIDNumeric(0, 45)
	ReferenceTypeIDHasComponent = NewNodeIDNumeric(0, 47)
)

// ObjectIDs
var (
	ObjectIDObjectsFolder = NewNodeIDNumeric(0, 85)
	ObjectIDServer        = NewNodeIDNumeric(0, 2253)
)

// AttributeIDs
const (
	AttributeIDNodeID          uint32 = 1
	AttributeIDNodeClass       uint32 = 2
	AttributeIDBrowseName      uint32 = 3
	AttributeIDDisplayName     uint32 = 4
	AttributeIDDescription     uint32 = 5
	AttributeIDValue           uint32 = 13
	AttributeIDDataType        uint32 = 14
	AttributeIDValueRank       uint32 = 15
	AttributeIDAccessLevel     uint32 = 17
	AttributeIDUserAccessLevel uint32 = 18
)

// AccessLevels
const (
	AccessLevelsCurrentRead  byte = 0x01
	AccessLevelsCurrentWrite byte = 0x02
)

// SecurityPolicyURIs
const (
	SecurityPolicyURINone                = "http://opcfoundation.org/UA/SecurityPolicy#None"
	SecurityPolicyURIBasic128Rsa15       = "http://opcfoundation.org/UA/SecurityPolicy#Basic128Rsa15"
	SecurityPolicyURIBasic256            = "http://opcfoundation.org/UA/SecurityPolicy#Basic256"
	SecurityPolicyURIBasic256Sha256      = "http://opcfoundation.org/UA/SecurityPolicy#Basic256Sha256"
	SecurityPolicyURIAes128Sha256RsaOaep = "http://opcfoundation.org/UA/SecurityPolicy#Aes128_Sha256_RsaOaep"
	SecurityPolicyURIAes256Sha256RsaPss  = "http://opcfoundation.org/UA/SecurityPolicy#Aes256_Sha256_RsaPss"
)

// TransportProfileURIUaTcpTransport is the profile of the binary tcp transport.
const TransportProfileURIUaTcpTransport = "http://opcfoundation.org/UA-Profile/Transport/uatcp-uasc-uabinary"

// MessageSecurityMode selects signing and encryption of messages.
type MessageSecurityMode uint32

// MessageSecurityModes
const (
	MessageSecurityModeInvalid MessageSecurityMode = iota
	MessageSecurityModeNone
	MessageSecurityModeSign
	MessageSecurityModeSignAndEncrypt
)

func (m MessageSecurityMode) String() string {
	switch m {
	case MessageSecurityModeNone:
		return "None"
	case MessageSecurityModeSign:
		return "Sign"
	case MessageSecurityModeSignAndEncrypt:
		return "SignAndEncrypt"
	}
	return "Invalid"
}

// UserTokenType is the kind of user identity token.
type UserTokenType uint32

// UserTokenTypes
const (
	UserTokenTypeAnonymous UserTokenType = iota
	UserTokenTypeUserName
	UserTokenTypeCertificate
	UserTokenTypeIssuedToken
)

// ApplicationType is the kind of application.
type ApplicationType uint32

// ApplicationTypes
const (
	ApplicationTypeServer ApplicationType = iota
	ApplicationTypeClient
	ApplicationTypeClientAndServer
	ApplicationTypeDiscoveryServer
)

// TimestampsToReturn selects the timestamps returned with a value.
type TimestampsToReturn uint32

// TimestampsToReturn values
const (
	TimestampsToReturnSource TimestampsToReturn = iota
	TimestampsToReturnServer
	TimestampsToReturnBoth
	TimestampsToReturnNeither
)

// MonitoringMode of a monitored item.
type MonitoringMode uint32

// MonitoringModes
const (
	MonitoringModeDisabled MonitoringMode = iota
	MonitoringModeSampling
	MonitoringModeReporting
)

// ServerState of the server status variable.
type ServerState int32

// ServerStates
const (
	ServerStateRunning ServerState = iota
	ServerStateFailed
	ServerStateNoConfiguration
	ServerStateSuspended
	ServerStateShutdown
	ServerStateTest
	ServerStateCommunicationFault
	ServerStateUnknown
)

// NodeClass of a node.
type NodeClass int32

// NodeClasses
const (
	NodeClassUnspecified NodeClass = 0
	NodeClassObject      NodeClass = 1
	NodeClassVariable    NodeClass = 2
	NodeClassDataType    NodeClass = 64
)
