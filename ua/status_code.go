// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import "fmt"

// StatusCode is the result of a service or operation.
type StatusCode uint32

const (
	severityMask      uint32 = 0xC0000000
	severityBad       uint32 = 0x80000000
	severityUncertain uint32 = 0x40000000
)

// IsGood returns true if the StatusCode is good.
func (c StatusCode) IsGood() bool {
	return uint32(c)&severityMask == 0
}

// IsBad returns true if the StatusCode is bad.
func (c StatusCode) IsBad() bool {
	return uint32(c)&severityBad != 0
}

// IsUncertain returns true if the StatusCode is uncertain.
func (c StatusCode) IsUncertain() bool {
	return uint32(c)&severityMask == severityUncertain
}

// Error implements the error interface.
func (c StatusCode) Error() string {
	return c.String()
}

// String returns the symbolic name of the StatusCode, or its hex value.
func (c StatusCode) String() string {
	if s, ok := statusCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("0x%08X", uint32(c))
}

// StatusCodes used by this package.
const (
	Good                          StatusCode = 0x00000000
	Uncertain                     StatusCode = 0x40000000
	Bad                           StatusCode = 0x80000000
	BadUnexpectedError            StatusCode = 0x80010000
	BadInternalError              StatusCode = 0x80020000
	BadCommunicationError         StatusCode = 0x80050000
	BadEncodingError              StatusCode = 0x80060000
	BadTimeout                    StatusCode = 0x800A0000
	BadServiceUnsupported         StatusCode = 0x800B0000
	BadShutdown                   StatusCode = 0x800C0000
	BadServerNotConnected         StatusCode = 0x800D0000
	BadServerHalted               StatusCode = 0x800E0000
	BadNothingToDo                StatusCode = 0x800F0000
	BadTooManyOperations          StatusCode = 0x80100000
	BadTooManySessions            StatusCode = 0x80560000
	BadDataTypeIDUnknown          StatusCode = 0x80110000
	BadCertificateInvalid         StatusCode = 0x80120000
	BadSecurityChecksFailed       StatusCode = 0x80130000
	BadCertificateTimeInvalid     StatusCode = 0x80140000
	BadCertificateHostNameInvalid StatusCode = 0x80160000
	BadCertificateUseNotAllowed   StatusCode = 0x80180000
	BadCertificateUntrusted       StatusCode = 0x801A0000
	BadUserAccessDenied           StatusCode = 0x801F0000
	BadIdentityTokenInvalid       StatusCode = 0x80200000
	BadIdentityTokenRejected      StatusCode = 0x80210000
	BadSecureChannelIDInvalid     StatusCode = 0x80220000
	BadSessionIDInvalid           StatusCode = 0x80250000
	BadSessionClosed              StatusCode = 0x80260000
	BadSessionNotActivated        StatusCode = 0x80270000
	BadSubscriptionIDInvalid      StatusCode = 0x80280000
	BadNoCommunication            StatusCode = 0x80310000
	BadWaitingForInitialData      StatusCode = 0x80320000
	BadNodeIDInvalid              StatusCode = 0x80330000
	BadNodeIDUnknown              StatusCode = 0x80340000
	BadNodeIDExists               StatusCode = 0x805E0000
	BadAttributeIDInvalid         StatusCode = 0x80350000
	BadNotReadable                StatusCode = 0x803A0000
	BadNotWritable                StatusCode = 0x803B0000
	BadMonitoredItemIDInvalid     StatusCode = 0x80420000
	BadTypeMismatch               StatusCode = 0x80740000
	BadTooManySubscriptions       StatusCode = 0x80770000
	BadTooManyPublishRequests     StatusCode = 0x80780000
	BadNoSubscription             StatusCode = 0x80790000
	BadSequenceNumberUnknown      StatusCode = 0x807A0000
	BadTCPEndpointURLInvalid      StatusCode = 0x80830000
	BadSecureChannelClosed        StatusCode = 0x80860000
	BadNotConnected               StatusCode = 0x808A0000
	BadInvalidArgument            StatusCode = 0x80AB0000
	BadConnectionClosed           StatusCode = 0x80AE0000
	BadInvalidState               StatusCode = 0x80AF0000
	BadCertificateChainIncomplete StatusCode = 0x810D0000
)

var statusCodeNames = map[StatusCode]string{
	Good:                          "Good",
	Uncertain:                     "Uncertain",
	Bad:                           "Bad",
	BadUnexpectedError:            "BadUnexpectedError",
	BadInternalError:              "BadInternalError",
	BadCommunicationError:         "BadCommunicationError",
	BadEncodingError:              "BadEncodingError",
	BadTimeout:                    "BadTimeout",
	BadServiceUnsupported:         "BadServiceUnsupported",
	BadShutdown:                   "BadShutdown",
	BadServerNotConnected:         "BadServerNotConnected",
	BadServerHalted:               "BadServerHalted",
	BadNothingToDo:                "BadNothingToDo",
	BadTooManyOperations:          "BadTooManyOperations",
	BadTooManySessions:            "BadTooManySessions",
	BadDataTypeIDUnknown:          "BadDataTypeIdUnknown",
	BadCertificateInvalid:         "BadCertificateInvalid",
	BadSecurityChecksFailed:       "BadSecurityChecksFailed",
	BadCertificateTimeInvalid:     "BadCertificateTimeInvalid",
	BadCertificateHostNameInvalid: "BadCertificateHostNameInvalid",
	BadCertificateUseNotAllowed:   "BadCertificateUseNotAllowed",
	BadCertificateUntrusted:       "BadCertificateUntrusted",
	BadUserAccessDenied:           "BadUserAccessDenied",
	BadIdentityTokenInvalid:       "BadIdentityTokenInvalid",
	BadIdentityTokenRejected:      "BadIdentityTokenRejected",
	BadSecureChannelIDInvalid:     "BadSecureChannelIdInvalid",
	BadSessionIDInvalid:           "BadSessionIdInvalid",
	BadSessionClosed:              "BadSessionClosed",
	BadSessionNotActivated:        "BadSessionNotActivated",
	BadSubscriptionIDInvalid:      "BadSubscriptionIdInvalid",
	BadNoCommunication:            "BadNoCommunication",
	BadWaitingForInitialData:      "BadWaitingForInitialData",
	BadNodeIDInvalid:              "BadNodeIdInvalid",
	BadNodeIDUnknown:              "BadNodeIdUnknown",
	BadNodeIDExists:               "BadNodeIdExists",
	BadAttributeIDInvalid:         "BadAttributeIdInvalid",
	BadNotReadable:                "BadNotReadable",
	BadNotWritable:                "BadNotWritable",
	BadMonitoredItemIDInvalid:     "BadMonitoredItemIdInvalid",
	BadTypeMismatch:               "BadTypeMismatch",
	BadTooManySubscriptions:       "BadTooManySubscriptions",
	BadTooManyPublishRequests:     "BadTooManyPublishRequests",
	BadSequenceNumberUnknown:      "BadSequenceNumberUnknown",
	BadNoSubscription:             "BadNoSubscription",
	BadTCPEndpointURLInvalid:      "BadTcpEndpointUrlInvalid",
	BadSecureChannelClosed:        "BadSecureChannelClosed",
	BadNotConnected:               "BadNotConnected",
	BadInvalidArgument:            "BadInvalidArgument",
	BadConnectionClosed:           "BadConnectionClosed",
	BadInvalidState:               "BadInvalidState",
	BadCertificateChainIncomplete: "BadCertificateChainIncomplete",
}
