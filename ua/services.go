// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import "time"

// RequestHeader is the common header of every service request.
type RequestHeader struct {
	AuthenticationToken NodeID
	Timestamp           time.Time
	RequestHandle       uint32
	TimeoutHint         uint32
}

// ResponseHeader is the common header of every service response.
type ResponseHeader struct {
	Timestamp     time.Time
	RequestHandle uint32
	ServiceResult StatusCode
}

// ServiceRequest is a request for a service.
type ServiceRequest interface {
	Header() *RequestHeader
}

// ServiceResponse is a response from a service.
type ServiceResponse interface {
	Header() *ResponseHeader
}

// ApplicationDescription describes an application.
type ApplicationDescription struct {
	ApplicationURI  string
	ProductURI      string
	ApplicationName LocalizedText
	ApplicationType ApplicationType
	DiscoveryURLs   []string
}

// UserTokenPolicy describes an identity token the server accepts.
type UserTokenPolicy struct {
	PolicyID          string
	TokenType         UserTokenType
	SecurityPolicyURI string
}

// EndpointDescription describes an endpoint of a server.
type EndpointDescription struct {
	EndpointURL         string
	Server              ApplicationDescription
	ServerCertificate   ByteString
	SecurityMode        MessageSecurityMode
	SecurityPolicyURI   string
	UserIdentityTokens  []UserTokenPolicy
	TransportProfileURI string
	SecurityLevel       byte
}

// GetEndpointsRequest requests the endpoints of a server.
type GetEndpointsRequest struct {
	RequestHeader RequestHeader
	EndpointURL   string
	ProfileURIs   []string
}

// Header returns the request header.
func (r *GetEndpointsRequest) Header() *RequestHeader { return &r.RequestHeader }

// GetEndpointsResponse returns the endpoints of a server.
type GetEndpointsResponse struct {
	ResponseHeader ResponseHeader
	Endpoints      []EndpointDescription
}

// Header returns the response header.
func (r *GetEndpointsResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// CreateSessionRequest requests a new session.
type CreateSessionRequest struct {
	RequestHeader           RequestHeader
	ClientDescription       ApplicationDescription
	EndpointURL             string
	SessionName             string
	RequestedSessionTimeout float64
}

// Header returns the request header.
func (r *CreateSessionRequest) Header() *RequestHeader { return &r.RequestHeader }

// CreateSessionResponse returns the ids of a new session.
type CreateSessionResponse struct {
	ResponseHeader        ResponseHeader
	SessionID             NodeID
	AuthenticationToken   NodeID
	RevisedSessionTimeout float64
	ServerCertificate     ByteString
	ServerEndpoints       []EndpointDescription
}

// Header returns the response header.
func (r *CreateSessionResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// AnonymousIdentityToken is the identity token of an anonymous user.
type AnonymousIdentityToken struct {
	PolicyID string
}

// UserNameIdentityToken is the identity token of a user name and password.
type UserNameIdentityToken struct {
	PolicyID string
	UserName string
	Password ByteString
}

// ActivateSessionRequest activates a session, possibly on a new channel.
// UserIdentityToken is an AnonymousIdentityToken or a UserNameIdentityToken.
type ActivateSessionRequest struct {
	RequestHeader     RequestHeader
	UserIdentityToken interface{}
	LocaleIDs         []string
}

// Header returns the request header.
func (r *ActivateSessionRequest) Header() *RequestHeader { return &r.RequestHeader }

// ActivateSessionResponse is the response to ActivateSession.
type ActivateSessionResponse struct {
	ResponseHeader ResponseHeader
}

// Header returns the response header.
func (r *ActivateSessionResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// CloseSessionRequest closes a session.
type CloseSessionRequest struct {
	RequestHeader       RequestHeader
	DeleteSubscriptions bool
}

// Header returns the request header.
func (r *CloseSessionRequest) Header() *RequestHeader { return &r.RequestHeader }

// CloseSessionResponse is the response to CloseSession.
type CloseSessionResponse struct {
	ResponseHeader ResponseHeader
}

// Header returns the response header.
func (r *CloseSessionResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// ReadValueID identifies an attribute of a node.
type ReadValueID struct {
	NodeID      NodeID
	AttributeID uint32
	IndexRange  string
}

// ReadRequest reads attributes of one or more nodes.
type ReadRequest struct {
	RequestHeader      RequestHeader
	MaxAge             float64
	TimestampsToReturn TimestampsToReturn
	NodesToRead        []ReadValueID
}

// Header returns the request header.
func (r *ReadRequest) Header() *RequestHeader { return &r.RequestHeader }

// ReadResponse returns one DataValue per node, in request order.
type ReadResponse struct {
	ResponseHeader ResponseHeader
	Results        []DataValue
}

// Header returns the response header.
func (r *ReadResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// WriteValue is an attribute value to write.
type WriteValue struct {
	NodeID      NodeID
	AttributeID uint32
	IndexRange  string
	Value       DataValue
}

// WriteRequest writes attributes of one or more nodes.
type WriteRequest struct {
	RequestHeader RequestHeader
	NodesToWrite  []WriteValue
}

// Header returns the request header.
func (r *WriteRequest) Header() *RequestHeader { return &r.RequestHeader }

// WriteResponse returns one StatusCode per node, in request order.
type WriteResponse struct {
	ResponseHeader ResponseHeader
	Results        []StatusCode
}

// Header returns the response header.
func (r *WriteResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// BrowseDirection selects the references returned by Browse.
type BrowseDirection uint32

// BrowseDirections
const (
	BrowseDirectionForward BrowseDirection = iota
	BrowseDirectionInverse
	BrowseDirectionBoth
)

// BrowseDescription describes the references of one node to browse.
type BrowseDescription struct {
	NodeID          NodeID
	BrowseDirection BrowseDirection
	ReferenceTypeID NodeID
	IncludeSubtypes bool
}

// BrowseRequest browses the references of one or more nodes.
type BrowseRequest struct {
	RequestHeader RequestHeader
	NodesToBrowse []BrowseDescription
}

// Header returns the request header.
func (r *BrowseRequest) Header() *RequestHeader { return &r.RequestHeader }

// ReferenceDescription is a reference found by Browse.
type ReferenceDescription struct {
	ReferenceTypeID NodeID
	IsForward       bool
	NodeID          NodeID
}

// BrowseResult is the result of browsing one node.
type BrowseResult struct {
	StatusCode StatusCode
	References []ReferenceDescription
}

// BrowseResponse returns one result per node, in request order.
type BrowseResponse struct {
	ResponseHeader ResponseHeader
	Results        []BrowseResult
}

// Header returns the response header.
func (r *BrowseResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// CreateSubscriptionRequest creates a subscription.
type CreateSubscriptionRequest struct {
	RequestHeader               RequestHeader
	RequestedPublishingInterval float64
	RequestedLifetimeCount      uint32
	RequestedMaxKeepAliveCount  uint32
	MaxNotificationsPerPublish  uint32
	PublishingEnabled           bool
	Priority                    byte
}

// Header returns the request header.
func (r *CreateSubscriptionRequest) Header() *RequestHeader { return &r.RequestHeader }

// CreateSubscriptionResponse returns the id and revised parameters of a subscription.
type CreateSubscriptionResponse struct {
	ResponseHeader            ResponseHeader
	SubscriptionID            uint32
	RevisedPublishingInterval float64
	RevisedLifetimeCount      uint32
	RevisedMaxKeepAliveCount  uint32
}

// Header returns the response header.
func (r *CreateSubscriptionResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// DeleteSubscriptionsRequest deletes subscriptions.
type DeleteSubscriptionsRequest struct {
	RequestHeader   RequestHeader
	SubscriptionIDs []uint32
}

// Header returns the request header.
func (r *DeleteSubscriptionsRequest) Header() *RequestHeader { return &r.RequestHeader }

// DeleteSubscriptionsResponse is the response to DeleteSubscriptions.
type DeleteSubscriptionsResponse struct {
	ResponseHeader ResponseHeader
	Results        []StatusCode
}

// Header returns the response header.
func (r *DeleteSubscriptionsResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// TransferSubscriptionsRequest moves subscriptions to the session of the request.
type TransferSubscriptionsRequest struct {
	RequestHeader     RequestHeader
	SubscriptionIDs   []uint32
	SendInitialValues bool
}

// Header returns the request header.
func (r *TransferSubscriptionsRequest) Header() *RequestHeader { return &r.RequestHeader }

// TransferResult is the result of transferring one subscription.
type TransferResult struct {
	StatusCode               StatusCode
	AvailableSequenceNumbers []uint32
}

// TransferSubscriptionsResponse is the response to TransferSubscriptions.
type TransferSubscriptionsResponse struct {
	ResponseHeader ResponseHeader
	Results        []TransferResult
}

// Header returns the response header.
func (r *TransferSubscriptionsResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// MonitoringParameters of a monitored item.
type MonitoringParameters struct {
	ClientHandle     uint32
	SamplingInterval float64
	QueueSize        uint32
	DiscardOldest    bool
}

// MonitoredItemCreateRequest describes a monitored item to create.
type MonitoredItemCreateRequest struct {
	ItemToMonitor       ReadValueID
	MonitoringMode      MonitoringMode
	RequestedParameters MonitoringParameters
}

// MonitoredItemCreateResult is the result of creating one monitored item.
type MonitoredItemCreateResult struct {
	StatusCode              StatusCode
	MonitoredItemID         uint32
	RevisedSamplingInterval float64
	RevisedQueueSize        uint32
}

// CreateMonitoredItemsRequest creates monitored items in a subscription.
type CreateMonitoredItemsRequest struct {
	RequestHeader      RequestHeader
	SubscriptionID     uint32
	TimestampsToReturn TimestampsToReturn
	ItemsToCreate      []MonitoredItemCreateRequest
}

// Header returns the request header.
func (r *CreateMonitoredItemsRequest) Header() *RequestHeader { return &r.RequestHeader }

// CreateMonitoredItemsResponse returns one result per item, in request order.
type CreateMonitoredItemsResponse struct {
	ResponseHeader ResponseHeader
	Results        []MonitoredItemCreateResult
}

// Header returns the response header.
func (r *CreateMonitoredItemsResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// DeleteMonitoredItemsRequest deletes monitored items of a subscription.
type DeleteMonitoredItemsRequest struct {
	RequestHeader    RequestHeader
	SubscriptionID   uint32
	MonitoredItemIDs []uint32
}

// Header returns the request header.
func (r *DeleteMonitoredItemsRequest) Header() *RequestHeader { return &r.RequestHeader }

// DeleteMonitoredItemsResponse is the response to DeleteMonitoredItems.
type DeleteMonitoredItemsResponse struct {
	ResponseHeader ResponseHeader
	Results        []StatusCode
}

// Header returns the response header.
func (r *DeleteMonitoredItemsResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// SubscriptionAcknowledgement acknowledges a notification message.
type SubscriptionAcknowledgement struct {
	SubscriptionID uint32
	SequenceNumber uint32
}

// PublishRequest acknowledges messages and asks for the next notification message.
type PublishRequest struct {
	RequestHeader                RequestHeader
	SubscriptionAcknowledgements []SubscriptionAcknowledgement
}

// Header returns the request header.
func (r *PublishRequest) Header() *RequestHeader { return &r.RequestHeader }

// DataChangeNotification carries changed values of monitored items.
type DataChangeNotification struct {
	MonitoredItems []MonitoredItemNotification
}

// MonitoredItemNotification is a changed value of a monitored item.
type MonitoredItemNotification struct {
	ClientHandle uint32
	Value        DataValue
}

// StatusChangeNotification reports a change of the subscription status.
type StatusChangeNotification struct {
	Status StatusCode
}

// NotificationMessage is a message of a subscription.
// NotificationData holds *DataChangeNotification and *StatusChangeNotification values.
// A message without data is a keep-alive.
type NotificationMessage struct {
	SequenceNumber   uint32
	PublishTime      time.Time
	NotificationData []interface{}
}

// PublishResponse returns a notification message.
type PublishResponse struct {
	ResponseHeader           ResponseHeader
	SubscriptionID           uint32
	AvailableSequenceNumbers []uint32
	MoreNotifications        bool
	NotificationMessage      NotificationMessage
	Results                  []StatusCode
}

// Header returns the response header.
func (r *PublishResponse) Header() *ResponseHeader { return &r.ResponseHeader }

// UserIdentity is the identity the client presents when activating a session.
// It is an AnonymousIdentity or a UserNameIdentity.
type UserIdentity interface{}

// AnonymousIdentity is an anonymous user.
type AnonymousIdentity struct{}

// UserNameIdentity is a user name and password.
type UserNameIdentity struct {
	UserName string
	Password string
}

// ServiceFault is returned when a service fails as a whole.
type ServiceFault struct {
	ResponseHeader ResponseHeader
}

// Header returns the response header.
func (r *ServiceFault) Header() *ResponseHeader { return &r.ResponseHeader }
