// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"

	"github.com/awcullen/uahelper/ua"
)

// GetEndpoints returns the endpoint descriptions supported by the server.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.4.4/
func GetEndpoints(ctx context.Context, transport Transport, request *ua.GetEndpointsRequest) (*ua.GetEndpointsResponse, error) {
	response, err := transport.GetEndpoints(ctx, request)
	if err != nil {
		return nil, err
	}
	if result := response.ResponseHeader.ServiceResult; result.IsBad() {
		return nil, result
	}
	return response, nil
}

// createSession creates a new session with the server.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.6.2/
func (s *Session) createSession(ctx context.Context, request *ua.CreateSessionRequest) (*ua.CreateSessionResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CreateSessionResponse), nil
}

// activateSession activates a session with the server.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.6.3/
func (s *Session) activateSession(ctx context.Context, request *ua.ActivateSessionRequest) (*ua.ActivateSessionResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.ActivateSessionResponse), nil
}

// closeSession closes a session with the server.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.6.4/
func (s *Session) closeSession(ctx context.Context, request *ua.CloseSessionRequest) (*ua.CloseSessionResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CloseSessionResponse), nil
}

// Browse discovers the References of a specified Node.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.8.2/
func (s *Session) Browse(ctx context.Context, request *ua.BrowseRequest) (*ua.BrowseResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.BrowseResponse), nil
}

// Read returns values of Attributes of one or more Nodes.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.10.2/
func (s *Session) Read(ctx context.Context, request *ua.ReadRequest) (*ua.ReadResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.ReadResponse), nil
}

// Write sets values of Attributes of one or more Nodes.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.10.4/
func (s *Session) Write(ctx context.Context, request *ua.WriteRequest) (*ua.WriteResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.WriteResponse), nil
}

// CreateMonitoredItems creates and adds one or more MonitoredItems to a Subscription.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.12.2/
func (s *Session) CreateMonitoredItems(ctx context.Context, request *ua.CreateMonitoredItemsRequest) (*ua.CreateMonitoredItemsResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CreateMonitoredItemsResponse), nil
}

// DeleteMonitoredItems removes one or more MonitoredItems of a Subscription.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.12.6/
func (s *Session) DeleteMonitoredItems(ctx context.Context, request *ua.DeleteMonitoredItemsRequest) (*ua.DeleteMonitoredItemsResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.DeleteMonitoredItemsResponse), nil
}

// CreateSubscription creates a Subscription.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.13.2/
func (s *Session) CreateSubscription(ctx context.Context, request *ua.CreateSubscriptionRequest) (*ua.CreateSubscriptionResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CreateSubscriptionResponse), nil
}

// Publish acknowledges NotificationMessages and requests the next NotificationMessage.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.13.5/
func (s *Session) Publish(ctx context.Context, request *ua.PublishRequest) (*ua.PublishResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.PublishResponse), nil
}

// TransferSubscriptions transfers Subscriptions and their MonitoredItems from one Session to another.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.13.7/
func (s *Session) TransferSubscriptions(ctx context.Context, request *ua.TransferSubscriptionsRequest) (*ua.TransferSubscriptionsResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.TransferSubscriptionsResponse), nil
}

// DeleteSubscriptions deletes one or more Subscriptions.
// See https://reference.opcfoundation.org/v104/Core/docs/Part4/5.13.8/
func (s *Session) DeleteSubscriptions(ctx context.Context, request *ua.DeleteSubscriptionsRequest) (*ua.DeleteSubscriptionsResponse, error) {
	response, err := s.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.DeleteSubscriptionsResponse), nil
}
