// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/pkg/errors"
)

const (
	schemeOpcTCP     = "opc.tcp"
	discoverySuffix  = "/discovery"
	discoveryTimeout = 5 * time.Second
)

// SelectEndpoint finds the endpoint that best matches the discovery url and the security requirement.
// Among the endpoints with the scheme of the url and the requested security, the first one is chosen,
// unless a later one has a higher security level. If none match, the first endpoint is returned.
// The host and port of the chosen endpoint are replaced by the host and port of the discovery url,
// so servers behind a firewall or NAT stay reachable.
func SelectEndpoint(ctx context.Context, transport Transport, discoveryURL string, useSecurity bool) (ua.EndpointDescription, error) {
	// needs to add the '/discovery' back onto non-UA TCP URLs.
	if !strings.HasPrefix(discoveryURL, schemeOpcTCP) && !strings.HasSuffix(discoveryURL, discoverySuffix) {
		discoveryURL += discoverySuffix
	}
	uri, err := url.Parse(discoveryURL)
	if err != nil {
		return ua.EndpointDescription{}, errors.Wrapf(err, "parse discovery url %q", discoveryURL)
	}

	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()
	res, err := GetEndpoints(ctx, transport, &ua.GetEndpointsRequest{EndpointURL: discoveryURL})
	if err != nil {
		return ua.EndpointDescription{}, errors.Wrap(err, "get endpoints")
	}
	if len(res.Endpoints) == 0 {
		return ua.EndpointDescription{}, &NoEndpointError{DiscoveryURL: discoveryURL}
	}

	var selected *ua.EndpointDescription
	for i := range res.Endpoints {
		e := &res.Endpoints[i]
		if !strings.HasPrefix(e.EndpointURL, uri.Scheme) {
			continue
		}
		if useSecurity == (e.SecurityMode == ua.MessageSecurityModeNone) {
			continue
		}
		if selected == nil || e.SecurityLevel > selected.SecurityLevel {
			selected = e
		}
	}
	if selected == nil {
		selected = &res.Endpoints[0]
	}

	endpoint := *selected
	if u, err := url.Parse(endpoint.EndpointURL); err == nil && u.Scheme == uri.Scheme {
		u.Host = uri.Host
		endpoint.EndpointURL = u.String()
	}
	return endpoint, nil
}
