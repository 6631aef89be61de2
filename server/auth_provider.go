// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"github.com/awcullen/uahelper/ua"
	"golang.org/x/crypto/bcrypt"
)

// UserNameIdentityAuthenticator authenticates UserNameIdentity.
type UserNameIdentityAuthenticator interface {
	// AuthenticateUserNameIdentity returns nil when user identity is authenticated, or BadUserAccessDenied otherwise.
	AuthenticateUserNameIdentity(userIdentity ua.UserNameIdentity, endpointURL string) error
}

// AuthenticateUserNameIdentityFunc authenticates UserNameIdentity.
type AuthenticateUserNameIdentityFunc func(userIdentity ua.UserNameIdentity, endpointURL string) error

// AuthenticateUserNameIdentity ...
func (f AuthenticateUserNameIdentityFunc) AuthenticateUserNameIdentity(userIdentity ua.UserNameIdentity, endpointURL string) error {
	return f(userIdentity, endpointURL)
}

// bcryptAuthenticator checks passwords against bcrypt hashes.
type bcryptAuthenticator map[string][]byte

func (a bcryptAuthenticator) AuthenticateUserNameIdentity(userIdentity ua.UserNameIdentity, endpointURL string) error {
	hash, ok := a[userIdentity.UserName]
	if !ok {
		// spend the same time as for a known user
		bcrypt.CompareHashAndPassword(dummyHash, []byte(userIdentity.Password))
		return ua.BadUserAccessDenied
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(userIdentity.Password)); err != nil {
		return ua.BadUserAccessDenied
	}
	return nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("uahelper"), bcrypt.MinCost)
