// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"net/url"
	"os"

	"github.com/awcullen/uahelper/ua"
	"github.com/rs/zerolog"
)

// CertificateValidator validates the certificate of a server endpoint.
// By default every server certificate is accepted, and any problem found is logged.
// Endpoints with security mode None carry no trust, so their certificate is not checked.
type CertificateValidator struct {
	TrustedCertsFile        string
	RejectUntrusted         bool
	SuppressHostNameInvalid bool
	logger                  zerolog.Logger
}

// Validate validates the server certificate of the endpoint. An endpoint without a certificate is accepted.
func (v *CertificateValidator) Validate(endpoint ua.EndpointDescription) error {
	if len(endpoint.ServerCertificate) == 0 || endpoint.SecurityMode == ua.MessageSecurityModeNone {
		return nil
	}
	err := v.check(endpoint)
	if err != nil && !v.RejectUntrusted {
		v.logger.Warn().Err(err).Str("endpoint", endpoint.EndpointURL).Msg("accepting server certificate")
		return nil
	}
	return err
}

func (v *CertificateValidator) check(endpoint ua.EndpointDescription) error {
	certificate, err := x509.ParseCertificate([]byte(endpoint.ServerCertificate))
	if err != nil {
		return ua.BadCertificateInvalid
	}
	var hostname string
	if u, err := url.Parse(endpoint.EndpointURL); err == nil && !v.SuppressHostNameInvalid {
		hostname = u.Hostname()
	}
	return validateServerCertificate(certificate, hostname, v.TrustedCertsFile)
}

// validateServerCertificate validates the certificate of the server.
func validateServerCertificate(certificate *x509.Certificate, hostname string, trustedCertsFile string) error {
	var intermediates, roots *x509.CertPool
	add := func(cert *x509.Certificate) {
		// is self-signed?
		if bytes.Equal(cert.RawIssuer, cert.RawSubject) {
			if roots == nil {
				roots = x509.NewCertPool()
			}
			roots.AddCert(cert)
			return
		}
		if intermediates == nil {
			intermediates = x509.NewCertPool()
		}
		intermediates.AddCert(cert)
	}
	if trustedCertsFile != "" {
		if buf, err := os.ReadFile(trustedCertsFile); err == nil {
			for len(buf) > 0 {
				var block *pem.Block
				block, buf = pem.Decode(buf)
				if block == nil {
					// maybe its der
					if cert, err := x509.ParseCertificate(buf); err == nil {
						add(cert)
					}
					break
				}
				if block.Type != "CERTIFICATE" || len(block.Headers) != 0 {
					continue
				}
				if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
					add(cert)
				}
			}
		}
	}
	if roots == nil {
		roots = x509.NewCertPool()
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSName:       hostname,
	}

	// build chain and verify
	if _, err := certificate.Verify(opts); err != nil {
		switch se := err.(type) {
		case x509.CertificateInvalidError:
			switch se.Reason {
			case x509.Expired:
				return ua.BadCertificateTimeInvalid
			case x509.IncompatibleUsage:
				return ua.BadCertificateUseNotAllowed
			default:
				return ua.BadSecurityChecksFailed
			}
		case x509.HostnameError:
			return ua.BadCertificateHostNameInvalid
		case x509.UnknownAuthorityError:
			return ua.BadCertificateUntrusted
		default:
			return ua.BadSecurityChecksFailed
		}
	}
	return nil
}
