package ember

import (
	"crypto/tls"
	"errors"
	"net"
	"slices"

	"github.com/indigo-web/ember/transport"
)

var (
	ErrBadCertificate = errors.New("one or more passed certificates are empty")
	ErrNoCertificates = errors.New("no certificates were passed")
)

// Transport is a kind of listener the App serves HTTP over.
type Transport struct {
	inner transport.Transport
	// error is reported once the App binds its listeners, as there's no way to report it
	// at the construction time.
	error error
}

// TCP is a plain-text transport.
func TCP() Transport {
	return Transport{inner: transport.NewTCP()}
}

// TLS loads the PEM-encoded key pair and serves HTTPS with it.
func TLS(cert, key string) Transport {
	cfg, err := transport.LoadCertificate(cert, key)
	if err != nil {
		return Transport{error: err}
	}

	return Transport{inner: transport.NewTLS(cfg)}
}

// HTTPS serves HTTPS using the certificates.
func HTTPS(certs ...tls.Certificate) Transport {
	switch {
	case len(certs) == 0:
		return Transport{error: ErrNoCertificates}
	case !noEmptyCerts(certs):
		return Transport{error: ErrBadCertificate}
	}

	return Transport{inner: transport.NewTLS(transport.Certificates(certs...))}
}

// AutoHTTPS obtains certificates for the domains from Let's Encrypt. If no domains are passed
// or all of them are local, a self-signed certificate is generated instead.
func AutoHTTPS(domains ...string) Transport {
	if allLocal(domains) {
		cert, err := transport.SelfSigned(slices.Concat(domains, []string{"localhost", "127.0.0.1", "::1"})...)
		if err != nil {
			return Transport{error: err}
		}

		return HTTPS(cert)
	}

	cfg, err := transport.AutoTLS("", domains...)
	if err != nil {
		return Transport{error: err}
	}

	return Transport{inner: transport.NewTLS(cfg)}
}

// Cert loads the key pair. In case of an error an empty certificate is returned, which
// is reported on starting the application.
func Cert(cert, key string) tls.Certificate {
	c, _ := tls.LoadX509KeyPair(cert, key)
	return c
}

func noEmptyCerts(certs []tls.Certificate) bool {
	for _, c := range certs {
		if c.Certificate == nil {
			return false
		}
	}

	return true
}

func allLocal(domains []string) bool {
	for _, domain := range domains {
		if domain == "localhost" {
			continue
		}

		if ip := net.ParseIP(domain); ip == nil || !ip.IsLoopback() {
			return false
		}
	}

	return true
}
