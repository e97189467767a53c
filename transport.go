package channel

import (
	"crypto/tls"
	"errors"

	"github.com/indigo-web/channel/transport"
)

var (
	ErrBadCertificate = errors.New("one or more passed certificates are empty")
	ErrNoCertificates = errors.New("no certificates were passed")
)

// Transport is the kind of a listener the application accepts connections with.
type Transport struct {
	inner transport.Listener
	error error
}

// TCP accepts plain-text connections.
func TCP() Transport {
	return Transport{inner: transport.NewTCP()}
}

// TLS loads the key pair from files and accepts connections over TLS.
func TLS(cert, key string) Transport {
	c, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		// there's no way to report it at this point. The error is returned once the
		// application binds its listeners
		return Transport{error: err}
	}

	return HTTPS(c)
}

// HTTPS accepts connections over TLS using already loaded certificates.
func HTTPS(certs ...tls.Certificate) Transport {
	switch {
	case len(certs) == 0:
		return Transport{error: ErrNoCertificates}
	case !noEmptyCerts(certs):
		return Transport{error: ErrBadCertificate}
	}

	return Transport{inner: transport.NewTLS(certs...)}
}

// Cert loads the key pair. In case of an error an empty certificate is returned,
// which is reported on the application start.
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
