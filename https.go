package channel

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/indigo-web/channel/transport"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// AutoHTTPS obtains certificates from Let's Encrypt for the domains. If there are no domains
// or all of them are local, a self-signed certificate is generated instead. Connections
// negotiated for the ACME TLS-ALPN challenge are answered during the handshake and closed
// right after.
func AutoHTTPS(domains ...string) Transport {
	if allLocal(domains) {
		cert, err := selfSignedCert(domains)
		if err != nil {
			return Transport{error: err}
		}

		return HTTPS(cert)
	}

	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
	}

	cache := cacheDir()
	if err := os.MkdirAll(cache, 0700); err == nil {
		m.Cache = autocert.DirCache(cache)
	}

	config := m.TLSConfig()
	config.NextProtos = []string{"http/1.1", acme.ALPNProto}

	return Transport{inner: transport.NewTLSConfig(config)}
}

func allLocal(domains []string) bool {
	for _, domain := range domains {
		switch domain {
		case "localhost", "127.0.0.1", "::1":
		default:
			return false
		}
	}

	return true
}

func selfSignedCert(hosts []string) (tls.Certificate, error) {
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(now.UnixNano()),
		Subject:               pkix.Name{Organization: []string{"Localhost"}},
		NotBefore:             now,
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	if h := os.Getenv("HOME"); h != "" {
		return h
	}

	return "/"
}

func cacheDir() string {
	const base = "golang-autocert"

	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, base)
	}

	return filepath.Join(homeDir(), ".cache", base)
}
