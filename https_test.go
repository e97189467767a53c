package channel

import (
	"crypto/x509"
	"testing"

	"github.com/indigo-web/channel/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/acme"
)

func TestAutoHTTPS(t *testing.T) {
	t.Run("localhost", func(t *testing.T) {
		tr := AutoHTTPS()
		require.NoError(t, tr.error)
		tlsTransport, ok := tr.inner.(*transport.TLS)
		require.True(t, ok)
		require.Equal(t, []string{"http/1.1"}, tlsTransport.NextProtos())
	})

	t.Run("self-signed certificate", func(t *testing.T) {
		cert, err := selfSignedCert([]string{"localhost", "127.0.0.1"})
		require.NoError(t, err)
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		require.NoError(t, err)
		require.NoError(t, parsed.VerifyHostname("localhost"))
		require.NoError(t, parsed.VerifyHostname("127.0.0.1"))
	})

	t.Run("public domain", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", t.TempDir())
		tr := AutoHTTPS("example.com")
		require.NoError(t, tr.error)
		tlsTransport, ok := tr.inner.(*transport.TLS)
		require.True(t, ok)
		require.Equal(t, []string{"http/1.1", acme.ALPNProto}, tlsTransport.NextProtos())
	})
}
