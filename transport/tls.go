package transport

import (
	"crypto/tls"
	"net"
	"slices"
)

// TLS accepts connections over TLS. Unless the config says otherwise, the only protocol
// advertised via ALPN is http/1.1.
type TLS struct {
	config *tls.Config
	TCP
}

func NewTLS(certs ...tls.Certificate) *TLS {
	return NewTLSConfig(&tls.Config{Certificates: certs})
}

// NewTLSConfig uses the config as is, except for the missing NextProtos. The config must
// not be modified afterward.
func NewTLSConfig(config *tls.Config) *TLS {
	config = config.Clone()
	if len(config.NextProtos) == 0 {
		config.NextProtos = []string{"http/1.1"}
	}

	return &TLS{config: config}
}

// NextProtos returns the protocols advertised via ALPN.
func (t *TLS) NextProtos() []string {
	return slices.Clone(t.config.NextProtos)
}

func (t *TLS) Bind(addr string) error {
	tcp, err := bindTCP(addr)
	if err != nil {
		return err
	}

	t.TCP = newTCP(tlsListener{
		TCPListener: tcp,
		tls:         tls.NewListener(tcp, t.config),
	})

	return nil
}

// tlsListener accepts via the TLS listener, but keeps SetDeadline of the underlying one,
// so the accept loop can be interrupted.
type tlsListener struct {
	*net.TCPListener
	tls net.Listener
}

func (t tlsListener) Accept() (net.Conn, error) {
	return t.tls.Accept()
}

func (t tlsListener) Close() error {
	return t.tls.Close()
}
