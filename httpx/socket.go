package httpx

import (
	"context"
	"crypto/tls"
	"net"
)

// ServerSocketFactory creates the listening socket.
type ServerSocketFactory interface {
	Listen(addr string) (net.Listener, error)
}

// DefaultSocketFactory binds a TCP listener with SO_REUSEADDR set where the
// platform supports it.
type DefaultSocketFactory struct{}

func (DefaultSocketFactory) Listen(addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	return lc.Listen(context.Background(), "tcp", addr)
}

// SecureSocketFactory wraps the listener of Base (DefaultSocketFactory when
// nil) with TLS.
type SecureSocketFactory struct {
	Config *tls.Config
	Base   ServerSocketFactory
}

// NewSecureSocketFactory loads a PEM certificate and key pair.
func NewSecureSocketFactory(certFile, keyFile string) (*SecureSocketFactory, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return &SecureSocketFactory{Config: &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}}, nil
}

func (f *SecureSocketFactory) Listen(addr string) (net.Listener, error) {
	base := f.Base
	if base == nil {
		base = DefaultSocketFactory{}
	}
	ln, err := base.Listen(addr)
	if err != nil {
		return nil, err
	}
	return tls.NewListener(ln, f.Config), nil
}
