// Package quic carries bundle shares over QUIC.
package quic

import (
	"context"
	"net"
	"time"

	q "github.com/quic-go/quic-go"
)

// DefaultIdleTimeout closes connections that stay silent this long.
const DefaultIdleTimeout = 30 * time.Second

// Connection and Stream are the quic-go types the share layer works with.
type (
	Connection = q.Connection
	Stream     = q.Stream
)

func config() *q.Config {
	return &q.Config{
		MaxIdleTimeout:  DefaultIdleTimeout,
		KeepAlivePeriod: DefaultIdleTimeout / 3,
	}
}

type Listener struct {
	inner *q.Listener
}

// Listen starts a QUIC listener on addr, e.g. ":7443" or "127.0.0.1:0".
func Listen(addr string) (*Listener, error) {
	tlsConf, err := NewServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, config())
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

func (l *Listener) Accept(ctx context.Context) (Connection, error) {
	return l.inner.Accept(ctx)
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) Close() error { return l.inner.Close() }

// Dial connects to a listener started by Listen.
func Dial(ctx context.Context, addr string) (Connection, error) {
	return q.DialAddr(ctx, addr, NewClientTLSConfig(), config())
}
