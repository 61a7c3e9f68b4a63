package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/noxpeteam/TXPacker/txpacker/bundle"
	"github.com/noxpeteam/TXPacker/txpacker/identity"
	"github.com/noxpeteam/TXPacker/txpacker/protocol"
	"github.com/noxpeteam/TXPacker/txpacker/transport/quic"
)

// closeTimeout bounds the CLOSE exchange at the end of a connection.
const closeTimeout = 2 * time.Second

var (
	ErrUnexpectedReply = errors.New("share: unexpected reply")
	ErrUntrusted       = errors.New("share: bundle publisher not trusted")
)

type fetchConfig struct {
	key       []byte
	publisher *identity.PublisherID
}

type FetchOption func(*fetchConfig)

// WithKey supplies the key for sealed bundles.
func WithKey(key []byte) FetchOption {
	return func(c *fetchConfig) { c.key = key }
}

// WithPublisher only accepts bundles signed by id.
func WithPublisher(id identity.PublisherID) FetchOption {
	return func(c *fetchConfig) { c.publisher = &id }
}

// Result is a fetched and verified bundle payload.
type Result struct {
	Header bundle.Header
	Data   []byte
}

func openStream(ctx context.Context, addr string, req protocol.Frame) (quic.Connection, quic.Stream, error) {
	conn, err := quic.Dial(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("share: dial %s: %w", addr, err)
	}
	str, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = str.SetDeadline(deadline)
	}
	if err := protocol.WriteFrame(str, req); err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, nil, err
	}
	// One request per stream.
	_ = str.Close()
	return conn, str, nil
}

// hangUp sends CLOSE on a fresh stream, waits for the server to close its
// side and then closes the connection.
func hangUp(conn quic.Connection) {
	defer conn.CloseWithError(0, "")
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	str, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return
	}
	_ = str.SetDeadline(time.Now().Add(closeTimeout))
	if err := protocol.WriteFrame(str, protocol.Frame{Type: protocol.MessageTypeClose}); err != nil {
		return
	}
	_ = str.Close()
	_, _ = io.Copy(io.Discard, str)
}

func remoteError(f protocol.Frame) error {
	var em protocol.ErrorMessage
	if err := f.Decode(protocol.MessageTypeError, &em); err != nil {
		return err
	}
	if em.Code == protocol.CodeNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, em.Message)
	}
	return fmt.Errorf("share: remote: %w", em)
}

// Fetch downloads a bundle by name, verifies it chunk by chunk against its
// Merkle root and returns the payload.
func Fetch(ctx context.Context, addr, name string, opts ...FetchOption) (Result, error) {
	cfg := fetchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	req, err := protocol.NewFrame(protocol.MessageTypeRequest, protocol.Request{Name: name})
	if err != nil {
		return Result{}, err
	}
	conn, str, err := openStream(ctx, addr, req)
	if err != nil {
		return Result{}, err
	}
	defer hangUp(conn)
	stop := context.AfterFunc(ctx, func() { str.CancelRead(0) })
	defer stop()

	frame, err := protocol.ReadFrame(str)
	if err != nil {
		return Result{}, err
	}
	switch frame.Type {
	case protocol.MessageTypeError:
		return Result{}, remoteError(frame)
	case protocol.MessageTypeBundle:
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnexpectedReply, frame.Type)
	}

	header, err := bundle.DecodeHeader(frame.Payload)
	if err != nil {
		return Result{}, err
	}
	if err := checkPublisher(header, cfg.publisher); err != nil {
		return Result{}, err
	}

	rx, err := bundle.NewReceiver(header, cfg.key)
	if err != nil {
		return Result{}, err
	}
	for !rx.Complete() {
		batch, err := bundle.ReadBatch(str)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Result{}, fmt.Errorf("%w: %d chunks missing", bundle.ErrIncomplete, len(rx.Missing()))
			}
			return Result{}, err
		}
		if err := rx.ReceiveBatch(batch); err != nil {
			return Result{}, err
		}
	}
	data, err := rx.Assemble()
	if err != nil {
		return Result{}, err
	}
	return Result{Header: header, Data: data}, nil
}

func checkPublisher(h bundle.Header, want *identity.PublisherID) error {
	if h.Signed() {
		if err := h.Verify(); err != nil {
			return err
		}
	}
	if want == nil {
		return nil
	}
	if !h.Signed() || h.Publisher != want.String() {
		return fmt.Errorf("%w: got %q", ErrUntrusted, h.Publisher)
	}
	return nil
}

// List asks a server for its catalog.
func List(ctx context.Context, addr string) ([]protocol.CatalogEntry, error) {
	req, err := protocol.NewFrame(protocol.MessageTypeList, nil)
	if err != nil {
		return nil, err
	}
	conn, str, err := openStream(ctx, addr, req)
	if err != nil {
		return nil, err
	}
	defer hangUp(conn)

	frame, err := protocol.ReadFrame(str)
	if err != nil {
		return nil, err
	}
	if frame.Type == protocol.MessageTypeError {
		return nil, remoteError(frame)
	}
	var cat protocol.Catalog
	if err := frame.Decode(protocol.MessageTypeCatalog, &cat); err != nil {
		return nil, err
	}
	return cat.Entries, nil
}
