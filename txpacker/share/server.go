package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noxpeteam/TXPacker/txpacker/bundle"
	"github.com/noxpeteam/TXPacker/txpacker/protocol"
	"github.com/noxpeteam/TXPacker/txpacker/transport/quic"
)

// DefaultStreamTimeout bounds how long one request may take.
const DefaultStreamTimeout = 2 * time.Minute

// Server answers REQUEST and LIST frames from its catalog. Each stream
// carries exactly one request. A CLOSE stream gets no reply; the stream is
// closed once the frame is read.
type Server struct {
	catalog *Catalog
	logger  *slog.Logger
	timeout time.Duration
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithStreamTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewServer(catalog *Catalog, opts ...ServerOption) *Server {
	s := &Server{
		catalog: catalog,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: DefaultStreamTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts connections until ctx is done, then waits for in-flight
// requests. It returns nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln *quic.Listener) error {
	s.logger.InfoContext(ctx, "serving bundles", "addr", ln.Addr().String(), "bundles", len(s.catalog.List()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			conn, err := ln.Accept(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("share: accept: %w", err)
			}
			g.Go(func() error {
				s.handleConn(gctx, conn)
				return nil
			})
		}
	})
	return g.Wait()
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := quic.Listen(addr)
	if err != nil {
		return fmt.Errorf("share: listen %s: %w", addr, err)
	}
	defer ln.Close()
	return s.Serve(ctx, ln)
}

func (s *Server) handleConn(ctx context.Context, conn quic.Connection) {
	logger := s.logger.With("remote", conn.RemoteAddr().String())
	logger.DebugContext(ctx, "connection accepted")

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		str, err := conn.AcceptStream(ctx)
		if err != nil {
			logger.DebugContext(ctx, "connection done", "err", err)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleStream(ctx, logger, str)
		}()
	}
}

func (s *Server) handleStream(ctx context.Context, logger *slog.Logger, str quic.Stream) {
	defer str.Close()
	_ = str.SetDeadline(time.Now().Add(s.timeout))
	stop := context.AfterFunc(ctx, func() {
		str.CancelRead(0)
		str.CancelWrite(0)
	})
	defer stop()

	frame, err := protocol.ReadFrame(str)
	if err != nil {
		logger.WarnContext(ctx, "read request", "err", err)
		return
	}

	switch frame.Type {
	case protocol.MessageTypeClose:
		logger.DebugContext(ctx, "peer closing")
	case protocol.MessageTypeList:
		err = s.sendCatalog(str)
	case protocol.MessageTypeRequest:
		err = s.sendBundle(ctx, logger, str, frame)
	default:
		err = sendError(str, protocol.CodeBadRequest, "unexpected "+frame.Type.String())
	}
	if err != nil {
		logger.WarnContext(ctx, "request failed", "type", frame.Type.String(), "err", err)
	}
}

func (s *Server) sendCatalog(w io.Writer) error {
	f, err := protocol.NewFrame(protocol.MessageTypeCatalog, protocol.Catalog{Entries: s.catalog.List()})
	if err != nil {
		return err
	}
	return protocol.WriteFrame(w, f)
}

func (s *Server) sendBundle(ctx context.Context, logger *slog.Logger, w io.Writer, frame protocol.Frame) error {
	var req protocol.Request
	if err := frame.Decode(protocol.MessageTypeRequest, &req); err != nil {
		return errors.Join(err, sendError(w, protocol.CodeBadRequest, "malformed request"))
	}

	bd, err := s.catalog.Lookup(req.Name)
	if err != nil {
		logger.InfoContext(ctx, "bundle not found", "name", req.Name)
		return sendError(w, protocol.CodeNotFound, req.Name)
	}

	payload, err := bundle.EncodeHeader(bd.Header)
	if err != nil {
		return errors.Join(err, sendError(w, protocol.CodeInternal, "encode header"))
	}
	if err := protocol.WriteFrame(w, protocol.Frame{Type: protocol.MessageTypeBundle, Payload: payload}); err != nil {
		return err
	}
	if err := bundle.WriteChunks(w, bd.Chunks); err != nil {
		return err
	}
	logger.InfoContext(ctx, "bundle sent", "name", req.Name, "bytes", bd.EncodedSize(), "chunks", len(bd.Chunks))
	return nil
}

func sendError(w io.Writer, code, msg string) error {
	f, err := protocol.NewFrame(protocol.MessageTypeError, protocol.ErrorMessage{Code: code, Message: msg})
	if err != nil {
		return err
	}
	return protocol.WriteFrame(w, f)
}
