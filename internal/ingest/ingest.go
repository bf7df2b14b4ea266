// Package ingest runs the UDP receive loop: one read per datagram, handed
// off to a goroutine that tries each configured decode.Handler in turn and
// publishes whatever the first successful one produces.
package ingest

import (
	"context"
	"fmt"
	"net"

	"netflow-collector/internal/decode"
	"netflow-collector/internal/logging"
	"netflow-collector/internal/publish"
	"netflow-collector/pkg/flowrecord"
)

const maxDatagramSize = 65535

// Server owns the UDP socket and the handler/publisher chains applied to
// every datagram it receives.
type Server struct {
	addr       string
	bufferSize int
	handlers   []decode.Handler
	publishers []publish.Publisher
	log        *logging.Logger
}

// New creates a Server listening on addr (host:port, host may be empty for
// all interfaces). Handlers are tried in order per datagram; the first one
// to decode successfully wins and the rest are skipped. Publishers all see
// every batch that comes out of a successful decode.
func New(addr string, bufferSize int, handlers []decode.Handler, publishers []publish.Publisher, log *logging.Logger) *Server {
	return &Server{
		addr:       addr,
		bufferSize: bufferSize,
		handlers:   handlers,
		publishers: publishers,
		log:        log,
	}
}

// Run listens until ctx is cancelled. It spawns one goroutine per received
// datagram; there is no worker pool and no backpressure, matching the
// collector's stated tolerance for best-effort delivery over strict
// ordering or flow control.
func (s *Server) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("ingest: resolve %s: %w", s.addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("ingest: listen %s: %w", s.addr, err)
	}
	defer conn.Close()

	if s.bufferSize > 0 {
		if err := conn.SetReadBuffer(s.bufferSize); err != nil {
			s.log.Warnf("ingest: could not set read buffer to %d: %v", s.bufferSize, err)
		}
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.log.Infof("ingest: listening on %s", s.addr)

	buf := make([]byte, maxDatagramSize)
	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.Warnf("ingest: read error: %v", err)
				continue
			}
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		go s.handle(payload, peer)
	}
}

func (s *Server) handle(payload []byte, peer *net.UDPAddr) {
	var records []*flowrecord.Record
	var lastErr error
	decoded := false

	for _, h := range s.handlers {
		recs, err := h.Decode(payload, peer)
		if err != nil {
			s.log.Warnf("ingest: %s could not decode datagram from %s: %v", h, peer, err)
			lastErr = err
			continue
		}
		records = recs
		decoded = true
		break
	}

	if !decoded {
		s.log.Warnf("ingest: no handler decoded datagram from %s: %v", peer, lastErr)
		return
	}

	for _, p := range s.publishers {
		if err := p.Publish(records); err != nil {
			s.log.Errorf("ingest: publisher %s failed: %v", p, err)
		}
	}
}
