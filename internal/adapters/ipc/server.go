// Package ipc implements the Unix-socket wire protocol of spec §4.8: a
// per-connection goroutine decodes one request and hands it to the
// scheduler's single goroutine over a channel, and a client-mode dialer
// posts one request and waits for the one-byte reply. Grounded on the
// teacher's own UDS daemon adapter (internal/adapters/daemon/{server,client}.go)
// for the listen/accept/cleanup shape, generalized from gRPC framing to
// this domain's flat byte protocol.
package ipc

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"os"

	"go.trai.ch/zerr"
	"golang.org/x/sync/semaphore"

	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/core/ports"
)

// maxInFlightConns bounds the number of concurrently accepted connections
// being decoded at once, independent of -j's job-parallelism cap: a job
// waiting on its own recursive request still holds a connection open, so
// this only guards against unbounded goroutine growth under a pathological
// flood of client connections, not against ordinary recursive-build depth.
const maxInFlightConns = 256

// Normaliser turns a raw wire target string into a domain.Target.
type Normaliser interface {
	Normalise(raw string) domain.Target
}

// Listener implements ports.RequestListener over a Unix domain stream
// socket. Every accepted connection is served by its own goroutine that
// decodes exactly one request (spec §4.8's accept loop has no concept of
// keep-alive: a client makes one request per connection) and forwards it
// on a shared channel read by the scheduler's single goroutine.
type Listener struct {
	path       string
	normaliser Normaliser
	logger     ports.Logger
	ln         net.Listener
	conns      *semaphore.Weighted
}

var _ ports.RequestListener = (*Listener)(nil)

// Listen creates the socket at path, removing any stale file left behind
// by a prior, uncleanly terminated server before net.Listen.
func Listen(path string, normaliser Normaliser, logger ports.Logger) (*Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, zerr.Wrap(err, "failed to remove stale socket")
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to listen on socket")
	}
	return &Listener{
		path:       path,
		normaliser: normaliser,
		logger:     logger,
		ln:         ln,
		conns:      semaphore.NewWeighted(maxInFlightConns),
	}, nil
}

// Addr returns the socket path clients should connect to.
func (l *Listener) Addr() string {
	return l.path
}

// Close closes the listener and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	_ = os.Remove(l.path)
	return err
}

// Listen starts accepting connections in a background goroutine and
// returns the channel of decoded requests. It closes the channel once
// the listener itself is closed or ctx is cancelled.
func (l *Listener) Listen(ctx context.Context) (<-chan domain.Request, error) {
	out := make(chan domain.Request)

	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	go func() {
		defer close(out)
		for {
			conn, err := l.ln.Accept()
			if err != nil {
				return
			}
			if err := l.conns.Acquire(ctx, 1); err != nil {
				_ = conn.Close()
				return
			}
			go l.serve(conn, out)
		}
	}()

	return out, nil
}

// serve decodes one request off conn per spec §4.8's accept algorithm
// and forwards it on out. The reply is deferred to the scheduler by way
// of the connReplier passed on domain.Request.Reply; serve itself never
// writes to conn.
func (l *Listener) serve(conn net.Conn, out chan<- domain.Request) {
	defer l.conns.Release(1)

	jobID, targets, err := decodeRequest(conn)
	if err != nil {
		l.logger.Warn("malformed client request: " + err.Error())
		_ = conn.Close()
		return
	}

	normalised := make(domain.Targets, len(targets))
	for i, raw := range targets {
		normalised[i] = l.normaliser.Normalise(raw)
	}

	out <- domain.Request{
		JobID:   jobID,
		Targets: normalised,
		Reply:   &connReplier{conn: conn},
	}
}

// decodeRequest reads the 4-byte little-endian job id followed by
// NUL-terminated target names, stopping at the extra empty target (two
// NULs in a row), exactly spec §4.8's request format.
func decodeRequest(r io.Reader) (jobID int, targets []string, err error) {
	br := bufio.NewReader(r)

	var raw [4]byte
	if _, err := io.ReadFull(br, raw[:]); err != nil {
		return 0, nil, zerr.Wrap(err, "failed to read job id")
	}
	jobID = int(int32(binary.LittleEndian.Uint32(raw[:])))

	for {
		word, err := br.ReadString(0)
		if err != nil {
			return 0, nil, zerr.Wrap(err, "failed to read target")
		}
		word = word[:len(word)-1] // drop the trailing NUL
		if word == "" {
			return jobID, targets, nil
		}
		targets = append(targets, word)
	}
}

// connReplier writes spec §4.8's one-byte reply and closes the
// connection, satisfying domain.Replier.
type connReplier struct {
	conn net.Conn
}

func (r *connReplier) Reply(success bool) error {
	defer r.conn.Close()
	b := byte(0)
	if success {
		b = 1
	}
	_, err := r.conn.Write([]byte{b})
	return err
}
