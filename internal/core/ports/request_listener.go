package ports

import (
	"context"

	"go.remake.sh/remake/internal/core/domain"
)

// RequestListener accepts client requests over the IPC channel (spec
// §4.8) and delivers them on a channel the scheduler multiplexes
// alongside job completions.
//
//go:generate go run go.uber.org/mock/mockgen -source=request_listener.go -destination=mocks/mock_request_listener.go -package=mocks
type RequestListener interface {
	// Listen starts accepting connections and returns a channel of decoded
	// requests. The channel closes when ctx is cancelled or the listener
	// is closed.
	Listen(ctx context.Context) (<-chan domain.Request, error)

	// Addr returns the address clients should connect to (e.g. a unix
	// socket path), for exporting via REMAKE_SOCKET.
	Addr() string

	Close() error
}
