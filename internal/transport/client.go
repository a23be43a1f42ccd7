package transport

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ashureev/tradebot/internal/domain"
)

var (
	// ErrClosed is returned once the client has been shut down for good.
	ErrClosed = errors.New("transport: client closed")
	// ErrNotConnected is returned when sending without a live connection.
	ErrNotConnected = errors.New("transport: not connected")
)

// Client is the network client the bot drives. Connect is asynchronous: its outcome
// arrives as a ConnectedEvent. Loss of the connection arrives as a DisconnectedEvent.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Send(ctx context.Context, msg Message) error
	// WaitForNextEvent blocks until an event is available or ctx is done.
	WaitForNextEvent(ctx context.Context) (Event, error)
}

// FriendLister is implemented by clients that cache the friends list.
type FriendLister interface {
	Friends() []domain.SteamID
}

// TransportError marks a transient network fault.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a network-level fault that is worth waiting out.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
