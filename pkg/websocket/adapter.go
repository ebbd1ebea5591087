package websocket

import "context"

// Conn is a minimal interface for a WebSocket connection.
//
// Read returns the next data message. Control frames are handled by the
// implementation: pings are answered with a pong before Read continues.
// The returned payload is only valid until the next call to Read.
type Conn interface {
	Read(ctx context.Context) (MessageType, []byte, error)
	Write(ctx context.Context, msgType MessageType, payload []byte) error
	Close(code CloseCode, reason string) error
}

// Dialer creates new connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}
