package exception

import "github.com/yanun0323/errors"

// WS errors
var (
	ErrWebSocketConnectionClose = errors.New("websocket: connection closed")
	ErrWebSocketProtocol        = errors.New("websocket: protocol error")
	ErrWebSocketHandshake       = errors.New("websocket: handshake failed")
	ErrReconnectRequested       = errors.New("websocket: server requested reconnect")
)
