package websocket

import (
	"strings"
	"time"

	"aggregator/pkg/exception"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

// MessageType represents a WebSocket message type.
// Values match RFC 6455 opcodes.
type MessageType uint8

const (
	// MessageText is a text data frame.
	MessageText MessageType = websocket.TextMessage
	// MessageBinary is a binary data frame.
	MessageBinary MessageType = websocket.BinaryMessage
	// MessageClose is a close control frame.
	MessageClose MessageType = websocket.CloseMessage
	// MessagePing is a ping control frame.
	MessagePing MessageType = websocket.PingMessage
	// MessagePong is a pong control frame.
	MessagePong MessageType = websocket.PongMessage
)

func (t MessageType) IsData() bool {
	return t == MessageText || t == MessageBinary
}

// CloseCode is a WebSocket close code.
type CloseCode uint16

const (
	// CloseNormal indicates a normal closure.
	CloseNormal CloseCode = websocket.CloseNormalClosure
	// CloseGoingAway is sent when the client shuts down.
	CloseGoingAway CloseCode = websocket.CloseGoingAway
)

// OverflowPolicy defines queue behavior when full.
type OverflowPolicy uint8

const (
	// OverflowBlock blocks until space is available.
	OverflowBlock OverflowPolicy = iota
	// OverflowDropNewest drops the incoming item if the queue is full.
	OverflowDropNewest
	// OverflowDropOldest drops the oldest item to make room.
	OverflowDropOldest
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowBlock:
		return "block"
	case OverflowDropNewest:
		return "dropNewest"
	case OverflowDropOldest:
		return "dropOldest"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy accepts the names returned by OverflowPolicy.String, case insensitive.
// An empty name selects OverflowBlock.
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "block":
		return OverflowBlock, nil
	case "dropnewest", "drop_newest":
		return OverflowDropNewest, nil
	case "dropoldest", "drop_oldest":
		return OverflowDropOldest, nil
	default:
		return 0, errors.Wrapf(exception.ErrInvalidArgument, "overflow policy %q", name)
	}
}

// Backoff defines reconnect backoff behavior.
type Backoff struct {
	// Min is the minimum backoff duration.
	Min time.Duration
	// Max is the maximum backoff duration.
	Max time.Duration
	// Factor multiplies the delay for each retry attempt.
	Factor float64
	// Jitter adds randomization as a fraction of the delay (0-1).
	Jitter float64
}
