package exception

import "github.com/yanun0323/errors"

// Order book decoding errors
var (
	// ErrParse is returned for malformed numbers or structurally invalid messages.
	ErrParse = errors.New("market data: parse error")

	// ErrInsufficientDepth is returned when a side carries fewer levels than required.
	ErrInsufficientDepth = errors.New("market data: insufficient depth")
)
