package exception

import "github.com/yanun0323/errors"

var (
	ErrConnection      = errors.New("connection failed")
	ErrStreamClosed    = errors.New("stream closed")
	ErrInvalidArgument = errors.New("invalid argument")
)
