package ingest

import (
	"context"

	"aggregator/internal/model/enum"
)

// Stream is a lazy, non restartable sequence of items.
type Stream[T any] interface {
	// Next blocks until the next item is available. Once the sequence has
	// ended it returns exception.ErrStreamClosed.
	Next(ctx context.Context) (T, error)
	// Close stops the producer and releases its resources.
	Close() error
}

// Exchange pairs a stream with the identity of the venue (or synthesized
// view) producing it. The producer owns the underlying connection.
type Exchange[T any] struct {
	ID enum.ExchangeID
	Stream[T]
}

// NewExchange tags s with id.
func NewExchange[T any](id enum.ExchangeID, s Stream[T]) Exchange[T] {
	return Exchange[T]{ID: id, Stream: s}
}
