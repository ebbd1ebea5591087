package aggregator

import (
	"context"
	"sync"

	"aggregator/internal/ingest"
	"aggregator/internal/model"

	"github.com/yanun0323/logs"
)

// Event is one book received from the source at index Source.
type Event struct {
	Source int
	Book   model.OrderBook
}

// Merge fans the exchanges into one channel in arrival order. Books of one
// source keep their order. The channel is closed once every source has ended
// or ctx is done.
func Merge(ctx context.Context, exchanges []ingest.Exchange[model.OrderBook]) <-chan Event {
	out := make(chan Event)
	var wg sync.WaitGroup
	for i, ex := range exchanges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				book, err := ex.Next(ctx)
				if err != nil {
					if ctx.Err() == nil {
						logs.Errorf("merge: %s source ended, keeping its last book, err: %+v", ex.ID, err)
					}
					return
				}
				select {
				case out <- Event{Source: i, Book: book}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
