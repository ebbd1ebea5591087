package aggregator

import (
	"context"
	"time"

	"aggregator/internal/ingest"
	"aggregator/internal/model"
	"aggregator/internal/model/enum"
	"aggregator/internal/obs"
	"aggregator/pkg/exception"
	"aggregator/pkg/websocket"

	"github.com/yanun0323/errors"
)

// Result is one merged view.
type Result struct {
	Book    model.OrderBook
	Sources model.Sources
}

// Options tunes the merge pipeline.
type Options struct {
	// Coalesce collects updates for this long before emitting one result.
	// Zero emits one result per source update.
	Coalesce time.Duration
	Metrics  *obs.Metrics
}

// Build merges the exchanges into an aggregate exchange. It takes ownership
// of the sources and closes them when the aggregate ends.
func Build(ctx context.Context, exchanges []ingest.Exchange[model.OrderBook], opt Options) (ingest.Exchange[Result], error) {
	ids := make([]enum.ExchangeID, len(exchanges))
	for i, ex := range exchanges {
		ids[i] = ex.ID
	}
	agg, err := New(ids...)
	if err != nil {
		return ingest.Exchange[Result]{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &pipeline{
		agg:       agg,
		opt:       opt,
		exchanges: exchanges,
		out:       websocket.NewQueue[Result](1, websocket.OverflowBlock, nil),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go p.run(ctx, Merge(ctx, exchanges))
	return ingest.NewExchange[Result](enum.ExchangeAggregate, p), nil
}

type pipeline struct {
	agg       *Aggregator
	opt       Options
	exchanges []ingest.Exchange[model.OrderBook]
	out       *websocket.Queue[Result]
	cancel    context.CancelFunc
	done      chan struct{}
}

func (p *pipeline) Next(ctx context.Context) (Result, error) {
	r, err := p.out.Pop(ctx)
	if errors.Is(err, exception.ErrQueueClosed) {
		return r, exception.ErrStreamClosed
	}
	return r, err
}

func (p *pipeline) Close() error {
	p.cancel()
	<-p.done
	return nil
}

func (p *pipeline) run(ctx context.Context, events <-chan Event) {
	defer close(p.done)
	defer p.out.Close()
	defer func() {
		for _, ex := range p.exchanges {
			_ = ex.Close()
		}
	}()
	defer p.cancel()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if pending {
					p.emit(ctx)
				}
				return
			}
			if err := p.agg.Update(ev.Source, ev.Book); err != nil {
				continue
			}
			if p.opt.Coalesce <= 0 {
				if !p.emit(ctx) {
					return
				}
				continue
			}
			if !pending {
				pending = true
				if timer == nil {
					timer = time.NewTimer(p.opt.Coalesce)
				} else {
					timer.Reset(p.opt.Coalesce)
				}
				timerC = timer.C
			}
		case <-timerC:
			pending = false
			timerC = nil
			if !p.emit(ctx) {
				return
			}
		}
	}
}

func (p *pipeline) emit(ctx context.Context) bool {
	start := time.Now()
	book, sources := p.agg.Aggregate()
	p.opt.Metrics.ObserveMerge(time.Since(start))

	if _, err := p.out.Push(ctx, Result{Book: book, Sources: sources}); err != nil {
		return false
	}
	p.opt.Metrics.IncSummary()
	return true
}
