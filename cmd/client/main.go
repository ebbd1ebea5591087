package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"aggregator/internal/distribution"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("client: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	addrFlag := flag.String("addr", "127.0.0.1:50051", "aggregator gRPC address")
	flag.Parse()

	cc, err := distribution.Dial(*addrFlag)
	if err != nil {
		return err
	}
	defer cc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		cancel()
	}()

	stream, err := distribution.NewClient(cc).BookSummary(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for {
		summary, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		sb.Reset()
		render(&sb, summary)
		fmt.Print(sb.String())
	}
}

func render(sb *strings.Builder, s *distribution.Summary) {
	fmt.Fprintf(sb, "spread: %v\n", float64(s.Spread))
	sb.WriteString("asks:\n")
	for i := len(s.Asks) - 1; i >= 0; i-- {
		writeLevel(sb, s.Asks[i])
	}
	sb.WriteString("bids:\n")
	for _, l := range s.Bids {
		writeLevel(sb, l)
	}
	sb.WriteByte('\n')
}

func writeLevel(sb *strings.Builder, l distribution.Level) {
	fmt.Fprintf(sb, "  %-9s %14.8f %14.8f\n", l.Exchange, float64(l.Price), float64(l.Amount))
}
