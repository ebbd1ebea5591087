package distribution

import (
	"context"

	"aggregator/internal/aggregator"
	"aggregator/internal/ingest"
	"aggregator/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName       = "orderbook.OrderbookAggregator"
	BookSummaryMethod = "/" + ServiceName + "/BookSummary"
)

// OrderbookAggregatorServer is the server API of the aggregator service.
type OrderbookAggregatorServer interface {
	BookSummary(*Empty, grpc.ServerStreamingServer[Summary]) error
}

// Connector starts one aggregate pipeline for a subscriber.
type Connector func(ctx context.Context) (ingest.Exchange[aggregator.Result], error)

// Server streams the merged book to every BookSummary subscriber. Each
// subscriber gets its own upstream connections.
type Server struct {
	connect Connector
}

func NewServer(connect Connector) *Server {
	return &Server{connect: connect}
}

// Register attaches the service to s.
func (srv *Server) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&serviceDesc, srv)
}

func (srv *Server) BookSummary(_ *Empty, stream grpc.ServerStreamingServer[Summary]) error {
	ctx := stream.Context()
	ex, err := srv.connect(ctx)
	if err != nil {
		logs.Errorf("book summary: connect upstream, err: %+v", err)
		return status.Error(codes.Unavailable, err.Error())
	}
	defer ex.Close()
	logs.Infof("book summary: subscriber attached")

	for {
		r, err := ex.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return status.FromContextError(ctx.Err()).Err()
			}
			if errors.Is(err, exception.ErrStreamClosed) {
				return status.Error(codes.Unavailable, "upstream feeds ended")
			}
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.Send(NewSummary(r)); err != nil {
			return err
		}
	}
}

func bookSummaryHandler(srv any, stream grpc.ServerStream) error {
	m := new(Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(OrderbookAggregatorServer).BookSummary(m, &grpc.GenericServerStream[Empty, Summary]{ServerStream: stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderbookAggregatorServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "BookSummary",
			Handler:       bookSummaryHandler,
			ServerStreams: true,
		},
	},
	Metadata: "orderbook.proto",
}
