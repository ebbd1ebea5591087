package distribution

import (
	"context"

	"github.com/yanun0323/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client subscribes to a remote aggregator.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial creates a plaintext connection to addr that speaks the JSON codec.
// Extra options are appended, e.g. a custom dialer in tests.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new grpc client").With("addr", addr)
	}
	return cc, nil
}

// BookSummary opens the summary stream.
func (c *Client) BookSummary(ctx context.Context, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Summary], error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], BookSummaryMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Empty, Summary]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&Empty{}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
