package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	reconnectDelay = time.Second
	maxReconnect   = 30 * time.Second
)

// GRPCClient talks to the relay's gRPC service.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialGRPC connects to addr (host:port). Extra options are appended after
// the defaults, which tests use to inject a bufconn dialer.
func DialGRPC(addr, token string, extra ...grpc.DialOption) (*GRPCClient, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(tokenCreds(token)))
	}
	opts = append(opts, extra...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("relay dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) Get(ctx context.Context) (State, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodGet, &emptypb.Empty{}, out); err != nil {
		return State{}, fmt.Errorf("relay get: %w", err)
	}
	return structToState(out), nil
}

func (c *GRPCClient) Put(ctx context.Context, content string, t float64) (PutResult, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodPut, stateToStruct(State{Content: content, Time: t}), out); err != nil {
		return PutResult{}, fmt.Errorf("relay put: %w", err)
	}
	return structToPutResult(out), nil
}

// Watch streams accepted writes until ctx is cancelled, reconnecting with a
// doubling delay when the stream breaks. The channel is closed on return.
func (c *GRPCClient) Watch(ctx context.Context) <-chan State {
	out := make(chan State, 16)
	go func() {
		defer close(out)
		delay := reconnectDelay
		for {
			err := c.watchOnce(ctx, out, func() { delay = reconnectDelay })
			if ctx.Err() != nil {
				return
			}
			slog.Warn("relay watch disconnected", "err", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, maxReconnect)
		}
	}()
	return out
}

// watchOnce runs one Watch stream. connected is called after the first
// message arrives.
func (c *GRPCClient) watchOnce(ctx context.Context, out chan<- State, connected func()) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], methodWatch)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	first := true
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("relay closed stream")
			}
			return err
		}
		if first {
			connected()
			first = false
		}
		select {
		case out <- structToState(msg):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type tokenCreds string

func (t tokenCreds) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(t)}, nil
}

func (tokenCreds) RequireTransportSecurity() bool { return false }
