package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"seqcell/domain/marketdata"
	"seqcell/infra/seqlock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/durationpb"
)

func quote(seq uint64, bid int64) marketdata.Quote {
	sym, _ := marketdata.NewSymbol("ETH-USD")
	q := marketdata.Quote{Seq: seq, Time: 1_700_000_000_123_456_789, Symbol: sym}
	q.Bids[0] = marketdata.Level{Price: bid, Qty: 3}
	q.Bids[1] = marketdata.Level{Price: bid - 1, Qty: 4}
	q.Asks[0] = marketdata.Level{Price: bid + 2, Qty: 5}
	return q
}

func startServer(t *testing.T, r *seqlock.Reader[marketdata.Quote]) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, NewServer(r, zaptest.NewLogger(t)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func TestLatest(t *testing.T) {
	w, r := seqlock.NewPair(quote(0, 100))
	c := startServer(t, r)

	want := quote(7, 250)
	w.Write(&want)

	msg, err := c.Latest(context.Background())
	require.NoError(t, err)

	got, err := FromStruct(msg)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLatestIgnoresCancelOnStableCell(t *testing.T) {
	_, r := seqlock.NewPair(quote(3, 100))
	srv := NewServer(r, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, err := srv.Latest(ctx, nil)
	require.NoError(t, err)
	q, err := FromStruct(msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), q.Seq)
}

func TestWatchStreamsNewVersions(t *testing.T) {
	w, r := seqlock.NewPair(quote(0, 100))
	c := startServer(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Watch(ctx, time.Millisecond)
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	q, err := FromStruct(first)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), q.Seq)

	next := quote(1, 101)
	w.Write(&next)

	msg, err := stream.Recv()
	require.NoError(t, err)
	q, err = FromStruct(msg)
	require.NoError(t, err)
	assert.Equal(t, next, q)
}

func TestWatchRejectsInvalidInterval(t *testing.T) {
	_, r := seqlock.NewPair(quote(0, 100))
	c := startServer(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// durationpb rejects seconds and nanos of opposite sign
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], WatchMethod)
	require.NoError(t, err)
	require.NoError(t, stream.SendMsg(&durationpb.Duration{Seconds: 1, Nanos: -1}))
	require.NoError(t, stream.CloseSend())

	_, err = (&watchClient{stream}).Recv()
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestFromStructRejectsGarbage(t *testing.T) {
	msg, err := toStruct(&marketdata.Quote{})
	require.NoError(t, err)
	_, err = FromStruct(msg)
	assert.ErrorIs(t, err, marketdata.ErrEmptySymbol)
}
