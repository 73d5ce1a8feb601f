package grpcserver

import (
	"context"
	"time"

	"seqcell/domain/marketdata"
	"seqcell/infra/seqlock"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// MinWatchInterval bounds how fast a Watch stream may poll the cell.
const MinWatchInterval = time.Millisecond

// Server adapts the quote cell to gRPC. Each call is an independent
// reader of the cell; none of them can slow the feed down.
type Server struct {
	quotes *seqlock.Reader[marketdata.Quote]
	log    *zap.Logger
}

func NewServer(quotes *seqlock.Reader[marketdata.Quote], logger *zap.Logger) *Server {
	return &Server{quotes: quotes, log: logger.Named("grpc")}
}

// -------------------- Queries --------------------

func (s *Server) Latest(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	q, err := s.quotes.ReadContext(ctx)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return encode(&q)
}

// Watch streams the quote every time its version changes, polling at
// the requested interval, until the client goes away.
func (s *Server) Watch(req *durationpb.Duration, stream WatchServer) error {
	if err := req.CheckValid(); err != nil {
		return status.Errorf(codes.InvalidArgument, "interval: %v", err)
	}
	every := max(req.AsDuration(), MinWatchInterval)

	ctx := stream.Context()
	s.log.Debug("watch started", zap.Duration("interval", every))

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last uint64
	first := true
	for {
		q, version := s.quotes.ReadVersioned()
		if first || version != last {
			msg, err := encode(&q)
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
			first, last = false, version
		}

		select {
		case <-ctx.Done():
			s.log.Debug("watch ended", zap.Error(ctx.Err()))
			return nil
		case <-ticker.C:
		}
	}
}

func encode(q *marketdata.Quote) (*structpb.Struct, error) {
	msg, err := toStruct(q)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode quote: %v", err)
	}
	return msg, nil
}
