package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seqcell/api/grpcserver"
	"seqcell/config"
	"seqcell/domain/marketdata"
	"seqcell/infra/kafka"
	"seqcell/infra/logging"
	"seqcell/infra/outbox"
	"seqcell/infra/seqlock"
	"seqcell/jobs/broadcaster"
	"seqcell/service"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "seqcell-server",
		Short:         "Publish a quote feed through a seqlock cell to gRPC and Kafka readers",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	return cmd
}

func run(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logging.Sync(log)()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// ---------------- Feed ----------------

	feed, err := service.NewFeed(cfg.Feed.Symbol, log, reg, seqlock.WithBackoff(readBackoff(cfg.Feed)))
	if err != nil {
		return err
	}

	// ---------------- Broadcaster ----------------

	var bc *broadcaster.Broadcaster
	if cfg.Broadcaster.Enabled {
		var closeOutbox func()
		bc, closeOutbox, err = newBroadcaster(cfg, feed, log, reg)
		if err != nil {
			return err
		}
		defer closeOutbox()
		defer bc.Close()
	}

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.GRPC.Listen)
	if err != nil {
		return errors.Wrapf(err, "listen %s", cfg.GRPC.Listen)
	}

	g, ctx := errgroup.WithContext(ctx)

	src := make(chan marketdata.Quote, 1)
	walk := service.NewRandomWalk(cfg.Feed.StartPrice, uint64(time.Now().UnixNano()))
	g.Go(func() error {
		walk.Run(ctx, cfg.Feed.TickInterval, src)
		return nil
	})
	g.Go(func() error { return feed.Run(ctx, src) })

	if bc != nil {
		g.Go(func() error { return bc.Run(ctx) })
	}

	grpcSrv := grpc.NewServer()
	grpcserver.Register(grpcSrv, grpcserver.NewServer(feed.Reader(), log))

	g.Go(func() error {
		log.Info("gRPC listening", zap.String("addr", cfg.GRPC.Listen))
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		grpcSrv.GracefulStop()
		return nil
	})

	// ---------------- Metrics ----------------

	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		httpSrv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.Info("metrics listening", zap.String("addr", cfg.Metrics.Listen))
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Info("server stopped", zap.Uint64("last_seq", feed.LastSeq()))
	return err
}

func readBackoff(cfg config.FeedConfig) seqlock.Backoff {
	if cfg.ReadBackoff == config.BackoffYield {
		return seqlock.Yield{After: cfg.YieldAfter}
	}
	return seqlock.Spin{}
}

func newBroadcaster(
	cfg config.Config,
	feed *service.Feed,
	log *zap.Logger,
	reg prometheus.Registerer,
) (*broadcaster.Broadcaster, func(), error) {
	box, err := outbox.Open(cfg.Outbox.Dir)
	if err != nil {
		return nil, nil, err
	}
	closeOutbox := func() {
		if err := box.Close(); err != nil {
			log.Error("outbox close failed", zap.Error(err))
		}
	}

	// Sequences already staged by an earlier run must not be reused.
	last, err := box.LastSeq()
	if err != nil {
		closeOutbox()
		return nil, nil, err
	}
	feed.ResumeAfter(last)

	var sink broadcaster.Sink
	switch cfg.Broadcaster.Client {
	case config.ClientKafkaGo:
		sink = kafka.NewProducer(cfg.Broadcaster.Brokers, cfg.Broadcaster.Topic)
	default:
		p, err := kafka.NewSyncProducer(cfg.Broadcaster.Brokers, cfg.Broadcaster.Topic)
		if err != nil {
			closeOutbox()
			return nil, nil, err
		}
		sink = p
	}

	bc := broadcaster.New(feed.Reader(), box, sink, cfg.Broadcaster.Interval, log, reg,
		broadcaster.WithMaxRetries(cfg.Broadcaster.MaxRetries))
	return bc, closeOutbox, nil
}
