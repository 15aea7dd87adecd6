package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/clock"
	"github.com/SmitUplenchwar2687/meshflow/internal/config"
	"github.com/SmitUplenchwar2687/meshflow/internal/feed"
	"github.com/SmitUplenchwar2687/meshflow/internal/metrics"
	"github.com/SmitUplenchwar2687/meshflow/internal/recorder"
	"github.com/SmitUplenchwar2687/meshflow/internal/server"
	"github.com/SmitUplenchwar2687/meshflow/internal/session"
	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr       string
		keepFrames int
		graphFile  string
		recordFile string
		feedSource string
		feedFile   string
		engine     engineOptions
		redis      redisOptions
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Animate a live graph and stream it to the dashboard",
		Long: `Starts the traffic engine on a real clock and an HTTP server streaming
its frames.

Endpoints:
  GET    /                      Server info and current time
  GET    /health                Health check
  GET    /api/graph             Current graph
  POST   /api/graph             Replace the graph (JSON or YAML)
  PUT    /api/viewport          Pan and zoom
  POST   /api/edges/{id}/dim    Hide an edge's points (undim to show)
  DELETE /api/edges/{id}        Remove an edge
  PUT    /api/nodes/{id}        Move a node
  DELETE /api/nodes/{id}        Remove a node and its edges
  POST   /api/engine/start      Start, stop or clear the engine
  GET    /api/stats             Engine status and edge counters
  GET    /api/frames            Recent frames (export for a file)
  GET    /dashboard             Live canvas dashboard
  WS     /ws                    Frame stream (?encoding=msgpack for binary)
  GET    /metrics               Prometheus metrics

The graph can also be fed from a watched file or a Redis key and channel.`,
		Example: `  meshflow serve --graph mesh.yaml
  meshflow serve --addr :9090 --fps 30 --skin holiday
  meshflow serve --feed file --feed-file mesh.yaml
  meshflow serve --feed redis --redis-host localhost:6379 --record frames.msgpack.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("keep-frames") {
				cfg.Server.KeepFrames = keepFrames
			}
			if cmd.Flags().Changed("feed") {
				cfg.Feed.Source = feedSource
			}
			if cmd.Flags().Changed("feed-file") {
				cfg.Feed.File = feedFile
				if !cmd.Flags().Changed("feed") {
					cfg.Feed.Source = config.FeedFile
				}
			}
			engine.applyConfigIfUnset(cmd, cfg.Engine)
			cfg.Engine = engine.toConfig()
			redis.applyConfigIfUnset(cmd, cfg.Feed.Redis)
			cfg.Feed.Redis = redis.toConfig()

			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cmd.OutOrStdout(), cfg, graphFile, recordFile)
		},
	}

	def := config.Default()
	cmd.Flags().StringVar(&addr, "addr", def.Server.Addr, "address to listen on")
	cmd.Flags().IntVar(&keepFrames, "keep-frames", def.Server.KeepFrames, "frames kept in memory for /api/frames (0 = unbounded)")
	cmd.Flags().StringVar(&graphFile, "graph", "", "initial graph file (JSON or YAML)")
	cmd.Flags().StringVar(&recordFile, "record", "", "export kept frames to this file on shutdown (.json, .msgpack, optionally .zst)")
	cmd.Flags().StringVar(&feedSource, "feed", def.Feed.Source, "snapshot feed (none, file, redis)")
	cmd.Flags().StringVar(&feedFile, "feed-file", "", "graph file watched for changes (implies --feed file)")
	engine.addFlags(cmd)
	redis.addFlags(cmd)

	return cmd
}

// runServe runs the engine and server until ctx is cancelled.
func runServe(ctx context.Context, out io.Writer, cfg config.Config, graphFile, recordFile string) error {
	clk := clock.NewRealClock()
	surface := canvas.NewRecording()
	hub := server.NewHub(surface)

	rec := recorder.New(nil)
	rec.SetLimit(cfg.Server.KeepFrames)
	obs := recorder.NewObserver(rec, nil, surface)

	collector := metrics.NewCollector()
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := collector.Register(reg); err != nil {
		return err
	}

	sess, err := session.New(surface, cfg.Engine,
		traffic.WithClock(clk),
		traffic.WithObserver(hub),
		traffic.WithObserver(obs),
		traffic.WithObserver(collector),
		traffic.WithErrorHandler(func(err error) {
			collector.ObserveError(err)
			hub.NotifyStopped(err)
		}),
	)
	if err != nil {
		return err
	}
	hub.Bind(sess)
	obs.Bind(sess)
	collector.Bind(sess)

	if graphFile != "" {
		g, err := snapshot.Load(graphFile)
		if err != nil {
			return err
		}
		if err := sess.Apply(g); err != nil {
			return err
		}
	}

	src, closeFeed, err := openFeed(ctx, cfg.Feed)
	if err != nil {
		return err
	}
	if closeFeed != nil {
		defer closeFeed()
	}
	if src != nil {
		go func() {
			err := src.Run(ctx, func(g snapshot.Graph) error {
				if err := sess.Apply(g); err != nil {
					return err
				}
				hub.BroadcastBackdrop()
				return nil
			})
			if err != nil {
				log.WithError(err).Error("feed stopped")
			}
		}()
	}

	srv := server.New(cfg.Server.Addr, sess, clk,
		server.WithHub(hub),
		server.WithRecorder(rec),
		server.WithMetrics(reg),
	)

	sess.Start()
	defer sess.Stop()

	fmt.Fprintf(out, "\n  meshflow\n")
	fmt.Fprintf(out, "  ────────────────────────────────────\n")
	fmt.Fprintf(out, "  Dashboard:  http://localhost%s/dashboard\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  API:        http://localhost%s/api/graph\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  WebSocket:  ws://localhost%s/ws\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  Engine:     %d fps, %s skin, feed %s\n", cfg.Engine.FrameRate, cfg.Engine.Skin, cfg.Feed.Source)
	fmt.Fprintf(out, "  ────────────────────────────────────\n\n")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sess.Stop()
	if recordFile != "" {
		log.WithFields(log.Fields{"frames": rec.Len(), "path": recordFile}).Info("exporting frames")
		if err := rec.ExportFile(recordFile); err != nil {
			log.WithError(err).Error("exporting frames failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openFeed creates the configured snapshot source. The returned close
// function, when non-nil, releases it.
func openFeed(ctx context.Context, cfg config.FeedConfig) (feed.Source, func(), error) {
	switch cfg.Source {
	case config.FeedFile:
		return feed.NewFileSource(cfg.File), nil, nil
	case config.FeedRedis:
		src, err := feed.NewRedisSource(ctx, feedRedisConfig(cfg.Redis))
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	case config.FeedNone, "":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown feed source %q", cfg.Source)
	}
}
