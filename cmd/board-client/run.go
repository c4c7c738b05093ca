package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/config"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/obslog"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/internal/session"
	"github.com/park285/cheese-board/internal/transport"
	"github.com/park285/cheese-board/internal/transport/redisbus"
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "input", Usage: "JSONL pointer events, \"-\" for stdin"},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "connect to the board authority and keep the local board in sync",
		Flags:  runFlags(),
		Action: runAction,
	}
}

func runAction(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	gcfg, err := geometry.NewConfig(geometry.Orientation{FieldSize: cfg.FieldSize, Flipped: cfg.Flipped})
	if err != nil {
		return err
	}
	proj := render.NewProjection(gcfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The transport is built before the session exists; nothing is
	// delivered until Connect, which runs after sess is set.
	var (
		sessMu sync.RWMutex
		sess   *session.Session
	)
	forward := func(ev transport.Event) {
		sessMu.RLock()
		s := sess
		sessMu.RUnlock()
		if s != nil {
			s.Handler()(ev)
		}
	}

	links, err := buildLinks(cfg, forward, logger)
	if err != nil {
		return err
	}

	sessMu.Lock()
	sess = session.New(gcfg, proj, links.egress,
		session.WithLogger(obslog.Named(logger, "session")),
		session.WithDragThreshold(cfg.DragThreshold),
		session.WithResyncWindow(cfg.ResyncWindow()),
	)
	sessMu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = sess.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = session.NewWatchdog(sess, time.Second).Run(ctx)
	}()

	if cfg.FrameOutput != "" {
		fw := newFrameWriter(proj, cat, cfg.Channel, cfg.FrameOutput, obslog.Named(logger, "frames"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			fw.loop(ctx, sess, cfg.FrameInterval())
		}()
	}

	if path := c.String("input"); path != "" {
		in, err := openInput(path)
		if err != nil {
			stop()
			wg.Wait()
			links.close()
			return err
		}
		go func() {
			defer in.Close()
			if err := feedInput(ctx, in, sess, obslog.Named(logger, "input")); err != nil && ctx.Err() == nil {
				logger.Warn("input_stopped", zap.Error(err))
			}
		}()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = links.inbound.Connect(connectCtx)
	cancel()
	if err != nil {
		stop()
		wg.Wait()
		links.close()
		return fmt.Errorf("connect: %w", err)
	}
	logger.Info("board_client_started",
		zap.String("transport", cfg.Transport),
		zap.String("channel", cfg.Channel),
		zap.Bool("flipped", cfg.Flipped),
	)

	<-ctx.Done()
	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	if err := links.inbound.Close(closeCtx); err != nil {
		logger.Warn("transport_close_failed", zap.Error(err))
	}
	links.close()
	wg.Wait()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

type links struct {
	inbound transport.Inbound
	egress  transport.Egress
	closers []func()
}

func (l *links) close() {
	for _, c := range l.closers {
		c()
	}
}

func buildLinks(cfg *config.AppConfig, handler transport.Handler, logger *zap.Logger) (*links, error) {
	headers := func() map[string]string {
		return map[string]string{"X-Board-Channel": cfg.Channel}
	}
	mode := transport.Mode(cfg.Transport)

	switch mode {
	case transport.ModeRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		bus := redisbus.New(rdb, cfg.Channel, handler, redisbus.WithLogger(obslog.Named(logger, "redisbus")))
		return &links{
			inbound: bus,
			egress:  bus,
			closers: []func(){func() { _ = rdb.Close() }},
		}, nil

	case transport.ModeHTTP:
		client := transport.NewClient(cfg.BaseURL, transport.WithHeaderProvider(headers))
		client.OnEvent(handler)
		return &links{
			inbound: snapshotPoller{c: client},
			egress:  transport.NewEgress(mode, client, nil, logger),
		}, nil

	case transport.ModeWS, transport.ModeAuto:
		var client *transport.Client
		if cfg.BaseURL != "" {
			client = transport.NewClient(cfg.BaseURL, transport.WithHeaderProvider(headers))
			client.OnEvent(handler)
		}
		ws := transport.NewWebSocket(cfg.WSURL, cfg.WSMaxReconnect,
			transport.WithWSLogger(obslog.Named(logger, "ws")),
			transport.WithWSHeaders(headers),
		)
		ws.OnEvent(handler)
		ws.OnStateChange(func(state transport.State) {
			logger.Info("ws_state", zap.String("state", state.String()))
		})
		return &links{
			inbound: ws,
			egress:  transport.NewEgress(mode, client, ws, logger),
		}, nil
	}
	return nil, config.ErrInvalidTransport
}

// snapshotPoller is the inbound side of the plain HTTP transport: the
// authority has no push channel there, so connecting means fetching the
// position once. Later resyncs come from the session watchdog.
type snapshotPoller struct{ c *transport.Client }

func (p snapshotPoller) Connect(ctx context.Context) error { return p.c.RequestSnapshot(ctx) }
func (p snapshotPoller) Close(context.Context) error       { return nil }
