package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/obslog"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/internal/session"
	"github.com/park285/cheese-board/internal/transport"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "replay a recorded authority and pointer stream and report protocol violations",
		ArgsUsage: "<stream.jsonl>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fen", Usage: "starting position when the stream has no snapshot"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("stream file is required")
			}
			if err := obslog.InitFromEnv(); err != nil {
				return err
			}
			cat, err := msgcat.New("")
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			var start []board.Occupation
			if fen := c.String("fen"); fen != "" {
				if start, err = board.ParseFEN(fen); err != nil {
					return err
				}
			}
			rep, err := replay(f, start, obslog.Named(nil, "check"))
			if err != nil {
				return err
			}
			fmt.Println(rep.format(cat))
			if rep.Diagnostics > 0 {
				return cli.Exit("", 2)
			}
			return nil
		},
	}
}

type replayReport struct {
	Events      int
	Inputs      int
	Pending     int
	FEN         string
	Captures    []board.Piece
	Diagnostics int
	Ops         int
}

func (r replayReport) format(cat *msgcat.Catalog) string {
	tokens := make([]string, 0, len(r.Captures))
	for _, p := range r.Captures {
		tokens = append(tokens, p.Token())
	}
	lines := []string{
		cat.Text("check.header", map[string]any{"Events": r.Events, "Inputs": r.Inputs}, ""),
		cat.Text("check.position", map[string]any{"FEN": r.FEN}, r.FEN),
		cat.Text("check.captures", map[string]any{"Depth": len(tokens), "Tokens": strings.Join(tokens, " ")}, ""),
	}
	if r.Pending > 0 {
		lines = append(lines, cat.Text("check.pending", map[string]any{"Count": r.Pending}, ""))
	}
	if r.Diagnostics == 0 {
		lines = append(lines, cat.Text("check.clean", nil, ""))
	} else {
		lines = append(lines, cat.Text("check.diagnostics", map[string]any{"Count": r.Diagnostics}, ""))
	}
	return strings.Join(lines, "\n")
}

// replay feeds one line at a time through a session that has no live
// transport. A line is either a pointer input line or a framed authority
// message; blank lines are skipped. Move requests raised by pointer input
// stay pending until the stream confirms them.
func replay(r io.Reader, start []board.Occupation, logger *zap.Logger) (replayReport, error) {
	gcfg, err := geometry.NewConfig(geometry.Orientation{FieldSize: 64})
	if err != nil {
		return replayReport{}, err
	}
	rec := &render.Recorder{}
	sess := session.New(gcfg, rec, offline{}, session.WithLogger(logger))
	if start != nil {
		sess.Dispatch(session.TransportEvent{Event: transport.Event{Kind: transport.EventSnapshot, Snapshot: start}})
	}

	var rep replayReport
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		in, ok, err := parseInput([]byte(raw), sess.Frame().Orientation)
		if err != nil {
			return rep, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			sess.Dispatch(in)
			rep.Inputs++
			continue
		}
		ev, err := transport.Decode([]byte(raw))
		if err != nil {
			return rep, fmt.Errorf("line %d: %w", line, err)
		}
		sess.Dispatch(session.TransportEvent{Event: ev})
		rep.Events++
	}
	if err := sc.Err(); err != nil {
		return rep, err
	}

	f := sess.Frame()
	rep.FEN = f.FEN
	rep.Captures = f.Captures
	rep.Diagnostics = f.Diagnostics
	rep.Pending = len(f.Pending)
	rep.Ops = len(rec.Commands())
	return rep, nil
}

// offline accepts move requests and drops them; snapshots cannot be
// requested from a recording.
type offline struct{}

func (offline) SendMove(context.Context, board.MoveRequest) error { return nil }
func (offline) RequestSnapshot(context.Context) error             { return transport.ErrUnavailable }
