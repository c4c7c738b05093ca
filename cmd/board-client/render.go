package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/render"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "draw a FEN position to a PNG file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fen", Value: board.StartFEN, Usage: "position in FEN (placement field is enough)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "board.png", Usage: "output PNG path"},
			&cli.FloatFlag{Name: "size", Value: 64, Usage: "field size in pixels"},
			&cli.BoolFlag{Name: "flipped", Usage: "draw from black's side"},
			&cli.StringFlag{Name: "last", Usage: "highlight a move, e.g. e2e4"},
			&cli.StringFlag{Name: "title", Usage: "header text"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cat, err := msgcat.New("")
			if err != nil {
				return err
			}
			n, err := renderFEN(ctx, renderOptions{
				FEN:     c.String("fen"),
				Out:     c.String("out"),
				Size:    c.Float("size"),
				Flipped: c.Bool("flipped"),
				Last:    c.String("last"),
				Title:   c.String("title"),
			})
			if err != nil {
				return err
			}
			fmt.Println(cat.Text("cli.frame_written", map[string]any{"Path": c.String("out"), "Bytes": n}, c.String("out")))
			return nil
		},
	}
}

type renderOptions struct {
	FEN     string
	Out     string
	Size    float64
	Flipped bool
	Last    string
	Title   string
}

func renderFEN(ctx context.Context, opt renderOptions) (int, error) {
	occ, err := board.ParseFEN(opt.FEN)
	if err != nil {
		return 0, err
	}
	gcfg, err := geometry.NewConfig(geometry.Orientation{FieldSize: opt.Size, Flipped: opt.Flipped})
	if err != nil {
		return 0, err
	}
	proj := render.NewProjection(gcfg)
	for _, o := range occ {
		proj.PlacePiece(o.Field, o.Piece)
	}
	scene := proj.Scene(time.Now())
	scene.Header = opt.Title
	if opt.Last != "" {
		m, err := parseMove(opt.Last)
		if err != nil {
			return 0, err
		}
		scene.LastMove = &m
	}

	b, err := render.NewPNGRenderer().RenderPNG(ctx, scene)
	if err != nil {
		return 0, err
	}
	if err := writeFileAtomic(opt.Out, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func parseMove(s string) (board.Move, error) {
	if len(s) != 4 {
		return board.Move{}, fmt.Errorf("move %q: want four characters like e2e4", s)
	}
	from, err := board.ParseField(s[:2])
	if err != nil {
		return board.Move{}, err
	}
	to, err := board.ParseField(s[2:])
	if err != nil {
		return board.Move{}, err
	}
	return board.Move{From: from, To: to}, nil
}
