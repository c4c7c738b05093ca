package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
)

var ErrInvalidSize = errors.New("render: invalid size")

const (
	sideMargin     = 28
	topMargin      = 76
	panelHeight    = 24
	panelGap       = 8
	panelRadius    = 8
	panelPaddingX  = 14
	panelMinWidth  = 120
	coordinateBand = 22
	captureGap     = 6
	shadowOffsetY  = 3
)

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	lastMoveFill        = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	backgroundColor     = color.RGBA{20, 22, 33, 255}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor   = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor      = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor    = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	unknownPieceColor   = color.NRGBA{R: 128, G: 128, B: 128, A: 220}
)

// PNGRenderer draws a Scene: board, sprites at their current positions,
// coordinate labels, a HUD and the captured pieces strip.
type PNGRenderer struct {
	face font.Face
}

func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{face: basicfont.Face7x13}
}

func (r *PNGRenderer) RenderPNG(ctx context.Context, scene Scene) ([]byte, error) {
	img, err := r.Render(ctx, scene)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// BoardOrigin is where board pixel (0,0) lands in the rendered image.
func BoardOrigin() image.Point { return image.Pt(sideMargin, topMargin) }

func (r *PNGRenderer) Render(ctx context.Context, scene Scene) (*image.RGBA, error) {
	o := scene.Orientation
	fs := int(math.Round(o.FieldSize))
	if fs <= 0 {
		return nil, fmt.Errorf("field size %v: %w", o.FieldSize, ErrInvalidSize)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	boardSize := fs * 8
	captureSize := captureTileSize(fs)
	totalWidth := boardSize + sideMargin*2
	totalHeight := topMargin + boardSize + coordinateBand + captureGap + captureSize + captureGap

	origin := BoardOrigin()
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawHUD(img, scene, boardRect)
	drawSquares(img, o, origin)
	if scene.LastMove != nil {
		drawFieldOverlay(img, scene.LastMove.From, o, origin, lastMoveFill)
		drawFieldOverlay(img, scene.LastMove.To, o, origin, lastMoveFill)
	}
	for _, s := range scene.Sprites {
		if err := drawSprite(img, s, origin); err != nil {
			return nil, err
		}
	}
	r.drawCoordinates(img, o, origin)
	if err := drawCaptures(img, scene.Captured, image.Pt(origin.X, boardRect.Max.Y+coordinateBand+captureGap), captureSize, boardSize); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return img, nil
}

func captureTileSize(fs int) int {
	size := fs / 2
	if size < 12 {
		size = 12
	}
	return size
}

func fieldRect(f board.Field, o geometry.Orientation, origin image.Point) image.Rectangle {
	r := geometry.FieldToRect(f, o)
	x := origin.X + int(math.Round(r.X))
	y := origin.Y + int(math.Round(r.Y))
	fs := int(math.Round(o.FieldSize))
	return image.Rect(x, y, x+fs, y+fs)
}

func fieldColor(f board.Field) color.Color {
	if (f.File()+f.Rank())%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(dst imagedraw.Image, o geometry.Orientation, origin image.Point) {
	for _, f := range board.AllFields() {
		imagedraw.Draw(dst, fieldRect(f, o, origin), image.NewUniform(fieldColor(f)), image.Point{}, imagedraw.Src)
	}
}

func drawFieldOverlay(img *image.RGBA, f board.Field, o geometry.Orientation, origin image.Point, clr color.Color) {
	if img == nil || !f.Valid() {
		return
	}
	imagedraw.Draw(img, fieldRect(f, o, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawSprite(dst *image.RGBA, s Sprite, origin image.Point) error {
	size := int(math.Round(s.Size.H))
	if size <= 0 {
		return nil
	}
	tile, err := pieceImage(s.Piece, size)
	if err != nil {
		return err
	}
	x := origin.X + int(math.Round(s.Pos.X))
	y := origin.Y + int(math.Round(s.Pos.Y))
	imagedraw.Draw(dst, image.Rect(x, y, x+size, y+size), tile, image.Point{}, imagedraw.Over)
	return nil
}

func drawCaptures(dst *image.RGBA, captured []board.Piece, at image.Point, size, maxWidth int) error {
	perRow := maxWidth / size
	if perRow <= 0 {
		return nil
	}
	for i, p := range captured {
		if i >= perRow {
			break
		}
		tile, err := pieceImage(p, size)
		if err != nil {
			return err
		}
		x := at.X + i*size
		imagedraw.Draw(dst, image.Rect(x, at.Y, x+size, at.Y+size), tile, image.Point{}, imagedraw.Over)
	}
	return nil
}

func (r *PNGRenderer) drawCoordinates(dst imagedraw.Image, o geometry.Orientation, origin image.Point) {
	drawer := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(coordinateTextColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	fs := int(math.Round(o.FieldSize))
	boardEnd := origin.Y + fs*8

	for _, f := range board.AllFields() {
		rect := fieldRect(f, o, origin)
		if rect.Min.X == origin.X {
			drawCenteredText(drawer, strconv.Itoa(f.Rank()+1), origin.X-sideMargin/2, rect.Min.Y+fs/2+ascent/2)
		}
		if rect.Max.Y == boardEnd {
			drawCenteredText(drawer, string(rune('a'+f.File())), rect.Min.X+fs/2, boardEnd+ascent+4)
		}
	}
}

func (r *PNGRenderer) drawHUD(img *image.RGBA, scene Scene, boardRect image.Rectangle) {
	drawer := &font.Drawer{Dst: img, Face: r.face}

	header := strings.TrimSpace(scene.Header)
	turn := strings.TrimSpace(scene.Turn)

	turnBottom := boardRect.Min.Y - panelGap*2
	turnTop := turnBottom - panelHeight
	headerBottom := turnTop - panelGap
	headerTop := headerBottom - panelHeight

	if header != "" {
		width := panelWidth(drawer, header, boardRect.Dx())
		rect := image.Rect(boardRect.Min.X, headerTop, boardRect.Min.X+width, headerBottom)
		drawRoundedPanel(img, rect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
		drawRoundedPanel(img, rect, panelRadius, hudPanelColor)
		drawCenteredString(drawer, rect, truncateWithEllipsis(r.face, header, rect.Dx()-panelPaddingX*2), hudTextPrimary)
	}
	if turn != "" {
		width := panelWidth(drawer, turn, boardRect.Dx())
		left := boardRect.Min.X + (boardRect.Dx()-width)/2
		rect := image.Rect(left, turnTop, left+width, turnBottom)
		drawRoundedPanel(img, rect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
		drawRoundedPanel(img, rect, panelRadius, hudTurnPanelColor)
		drawCenteredString(drawer, rect, truncateWithEllipsis(r.face, turn, rect.Dx()-panelPaddingX*2), hudTurnTextColor)
	}
}

func panelWidth(drawer *font.Drawer, text string, limit int) int {
	w := drawer.MeasureString(text).Round() + panelPaddingX*2
	if w < panelMinWidth {
		w = panelMinWidth
	}
	if w > limit {
		w = limit
	}
	return w
}
