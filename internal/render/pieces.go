package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/cheese-board/internal/board"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type pieceCacheKey struct {
	piece board.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// pieceImage rasterizes the piece asset into a size x size transparent tile.
func pieceImage(piece board.Piece, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("piece size %d: %w", size, ErrInvalidSize)
	}
	if !piece.Known() {
		return unknownPieceImage(size), nil
	}
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := pieceAssetName(piece)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

// unknownPieceImage is a grey disc; the X_X token has no asset.
func unknownPieceImage(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := size / 3
	drawDisc(img, image.Pt(size/2, size-r-1), r, unknownPieceColor)
	return img
}

func pieceAssetName(piece board.Piece) string {
	prefix := "w"
	if piece.Color == board.Black {
		prefix = "b"
	}
	return fmt.Sprintf("assets/pieces/%s%s.svg", prefix, piece.Type.Letter())
}
