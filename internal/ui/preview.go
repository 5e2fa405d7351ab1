package ui

import (
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"

	"github.com/five82/apodesk/internal/apod"
)

const (
	previewMaxRows = 16
	// Decoded pictures are shrunk to this width before they are kept in the
	// model; APOD images are often several thousand pixels across.
	previewDecodeWidth = 320
)

// previewKey identifies the record a preview was decoded from.
type previewKey struct {
	title     string
	fetchedAt time.Time
	size      int
}

func keyFor(r *apod.Record) previewKey {
	if r == nil {
		return previewKey{}
	}
	return previewKey{title: r.Title, fetchedAt: r.FetchedAt, size: r.ImageSize()}
}

// previewState caches the decoded picture and its last rendering.
type previewState struct {
	key     previewKey
	pending previewKey
	img     image.Image
	err     error

	rendered     string
	renderedCols int
	renderedRows int
	renderedKey  previewKey
}

type previewMsg struct {
	key previewKey
	img image.Image
	err error
}

func decodePreviewCmd(r apod.Record) tea.Cmd {
	key := keyFor(&r)
	data := r.ImageBytes()
	return func() tea.Msg {
		img, _, err := apod.DecodeImage(data)
		if err != nil {
			return previewMsg{key: key, err: err}
		}
		b := img.Bounds()
		if b.Dx() > previewDecodeWidth {
			h := b.Dy() * previewDecodeWidth / b.Dx()
			img = scaleImage(img, previewDecodeWidth, max(h, 1))
		}
		return previewMsg{key: key, img: img}
	}
}

// view renders the cached picture into at most maxCols by maxRows cells.
func (p *previewState) view(maxCols, maxRows int) string {
	if p.img == nil {
		return ""
	}
	if p.rendered != "" && p.renderedKey == p.key && p.renderedCols == maxCols && p.renderedRows == maxRows {
		return p.rendered
	}
	p.rendered = renderPreview(p.img, maxCols, maxRows)
	p.renderedKey, p.renderedCols, p.renderedRows = p.key, maxCols, maxRows
	return p.rendered
}

// previewSize fits a srcW by srcH picture into maxCols columns and maxRows
// terminal lines. Each line shows two pixel rows, so cells come out square.
func previewSize(srcW, srcH, maxCols, maxRows int) (cols, pixelRows int) {
	if srcW <= 0 || srcH <= 0 || maxCols <= 0 || maxRows <= 0 {
		return 0, 0
	}
	maxPx := maxRows * 2
	cols = maxCols
	pixelRows = srcH * cols / srcW
	if pixelRows > maxPx {
		pixelRows = maxPx
		cols = srcW * pixelRows / srcH
	}
	return max(cols, 1), max(pixelRows, 1)
}

func scaleImage(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// renderPreview draws img with upper half blocks: the foreground paints the
// top pixel of a cell and the background the bottom one.
func renderPreview(img image.Image, maxCols, maxRows int) string {
	b := img.Bounds()
	cols, px := previewSize(b.Dx(), b.Dy(), maxCols, maxRows)
	if cols == 0 {
		return ""
	}
	scaled := scaleImage(img, cols, px)

	var sb strings.Builder
	for y := 0; y < px; y += 2 {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < cols; x++ {
			top := hexColor(scaled, x, y)
			bottom := top
			if y+1 < px {
				bottom = hexColor(scaled, x, y+1)
			}
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
	}
	return sb.String()
}

func hexColor(img *image.RGBA, x, y int) string {
	c := img.RGBAAt(x, y)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
