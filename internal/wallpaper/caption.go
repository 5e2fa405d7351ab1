package wallpaper

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/fogleman/gg"

	"github.com/five82/apodesk/internal/apod"
)

const (
	captionMargin  = 12.0
	captionPadding = 8.0
)

// drawCaption renders title in a translucent band along the bottom edge and
// returns the result encoded as PNG. gg's built-in face is used so no font
// files are needed.
func drawCaption(data []byte, title string) ([]byte, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("empty title")
	}
	img, _, err := apod.DecodeImage(data)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContextForImage(img)
	w, h := float64(dc.Width()), float64(dc.Height())
	textW, textH := dc.MeasureString(title)
	if textW+2*(captionMargin+captionPadding) > w || textH+2*(captionMargin+captionPadding) > h {
		return nil, fmt.Errorf("image too small for caption")
	}

	bandH := textH + 2*captionPadding
	bandY := h - captionMargin - bandH
	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(captionMargin, bandY, textW+2*captionPadding, bandH)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(title, captionMargin+captionPadding, bandY+bandH/2, 0, 0.35)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode captioned image: %w", err)
	}
	return buf.Bytes(), nil
}
