package dicom

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Report subtypes of the Hologic DEXA exams.
const (
	SubtypeHip       = "hip"
	SubtypeForearm   = "forearm"
	SubtypeWholeBody = "wholebody"
	SubtypeLateral   = "lateral"
)

// Box is a rectangle in canvas coordinates: origin at the lower left,
// both corners inclusive.
type Box struct {
	X0, Y0 int
	X1, Y1 int
}

// Layout locates the patient name field of one report layout.
type Layout struct {
	Subtype string
	Columns int
	Rows    int
	Name    Box
}

// Background is the gray the name field is drawn on.
var Background = color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}

var white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// These boxes only fit the report layouts produced by the scanner firmware
// in use at the data collection sites. Other layouts are left alone.
var layouts = []Layout{
	{Subtype: SubtypeHip, Columns: 1000, Rows: 800, Name: Box{X0: 20, Y0: 742, X1: 420, Y1: 760}},
	{Subtype: SubtypeHip, Columns: 1200, Rows: 900, Name: Box{X0: 24, Y0: 836, X1: 504, Y1: 856}},
	{Subtype: SubtypeForearm, Columns: 1000, Rows: 800, Name: Box{X0: 20, Y0: 742, X1: 420, Y1: 760}},
	{Subtype: SubtypeWholeBody, Columns: 1000, Rows: 1200, Name: Box{X0: 20, Y0: 1140, X1: 420, Y1: 1160}},
	{Subtype: SubtypeLateral, Columns: 800, Rows: 1000, Name: Box{X0: 16, Y0: 946, X1: 336, Y1: 962}},
}

// LayoutFor returns the layout matching subtype and image extent.
func LayoutFor(subtype string, columns, rows int) (Layout, bool) {
	for _, l := range layouts {
		if l.Subtype == subtype && l.Columns == columns && l.Rows == rows {
			return l, true
		}
	}
	return Layout{}, false
}

// CleanHologic paints over the patient name burned into the pixel data of
// a Hologic report, then clears the PatientName attribute. It reports false
// when no layout matches; nothing is changed in that case.
//
// The pixel data is assumed to be uncompressed 8-bit RGB occupying the last
// rows*columns*3 bytes of the file.
func CleanHologic(path, subtype string) (bool, error) {
	hdr, err := Inspect(path)
	if err != nil {
		return false, err
	}

	layout, ok := LayoutFor(subtype, hdr.Columns, hdr.Rows)
	if !ok {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	size := hdr.Rows * hdr.Columns * 3
	if size == 0 || len(data) < size {
		return false, fmt.Errorf("'%s' holds %d bytes, fewer than its %dx%d RGB pixel data", path, len(data), hdr.Columns, hdr.Rows)
	}

	offset := len(data) - size
	img := decodeRGB(data[offset:], hdr.Columns, hdr.Rows)
	redactName(img, layout.Name)
	encodeRGB(img, data[offset:])

	tmpName := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".dcm")
	if err := os.WriteFile(tmpName, data, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("failed to write '%s': %w", path, err)
	}
	if err := replaceFile(tmpName, path); err != nil {
		return false, err
	}

	if _, err := Anonymize(path); err != nil {
		return true, err
	}
	return true, nil
}

// redactName fills the name field from its left edge up to the first pure
// white pixel found at its vertical midpoint, or up to its right edge.
func redactName(img *image.RGBA, box Box) {
	height := img.Bounds().Dy()
	row := func(canvasY int) int { return height - 1 - canvasY }

	mid := row((box.Y0 + box.Y1) / 2)
	end := box.X1 + 1
	for x := box.X0; x <= box.X1; x++ {
		if img.RGBAAt(x, mid) == white {
			end = x
			break
		}
	}

	rect := image.Rect(box.X0, row(box.Y1), end, row(box.Y0)+1)
	draw.Draw(img, rect, &image.Uniform{C: Background}, image.Point{}, draw.Src)
}

// decodeRGB reads interleaved RGB samples stored top row first.
func decodeRGB(pix []byte, columns, rows int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, columns, rows))
	for i, j := 0, 0; i+2 < len(pix) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = pix[i]
		img.Pix[j+1] = pix[i+1]
		img.Pix[j+2] = pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

func encodeRGB(img *image.RGBA, pix []byte) {
	for i, j := 0, 0; i+2 < len(pix) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		pix[i] = img.Pix[j]
		pix[i+1] = img.Pix[j+1]
		pix[i+2] = img.Pix[j+2]
	}
}
