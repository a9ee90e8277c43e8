package dicom

import (
	"bytes"
	"encoding/binary"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func element(t *testing.T, tg tag.Tag, data any) *godicom.Element {
	t.Helper()
	elem, err := godicom.NewElement(tg, data)
	require.NoError(t, err)
	return elem
}

// writeTestFile writes an explicit VR little endian file holding elems.
func writeTestFile(t *testing.T, path string, elems ...*godicom.Element) {
	t.Helper()
	ds := godicom.Dataset{Elements: append([]*godicom.Element{
		element(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.7"}),
		element(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.826.0.1.3680043.2.1125.1"}),
		element(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
	}, elems...)}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, godicom.Write(f, ds, godicom.SkipVRVerification(), godicom.SkipValueTypeVerification()))
}

// appendPixelData appends a raw OB pixel data element to a written file.
func appendPixelData(t *testing.T, path string, pix []byte) {
	t.Helper()
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(0x7fe0))
	binary.Write(&buf, binary.LittleEndian, uint16(0x0010))
	buf.WriteString("OB")
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pix)))
	buf.Write(pix)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write(buf.Bytes())
	require.NoError(t, err)
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cineloop.dcm")
	writeTestFile(t, path,
		element(t, tag.PatientName, []string{"Doe^Jane"}),
		element(t, tag.AcquisitionDateTime, []string{"20150302101010.000000"}),
		element(t, tag.ImageLaterality, []string{"L"}),
		element(t, tag.NumberOfFrames, []string{"45"}),
		element(t, tag.Rows, []int{600}),
		element(t, tag.Columns, []int{800}),
	)

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 600, info.Rows)
	assert.Equal(t, 800, info.Columns)
	assert.Equal(t, 45, info.Frames)
	assert.Equal(t, 3, info.Dimensionality())
	assert.Equal(t, "20150302101010.000000", info.AcquisitionTime)
	assert.Equal(t, "left", info.Laterality)
	assert.True(t, info.HasPatientName())
}

func TestInspectSingleFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.dcm")
	writeTestFile(t, path,
		element(t, tag.PatientName, []string{""}),
		element(t, tag.SeriesDescription, []string{"Right Hip"}),
		element(t, tag.Rows, []int{600}),
		element(t, tag.Columns, []int{800}),
	)

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Frames)
	assert.Equal(t, 2, info.Dimensionality())
	assert.Equal(t, "right", info.Laterality)
	assert.False(t, info.HasPatientName())
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.dcm")
	require.NoError(t, os.WriteFile(path, []byte("not a dicom file"), 0o644))

	_, err := Inspect(path)
	assert.Error(t, err)
}

func TestLaterality(t *testing.T) {
	assert.Equal(t, "left", lateralityOf("L"))
	assert.Equal(t, "right", lateralityOf("", "R"))
	assert.Equal(t, "left", lateralityOf("", "", "Left Forearm"))
	assert.Equal(t, "right", lateralityOf("U", "", "DualFemur RIGHT"))
	assert.Empty(t, lateralityOf("", "", "Whole Body"))
}

func TestAnonymize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hip.dcm")
	writeTestFile(t, path,
		element(t, tag.PatientName, []string{"Doe^Jane"}),
		element(t, tag.Rows, []int{2}),
		element(t, tag.Columns, []int{2}),
	)

	changed, err := Anonymize(path)
	require.NoError(t, err)
	assert.True(t, changed)

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.False(t, info.HasPatientName())
	assert.Equal(t, 2, info.Rows)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	changed, err = Anonymize(path)
	require.NoError(t, err)
	assert.False(t, changed)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLayoutFor(t *testing.T) {
	l, ok := LayoutFor(SubtypeHip, 1000, 800)
	require.True(t, ok)
	assert.Equal(t, SubtypeHip, l.Subtype)

	_, ok = LayoutFor(SubtypeHip, 1001, 800)
	assert.False(t, ok)

	_, ok = LayoutFor("knee", 1000, 800)
	assert.False(t, ok)
}

func TestRedactNameStopsAtWhite(t *testing.T) {
	const columns, rows = 40, 20
	img := image.NewRGBA(image.Rect(0, 0, columns, rows))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}

	box := Box{X0: 2, Y0: 10, X1: 30, Y1: 14}
	midRow := rows - 1 - (box.Y0+box.Y1)/2
	img.SetRGBA(20, midRow, white)

	redactName(img, box)

	for canvasY := box.Y0; canvasY <= box.Y1; canvasY++ {
		y := rows - 1 - canvasY
		assert.Equal(t, Background, img.RGBAAt(box.X0, y))
		assert.Equal(t, Background, img.RGBAAt(19, y))
	}
	assert.Equal(t, white, img.RGBAAt(20, midRow))
	assert.NotEqual(t, Background, img.RGBAAt(25, midRow))
	assert.NotEqual(t, Background, img.RGBAAt(1, midRow))
	assert.NotEqual(t, Background, img.RGBAAt(5, rows-1-(box.Y1+1)))
	assert.NotEqual(t, Background, img.RGBAAt(5, rows-1-(box.Y0-1)))
}

func TestRedactNameWithoutWhiteFillsBox(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	box := Box{X0: 1, Y0: 1, X1: 8, Y1: 2}

	redactName(img, box)

	assert.Equal(t, Background, img.RGBAAt(8, 8))
	assert.NotEqual(t, Background, img.RGBAAt(9, 8))
}

func TestCleanHologic(t *testing.T) {
	const columns, rows = 40, 20
	layouts = append(layouts, Layout{Subtype: "test", Columns: columns, Rows: rows, Name: Box{X0: 2, Y0: 10, X1: 30, Y1: 14}})
	t.Cleanup(func() { layouts = layouts[:len(layouts)-1] })

	path := filepath.Join(t.TempDir(), "report.dcm")
	writeTestFile(t, path,
		element(t, tag.PatientName, []string{""}),
		element(t, tag.SamplesPerPixel, []int{3}),
		element(t, tag.Rows, []int{rows}),
		element(t, tag.Columns, []int{columns}),
		element(t, tag.BitsAllocated, []int{8}),
	)
	header, err := os.ReadFile(path)
	require.NoError(t, err)

	pix := make([]byte, columns*rows*3)
	appendPixelData(t, path, pix)

	changed, err := CleanHologic(path, "test")
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, header, data[:len(header)])

	offset := len(data) - len(pix)
	pixel := func(x, canvasY int) []byte {
		i := offset + ((rows-1-canvasY)*columns+x)*3
		return data[i : i+3]
	}
	gray := []byte{Background.R, Background.G, Background.B}
	assert.Equal(t, gray, pixel(2, 12))
	assert.Equal(t, gray, pixel(30, 10))
	assert.Equal(t, []byte{0, 0, 0}, pixel(31, 12))
	assert.Equal(t, []byte{0, 0, 0}, pixel(2, 15))
}

func TestCleanHologicUnknownLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.dcm")
	writeTestFile(t, path,
		element(t, tag.PatientName, []string{"Doe^Jane"}),
		element(t, tag.Rows, []int{7}),
		element(t, tag.Columns, []int{7}),
	)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	changed, err := CleanHologic(path, SubtypeHip)
	require.NoError(t, err)
	assert.False(t, changed)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
