// Package dicom inspects and de-identifies the DICOM files written by the
// ingestion pipeline.
package dicom

import (
	"fmt"
	"strconv"
	"strings"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Info is the subset of header attributes the pipeline relies on.
type Info struct {
	Rows              int
	Columns           int
	Frames            int
	AcquisitionTime   string
	PatientName       string
	Laterality        string
	SeriesDescription string
}

// Dimensionality counts the spatial axes with an extent above one.
func (i Info) Dimensionality() int {
	n := 0
	for _, extent := range []int{i.Rows, i.Columns, i.Frames} {
		if extent > 1 {
			n++
		}
	}
	return n
}

// HasPatientName reports whether identifying text is still present.
func (i Info) HasPatientName() bool {
	return hasName(i.PatientName)
}

// hasName ignores the component separators of an empty person name.
func hasName(name string) bool {
	return strings.Trim(name, " ^") != ""
}

// Inspect reads the header of a DICOM file without decoding pixel data.
func Inspect(path string) (*Info, error) {
	ds, err := godicom.ParseFile(path, nil, godicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", path, err)
	}
	return info(ds), nil
}

func info(ds godicom.Dataset) *Info {
	i := &Info{
		Rows:              intValue(ds, tag.Rows),
		Columns:           intValue(ds, tag.Columns),
		Frames:            intValue(ds, tag.NumberOfFrames),
		PatientName:       stringValue(ds, tag.PatientName),
		SeriesDescription: stringValue(ds, tag.SeriesDescription),
	}
	if i.Frames == 0 {
		i.Frames = 1
	}

	i.AcquisitionTime = stringValue(ds, tag.AcquisitionDateTime)
	if i.AcquisitionTime == "" {
		i.AcquisitionTime = stringValue(ds, tag.AcquisitionDate) + stringValue(ds, tag.AcquisitionTime)
	}

	i.Laterality = lateralityOf(
		stringValue(ds, tag.ImageLaterality),
		stringValue(ds, tag.Laterality),
		i.SeriesDescription,
	)
	return i
}

// lateralityOf returns "left", "right" or "" from the first source that
// names a side. Coded values (L/R) and free text are both accepted.
func lateralityOf(sources ...string) string {
	for _, s := range sources {
		v := strings.ToLower(strings.TrimSpace(s))
		switch {
		case v == "l" || strings.Contains(v, "left"):
			return "left"
		case v == "r" || strings.Contains(v, "right"):
			return "right"
		}
	}
	return ""
}

func findElement(ds godicom.Dataset, t tag.Tag) *godicom.Element {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return nil
	}
	return elem
}

func stringValue(ds godicom.Dataset, t tag.Tag) string {
	elem := findElement(ds, t)
	if elem == nil || elem.Value == nil {
		return ""
	}

	switch v := elem.Value.GetValue().(type) {
	case []string:
		return strings.TrimSpace(strings.Join(v, "\\"))
	case []int:
		if len(v) > 0 {
			return strconv.Itoa(v[0])
		}
	}
	return ""
}

func intValue(ds godicom.Dataset, t tag.Tag) int {
	elem := findElement(ds, t)
	if elem == nil || elem.Value == nil {
		return 0
	}

	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0]
		}
	case []string:
		if len(v) > 0 {
			n, _ := strconv.Atoi(strings.TrimSpace(v[0]))
			return n
		}
	}
	return 0
}
