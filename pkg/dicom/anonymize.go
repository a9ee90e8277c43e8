package dicom

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Anonymize clears the PatientName attribute in place. It reports false,
// leaving the file byte-for-byte untouched, when the name is already empty.
func Anonymize(path string) (bool, error) {
	hdr, err := Inspect(path)
	if err != nil {
		return false, err
	}
	if !hdr.HasPatientName() {
		return false, nil
	}

	ds, err := godicom.ParseFile(path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to parse '%s': %w", path, err)
	}

	elem := findElement(ds, tag.PatientName)
	if elem == nil {
		return false, nil
	}

	value, err := godicom.NewValue([]string{""})
	if err != nil {
		return false, err
	}
	elem.Value = value

	if err := writeDataset(path, ds); err != nil {
		return false, err
	}
	return true, nil
}

// writeDataset rewrites path through a temporary sibling so a failed write
// never truncates the original.
func writeDataset(path string, ds godicom.Dataset) error {
	tmpName := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".dcm")
	f, err := os.Create(tmpName)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = godicom.Write(f, ds, godicom.SkipVRVerification(), godicom.SkipValueTypeVerification())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}

	return replaceFile(tmpName, path)
}

func replaceFile(tmpName, path string) error {
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace '%s': %w", path, err)
	}
	return nil
}
