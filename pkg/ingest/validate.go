package ingest

import (
	"compress/gzip"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwantia/alder/pkg/dicom"
)

var ErrInvalidFile = errors.New("invalid image file")

// ValidateFile checks a downloaded file and returns the path it ends up
// at. A ".gz" file is decompressed in place, dropping the suffix. Any
// error means the file is unusable.
func ValidateFile(path string) (string, error) {
	if err := checkNotEmpty(path); err != nil {
		return path, err
	}

	if strings.HasSuffix(path, ".gz") {
		target, err := gunzip(path)
		if err != nil {
			return path, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
		}
		path = target
		if err := checkNotEmpty(path); err != nil {
			return path, err
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".dcm":
		if _, err := dicom.Inspect(path); err != nil {
			return path, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	case ".jpg", ".jpeg":
		if err := checkImage(path); err != nil {
			return path, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
		}
	default:
		return path, fmt.Errorf("%w: %s: unsupported format", ErrInvalidFile, path)
	}
	return path, nil
}

func checkNotEmpty(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidFile, path)
	}
	return nil
}

// gunzip replaces name.gz by name and returns the new path.
func gunzip(path string) (string, error) {
	target := strings.TrimSuffix(path, ".gz")

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	zr, err := gzip.NewReader(src)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	dst, err := os.Create(target)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(dst, zr)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", err
	}

	if err := os.Remove(path); err != nil {
		return "", err
	}
	return target, nil
}

func checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, err = image.DecodeConfig(f)
	return err
}
