package catalogsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/raumania/assistant/internal/domain"
)

// FileSource reads the two export files from a directory
type FileSource struct {
	dir         string
	productFile string
	brandFile   string
}

// NewFileSource creates a source reading dir/productFile and dir/brandFile
func NewFileSource(dir, productFile, brandFile string) *FileSource {
	if productFile == "" {
		productFile = "product.json"
	}
	if brandFile == "" {
		brandFile = "brand.json"
	}
	return &FileSource{dir: dir, productFile: productFile, brandFile: brandFile}
}

// Dir returns the watched directory
func (s *FileSource) Dir() string { return s.dir }

// Paths returns the product and brand file paths
func (s *FileSource) Paths() (string, string) {
	return filepath.Join(s.dir, s.productFile), filepath.Join(s.dir, s.brandFile)
}

// Version fingerprints both files by modification time and size
func (s *FileSource) Version(ctx context.Context) (string, error) {
	productPath, brandPath := s.Paths()
	pv, err := statVersion(productPath)
	if err != nil {
		return "", err
	}
	bv, err := statVersion(brandPath)
	if err != nil {
		return "", err
	}
	return pv + "|" + bv, nil
}

// Load reads and parses both files
func (s *FileSource) Load(ctx context.Context) (*domain.Catalog, error) {
	version, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}

	productPath, brandPath := s.Paths()
	productData, err := readExport(productPath)
	if err != nil {
		return nil, err
	}
	brandData, err := readExport(brandPath)
	if err != nil {
		return nil, err
	}

	return Decode(productData, brandData, version)
}

func statVersion(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fileError(path, err)
	}
	return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size()), nil
}

func readExport(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileError(path, err)
	}
	return data, nil
}

func fileError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s not found", domain.ErrCatalogUnavailable, path)
	}
	return fmt.Errorf("%w: read %s: %v", domain.ErrCatalogUnavailable, path, err)
}
