// Package blob stores binary artifacts (original PDFs, final composites) on
// the local filesystem. Locations are opaque relative paths handed back to
// the persistence layer.
package blob

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Write(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("blob name: %w", err)
	}
	name := hex.EncodeToString(buf)
	// Two-level fanout keeps directories small.
	location := filepath.Join(name[:2], name+".bin")
	path := filepath.Join(s.root, location)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("blob dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("blob write: %w", err)
	}
	return filepath.ToSlash(location), nil
}

func (s *FSStore) Read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("blob read %s: %w", location, err)
	}
	return data, nil
}

func (s *FSStore) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob delete %s: %w", location, err)
	}
	return nil
}

// resolve rejects locations that would escape the root.
func (s *FSStore) resolve(location string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(location))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob location %q", location)
	}
	return filepath.Join(s.root, clean), nil
}
