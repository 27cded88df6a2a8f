package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
)

const tempPrefix = "tmp-"

// Store implements ports.TreeStore using the local filesystem.
// It stores each tree as a YAML or JSON file in a configured directory.
type Store struct {
	BasePath string
	Format   schema.Format
}

// Option configures a Store.
type Option func(*Store)

// WithFormat selects the on-disk encoding. Empty keeps the YAML default.
func WithFormat(f schema.Format) Option {
	return func(s *Store) {
		if f != "" {
			s.Format = f
		}
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".arbor/trees".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".arbor", "trees")
	}
	s := &Store{BasePath: basePath, Format: schema.FormatYAML}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(name string) string {
	return filepath.Join(s.BasePath, name+s.Format.Ext())
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("tree name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid tree name %q", name)
	}
	return nil
}

// Save persists the document atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, name string, doc *schema.Document) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure tree directory: %w", err)
	}

	data, err := schema.Marshal(doc, s.Format)
	if err != nil {
		return fmt.Errorf("failed to marshal tree: %w", err)
	}

	// Same directory as the destination, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, tempPrefix+name+"-*"+s.Format.Ext())
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(name)
	if _, err := os.Stat(destPath); err == nil {
		// os.Rename does not replace an existing file on Windows.
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing tree file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to tree file: %w", err)
	}
	return nil
}

// Load reads and decodes a tree file.
func (s *Store) Load(ctx context.Context, name string) (*schema.Document, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrTreeNotFound
		}
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}
	doc, err := schema.Unmarshal(data, s.Format)
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", name, err)
	}
	return doc, nil
}

// Delete removes the tree file.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete tree file: %w", err)
	}
	return nil
}

// List returns the names of all stored trees.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := s.treeName(entry.Name()); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// treeName maps a file name back to a tree name, skipping temp files and foreign extensions.
func (s *Store) treeName(file string) (string, bool) {
	ext := s.Format.Ext()
	if strings.HasPrefix(file, tempPrefix) || filepath.Ext(file) != ext {
		return "", false
	}
	return strings.TrimSuffix(file, ext), true
}
