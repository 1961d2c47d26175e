package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/rs/zerolog/log"
)

// ManifestName is the file written next to the generated sources.
const ManifestName = "casegen.json"

var (
	// ErrUnsafePath is returned for absolute names or names escaping the output dir.
	ErrUnsafePath   = errors.New("unsafe file path")
	// ErrFileExists is returned when a target exists and overwriting is off.
	ErrFileExists   = errors.New("file already exists")
	// ErrReservedName is returned for a generated file named like the manifest.
	ErrReservedName = errors.New("reserved file name")
)

// Writer writes generated files below Dir
type Writer struct {
	Dir       string
	Overwrite bool
	Manifest  bool
}

// NewWriter creates a writer for dir that also writes the manifest.
func NewWriter(dir string, overwrite bool) *Writer {
	return &Writer{
		Dir:       dir,
		Overwrite: overwrite,
		Manifest:  true,
	}
}

// Manifest summarises one generation written to disk
type Manifest struct {
	Version     string         `json:"version"`
	GeneratedAt time.Time      `json:"generated_at"`
	TestCaseID  string         `json:"test_case_id,omitempty"`
	Title       string         `json:"title"`
	Framework   string         `json:"framework"`
	Pattern     string         `json:"pattern"`
	Language    string         `json:"language"`
	Files       []ManifestFile `json:"files"`
}

// ManifestFile is one entry of the manifest
type ManifestFile struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// Write validates every file name first and then writes all files,
// creating parent directories. It returns the written paths in order.
func (w *Writer) Write(req model.GenerationRequest, files []model.GeneratedFile) ([]string, error) {
	rels := make([]string, len(files))
	seen := make(map[string]bool, len(files))
	for i, f := range files {
		rel, err := SafePath(f.Filename)
		if err != nil {
			return nil, err
		}
		if seen[rel] {
			return nil, fmt.Errorf("duplicate file %q", rel)
		}
		if w.Manifest && strings.EqualFold(rel, ManifestName) {
			return nil, fmt.Errorf("%s: %w", rel, ErrReservedName)
		}
		seen[rel] = true
		rels[i] = rel

		if !w.Overwrite {
			if _, err := os.Stat(filepath.Join(w.Dir, rel)); err == nil {
				return nil, fmt.Errorf("%s: %w", rel, ErrFileExists)
			}
		}
	}

	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := make([]string, 0, len(files))
	for i, f := range files {
		target := filepath.Join(w.Dir, rels[i])
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", rels[i], err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", rels[i], err)
		}
		written = append(written, target)
	}

	if w.Manifest {
		if err := w.writeManifest(req, files, rels); err != nil {
			return written, err
		}
	}

	log.Info().Str("dir", w.Dir).Int("files", len(written)).Msg("wrote generated files")
	return written, nil
}

func (w *Writer) writeManifest(req model.GenerationRequest, files []model.GeneratedFile, rels []string) error {
	m := Manifest{
		Version:     "1.0",
		GeneratedAt: time.Now().UTC(),
		TestCaseID:  req.TestCase.ID,
		Title:       req.TestCase.Title,
		Framework:   string(req.Framework),
		Pattern:     string(req.Pattern),
		Language:    string(req.Language),
		Files:       make([]ManifestFile, len(files)),
	}
	for i, f := range files {
		m.Files[i] = ManifestFile{Path: rels[i], Bytes: len(f.Content)}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest from dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// SafePath turns a model-supplied file name into a clean relative path.
// Backslashes count as separators; absolute paths and ".." escapes fail.
func SafePath(name string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	if p == "" {
		return "", fmt.Errorf("empty file name: %w", ErrUnsafePath)
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" || hasDriveLetter(p) {
		return "", fmt.Errorf("%q is absolute: %w", name, ErrUnsafePath)
	}

	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%q escapes the output directory: %w", name, ErrUnsafePath)
	}
	return filepath.FromSlash(clean), nil
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}
