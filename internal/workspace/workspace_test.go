package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/QTest-hq/casegen/pkg/model"
)

func testRequest() model.GenerationRequest {
	return model.GenerationRequest{
		TestCase:  model.TestCase{ID: "TC-7", Title: "Search"},
		Framework: model.FrameworkPlaywright,
		Pattern:   model.PatternPageObjectModel,
		Language:  model.LanguageTypeScript,
	}
}

func TestSafePath(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"login.spec.ts", "login.spec.ts", false},
		{"pages/LoginPage.ts", filepath.Join("pages", "LoginPage.ts"), false},
		{`features\login.feature`, filepath.Join("features", "login.feature"), false},
		{"./a/../b.ts", "b.ts", false},
		{"", "", true},
		{"   ", "", true},
		{"/etc/passwd", "", true},
		{`\\server\share\x.ts`, "", true},
		{"C:/tmp/x.ts", "", true},
		{"../outside.ts", "", true},
		{"a/../../outside.ts", "", true},
		{"..", "", true},
		{".", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafePath(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsafePath) {
					t.Fatalf("SafePath(%q) error = %v, want ErrUnsafePath", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SafePath(%q) unexpected error: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("SafePath(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)

	files := []model.GeneratedFile{
		{Filename: "pages/SearchPage.ts", Content: "export class SearchPage {}"},
		{Filename: "search.spec.ts", Content: "test('search', async () => {})"},
	}

	written, err := w.Write(testRequest(), files)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("Write() wrote %d files, want 2", len(written))
	}

	data, err := os.ReadFile(filepath.Join(dir, "pages", "SearchPage.ts"))
	if err != nil {
		t.Fatalf("read page object: %v", err)
	}
	if string(data) != "export class SearchPage {}" {
		t.Errorf("content = %q", data)
	}

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest() error: %v", err)
	}
	if m.Framework != "Playwright" || m.Pattern != "Page Object Model" || m.TestCaseID != "TC-7" {
		t.Errorf("manifest header = %+v", m)
	}
	if len(m.Files) != 2 || m.Files[1].Path != "search.spec.ts" || m.Files[1].Bytes != len(files[1].Content) {
		t.Errorf("manifest files = %+v", m.Files)
	}
}

func TestWriter_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.ts"), []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	files := []model.GeneratedFile{{Filename: "b.ts", Content: "b"}, {Filename: "a.ts", Content: "new"}}
	_, err := NewWriter(dir, false).Write(testRequest(), files)
	if !errors.Is(err, ErrFileExists) {
		t.Fatalf("Write() error = %v, want ErrFileExists", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.ts")); !os.IsNotExist(err) {
		t.Error("nothing should be written when a file conflicts")
	}

	if _, err := NewWriter(dir, true).Write(testRequest(), files); err != nil {
		t.Fatalf("Write() with overwrite error: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "a.ts"))
	if string(data) != "new" {
		t.Errorf("a.ts = %q, want overwritten", data)
	}
}

func TestWriter_RejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	files := []model.GeneratedFile{
		{Filename: "ok.ts", Content: "x"},
		{Filename: "../../evil.ts", Content: "x"},
	}

	_, err := NewWriter(dir, true).Write(testRequest(), files)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("Write() error = %v, want ErrUnsafePath", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ok.ts")); !os.IsNotExist(err) {
		t.Error("no file should be written when any name is unsafe")
	}
}

func TestWriter_RejectsDuplicates(t *testing.T) {
	files := []model.GeneratedFile{{Filename: "a.ts"}, {Filename: "./a.ts"}}
	if _, err := NewWriter(t.TempDir(), true).Write(testRequest(), files); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestWriter_NoManifest(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir}
	if _, err := w.Write(testRequest(), []model.GeneratedFile{{Filename: "a.ts", Content: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestName)); !os.IsNotExist(err) {
		t.Error("manifest should not be written")
	}
}

func TestWriter_ReservesManifestName(t *testing.T) {
	for _, name := range []string{ManifestName, "CaseGen.JSON"} {
		dir := t.TempDir()
		files := []model.GeneratedFile{{Filename: "a.ts", Content: "a"}, {Filename: name, Content: `{"fixture":true}`}}

		_, err := NewWriter(dir, true).Write(testRequest(), files)
		if !errors.Is(err, ErrReservedName) {
			t.Fatalf("Write(%q) error = %v, want ErrReservedName", name, err)
		}
		if _, err := os.Stat(filepath.Join(dir, "a.ts")); !os.IsNotExist(err) {
			t.Errorf("Write(%q) should not write any file", name)
		}
	}

	// Without a manifest the name is free.
	dir := t.TempDir()
	w := &Writer{Dir: dir}
	files := []model.GeneratedFile{{Filename: ManifestName, Content: `{"fixture":true}`}}
	if _, err := w.Write(testRequest(), files); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, ManifestName))
	if string(data) != `{"fixture":true}` {
		t.Errorf("%s = %q, want the generated content", ManifestName, data)
	}

	// Nested files may share the base name.
	dir = t.TempDir()
	files = []model.GeneratedFile{{Filename: "fixtures/" + ManifestName, Content: "{}"}}
	if _, err := NewWriter(dir, true).Write(testRequest(), files); err != nil {
		t.Fatalf("Write() nested manifest name error: %v", err)
	}
}
