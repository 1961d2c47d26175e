package model

import "fmt"

// GenerationRequest is an immutable snapshot taken when generation starts.
type GenerationRequest struct {
	TestCase  TestCase      `json:"testCase"`
	Framework Framework     `json:"framework"`
	Pattern   DesignPattern `json:"pattern"`
	Language  Language      `json:"language"`
}

// NewGenerationRequest validates the selection and deep-copies tc so later
// edits do not leak into the request.
func NewGenerationRequest(tc *TestCase, fw Framework, pattern DesignPattern, lang Language) (GenerationRequest, error) {
	if err := Validate(tc, fw, pattern); err != nil {
		return GenerationRequest{}, err
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	return GenerationRequest{
		TestCase:  tc.Clone(),
		Framework: fw,
		Pattern:   pattern,
		Language:  lang,
	}, nil
}

// GeneratedFile is one source file returned by the model.
type GeneratedFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// FileSet is the ordered result of one generation plus the active file.
type FileSet struct {
	Files  []GeneratedFile `json:"files"`
	Active int             `json:"active"`
}

// NewFileSet selects the first file when there is one.
func NewFileSet(files []GeneratedFile) FileSet {
	return FileSet{Files: files}
}

// Len returns the number of files.
func (fs *FileSet) Len() int {
	return len(fs.Files)
}

// Select makes file i active.
func (fs *FileSet) Select(i int) error {
	if i < 0 || i >= len(fs.Files) {
		return fmt.Errorf("file index %d out of range [0,%d)", i, len(fs.Files))
	}
	fs.Active = i
	return nil
}

// ActiveFile returns the active file, or false when the set is empty.
func (fs *FileSet) ActiveFile() (GeneratedFile, bool) {
	if len(fs.Files) == 0 {
		return GeneratedFile{}, false
	}
	return fs.Files[fs.Active], true
}

// Clear drops all files.
func (fs *FileSet) Clear() {
	fs.Files = nil
	fs.Active = 0
}
