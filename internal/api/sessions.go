package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/QTest-hq/casegen/internal/render"
	"github.com/QTest-hq/casegen/internal/session"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// CreateSessionRequest is the request body for creating a session
type CreateSessionRequest struct {
	TestCase *model.TestCase `json:"testCase,omitempty"`
	SelectionRequest
}

// SelectionRequest changes framework, pattern, language or layout. Absent
// fields are left alone.
type SelectionRequest struct {
	Framework *string `json:"framework,omitempty"`
	Pattern   *string `json:"pattern,omitempty"`
	Language  *string `json:"language,omitempty"`
	SplitView *bool   `json:"splitView,omitempty"`
}

// TestCaseRequest replaces the test case details. Steps are only replaced
// when present.
type TestCaseRequest struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Preconditions string           `json:"preconditions"`
	TestData      string           `json:"testData"`
	Steps         []model.TestStep `json:"steps"`
}

// AddStepRequest inserts a step after After, or appends when it is absent
type AddStepRequest struct {
	After *int `json:"after,omitempty"`
}

// UpdateStepRequest sets one field of a step
type UpdateStepRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// SelectFileRequest activates a generated file
type SelectFileRequest struct {
	Index int `json:"index"`
}

// AutoFillResponse reports whether a suggestion was merged
type AutoFillResponse struct {
	Applied bool          `json:"applied"`
	Session session.State `json:"session"`
}

// FileEntry is one line of the file explorer
type FileEntry struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Name     string `json:"name"`
	Ext      string `json:"ext"`
	Language string `json:"language,omitempty"`
	Feature  bool   `json:"feature"`
	Active   bool   `json:"active"`
	Bytes    int    `json:"bytes"`
}

// FilesResponse is the file explorer view
type FilesResponse struct {
	Files  []FileEntry `json:"files"`
	Active int         `json:"active"`
	Tree   string      `json:"tree"`
}

// ValidationErrorResponse lists what blocks generation
type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	sess := s.sessions.Create(req.TestCase)
	if err := applySelection(sess, req.SelectionRequest); err != nil {
		s.sessions.Delete(sess.ID())
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, sess.State())
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.State())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) updateTestCase(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req TestCaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := sess.EditTestCase(func(tc *model.TestCase) {
		tc.ID = req.ID
		tc.Title = req.Title
		tc.Description = req.Description
		tc.Preconditions = req.Preconditions
		tc.TestData = req.TestData
		if req.Steps != nil {
			tc.ReplaceSteps(req.Steps)
		}
	})
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.State())
}

func (s *Server) updateSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req SelectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := applySelection(sess, req); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.State())
}

func (s *Server) addStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req AddStepRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var err error
	if req.After != nil {
		_, err = sess.AddStep(*req.After)
	} else {
		_, err = sess.AddStep()
	}
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess.State())
}

func (s *Server) updateStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	var req UpdateStepRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	field, err := model.ParseStepField(req.Field)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := sess.UpdateStep(index, field, req.Value); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.State())
}

func (s *Server) removeStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	if err := sess.RemoveStep(index); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.State())
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	if err := sess.Generate(r.Context()); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) || errors.Is(err, session.ErrBusy) || errors.Is(err, session.ErrClosed) {
			respondSessionError(w, err)
			return
		}
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	st := sess.State()
	log.Info().Str("session", st.ID).Int("files", len(st.Files.Files)).Msg("generation finished")
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) autoFill(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	applied, err := sess.AutoFill(r.Context())
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, AutoFillResponse{Applied: applied, Session: sess.State()})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	respondText(w, "text/markdown; charset=utf-8", render.Preview(sess.State().TestCase))
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	fs := sess.State().Files
	resp := FilesResponse{
		Files:  make([]FileEntry, len(fs.Files)),
		Active: fs.Active,
		Tree:   render.FileTree(fs.Files, fs.Active),
	}
	for i, f := range fs.Files {
		name, ext := render.SplitFilename(f.Filename)
		resp.Files[i] = FileEntry{
			Index:    i,
			Filename: f.Filename,
			Name:     name,
			Ext:      ext,
			Language: f.Language,
			Feature:  render.IsFeatureFile(f.Filename),
			Active:   i == fs.Active,
			Bytes:    len(f.Content),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) selectFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req SelectFileRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.SelectFile(req.Index); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.State())
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	f, err := sess.File(index)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondText(w, "text/plain; charset=utf-8", f.Content)
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondSessionError(w, err)
		return nil, false
	}
	return sess, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid index")
		return 0, false
	}
	return index, true
}

func applySelection(sess *session.Session, req SelectionRequest) error {
	if req.Framework != nil {
		fw, err := model.ParseFramework(*req.Framework)
		if err != nil {
			return badRequest(err)
		}
		if err := sess.SetFramework(fw); err != nil {
			return err
		}
	}
	if req.Pattern != nil {
		p, err := model.ParsePattern(*req.Pattern)
		if err != nil {
			return badRequest(err)
		}
		if err := sess.SetPattern(p); err != nil {
			return err
		}
	}
	if req.Language != nil {
		l, err := model.ParseLanguage(*req.Language)
		if err != nil {
			return badRequest(err)
		}
		if err := sess.SetLanguage(l); err != nil {
			return err
		}
	}
	if req.SplitView != nil {
		if err := sess.SetSplitView(*req.SplitView); err != nil {
			return err
		}
	}
	return nil
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &badRequestError{err: err}
}

// respondSessionError maps domain errors to status codes.
func respondSessionError(w http.ResponseWriter, err error) {
	var (
		verr   *model.ValidationError
		badReq *badRequestError
	)

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Error: verr.Error(), Missing: verr.Missing})
	case errors.Is(err, session.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrClosed):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrInvalidIndex), errors.As(err, &badReq):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
