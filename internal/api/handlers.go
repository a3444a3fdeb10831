package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/btgraph/pkg/buildinfo"
	"github.com/matzehuels/btgraph/pkg/document"
	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/pipeline"
	"github.com/matzehuels/btgraph/pkg/storage"
)

// =============================================================================
// Response bodies
// =============================================================================

type documentResponse struct {
	Migrated bool               `json:"migrated"`
	Placed   *int               `json:"placed,omitempty"`
	Document *document.Document `json:"document"`
}

type validateResponse struct {
	Migrated bool             `json:"migrated"`
	Report   *pipeline.Report `json:"report"`
}

type saveResponse struct {
	Name   string           `json:"name"`
	Report *pipeline.Report `json:"report"`
}

type listResponse struct {
	Documents []string `json:"documents"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type errorBody struct {
	Error  errorDetail      `json:"error"`
	Report *pipeline.Report `json:"report,omitempty"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.open(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Migrated: res.Migrated, Document: res.Document})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.openTree(w, r)
	if !ok {
		return
	}
	report := s.runner.Validate(r.Context(), res.Graph)
	writeJSON(w, http.StatusOK, validateResponse{Migrated: res.Migrated, Report: report})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	res, ok := s.openTree(w, r)
	if !ok {
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	placed := s.runner.Layout(r.Context(), res.Graph, all)
	writeJSON(w, http.StatusOK, documentResponse{
		Migrated: res.Migrated,
		Placed:   &placed,
		Document: document.FromGraph(res.Graph),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, listResponse{Documents: names})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	res, err := s.runner.Load(r.Context(), s.store, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.Migrated {
		s.loggerFrom(r.Context()).Info("migrated stored document", "name", name)
	}
	writeJSON(w, http.StatusOK, documentResponse{Migrated: res.Migrated, Document: res.Document})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if err := errors.ValidateDocumentName(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, ok := s.openTree(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	report, err := s.runner.Save(r.Context(), s.store, name, res.Graph, force)
	if err != nil {
		s.writeErrorReport(w, r, err, report)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Name: name, Report: report})
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) open(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: errorDetail{
				Code:    string(errors.ErrCodeInvalidInput),
				Message: "request body too large",
			}})
			return nil, false
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return nil, false
	}
	res, err := s.runner.Open(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return res, true
}

func (s *Server) openTree(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	res, ok := s.open(w, r)
	if !ok {
		return nil, false
	}
	if res.Graph == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported,
			"%s documents have no behavior tree", res.Document.Kind))
		return nil, false
	}
	return res, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReport(w, r, err, nil)
}

func (s *Server) writeErrorReport(w http.ResponseWriter, r *http.Request, err error, report *pipeline.Report) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.loggerFrom(r.Context()).Error("request failed", "error", err)
	}

	detail := errorDetail{Code: string(errors.GetCode(err)), Message: errors.UserMessage(err)}
	var perr *errors.ParseError
	if stderrors.As(err, &perr) {
		detail.Path = perr.Path
		detail.Message = perr.Message
	}
	if detail.Code == "" {
		detail.Code = string(errors.ErrCodeInternal)
		if stderrors.Is(err, storage.ErrNotFound) {
			detail.Code = string(errors.ErrCodeDocumentNotFound)
		}
	}
	if status == http.StatusInternalServerError {
		detail.Message = "internal error"
	}
	if report != nil && report.Valid && report.Warnings() == 0 {
		report = nil
	}
	writeJSON(w, status, errorBody{Error: detail, Report: report})
}

func statusFor(err error) int {
	if stderrors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidName, errors.ErrCodeInvalidPath, errors.ErrCodeParse:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidDocument, errors.ErrCodeUnsupportedSchema, errors.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNeedsConfirmation:
		return http.StatusConflict
	case errors.ErrCodeNotFound, errors.ErrCodeDocumentNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
