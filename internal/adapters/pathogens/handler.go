// Package pathogens exposes the catalog over HTTP/JSON.
package pathogens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crisprcatalog/internal/export"
	"crisprcatalog/pkg/domain"

	"go.uber.org/zap"
)

const (
	basePath   = "/api/pathogens"
	searchPath = basePath + "/search"
	exportPath = basePath + "/export"

	maxBodyBytes = 1 << 20

	// WarningsHeader carries non-blocking rule findings for a create.
	WarningsHeader = "X-Catalog-Warnings"
)

// Catalog is the data access surface the handler depends on.
type Catalog interface {
	ListPathogens(ctx context.Context) ([]domain.Pathogen, error)
	SearchPathogens(ctx context.Context, term string) ([]domain.Pathogen, error)
	CreatePathogen(ctx context.Context, candidate domain.Pathogen) (domain.Pathogen, domain.Result, error)
}

// Handler routes /api/pathogens requests to a Catalog.
type Handler struct {
	Catalog Catalog
	Now     func() time.Time
	// Logger receives failures that happen after the status line is sent.
	Logger *zap.Logger
}

// NewHandler constructs a pathogen HTTP handler.
func NewHandler(c Catalog) *Handler {
	return &Handler{Catalog: c, Now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		writeError(w, http.StatusInternalServerError, "pathogen catalog not configured")
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch path {
	case basePath:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case searchPath:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleSearch(w, r)
	case exportPath:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleExport(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	pathogens, err := h.Catalog.ListPathogens(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nonNil(pathogens))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name query parameter is required")
		return
	}
	pathogens, err := h.Catalog.SearchPathogens(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nonNil(pathogens))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	candidate, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, res, err := h.Catalog.CreatePathogen(r.Context(), candidate)
	if err != nil {
		var validation domain.ValidationError
		if errors.As(err, &validation) {
			writeError(w, http.StatusBadRequest, validation.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if warnings := res.Filter(domain.SeverityWarn); len(warnings) > 0 {
		msgs := make([]string, 0, len(warnings))
		for _, v := range warnings {
			msgs = append(msgs, v.Message)
		}
		w.Header().Set(WarningsHeader, strings.Join(msgs, "; "))
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := negotiateFormat(r)
	if err != nil {
		writeError(w, http.StatusNotAcceptable, err.Error())
		return
	}
	pathogens, err := h.Catalog.ListPathogens(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	filename := fmt.Sprintf("pathogens-%s.%s", h.now().UTC().Format("20060102T150405Z"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, pathogens); err != nil {
		h.logger().Warn("export truncated",
			zap.String("format", string(format)),
			zap.Int("pathogens", len(pathogens)),
			zap.Error(err),
		)
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// negotiateFormat prefers the format query parameter and falls back to Accept.
func negotiateFormat(r *http.Request) (export.Format, error) {
	if raw := r.URL.Query().Get("format"); raw != "" {
		return export.ParseFormat(raw)
	}
	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		return export.FormatCSV, nil
	}
	return export.FormatJSON, nil
}

func nonNil(pathogens []domain.Pathogen) []domain.Pathogen {
	if pathogens == nil {
		return []domain.Pathogen{}
	}
	return pathogens
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
