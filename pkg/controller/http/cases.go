package http

import (
	"encoding/json"
	"net/http"

	"github.com/ccdrover/ccdrover/pkg/domain/interfaces"
	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// CaseHandler serves recorded cases
type CaseHandler struct {
	cases interfaces.CaseLister
}

func NewCaseHandler(cases interfaces.CaseLister) *CaseHandler {
	return &CaseHandler{cases: cases}
}

// caseSummary is the list view of a case; code is omitted to keep
// the listing small
type caseSummary struct {
	ID           string   `json:"id"`
	CreatedAt    string   `json:"created_at"`
	Marker       string   `json:"marker"`
	BadSetting   string   `json:"bad_setting"`
	GoodSettings []string `json:"good_settings"`
	Bisection    string   `json:"bisection,omitempty"`
	Reduced      bool     `json:"reduced"`
}

func summarize(rec *model.CaseRecord) caseSummary {
	goods := make([]string, 0, len(rec.Case.GoodSettings))
	for _, gs := range rec.Case.GoodSettings {
		goods = append(goods, gs.String())
	}
	return caseSummary{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Marker:       rec.Case.Marker,
		BadSetting:   rec.Case.BadSetting.String(),
		GoodSettings: goods,
		Bisection:    rec.Case.Bisection,
		Reduced:      rec.Case.ReducedCode != "",
	}
}

// List returns summaries of all recorded cases
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.cases.ListCases(r.Context())
	if err != nil {
		ctxlog.From(r.Context()).Error("failed to list cases", "error", err)
		writeError(w, goerr.New("failed to list cases"), http.StatusInternalServerError)
		return
	}

	summaries := make([]caseSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}
	writeJSON(w, r, summaries)
}

// Get returns one case in full
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.cases.GetCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, goerr.New("case not found"), http.StatusNotFound)
		return
	}
	writeJSON(w, r, rec)
}

// Code returns the case's active source as plain text, reduced code
// when available
func (h *CaseHandler) Code(w http.ResponseWriter, r *http.Request) {
	rec, err := h.cases.GetCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, goerr.New("case not found"), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rec.Case.ActiveCode())); err != nil {
		ctxlog.From(r.Context()).Error("failed to write case code", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("failed to encode response", "error", err)
	}
}
