package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxImportBytes = 20 << 20
	maxRuleBytes   = 1 << 20
	maxCategoryLen = 100

	readinessTimeout = 5 * time.Second
)

type transactionView struct {
	ID           int64   `json:"id"`
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	UserAssigned bool    `json:"user_assigned"`
}

type totalRow struct {
	Category string  `json:"category"`
	Total    string  `json:"total"`
	Percent  float64 `json:"percent"`
}

type totalsResponse struct {
	Rows  []totalRow `json:"rows"`
	Total string     `json:"total"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			slog.Warn("Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleImport accepts a bank CSV either as a multipart upload under the
// "file" field or as the raw request body, and replaces the ledger with
// its categorized rows.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var src io.Reader = r.Body
	if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "multipart import requires a file field")
			return
		}
		defer file.Close()
		src = file
	}

	imported, err := s.ledger.ImportCSV(r.Context(), src)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	category := r.URL.Query().Get("category")

	rows, err := s.ledger.List(r.Context(), month, category)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]transactionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, transactionView{
			ID:           row.ID,
			Date:         row.RawDate,
			Amount:       row.Amount,
			Description:  row.Description,
			Category:     row.Core().EffectiveCategory(),
			UserAssigned: row.UserAssigned,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": views,
		"count":        len(views),
	})
}

// handleAssignCategory pins a category on one transaction and reports the
// keyword learned from its description, if any.
func (s *Server) handleAssignCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	body, err := parseRequestBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category := sanitizeInput(body.Get("category"), maxCategoryLen)

	keyword, err := s.ledger.AssignCategory(r.Context(), id, category)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]string{"keyword": keyword})
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	text, err := s.ledger.RuleText(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeText(w, http.StatusOK, text)
}

func (s *Server) handlePutRules(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRuleBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read rules body")
		return
	}

	recategorized, err := s.ledger.UpdateRules(r.Context(), string(body))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]int{"recategorized": recategorized})
}

func (s *Server) handleRecategorize(w http.ResponseWriter, r *http.Request) {
	recategorized, err := s.ledger.Recategorise(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]int{"recategorized": recategorized})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	category := r.URL.Query().Get("category")

	cacheKey := month + "|" + category
	if cached, ok := s.totalsCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	rows, grand, err := s.ledger.Totals(r.Context(), month, category)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := totalsResponse{
		Rows:  make([]totalRow, 0, len(rows)),
		Total: grand.StringFixed(2),
	}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, totalRow{
			Category: row.Category,
			Total:    row.Total.StringFixed(2),
			Percent:  row.Percent,
		})
	}

	s.totalsCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.ledger.Months(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"months": months})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")

	if cached, ok := s.reportCache.Get(month); ok {
		writeText(w, http.StatusOK, cached)
		return
	}

	report, err := s.ledger.Report(r.Context(), month)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.reportCache.Set(month, report)
	writeText(w, http.StatusOK, report)
}
