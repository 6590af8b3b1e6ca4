package interfaces

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yair/merchpulse/pkg/domain"
)

type IngestionRunner interface {
	Run(ctx context.Context, platforms []string) *domain.IngestionResponse
}

type Recalculator interface {
	RecalculateAll(ctx context.Context) (int, error)
}

type LogReader interface {
	Logs(ctx context.Context, platform string, limit int) ([]domain.ScrapingLog, error)
}

type triggerRequest struct {
	Platforms []string `json:"platforms"`
}

// ScrapingHandler exposes the write-side triggers: ingestion runs and score
// recalculation, plus the audit log of past runs.
type ScrapingHandler struct {
	ingestion    IngestionRunner
	recalculator Recalculator
	logs         LogReader
}

func NewScrapingHandler(ingestion IngestionRunner, recalculator Recalculator, logs LogReader) *ScrapingHandler {
	return &ScrapingHandler{
		ingestion:    ingestion,
		recalculator: recalculator,
		logs:         logs,
	}
}

func (h *ScrapingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/scraping/trigger", h.TriggerScraping).Methods("POST")
	router.HandleFunc("/api/scraping/logs", h.GetLogs).Methods("GET")
	router.HandleFunc("/api/analysis/recalculate", h.Recalculate).Methods("POST")
}

func (h *ScrapingHandler) TriggerScraping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req triggerRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	respondWithJSON(w, http.StatusOK, h.ingestion.Run(ctx, req.Platforms))
}

func (h *ScrapingHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsedLimit > 100 {
			parsedLimit = 100
		}
		limit = parsedLimit
	}

	logs, err := h.logs.Logs(ctx, r.URL.Query().Get("platform"), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, logs)
}

func (h *ScrapingHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	count, err := h.recalculator.RecalculateAll(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "recalculation failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "completed",
		"recalculated": count,
	})
}

// decodeOptionalBody accepts an empty body as the zero request.
func decodeOptionalBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}
