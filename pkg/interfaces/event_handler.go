package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

// EventQueries is the read side the event handler serves.
type EventQueries interface {
	ListEvents(ctx context.Context, filter domain.EventFilter) (*domain.EventListResponse, error)
	GetEvent(ctx context.Context, id string) (*domain.EventDetail, error)
	Rankings(ctx context.Context, metric string, limit int) ([]domain.Event, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

type EventHandler struct {
	service EventQueries
}

func NewEventHandler(service EventQueries) *EventHandler {
	return &EventHandler{
		service: service,
	}
}

func (h *EventHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/events", h.ListEvents).Methods("GET")
	router.HandleFunc("/api/events/{id}", h.GetEvent).Methods("GET")
	router.HandleFunc("/api/rankings", h.GetRankings).Methods("GET")
	router.HandleFunc("/api/dashboard/stats", h.GetDashboardStats).Methods("GET")
}

func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := domain.EventFilter{
		City:  q.Get("city"),
		Genre: q.Get("genre"),
	}

	var err error
	if filter.MinHype, err = floatParam(q.Get("min_hype")); err != nil {
		respondWithError(w, http.StatusBadRequest, "min_hype must be a number")
		return
	}
	if filter.MinSalesPotential, err = floatParam(q.Get("min_sales_potential")); err != nil {
		respondWithError(w, http.StatusBadRequest, "min_sales_potential must be a number")
		return
	}
	if filter.DateFrom, err = dateParam(q.Get("date_from"), false); err != nil {
		respondWithError(w, http.StatusBadRequest, "date_from must be YYYY-MM-DD")
		return
	}
	if filter.DateTo, err = dateParam(q.Get("date_to"), true); err != nil {
		respondWithError(w, http.StatusBadRequest, "date_to must be YYYY-MM-DD")
		return
	}
	if filter.Page, filter.PageSize, err = pageParams(q.Get("page"), q.Get("page_size"), 50); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.ListEvents(ctx, filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	vars := mux.Vars(r)
	id := vars["id"]

	event, err := h.service.GetEvent(ctx, id)
	if err != nil {
		switch err {
		case domain.ErrEventNotFound:
			respondWithError(w, http.StatusNotFound, "event not found")
		case domain.ErrInvalidRequest:
			respondWithError(w, http.StatusBadRequest, "event id is required")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, event)
}

func (h *EventHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "sales_potential_score"
	}
	if metric != "sales_potential_score" && metric != "hype_score" {
		respondWithError(w, http.StatusBadRequest, "metric must be sales_potential_score or hype_score")
		return
	}

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

	events, err := h.service.Rankings(ctx, metric, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"metric": metric,
		"events": events,
	})
}

func (h *EventHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.service.DashboardStats(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func floatParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intParam(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// dateParam parses a calendar day in Brasilia time. With endOfDay the last
// instant of that day is returned so the bound is inclusive.
func dateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, normalize.BRT)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

type paramError string

func (e paramError) Error() string { return string(e) }

func pageParams(pageStr, sizeStr string, defaultSize int) (int, int, error) {
	page, size := 1, defaultSize
	if pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			return 0, 0, paramError("page must be a positive integer")
		}
		page = parsed
	}
	if sizeStr != "" {
		parsed, err := strconv.Atoi(sizeStr)
		if err != nil || parsed < 1 {
			return 0, 0, paramError("page_size must be a positive integer")
		}
		if parsed > 100 {
			parsed = 100
		}
		size = parsed
	}
	return page, size, nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
