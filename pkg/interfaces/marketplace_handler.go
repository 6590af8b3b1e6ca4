package interfaces

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/forecast"
)

type MarketplaceQueries interface {
	ScrapeForEvents(ctx context.Context, custom []string) (*domain.IngestionResponse, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductListResponse, error)
	Stats(ctx context.Context) (*forecast.MarketStats, error)
	Projection(ctx context.Context) (*forecast.Projection, error)
	EventForecast(ctx context.Context, daysAhead int) (*forecast.Report, error)
}

type marketplaceScrapeRequest struct {
	SearchTerms []string `json:"search_terms"`
}

type MarketplaceHandler struct {
	service MarketplaceQueries
}

func NewMarketplaceHandler(service MarketplaceQueries) *MarketplaceHandler {
	return &MarketplaceHandler{
		service: service,
	}
}

func (h *MarketplaceHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/marketplace/products", h.ListProducts).Methods("GET")
	router.HandleFunc("/api/marketplace/stats", h.GetStats).Methods("GET")
	router.HandleFunc("/api/marketplace/projection", h.GetProjection).Methods("GET")
	router.HandleFunc("/api/marketplace/event-forecast", h.GetEventForecast).Methods("GET")
	router.HandleFunc("/api/marketplace/scrape", h.Scrape).Methods("POST")
}

func (h *MarketplaceHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := domain.ProductFilter{
		Platform:      q.Get("platform"),
		RelatedArtist: q.Get("related_artist"),
		Category:      q.Get("category"),
		Search:        q.Get("search"),
		SortBy:        q.Get("sort_by"),
	}

	switch filter.SortBy {
	case "", "price_asc", "price_desc", "sold_count", "rating":
	default:
		respondWithError(w, http.StatusBadRequest, "sort_by must be price_asc, price_desc, sold_count or rating")
		return
	}

	var err error
	if filter.MinPrice, err = floatParam(q.Get("min_price")); err != nil {
		respondWithError(w, http.StatusBadRequest, "min_price must be a number")
		return
	}
	if filter.MaxPrice, err = floatParam(q.Get("max_price")); err != nil {
		respondWithError(w, http.StatusBadRequest, "max_price must be a number")
		return
	}
	if filter.MinSold, err = intParam(q.Get("min_sold")); err != nil {
		respondWithError(w, http.StatusBadRequest, "min_sold must be an integer")
		return
	}
	if filter.Page, filter.PageSize, err = pageParams(q.Get("page"), q.Get("page_size"), 30); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.ListProducts(ctx, filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

func (h *MarketplaceHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *MarketplaceHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	projection, err := h.service.Projection(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, projection)
}

func (h *MarketplaceHandler) GetEventForecast(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	days := 0
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 7 || parsed > 365 {
			respondWithError(w, http.StatusBadRequest, "days must be between 7 and 365")
			return
		}
		days = parsed
	}

	report, err := h.service.EventForecast(ctx, days)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

func (h *MarketplaceHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req marketplaceScrapeRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	response, err := h.service.ScrapeForEvents(ctx, req.SearchTerms)
	if err != nil {
		switch err {
		case domain.ErrUnknownPlatform:
			respondWithError(w, http.StatusServiceUnavailable, "marketplace source not enabled")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}
