package interfaces

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yair/merchpulse/pkg/domain"
)

type ArtistQueries interface {
	ListArtists(ctx context.Context, limit int) ([]domain.Artist, error)
	GetArtist(ctx context.Context, id string) (*domain.Artist, error)
	RefreshPopularity(ctx context.Context, limit int) (int, error)
}

type ArtistHandler struct {
	service ArtistQueries
}

func NewArtistHandler(service ArtistQueries) *ArtistHandler {
	return &ArtistHandler{
		service: service,
	}
}

func (h *ArtistHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/artists", h.ListArtists).Methods("GET")
	router.HandleFunc("/api/artists/popularity/refresh", h.RefreshPopularity).Methods("POST")
	router.HandleFunc("/api/artists/{id}", h.GetArtist).Methods("GET")
}

func limitParam(r *http.Request, fallback, max int) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return fallback, true
	}
	parsedLimit, err := strconv.Atoi(limitStr)
	if err != nil || parsedLimit <= 0 {
		return 0, false
	}
	if parsedLimit > max {
		parsedLimit = max
	}
	return parsedLimit, true
}

func (h *ArtistHandler) ListArtists(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit, ok := limitParam(r, 100, 500)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	artists, err := h.service.ListArtists(ctx, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, artists)
}

func (h *ArtistHandler) GetArtist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	vars := mux.Vars(r)
	id := vars["id"]

	artist, err := h.service.GetArtist(ctx, id)
	if err != nil {
		switch err {
		case domain.ErrArtistNotFound:
			respondWithError(w, http.StatusNotFound, "artist not found")
		case domain.ErrInvalidRequest:
			respondWithError(w, http.StatusBadRequest, "artist id is required")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, artist)
}

func (h *ArtistHandler) RefreshPopularity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	limit, ok := limitParam(r, 500, 5000)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	updated, err := h.service.RefreshPopularity(ctx, limit)
	if err != nil {
		switch err {
		case domain.ErrExternalAPIFailure:
			respondWithError(w, http.StatusServiceUnavailable, "popularity source not configured")
		case domain.ErrRateLimitExceeded:
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "completed",
		"updated": updated,
	})
}
