// Package integrations talks to third-party APIs that enrich stored entities.
// Spotify is the popularity source for artists.
package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
	"github.com/yair/merchpulse/pkg/ratelimit"
)

type SpotifyClient struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

func NewSpotifyClient(config SpotifyConfig) (*SpotifyClient, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client ID and secret are required")
	}

	return &SpotifyClient{
		baseURL:      "https://api.spotify.com/v1",
		tokenURL:     "https://accounts.spotify.com/api/token",
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type spotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *SpotifyClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get access token: status %d: %w", resp.StatusCode, domain.ErrExternalAPIFailure)
	}

	var tokenResp spotifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second).Add(-5 * time.Minute)

	return c.accessToken, nil
}

// SpotifyArtist is the subset of Spotify's artist object the seeder reads.
type SpotifyArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

type spotifySearchResponse struct {
	Artists struct {
		Items []SpotifyArtist `json:"items"`
		Total int             `json:"total"`
	} `json:"artists"`
}

func (c *SpotifyClient) get(ctx context.Context, endpoint string, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrArtistNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimitExceeded
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("spotify returned status %d: %w", resp.StatusCode, domain.ErrExternalAPIFailure)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode spotify response: %w", err)
	}
	return nil
}

// SearchArtist returns the best match for name: the first result whose
// artist key equals name's, otherwise the top result.
func (c *SpotifyClient) SearchArtist(ctx context.Context, name string) (*SpotifyArtist, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s&type=artist&limit=5", c.baseURL, url.QueryEscape(name))

	var searchResp spotifySearchResponse
	if err := c.get(ctx, searchURL, &searchResp); err != nil {
		return nil, err
	}

	items := searchResp.Artists.Items
	if len(items) == 0 {
		return nil, domain.ErrArtistNotFound
	}

	key := normalize.ArtistKey(name)
	for i := range items {
		if normalize.ArtistKey(items[i].Name) == key {
			return &items[i], nil
		}
	}
	return &items[0], nil
}

func (c *SpotifyClient) GetArtist(ctx context.Context, spotifyID string) (*SpotifyArtist, error) {
	var artist SpotifyArtist
	if err := c.get(ctx, fmt.Sprintf("%s/artists/%s", c.baseURL, url.PathEscape(spotifyID)), &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

type artistLookup interface {
	SearchArtist(ctx context.Context, name string) (*SpotifyArtist, error)
	GetArtist(ctx context.Context, spotifyID string) (*SpotifyArtist, error)
}

// PopularitySeeder refreshes Artist.Popularity from Spotify. It is the only
// writer of popularity; ingestion never touches it.
type PopularitySeeder struct {
	lookup  artistLookup
	artists domain.ArtistRepository
	limiter ratelimit.Limiter
}

func NewPopularitySeeder(client *SpotifyClient, artists domain.ArtistRepository, limiter ratelimit.Limiter) *PopularitySeeder {
	return &PopularitySeeder{lookup: client, artists: artists, limiter: limiter}
}

// Seed updates up to limit stored artists and returns how many changed.
// Artists Spotify does not know are skipped; other lookup failures are
// logged and skipped too, unless the context is done.
func (s *PopularitySeeder) Seed(ctx context.Context, limit int) (int, error) {
	artists, err := s.artists.List(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list artists: %w", err)
	}

	updated := 0
	for _, artist := range artists {
		if s.limiter != nil {
			if err := s.limiter.Acquire(ctx, "spotify"); err != nil {
				return updated, err
			}
		}

		match, err := s.find(ctx, artist)
		if err != nil {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			if !errors.Is(err, domain.ErrArtistNotFound) {
				log.Printf("[spotify] lookup failed for %q: %v", artist.Name, err)
			}
			continue
		}

		if match.Popularity == artist.Popularity && match.ID == artist.SpotifyID {
			continue
		}
		if err := s.artists.UpdatePopularity(ctx, artist.ID, match.Popularity, match.ID); err != nil {
			log.Printf("[spotify] failed to update %q: %v", artist.Name, err)
			continue
		}
		updated++
	}

	log.Printf("[spotify] refreshed popularity for %d of %d artists", updated, len(artists))
	return updated, nil
}

func (s *PopularitySeeder) find(ctx context.Context, artist domain.Artist) (*SpotifyArtist, error) {
	if artist.SpotifyID != "" {
		return s.lookup.GetArtist(ctx, artist.SpotifyID)
	}
	return s.lookup.SearchArtist(ctx, artist.Name)
}
