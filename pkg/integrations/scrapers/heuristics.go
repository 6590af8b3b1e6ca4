package scrapers

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yair/merchpulse/pkg/domain"
)

// Heuristics over free-text titles. None of them fail: an unrecognized title
// gets the neutral default.

var knownArtists = []string{
	"ac/dc", "acdc", "guns n' roses", "guns n roses", "my chemical romance",
	"mcr", "bad bunny", "the weeknd", "weeknd", "doja cat", "tyler the creator",
	"chappell roan", "sabrina carpenter", "black label society", "cypress hill",
	"interpol", "mac demarco", "bryan adams", "jackson wang", "marisa monte",
	"lollapalooza", "monsters of rock", "rock in rio",
}

var nonMusicWords = []string{
	"workshop", "curso", "aula", "palestra", "congresso", "treinamento", "imersão",
	"scuba", "mergulho", "yoga", "meditação", "gastronomia", "culinária",
	"biohacking", "expo", "magia", "bruxaria", "startup", "hackathon",
	"conferência", "conference", "webinar", "masterclass", "bootcamp",
	"networking", "meetup", "yacht party", "boat party", "open bar",
	"degustação", "wine", "cerveja", "running", "corrida", "maratona",
	"futebol", "soccer", "basquete", "esporte", "teatro", "stand-up",
	"comédia", "comedy", "cosplay", "anime", "gaming",
}

var musicWords = []string{
	"show", "concert", "tour", "live", "festival", "banda", "band",
	"rock", "pop", "sertanejo", "funk", "mpb", "jazz", "blues",
	"hip hop", "rap", "eletrônica", "dj", "samba", "pagode", "forró",
	"axé", "reggae", "metal", "punk", "carnaval", "lollapalooza",
	"monsters", "excursão", "ao vivo", "música", "musica", "musical",
	"acústico", "acoustic", "unplugged", "rave", "festa", "baile",
}

var festivalWords = []string{
	"festival", "lollapalooza", "rock in rio", "monsters of rock",
	"carnaval", "réveillon", "festa",
}

var (
	megaFestivals = []string{"lollapalooza", "rock in rio", "monsters of rock"}
	bigArtists    = []string{"guns n roses", "ac/dc", "acdc", "bad bunny", "the weeknd", "my chemical romance"}
	midArtists    = []string{"doja cat", "tyler the creator", "sabrina carpenter", "chappell roan", "marisa monte", "bryan adams"}
)

var artistPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)excurs[ãa]o[:\s]+(.+?)(?:\s+em\s+|\s+saindo|\s*$)`),
	regexp.MustCompile(`(?i)show\s+(?:d[aeo]s?\s+)?(.+?)(?:\s+em\s+|\s*-|\s*\||\s*$)`),
	regexp.MustCompile(`(?i)^(.+?)\s+(?:em|no|na|ao vivo|live)\s+`),
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// IsMusicTitle drops titles carrying a non-music cue and keeps those with a
// music cue or a known artist. Titles with neither are dropped.
func IsMusicTitle(title string) bool {
	t := strings.ToLower(title)
	if containsAny(t, nonMusicWords) {
		return false
	}
	return containsAny(t, musicWords) || containsAny(t, knownArtists)
}

func IsFestivalTitle(title string) bool {
	return containsAny(strings.ToLower(title), festivalWords)
}

// IsSoldOutCue reports "esgotado" style markers in free text.
func IsSoldOutCue(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "esgotado") || strings.Contains(t, "sold out") || strings.Contains(t, "soldout")
}

// EstimateAudience guesses attendance from the title, festival flag and
// cheapest ticket price. Defaults to a 3000 person show.
func EstimateAudience(title string, festival bool, price *float64) int {
	t := strings.ToLower(title)

	switch {
	case containsAny(t, megaFestivals):
		return 60000
	case strings.Contains(t, "carnaval"):
		return 30000
	case containsAny(t, bigArtists):
		return 25000
	case containsAny(t, midArtists):
		return 12000
	case festival:
		return 15000
	case strings.Contains(t, "excursão") || strings.Contains(t, "excursao"):
		return 5000
	case price != nil && *price > 200:
		return 8000
	case price != nil && *price > 100:
		return 5000
	}
	return 3000
}

// findFolded returns the span of title whose lowercase form equals needle.
// Matching walks runes, so the span never splits a multi-byte character even
// when lowering changes byte lengths.
func findFolded(title, needle string) (string, bool) {
	for i := range title {
		var folded strings.Builder
		j := i
		for j < len(title) && folded.Len() < len(needle) {
			r, size := utf8.DecodeRuneInString(title[j:])
			folded.WriteRune(unicode.ToLower(r))
			j += size
		}
		if folded.String() == needle {
			return title[i:j], true
		}
	}
	return "", false
}

// ExtractArtist pulls a performer name out of an event title, first by known
// artist names and then by common title patterns. Returns "" when nothing fits.
func ExtractArtist(title string) string {
	lower := strings.ToLower(title)
	for _, artist := range knownArtists {
		if !strings.Contains(lower, artist) {
			continue
		}
		if match, ok := findFolded(title, artist); ok {
			return strings.TrimSpace(match)
		}
		return artist
	}

	for _, pattern := range artistPatterns {
		m := pattern.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		artist := strings.TrimSpace(m[1])
		if artist != "" && utf8.RuneCountInString(artist) < 40 {
			return artist
		}
	}
	return ""
}

// classifyEvent fills the festival flag, event type, audience estimate and
// sold-out cue of a record from its title and price.
func classifyEvent(ev *domain.ScrapedEvent) {
	ev.IsFestival = ev.IsFestival || IsFestivalTitle(ev.Title)
	if ev.IsFestival {
		ev.EventType = domain.EventFestival
	} else if ev.EventType == "" {
		ev.EventType = domain.EventConcert
	}
	if ev.TicketStatus == "" {
		ev.TicketStatus = domain.TicketAvailable
	}
	if IsSoldOutCue(ev.Title) {
		ev.TicketStatus = domain.TicketSoldOut
	}
	if ev.EstimatedAudience == nil {
		audience := EstimateAudience(ev.Title, ev.IsFestival, ev.TicketPriceMin)
		ev.EstimatedAudience = &audience
	}
}

const (
	CategoryFestival = "camiseta_festival"
	CategoryArtist   = "camiseta_artista"
	CategoryBand     = "camiseta_banda"
	CategoryGeneric  = "camiseta_generica"
)

// GuessCategory buckets a merch listing by its title and the artist it was searched for.
func GuessCategory(title, relatedArtist string) string {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, []string{"festival", "lollapalooza", "rock in rio", "monsters"}):
		return CategoryFestival
	case relatedArtist != "":
		return CategoryArtist
	case containsAny(t, []string{"banda", "band", "rock", "metal", "punk"}):
		return CategoryBand
	}
	return CategoryGeneric
}
