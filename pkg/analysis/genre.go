package analysis

import (
	"strings"
)

type genreKeywords struct {
	genre    string
	keywords []string
}

// genreTable is scanned in order; on a score tie the earlier genre wins.
var genreTable = []genreKeywords{
	{"rock", []string{
		"rock", "alternative", "grunge", "hard rock", "classic rock",
		"ac/dc", "foo fighters", "guns n' roses", "iron maiden",
		"pearl jam", "nirvana", "queen", "led zeppelin", "u2",
		"my chemical romance", "green day", "radiohead", "coldplay",
		"muse", "arctic monkeys", "oasis", "the killers",
	}},
	{"metal", []string{
		"metal", "heavy metal", "death metal", "thrash", "metalcore",
		"black sabbath", "metallica", "slayer", "megadeth", "pantera",
		"avenged sevenfold", "bring me the horizon", "slipknot",
		"black label society", "yngwie malmsteen",
	}},
	{"punk", []string{
		"punk", "hardcore", "pop punk", "emo",
		"ramones", "sex pistols", "the offspring", "blink",
	}},
	{"pop", []string{
		"pop", "dance pop", "synth pop",
		"taylor swift", "dua lipa", "harry styles", "sabrina carpenter",
		"chappell roan", "lorde", "addison rae", "doja cat",
		"the weeknd", "bad bunny", "lewis capaldi",
	}},
	{"rap", []string{
		"rap", "hip hop", "trap",
		"tyler", "kendrick", "drake", "kanye",
		"matuê", "wiu", "teto",
	}},
	{"sertanejo", []string{
		"sertanejo", "modão", "universitário",
		"gusttavo lima", "marília mendonça", "jorge e mateus",
		"henrique e juliano", "zé neto", "simone mendes",
		"joão gomes", "ana castela",
	}},
	{"funk", []string{
		"funk", "baile funk", "funk carioca",
		"ludmilla", "anitta funk",
	}},
	{"eletronica", []string{
		"eletronica", "techno", "house", "trance", "edm",
		"alok", "vintage culture", "skrillex", "kygo",
		"charlotte de witte", "richie hawtin",
	}},
	{"indie", []string{
		"indie", "alternativo",
		"mac demarco", "tv girl", "interpol", "turnstile",
		"the xx", "wolf alice", "lykke li", "beirut",
	}},
	{"k-pop", []string{
		"k-pop", "kpop",
		"bts", "stray kids", "enhypen", "blackpink", "katseye",
	}},
}

// DefaultGenre is assigned when no keyword matches.
const DefaultGenre = "pop"

// ClassifyGenre scores every genre's keyword list against the lowercased
// "{title} {artist}" text. Each keyword present adds one point.
func ClassifyGenre(title, artist string) string {
	text := strings.ToLower(title + " " + artist)

	best, bestScore := DefaultGenre, 0
	for _, g := range genreTable {
		score := 0
		for _, kw := range g.keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = g.genre, score
		}
	}
	return best
}
