package normalize

var cityStates = map[string]string{
	"sao paulo":      "SP",
	"santo amaro":    "SP",
	"campinas":       "SP",
	"rio de janeiro": "RJ",
	"belo horizonte": "MG",
	"uberlandia":     "MG",
	"curitiba":       "PR",
	"porto alegre":   "RS",
	"brasilia":       "DF",
	"salvador":       "BA",
	"recife":         "PE",
	"fortaleza":      "CE",
	"florianopolis":  "SC",
	"goiania":        "GO",
	"belem":          "PA",
	"manaus":         "AM",
	"campina grande": "PB",
	"natal":          "RN",
	"vitoria":        "ES",
}

// StateForCity guesses the Brazilian state code for a city, or "" when unknown.
func StateForCity(city string) string {
	return cityStates[Fold(city)]
}
