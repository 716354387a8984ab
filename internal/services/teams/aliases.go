package teams

import "strings"

// aliases maps colloquial team mentions to the canonical full name stored
// in the teams table. Lookup is case-insensitive; unmapped mentions pass
// through unchanged to the store search.
var aliases = map[string]string{
	"niners":     "San Francisco 49ers",
	"49ers":      "San Francisco 49ers",
	"sf":         "San Francisco 49ers",
	"pats":       "New England Patriots",
	"patriots":   "New England Patriots",
	"bucs":       "Tampa Bay Buccaneers",
	"buccaneers": "Tampa Bay Buccaneers",
	"chiefs":     "Kansas City Chiefs",
	"kc":         "Kansas City Chiefs",
	"bills":      "Buffalo Bills",
	"fins":       "Miami Dolphins",
	"dolphins":   "Miami Dolphins",
	"jets":       "New York Jets",
	"ravens":     "Baltimore Ravens",
	"bengals":    "Cincinnati Bengals",
	"browns":     "Cleveland Browns",
	"steelers":   "Pittsburgh Steelers",
	"texans":     "Houston Texans",
	"colts":      "Indianapolis Colts",
	"jags":       "Jacksonville Jaguars",
	"jaguars":    "Jacksonville Jaguars",
	"titans":     "Tennessee Titans",
	"broncos":    "Denver Broncos",
	"raiders":    "Las Vegas Raiders",
	"chargers":   "Los Angeles Chargers",
	"bolts":      "Los Angeles Chargers",
	"cowboys":    "Dallas Cowboys",
	"boys":       "Dallas Cowboys",
	"giants":     "New York Giants",
	"eagles":     "Philadelphia Eagles",
	"birds":      "Philadelphia Eagles",
	"commanders": "Washington Commanders",
	"bears":      "Chicago Bears",
	"lions":      "Detroit Lions",
	"packers":    "Green Bay Packers",
	"pack":       "Green Bay Packers",
	"vikings":    "Minnesota Vikings",
	"vikes":      "Minnesota Vikings",
	"falcons":    "Atlanta Falcons",
	"panthers":   "Carolina Panthers",
	"saints":     "New Orleans Saints",
	"cardinals":  "Arizona Cardinals",
	"cards":      "Arizona Cardinals",
	"rams":       "Los Angeles Rams",
	"seahawks":   "Seattle Seahawks",
	"hawks":      "Seattle Seahawks",
}

// normalizeAlias resolves a colloquial mention to a canonical full name,
// or returns the input unchanged when no alias is known.
func normalizeAlias(mention string) string {
	if canonical, ok := aliases[strings.ToLower(strings.TrimSpace(mention))]; ok {
		return canonical
	}
	return mention
}
