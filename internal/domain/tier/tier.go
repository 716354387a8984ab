package tier

import "strings"

type Tier string

const (
	Free Tier = "free"
	Plus Tier = "plus"
	Pro  Tier = "pro"

	// Anonymous actors carry no quota row; they are rate-limited only.
	Anon Tier = "anon"
)

// Parse normalizes a stored tier value, defaulting unknown values to free
// so a malformed profile row never grants an elevated allowance.
func Parse(v string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(v))) {
	case Plus:
		return Plus
	case Pro:
		return Pro
	default:
		return Free
	}
}

// DailyQuota is the number of answered questions allowed per day.
func DailyQuota(t Tier) int {
	switch t {
	case Pro:
		return 500
	case Plus:
		return 100
	default:
		return 10
	}
}

// MaxAnswerTokens is the generated-answer token budget for the fallback
// path.
func MaxAnswerTokens(t Tier) int {
	switch t {
	case Pro:
		return 500
	case Plus:
		return 300
	default:
		return 200
	}
}

// CanGenerateAnalysis reports whether the tier may request pre-game
// analyses at all. Plus is additionally limited to one per week.
func CanGenerateAnalysis(t Tier) bool {
	return t == Plus || t == Pro
}
