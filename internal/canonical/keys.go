package canonical

import (
	"strings"
	"unicode"
)

// Slug lowercases a display name and collapses anything that is not a letter
// or digit into single hyphens. Stable across syncs for the same input.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// BaseSportKey strips the competition suffix from a provider sport key:
// "soccer_epl" -> "soccer". Keys without a namespace are returned unchanged.
func BaseSportKey(providerKey string) string {
	if idx := strings.Index(providerKey, "_"); idx > 0 {
		return providerKey[:idx]
	}
	return providerKey
}

// LeagueID derives a canonical league id from a provider sport key. The full
// provider key already qualifies the competition, so it doubles as the slug.
func LeagueID(providerKey string) string {
	return Slug(strings.ReplaceAll(providerKey, "_", "-"))
}

// TeamID derives a stable team id without a natural provider key:
// {leagueKey}-{slug(name)}. The id is immutable once created; only the
// display name may be corrected on resync.
func TeamID(leagueID, teamName string) string {
	return leagueID + "-" + Slug(teamName)
}

// SportDisplayName turns a base sport key into a readable label
// ("americanfootball" -> "Americanfootball"); providers that send a proper
// title override this.
func SportDisplayName(baseKey string) string {
	if baseKey == "" {
		return ""
	}
	return strings.ToUpper(baseKey[:1]) + baseKey[1:]
}
