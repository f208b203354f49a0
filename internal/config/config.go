package config

import (
	"os"
	"strings"
)

// Config holds everything loaded at startup. The list fields are the
// analytics rule sets consulted by the aggregation engine; they are read-only
// after Load, so request handling never touches shared mutable state.
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Accounts filtered out of dashboards when the exclude toggles are on.
	SystemAccounts    []string
	CommunityAccounts []string

	// Stash tabs whose contents count as currency, plus the item
	// category memberships used by per-account stats.
	CurrencyTabs  []string
	CurrencyItems []string
	GemItems      []string

	// Leagues offered by the dashboard selector.
	LeagueList []string
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "stash_tracker.db"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		SystemAccounts: getEnvList("SYSTEM_ACCOUNTS", []string{
			"iceb#4364",
			"Yukkuri#6816",
			"snowpeach#7736",
		}),
		CommunityAccounts: getEnvList("COMMUNITY_ACCOUNTS", nil),

		CurrencyTabs: getEnvList("CURRENCY_TABS", []string{
			"Currency",
			"Guild Currency",
		}),
		CurrencyItems: getEnvList("CURRENCY_ITEMS", []string{
			"Chaos Orb",
			"Divine Orb",
			"Exalted Orb",
			"Mirror of Kalandra",
			"Orb of Alchemy",
			"Orb of Alteration",
			"Orb of Annulment",
			"Orb of Fusing",
			"Orb of Regret",
			"Chromatic Orb",
			"Vaal Orb",
			"Gemcutter's Prism",
			"Cartographer's Chisel",
		}),
		GemItems: getEnvList("GEM_ITEMS", []string{
			"Empower Support",
			"Enlighten Support",
			"Enhance Support",
			"Portal",
			"Awakened Multistrike Support",
			"Awakened Spell Echo Support",
		}),

		LeagueList: getEnvList("LEAGUE_LIST", []string{
			"Standard",
			"Hardcore",
			"DotH - coming soon",
		}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList reads a comma-separated list from the environment, falling back
// to the built-in defaults when the variable is unset or empty.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
