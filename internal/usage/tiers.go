package usage

import "strings"

// Tier identifies the billing tier a model is metered under.
type Tier string

// Tier constants
const (
	TierBasic    Tier = "basic"
	TierAdvanced Tier = "advanced"
)

// basicModels are the model identifiers metered at the basic tier.
var basicModels = map[string]bool{
	"gpt-4o-mini":      true,
	"gpt-3.5-turbo":    true,
	"gemini-1.5-flash": true,
	"gemini-flash":     true,
	"claude-3-haiku":   true,
	"mistral-small":    true,
}

// advancedModels are the model identifiers metered at the advanced tier.
var advancedModels = map[string]bool{
	"gpt-4o":            true,
	"gpt-4-turbo":       true,
	"o1":                true,
	"claude":            true,
	"claude-3-5-sonnet": true,
	"claude-3-opus":     true,
	"gemini-1.5-pro":    true,
	"mistral-large":     true,
}

// ResolveTier maps a model identifier to its billing tier.
// Matching is case-insensitive. Unknown models are billed at the
// advanced tier so a new or mistyped model name is never free.
func ResolveTier(model string) Tier {
	name := strings.ToLower(strings.TrimSpace(model))
	if basicModels[name] {
		return TierBasic
	}
	if advancedModels[name] {
		return TierAdvanced
	}
	return TierAdvanced
}
