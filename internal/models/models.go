// Package models maps friendly model aliases to the provider API model names
// and decides which provider serves a requested model.
package models

import "sort"

// Provider identifies which AI backend serves a model.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

const (
	// DefaultAlias is used when a request names no model at all.
	DefaultAlias       = "claude-4-sonnet"
	defaultClaudeAlias = "claude-4-sonnet"
	defaultOpenAIAlias = "gpt-4o-mini"
)

// ClaudeModels maps aliases to Anthropic API model names.
var ClaudeModels = map[string]string{
	"claude-3.5-sonnet":        "claude-3-5-sonnet-20241022",
	"claude-4-sonnet":          "claude-sonnet-4-20250514",
	"claude-4-opus":            "claude-opus-4-20250514",
	"claude-4-sonnet-thinking": "claude-sonnet-4-20250514-thinking",
	"claude-4-opus-thinking":   "claude-opus-4-20250514-thinking",
}

// OpenAIModels maps aliases to OpenAI API model names.
var OpenAIModels = map[string]string{
	"gpt-4o-mini": "gpt-4o-mini",
	"gpt-4o":      "gpt-4o",
	// o3 routes to gpt-4o until o3 vision is generally available.
	"o3": "gpt-4o",
}

// Resolution is the outcome of resolving a requested alias.
type Resolution struct {
	Alias    string   // the alias that was actually used
	Model    string   // provider API model name
	Provider Provider
	Fallback bool // true when the requested alias was unknown
}

// Resolve maps a requested alias (possibly empty) to a provider model name.
// Unknown aliases fall back to the provider default inferred from the alias
// prefix; an empty alias uses defaultAlias, falling back to DefaultAlias when
// that too is empty.
func Resolve(requested, defaultAlias string) Resolution {
	if requested == "" {
		requested = defaultAlias
	}
	if requested == "" {
		requested = DefaultAlias
	}

	if name, ok := ClaudeModels[requested]; ok {
		return Resolution{Alias: requested, Model: name, Provider: ProviderAnthropic}
	}
	if name, ok := OpenAIModels[requested]; ok {
		return Resolution{Alias: requested, Model: name, Provider: ProviderOpenAI}
	}

	// Unknown alias: stay with the provider the name suggests.
	if providerFor(requested) == ProviderAnthropic {
		return Resolution{
			Alias:    defaultClaudeAlias,
			Model:    ClaudeModels[defaultClaudeAlias],
			Provider: ProviderAnthropic,
			Fallback: true,
		}
	}
	return Resolution{
		Alias:    defaultOpenAIAlias,
		Model:    OpenAIModels[defaultOpenAIAlias],
		Provider: ProviderOpenAI,
		Fallback: true,
	}
}

func providerFor(alias string) Provider {
	if len(alias) >= 6 && alias[:6] == "claude" {
		return ProviderAnthropic
	}
	return ProviderOpenAI
}

// Available lists every alias per provider, for the models endpoint.
func Available() map[string][]string {
	claude := make([]string, 0, len(ClaudeModels))
	for alias := range ClaudeModels {
		claude = append(claude, alias)
	}
	openai := make([]string, 0, len(OpenAIModels))
	for alias := range OpenAIModels {
		openai = append(openai, alias)
	}
	sort.Strings(claude)
	sort.Strings(openai)
	return map[string][]string{
		"claude": claude,
		"openai": openai,
	}
}
