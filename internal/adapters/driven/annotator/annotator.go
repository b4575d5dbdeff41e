// Package annotator implements the cluster annotator on top of an LLM service.
//
// Category classification asks for a JSON object and is parsed leniently:
// category names are resolved against the taxonomy, unknown names become the
// default category and at most two categories are kept, primary first.
package annotator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Ensure LLMAnnotator implements the interfaces.
var (
	_ driven.Annotator        = (*LLMAnnotator)(nil)
	_ driven.PromptStoreAware = (*LLMAnnotator)(nil)
)

const (
	// MaxSummaryChars bounds each numbered summary in a prompt.
	MaxSummaryChars = 4000

	// MaxCategories is the most categories a cluster can carry.
	MaxCategories = 2

	classifyMaxTokens = 400
	nameMaxTokens     = 100
	classifyTemp      = 0.0
	nameTemp          = 0.3
)

// LLMAnnotator classifies and names clusters with an LLM.
type LLMAnnotator struct {
	llm      driven.LLMService
	taxonomy *domain.Taxonomy
	prompts  driven.PromptStore
}

// New creates an annotator. A nil taxonomy uses the built-in one.
func New(llm driven.LLMService, taxonomy *domain.Taxonomy) (*LLMAnnotator, error) {
	if llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if taxonomy == nil {
		taxonomy = domain.DefaultTaxonomy()
	}
	return &LLMAnnotator{llm: llm, taxonomy: taxonomy}, nil
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (a *LLMAnnotator) SetPromptStore(store driven.PromptStore) {
	a.prompts = store
}

// ClassifyCategory assigns at most two taxonomy categories to a mid cluster.
func (a *LLMAnnotator) ClassifyCategory(ctx context.Context, samples []string) (*domain.Classification, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("classify: %w: no samples", domain.ErrInvalidInput)
	}

	system := fmt.Sprintf(a.loadPrompt(driven.PromptClassifySystem, defaultClassifySystem),
		a.categoryList(), a.taxonomy.Default().Name)
	user := fmt.Sprintf(a.loadPrompt(driven.PromptClassifyUser, defaultClassifyUser),
		FormatSummaries(samples))

	out, err := a.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, driven.ChatOptions{
		MaxTokens:   classifyMaxTokens,
		Temperature: classifyTemp,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return ParseClassification(out, a.taxonomy)
}

// NameCluster returns a short label. Mid cluster names end with
// ": <Category>".
func (a *LLMAnnotator) NameCluster(ctx context.Context, samples []string, nc domain.NameContext) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("name: %w: no samples", domain.ErrInvalidInput)
	}

	var prompt string
	switch nc.Level {
	case domain.LevelMid:
		category := a.taxonomy.Resolve(nc.Category).Name
		prompt = fmt.Sprintf(a.loadPrompt(driven.PromptNameMid, defaultNameMid),
			category, FormatSummaries(samples))
	default:
		prompt = fmt.Sprintf(a.loadPrompt(driven.PromptNameFine, defaultNameFine),
			qualityHint(nc.Tier), FormatSummaries(samples))
	}

	out, err := a.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   nameMaxTokens,
		Temperature: nameTemp,
	})
	if err != nil {
		return "", fmt.Errorf("name: %w", err)
	}

	name := CleanName(out)
	if nc.Level == domain.LevelMid {
		name = MidName(name, a.taxonomy.Resolve(nc.Category).Name)
	}
	if name == "" {
		return "", fmt.Errorf("name: %w: empty name", domain.ErrMalformedResponse)
	}
	return name, nil
}

func (a *LLMAnnotator) loadPrompt(name, fallback string) string {
	if a.prompts == nil {
		return fallback
	}
	prompt, err := a.prompts.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

func (a *LLMAnnotator) categoryList() string {
	var b strings.Builder
	for i, c := range a.taxonomy.Categories {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(c.Name)
		if c.Definition != "" {
			b.WriteString(": ")
			b.WriteString(c.Definition)
		}
	}
	return b.String()
}

func qualityHint(tier domain.QualityTier) string {
	switch tier {
	case domain.QualityHigh:
		return "The cluster is cohesive; a specific name is appropriate."
	case domain.QualityMedium:
		return "The cluster is moderately cohesive; prefer a slightly broader name."
	case domain.QualityLow:
		return "The cluster is loose; prefer a broad name."
	default:
		return ""
	}
}

// FormatSummaries numbers the samples from 1 and truncates each to
// MaxSummaryChars runes.
func FormatSummaries(samples []string) string {
	lines := make([]string, 0, len(samples))
	for i, s := range samples {
		s = strings.TrimSpace(s)
		if r := []rune(s); len(r) > MaxSummaryChars {
			s = string(r[:MaxSummaryChars]) + "…"
		}
		lines = append(lines, strconv.Itoa(i+1)+". "+s)
	}
	return strings.Join(lines, "\n")
}

// CleanName trims whitespace, a "Cluster name:" prefix and surrounding quotes
// from a model reply and keeps only its first line.
func CleanName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if len(s) >= len("cluster name:") && strings.EqualFold(s[:len("cluster name:")], "cluster name:") {
		s = strings.TrimSpace(s[len("cluster name:"):])
	}
	s = strings.Trim(s, "\"'`*")
	return strings.TrimSpace(s)
}

// MidName formats "<topic>: <category>", dropping a category suffix the
// model may already have added.
func MidName(topic, category string) string {
	suffix := ": " + category
	topic = strings.TrimSpace(topic)
	if len(topic) >= len(suffix) && strings.EqualFold(topic[len(topic)-len(suffix):], suffix) {
		topic = strings.TrimSpace(topic[:len(topic)-len(suffix)])
	}
	if topic == "" {
		return ""
	}
	return topic + suffix
}

// rawClassification accepts the loose shapes models return.
type rawClassification struct {
	Categories json.RawMessage `json:"categories"`
	Category   string          `json:"category"`
	Primary    string          `json:"primary"`
	Secondary  *string         `json:"secondary"`
	Confidence json.RawMessage `json:"confidence"`
	Rationale  string          `json:"rationale"`
}

// ParseClassification decodes a classification reply. The first JSON object
// in the text is used.
func ParseClassification(text string, taxonomy *domain.Taxonomy) (*domain.Classification, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object", domain.ErrMalformedResponse)
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}

	names := decodeNames(raw.Categories)
	if len(names) == 0 && raw.Category != "" {
		names = []string{raw.Category}
	}
	primary := strings.TrimSpace(raw.Primary)
	if primary == "" && len(names) > 0 {
		primary = names[0]
	}
	if primary != "" {
		names = append([]string{primary}, names...)
	}
	if raw.Secondary != nil && strings.TrimSpace(*raw.Secondary) != "" {
		names = append(names, *raw.Secondary)
	}

	categories := resolveCategories(names, taxonomy)
	c := &domain.Classification{
		Categories: categories,
		Primary:    categories[0],
		Confidence: decodeConfidence(raw.Confidence),
		Rationale:  strings.TrimSpace(raw.Rationale),
	}
	if len(categories) > 1 {
		c.Secondary = categories[1]
	}
	return c, nil
}

func decodeNames(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}

// resolveCategories maps names to canonical taxonomy names, deduplicates in
// order and keeps at most MaxCategories. The result is never empty.
func resolveCategories(names []string, taxonomy *domain.Taxonomy) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, MaxCategories)
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		name := taxonomy.Resolve(n).Name
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) == MaxCategories {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, taxonomy.Default().Name)
	}
	return out
}

func decodeConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0
		}
	}
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
