package rank

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Adjustment field selectors. Each boost targets one product aspect; the
// brand_and_category form requires both conditions.
const (
	FieldName             = "name"
	FieldBrand            = "brand"
	FieldCategory         = "category"
	FieldNameOrCategory   = "name_or_category"
	FieldBrandAndCategory = "brand_and_category"
)

// Adjustment is one conditional score delta within a rule. Matching is
// case-insensitive; Contains values are substring patterns, Equals values
// are exact (lowercased) brand names. Negative values are penalties.
type Adjustment struct {
	Field            string   `yaml:"field"`
	Contains         []string `yaml:"contains,omitempty"`
	Equals           []string `yaml:"equals,omitempty"`
	CategoryContains []string `yaml:"category_contains,omitempty"` // brand_and_category only
	Indexed          float64  `yaml:"indexed"`
	Fallback         float64  `yaml:"fallback"`
}

// Rule is one query-intent entry: when the query contains any trigger
// substring, every matching adjustment is applied to the candidate score.
type Rule struct {
	Name        string       `yaml:"name"`
	Triggers    []string     `yaml:"triggers"`
	Adjustments []Adjustment `yaml:"adjustments"`
}

// RuleSet is the full intent rule table.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the built-in intent table. The magnitudes are the
// product's observed ranking behavior; changing them changes which results
// surface for the affected query intents.
func DefaultRules() *RuleSet {
	return &RuleSet{Rules: []Rule{
		{
			Name:     "phone-intent",
			Triggers: []string{"iphone", "phone", "apple"},
			Adjustments: []Adjustment{
				{Field: FieldName, Contains: []string{"iphone", "apple"}, Indexed: 8.0, Fallback: 10.0},
				{Field: FieldBrand, Equals: []string{"apple"}, Indexed: 5.0, Fallback: 6.0},
				{Field: FieldCategory, Contains: []string{"phone", "smartphone", "mobile"}, Indexed: 3.0, Fallback: 4.0},
				{Field: FieldNameOrCategory, Contains: []string{"tv", "television"}, Indexed: -15.0, Fallback: -20.0},
				{Field: FieldBrandAndCategory, Equals: []string{"lg", "samsung"}, CategoryContains: []string{"tv", "electronics"}, Indexed: -10.0, Fallback: -15.0},
			},
		},
		{
			Name:     "tv-intent",
			Triggers: []string{"tv", "television"},
			Adjustments: []Adjustment{
				{Field: FieldCategory, Contains: []string{"tv", "television"}, Indexed: 3.0, Fallback: 4.0},
				{Field: FieldCategory, Contains: []string{"phone", "smartphone"}, Indexed: -5.0, Fallback: -8.0},
			},
		},
	}}
}

// LoadRules reads an intent rule table from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return &rs, nil
}

// Validate checks structural sanity of a loaded rule table.
func (rs *RuleSet) Validate() error {
	for i, rule := range rs.Rules {
		if len(rule.Triggers) == 0 {
			return fmt.Errorf("rule %d (%s): no triggers", i, rule.Name)
		}
		for j, adj := range rule.Adjustments {
			switch adj.Field {
			case FieldName, FieldCategory, FieldNameOrCategory:
				if len(adj.Contains) == 0 {
					return fmt.Errorf("rule %s adjustment %d: %s requires contains patterns", rule.Name, j, adj.Field)
				}
			case FieldBrand:
				if len(adj.Equals) == 0 {
					return fmt.Errorf("rule %s adjustment %d: brand requires equals values", rule.Name, j)
				}
			case FieldBrandAndCategory:
				if len(adj.Equals) == 0 || len(adj.CategoryContains) == 0 {
					return fmt.Errorf("rule %s adjustment %d: brand_and_category requires equals and category_contains", rule.Name, j)
				}
			default:
				return fmt.Errorf("rule %s adjustment %d: unknown field %q", rule.Name, j, adj.Field)
			}
		}
	}
	return nil
}

// triggered reports whether the (lowercased) query activates the rule.
func (r *Rule) triggered(query string) bool {
	for _, trig := range r.Triggers {
		if strings.Contains(query, trig) {
			return true
		}
	}
	return false
}

// delta returns the adjustment's score contribution for a candidate, or 0
// when it doesn't match. name/brand/category must already be lowercased.
func (a *Adjustment) delta(name, brand, category string, fallback bool) float64 {
	matched := false
	switch a.Field {
	case FieldName:
		matched = containsAny(name, a.Contains)
	case FieldBrand:
		matched = equalsAny(brand, a.Equals)
	case FieldCategory:
		matched = containsAny(category, a.Contains)
	case FieldNameOrCategory:
		matched = containsAny(name, a.Contains) || containsAny(category, a.Contains)
	case FieldBrandAndCategory:
		matched = equalsAny(brand, a.Equals) && containsAny(category, a.CategoryContains)
	}
	if !matched {
		return 0
	}
	if fallback {
		return a.Fallback
	}
	return a.Indexed
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func equalsAny(s string, values []string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}
