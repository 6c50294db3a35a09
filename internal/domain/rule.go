package domain

// Rule is the unit of risk scoring: a labelled condition with a weight,
// grouped under a category (typically a disease name).
type Rule struct {
	Category  string  `json:"category"`
	Signal    string  `json:"signal"`
	Condition string  `json:"condition"`
	Weight    float64 `json:"weight"`
}

// AdviceRule maps a condition to an advice text within a category.
// Advice rules live in their own table, independent of scoring rules.
type AdviceRule struct {
	Category  string `json:"category"`
	Condition string `json:"condition"`
	Advice    string `json:"advice"`
}

// RuleSet is an immutable snapshot of scoring rules grouped by category.
// Group order and in-group rule order follow the source table.
type RuleSet struct {
	categories []string
	groups     map[string][]Rule
}

// NewRuleSet groups rules by category, preserving first-seen category
// order and the table order of rules within each group.
func NewRuleSet(rules []Rule) *RuleSet {
	rs := &RuleSet{groups: make(map[string][]Rule)}
	for _, r := range rules {
		if _, ok := rs.groups[r.Category]; !ok {
			rs.categories = append(rs.categories, r.Category)
		}
		rs.groups[r.Category] = append(rs.groups[r.Category], r)
	}
	return rs
}

// Categories returns category names in source-table order.
func (rs *RuleSet) Categories() []string {
	return rs.categories
}

// Group returns the rules for a category in source-table order.
func (rs *RuleSet) Group(category string) []Rule {
	return rs.groups[category]
}

// Len returns the total number of rules across all groups.
func (rs *RuleSet) Len() int {
	n := 0
	for _, g := range rs.groups {
		n += len(g)
	}
	return n
}

// AdviceSet is an immutable snapshot of advice rules grouped by category.
type AdviceSet struct {
	categories []string
	groups     map[string][]AdviceRule
}

// NewAdviceSet groups advice rules by category in table order.
func NewAdviceSet(rules []AdviceRule) *AdviceSet {
	as := &AdviceSet{groups: make(map[string][]AdviceRule)}
	for _, r := range rules {
		if _, ok := as.groups[r.Category]; !ok {
			as.categories = append(as.categories, r.Category)
		}
		as.groups[r.Category] = append(as.groups[r.Category], r)
	}
	return as
}

// Categories returns category names in source-table order.
func (as *AdviceSet) Categories() []string {
	return as.categories
}

// Group returns the advice rules for a category in table order.
func (as *AdviceSet) Group(category string) []AdviceRule {
	return as.groups[category]
}

// Len returns the total number of advice rules.
func (as *AdviceSet) Len() int {
	n := 0
	for _, g := range as.groups {
		n += len(g)
	}
	return n
}
