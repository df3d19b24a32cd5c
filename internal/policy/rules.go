package policy

import (
	"strings"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// clientNameThreshold is the minimum accessible-name length for a bare
// client-role element to count as a text surface (rule 9). Generic
// container panes have empty or single-character names.
const clientNameThreshold = 2

// RuleSet evaluates the ordered editability rules, first match wins.
type RuleSet struct {
	rules  []Rule
	filter *Filter
}

// NewRuleSet creates the default ordered rule set.
func NewRuleSet(filter *Filter) *RuleSet {
	return &RuleSet{
		rules:  defaultRules(),
		filter: filter,
	}
}

// NewRuleSetWithRules creates a rule set with custom rules (for testing).
func NewRuleSetWithRules(filter *Filter, rules ...Rule) *RuleSet {
	return &RuleSet{
		rules:  rules,
		filter: filter,
	}
}

// Classify runs the rules in order and returns the verdict of the first
// match plus the name of the deciding rule. No rule matching means the
// element is not a text input.
func (rs *RuleSet) Classify(d domain.ElementDescriptor) (bool, string) {
	for _, rule := range rs.rules {
		if verdict, matched := rule.Evaluate(d, rs.filter); matched {
			return verdict == VerdictText, rule.Name
		}
	}
	return false, "default"
}

// Rules returns the rule list in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	return rs.rules
}

// defaultRules builds the classification rules in priority order.
func defaultRules() []Rule {
	return []Rule{
		{
			// An insertion-point caret only ever exists inside editable text.
			Name: "caret",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if d.Role == domain.RoleCaret {
					return VerdictText, true
				}
				return VerdictNotText, false
			},
		},
		{
			// Known editing control classes, rejected only when read-only.
			Name: "editor_class",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if !f.IsEditorClass(d.ClassName) {
					return VerdictNotText, false
				}
				if d.Readonly {
					return VerdictNotText, true
				}
				return VerdictText, true
			},
		},
		{
			// Browser render widgets expose no per-field edit role; accept
			// only elements with a value interface or focusable pane/client
			// roles.
			Name: "browser_widget",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if !f.IsBrowserClass(d.ClassName) {
					return VerdictNotText, false
				}
				if d.HasValue {
					return VerdictText, true
				}
				if d.Focusable && (d.Role == domain.RolePane || d.Role == domain.RoleClient) {
					return VerdictText, true
				}
				return VerdictNotText, true
			},
		},
		{
			// Anything that cannot take focus cannot take text.
			Name: "not_focusable",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if !d.Focusable {
					return VerdictNotText, true
				}
				return VerdictNotText, false
			},
		},
		{
			Name: "edit_class_value",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if strings.Contains(strings.ToLower(d.ClassName), "edit") && !d.Readonly && d.HasValue {
					return VerdictText, true
				}
				return VerdictNotText, false
			},
		},
		{
			Name: "console",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if f.IsConsoleClass(d.ClassName) {
					return VerdictText, true
				}
				return VerdictNotText, false
			},
		},
		{
			Name: "text_role",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if d.Role == domain.RoleText && !d.Readonly && d.HasValue {
					return VerdictText, true
				}
				return VerdictNotText, false
			},
		},
		{
			// Authoring surfaces (word processors) report a writable
			// document role; read-only browser documents were already
			// excluded by browser_widget or fail the readonly check here.
			Name: "document_role",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if d.Role == domain.RoleDocument && !d.Readonly {
					return VerdictText, true
				}
				return VerdictNotText, false
			},
		},
		{
			// Bare client areas are ambiguous: accept only ones that carry
			// a value interface or non-trivial accessible text.
			Name: "client_role",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if d.Role != domain.RoleClient {
					return VerdictNotText, false
				}
				if d.HasValue || len(d.Name) > clientNameThreshold {
					return VerdictText, true
				}
				return VerdictNotText, true
			},
		},
		{
			Name: "combobox",
			Evaluate: func(d domain.ElementDescriptor, f *Filter) (Verdict, bool) {
				if d.Role != domain.RoleCombobox {
					return VerdictNotText, false
				}
				if d.HasValue || d.EditableChild {
					return VerdictText, true
				}
				return VerdictNotText, true
			},
		},
	}
}
