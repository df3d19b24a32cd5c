package policy

import (
	"github.com/eliteGoblin/panelmon/internal/domain"
)

// Verdict is the outcome a rule assigns to an element.
type Verdict int

const (
	// VerdictText marks the element as a text input.
	VerdictText Verdict = iota
	// VerdictNotText marks the element as not a text input.
	VerdictNotText
)

func (v Verdict) String() string {
	if v == VerdictText {
		return "text"
	}
	return "not_text"
}

// Rule is one step of the editability classification. Evaluate returns the
// verdict and whether the rule matched at all; a non-matching rule passes
// the element to the next rule in order.
//
// The evaluation order is load-bearing: reordering changes behavior on
// real applications. Rules must not call out to the OS; they see only the
// descriptor and the filter tables.
type Rule struct {
	Name     string
	Evaluate func(d domain.ElementDescriptor, f *Filter) (Verdict, bool)
}
