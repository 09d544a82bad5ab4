package core

import (
	"fmt"

	"daphniacore/pkg/domain"
)

// Decision is the engine's verdict for one prospective brood: the code the
// new brood should carry, whether it should be discarded, and a rationale
// naming the rule that fired.
type Decision struct {
	SuggestedCode domain.CanonicalCore `json:"suggested_code"`
	Discard       bool                 `json:"discard"`
	Rationale     string               `json:"rationale"`
}

// SecondBroodRule selects the lab's policy for a non-founder's second
// sub-brood. The protocol went through both variants; the parameter stays
// configurable until the lab confirms one.
type SecondBroodRule string

const (
	// SecondBroodKeep keeps the second sub-brood unconditionally.
	SecondBroodKeep SecondBroodRule = "keep"
	// SecondBroodAliveThreshold discards the second sub-brood while the
	// family's alive count exceeds the policy threshold.
	SecondBroodAliveThreshold SecondBroodRule = "alive_threshold"
)

// DefaultAliveThreshold is the family alive count above which a
// threshold-gated second sub-brood is discarded.
const DefaultAliveThreshold = 10

// Policy carries the confirmable business parameters of the decision engine.
// The zero value behaves like DefaultPolicy.
type Policy struct {
	SecondBrood    SecondBroodRule
	AliveThreshold int
	// InclusiveThreshold makes the comparison count >= threshold instead
	// of the default strict count > threshold.
	InclusiveThreshold bool
}

// DefaultPolicy returns the canonical protocol parameters: threshold-gated
// second sub-brood at DefaultAliveThreshold, strict comparison.
func DefaultPolicy() Policy {
	return Policy{SecondBrood: SecondBroodAliveThreshold, AliveThreshold: DefaultAliveThreshold}
}

func (p Policy) normalized() Policy {
	if p.SecondBrood == "" {
		p.SecondBrood = SecondBroodAliveThreshold
	}
	if p.AliveThreshold <= 0 {
		p.AliveThreshold = DefaultAliveThreshold
	}
	return p
}

// NextSiblingIndex computes the index the parent's next sub-brood should
// take: one past the greatest trailing index among children whose canonical
// core extends the parent's core by exactly one segment, or 1 when no child
// conforms. Children from another family, at the wrong depth, or with
// unparseable cores do not break numbering; they are simply not counted.
func NextSiblingIndex(parent domain.CanonicalCore, children []string) int {
	maxIdx := 0
	for _, id := range children {
		core, err := domain.ParseCore(id)
		if err != nil {
			continue
		}
		if tail, ok := core.Extends(parent); ok && tail > maxIdx {
			maxIdx = tail
		}
	}
	return maxIdx + 1
}

// DecideNextBrood runs the brood state machine for a resolved parent and its
// recorded children. A parent whose own core does not parse is a hard stop:
// the codec error propagates, because every downstream decision depends on
// the parent's classification.
func (s *Snapshot) DecideNextBrood(parent domain.Specimen, children []string, policy Policy) (Decision, error) {
	core, err := domain.ParseCore(parent.ID)
	if err != nil {
		return Decision{}, err
	}
	return s.decide(core, NextSiblingIndex(core, children), policy)
}

// DecideBroodAt evaluates the state machine for an explicitly chosen brood
// index instead of the computed next one. Indices start at 1.
func (s *Snapshot) DecideBroodAt(parent domain.Specimen, index int, policy Policy) (Decision, error) {
	if index < 1 {
		return Decision{}, domain.InvalidBroodIndexError{Index: index}
	}
	core, err := domain.ParseCore(parent.ID)
	if err != nil {
		return Decision{}, err
	}
	return s.decide(core, index, policy)
}

func (s *Snapshot) decide(parent domain.CanonicalCore, index int, policy Policy) (Decision, error) {
	policy = policy.normalized()

	// Founders breed unbounded within their generation: no discard, no
	// reset, regardless of how many broods accumulate.
	if parent.IsFounder() {
		return Decision{
			SuggestedCode: parent.Child(index),
			Rationale:     fmt.Sprintf("founder %s: next brood=%d (founders never discard or reset)", parent, index),
		}, nil
	}

	switch {
	case index == 1:
		return Decision{
			SuggestedCode: parent.Child(1),
			Discard:       true,
			Rationale:     fmt.Sprintf("%s: 1st sub-brood, always discarded", parent),
		}, nil
	case index == 2:
		if policy.SecondBrood == SecondBroodKeep {
			return Decision{
				SuggestedCode: parent.Child(2),
				Rationale:     fmt.Sprintf("%s: 2nd sub-brood, kept (keep policy)", parent),
			}, nil
		}
		alive := s.AliveCount(parent.Family)
		exceeded := alive > policy.AliveThreshold
		if policy.InclusiveThreshold {
			exceeded = alive >= policy.AliveThreshold
		}
		if exceeded {
			return Decision{
				SuggestedCode: parent.Child(2),
				Discard:       true,
				Rationale: fmt.Sprintf("%s: 2nd sub-brood, discarded (family %s alive count %d over threshold %d)",
					parent, parent.Family, alive, policy.AliveThreshold),
			}, nil
		}
		return Decision{
			SuggestedCode: parent.Child(2),
			Rationale: fmt.Sprintf("%s: 2nd sub-brood, kept (family %s alive count %d within threshold %d)",
				parent, parent.Family, alive, policy.AliveThreshold),
		}, nil
	case index == 3:
		return Decision{
			SuggestedCode: parent.Child(3),
			Rationale:     fmt.Sprintf("%s: 3rd sub-brood, kept for experimental use", parent),
		}, nil
	}

	// A non-founder lineage caps at three extending sub-broods. The 4th
	// and later each seed their own fresh top-level generation so that
	// simultaneous overflow broods never collapse onto one code.
	newGen := s.MaxGeneration(parent.Family) + 1 + (index - 4)
	code := domain.CanonicalCore{Family: parent.Family, Generation: newGen}
	return Decision{
		SuggestedCode: code,
		Rationale: fmt.Sprintf("%s: %s sub-brood, reset to new founder generation %s",
			parent, ordinal(index), code),
	}, nil
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
