// Package auction implements the bid coordination engine: the state machine
// that owns the single open bid slot, the increment policy that computes
// legal raises, and the event emission for every accepted transition.
package auction

import (
	"fmt"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// Tier is one rung of the increment schedule. Bids strictly below Below step
// by Step; a tier with Below == 0 is open-ended and must be last.
type Tier struct {
	Below float64
	Step  float64
}

// Policy maps the current bid to the minimum legal raise. It is a pure
// function of the bid amount; tier selection uses strict less-than against
// the pre-increment bid.
type Policy struct {
	tiers []policyTier
}

type policyTier struct {
	below     domain.Money
	step      domain.Money
	openEnded bool
}

// NewPolicy builds a Policy from an ordered tier schedule. The bounds must
// ascend and the final tier must be open-ended.
func NewPolicy(tiers []Tier) (Policy, error) {
	if len(tiers) == 0 {
		return Policy{}, fmt.Errorf("auction: increment policy needs at least one tier")
	}
	p := Policy{tiers: make([]policyTier, 0, len(tiers))}
	prev := domain.Money{}
	for i, t := range tiers {
		step := domain.MoneyFromFloat(t.Step)
		if step.IsZero() || step.IsNegative() {
			return Policy{}, fmt.Errorf("auction: tier %d has non-positive step", i)
		}
		if t.Below == 0 {
			if i != len(tiers)-1 {
				return Policy{}, fmt.Errorf("auction: open-ended tier must be last")
			}
			p.tiers = append(p.tiers, policyTier{step: step, openEnded: true})
			continue
		}
		below := domain.MoneyFromFloat(t.Below)
		if below.Cmp(prev) <= 0 {
			return Policy{}, fmt.Errorf("auction: tier bounds must ascend")
		}
		p.tiers = append(p.tiers, policyTier{below: below, step: step})
		prev = below
	}
	if !p.tiers[len(p.tiers)-1].openEnded {
		return Policy{}, fmt.Errorf("auction: final tier must be open-ended")
	}
	return p, nil
}

// DefaultPolicy returns the historical floor schedule: below 5 step 0.20,
// below 10 step 0.25, then 0.50.
func DefaultPolicy() Policy {
	p, err := NewPolicy([]Tier{
		{Below: 5, Step: 0.2},
		{Below: 10, Step: 0.25},
		{Below: 0, Step: 0.5},
	})
	if err != nil {
		panic(err)
	}
	return p
}

// Increment returns the minimum legal raise for the given current bid.
func (p Policy) Increment(current domain.Money) domain.Money {
	for _, t := range p.tiers {
		if t.openEnded || current.LessThan(t.below) {
			return t.step
		}
	}
	// Unreachable: NewPolicy guarantees a trailing open-ended tier.
	return p.tiers[len(p.tiers)-1].step
}

// Next returns current plus the policy increment, rounded to two decimals.
func (p Policy) Next(current domain.Money) domain.Money {
	return current.Add(p.Increment(current))
}
