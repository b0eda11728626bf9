package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cricketattax/auctioneer/internal/domain"
)

func TestPolicyIncrementTiers(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		current float64
		want    string
	}{
		{"low band", 2.00, "0.20"},
		{"just below first bound", 4.80, "0.20"},
		{"exactly at first bound", 5.00, "0.25"},
		{"mid band", 7.50, "0.25"},
		{"just below second bound", 9.75, "0.25"},
		{"exactly at second bound", 10.00, "0.50"},
		{"high band", 42.00, "0.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Increment(domain.MoneyFromFloat(tt.current))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestPolicyNextCrossesBoundary(t *testing.T) {
	p := DefaultPolicy()

	// 4.80 is still in the first band, so the step is 0.20: the raise lands
	// exactly on the boundary. The raise after that uses the next band.
	next := p.Next(domain.MoneyFromFloat(4.80))
	assert.Equal(t, "5.00", next.String())
	assert.Equal(t, "5.25", p.Next(next).String())

	next = p.Next(domain.MoneyFromFloat(9.75))
	assert.Equal(t, "10.00", next.String())
	assert.Equal(t, "10.50", p.Next(next).String())
}

func TestNewPolicyValidation(t *testing.T) {
	_, err := NewPolicy(nil)
	require.Error(t, err)

	_, err = NewPolicy([]Tier{{Below: 5, Step: 0.2}})
	require.Error(t, err, "final tier must be open-ended")

	_, err = NewPolicy([]Tier{{Below: 0, Step: 0.2}, {Below: 5, Step: 0.5}})
	require.Error(t, err, "open-ended tier must be last")

	_, err = NewPolicy([]Tier{{Below: 10, Step: 0.2}, {Below: 5, Step: 0.3}, {Below: 0, Step: 0.5}})
	require.Error(t, err, "bounds must ascend")

	_, err = NewPolicy([]Tier{{Below: 5, Step: -0.2}, {Below: 0, Step: 0.5}})
	require.Error(t, err, "steps must be positive")

	p, err := NewPolicy([]Tier{{Below: 3, Step: 0.1}, {Below: 0, Step: 1}})
	require.NoError(t, err)
	assert.Equal(t, "0.10", p.Increment(domain.MoneyFromFloat(2.9)).String())
	assert.Equal(t, "1.00", p.Increment(domain.MoneyFromFloat(3)).String())
}

func TestPolicySingleOpenEndedTier(t *testing.T) {
	p, err := NewPolicy([]Tier{{Below: 0, Step: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, "0.50", p.Increment(domain.Money{}).String())
	assert.Equal(t, "0.50", p.Increment(domain.MoneyFromFloat(1000)).String())
}
