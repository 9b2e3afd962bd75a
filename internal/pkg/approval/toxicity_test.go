package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
)

func TestNormalizeScore(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"nil", nil, 0, false},
		{"bool true", true, 1, true},
		{"bool false", false, 0, true},
		{"fraction", 0.35, 0.35, true},
		{"zero", 0.0, 0, true},
		{"one", 1.0, 1, true},
		{"percentage", 85.0, 0.85, true},
		{"percentage boundary", 100.0, 1, true},
		{"int percentage", 42, 0.42, true},
		{"numeric string", "0.7", 0.7, true},
		{"percentage string", "70", 0.7, true},
		{"padded string", " 0.5 ", 0.5, true},
		{"empty string", "", 0, false},
		{"garbage string", "high", 0, false},
		{"negative", -0.1, 0, false},
		{"beyond percentage", 250.0, 0, false},
		{"struct", struct{}{}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeScore(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want, got, 1e-9)
			}
		})
	}
}

func TestValidateToxicityDeltaRejectsInvalidScores(t *testing.T) {
	assert.False(t, ValidateToxicityDelta(nil, 0.1, entitlements.PlanPro))
	assert.False(t, ValidateToxicityDelta(0.1, nil, entitlements.PlanPro))
	assert.False(t, ValidateToxicityDelta("nope", 0.1, entitlements.PlanPro))
	assert.False(t, ValidateToxicityDelta(0.1, -3.0, entitlements.PlanPro))
}

func TestValidateToxicityDeltaDefaultBands(t *testing.T) {
	plan := entitlements.PlanPro

	// Low original with a moderate rise stays approvable.
	assert.True(t, ValidateToxicityDelta(0.3, 0.2, plan))
	assert.True(t, ValidateToxicityDelta(0.6, 0.1, plan))

	// Ceiling is exact: 0.61 is over for any original at or below 0.6.
	assert.False(t, ValidateToxicityDelta(0.61, 0.1, plan))

	// Mid-band original, increase allowance binds.
	assert.True(t, ValidateToxicityDelta(0.55, 0.35, plan))
	assert.False(t, ValidateToxicityDelta(0.8, 0.35, plan))

	// High original: no increase allowed, hard ceiling at 0.5.
	assert.True(t, ValidateToxicityDelta(0.5, 0.9, plan))
	assert.False(t, ValidateToxicityDelta(0.55, 0.9, plan))
}

func TestValidateToxicityDeltaStrictBands(t *testing.T) {
	plan := entitlements.PlanFree

	assert.True(t, ValidateToxicityDelta(0.45, 0.1, plan))
	assert.False(t, ValidateToxicityDelta(0.55, 0.1, plan))

	// Originals above 0.6 cap at 0.40 with zero allowance.
	assert.True(t, ValidateToxicityDelta(0.4, 0.7, plan))
	assert.False(t, ValidateToxicityDelta(0.41, 0.7, plan))
}

func TestValidateToxicityDeltaAllowanceBoundary(t *testing.T) {
	// An increase exactly equal to the band allowance passes.
	assert.True(t, ValidateToxicityDelta(0.6, 0.0, entitlements.PlanPro))
	assert.True(t, ValidateToxicityDelta(0.5, 0.0, entitlements.PlanFree))
	// Just past the ceiling fails.
	assert.False(t, ValidateToxicityDelta(0.601, 0.0, entitlements.PlanPro))
}

// Raising the original score while holding the variant fixed must never turn
// a denial into an approval.
func TestValidateToxicityDeltaMonotonicInOriginal(t *testing.T) {
	for _, plan := range []entitlements.Plan{entitlements.PlanFree, entitlements.PlanStarter, entitlements.PlanPro, entitlements.PlanPlus} {
		for v := 0.0; v <= 1.0; v += 0.05 {
			prev := true
			for o := 0.0; o <= 1.0; o += 0.01 {
				cur := ValidateToxicityDelta(v, o, plan)
				if !prev && cur {
					t.Fatalf("plan %s: variant %.2f approved at original %.2f after denial at a lower original", plan, v, o)
				}
				prev = cur
			}
		}
	}
}

func TestValidateToxicityDeltaAcceptsMixedShapes(t *testing.T) {
	// Percentage original, fractional variant.
	assert.True(t, ValidateToxicityDelta(0.3, 20.0, entitlements.PlanPro))
	// String variant.
	assert.True(t, ValidateToxicityDelta("0.3", 0.2, entitlements.PlanPro))
	// Boolean original meaning maximally toxic: zero allowance applies.
	assert.False(t, ValidateToxicityDelta(0.55, true, entitlements.PlanPro))
}
