package validate

import "math"

// Weights for blending the AI classifier score with the pattern score. The
// classifier generalizes across unseen phrasing, so it dominates; the pattern
// score remains as a structural guardrail.
const (
	aiWeight      = 0.8
	patternWeight = 0.2

	lowScorePenalty = 30
	rolePenalty     = 35

	// Company-name overlap only penalizes candidates that are not already
	// high-confidence.
	overlapThreshold  = 75
	maxOverlapPenalty = 40
)

// CombineOptions tunes the score-combination law.
type CombineOptions struct {
	// MinimumScore is the combined score below which the fixed low-score
	// penalty applies. Defaults to 60 when unset.
	MinimumScore int

	// RequireRole demands structural role evidence: when set and the pattern
	// score is below RoleMinimumScore, the pattern contribution is vetoed and
	// the role penalty applies.
	RequireRole      bool
	RoleMinimumScore int

	// CompanyOverlap marks that the candidate name overlaps the company name.
	CompanyOverlap     bool
	CompanyNamePenalty int
}

// DefaultMinimumScore applies when CombineOptions.MinimumScore is zero.
const DefaultMinimumScore = 60

// EnhancedMinimumScore is the lower bar used by enhanced validators that run
// without an AI contribution.
const EnhancedMinimumScore = 50

// CombineValidationScores blends an AI classifier score with a pattern score
// and applies the fixed penalty sequence. A pattern score that fails the role
// gate is treated as unreliable: its contribution is dropped before penalties.
// The result is clamped to [0,100].
func CombineValidationScores(aiScore, patternScore int, opts CombineOptions) int {
	minScore := opts.MinimumScore
	if minScore == 0 {
		minScore = DefaultMinimumScore
	}

	roleFailed := opts.RequireRole && patternScore < opts.RoleMinimumScore

	var combined int
	if roleFailed {
		combined = int(math.Round(float64(aiScore) * aiWeight))
	} else {
		combined = int(math.Round(float64(aiScore)*aiWeight + float64(patternScore)*patternWeight))
	}
	combined = clampScore(combined)

	if combined < minScore {
		combined -= lowScorePenalty
	}

	if roleFailed {
		combined -= rolePenalty
	}

	if combined < overlapThreshold && opts.CompanyOverlap {
		penalty := opts.CompanyNamePenalty
		if penalty > maxOverlapPenalty {
			penalty = maxOverlapPenalty
		}
		combined -= penalty
	}

	return clampScore(combined)
}
