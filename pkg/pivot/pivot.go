// Package pivot recommends alternative skills for a worker whose current
// skill is losing demand. Candidates come from a market catalog and are
// ranked by transition risk and desirability.
package pivot

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/HatiCode/skillhalflife/pkg/series"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

// Tier aggressiveness feeds the learning-time estimate.
const (
	safeAggressiveness       = 0.2
	moderateAggressiveness   = 0.55
	aggressiveAggressiveness = 0.9

	// minCandidates is the smallest catalog, after excluding the current
	// skill, that can fill all three tiers.
	minCandidates = 3

	// aggressiveRiskFloor is the minimum risk for an aggressive pick.
	aggressiveRiskFloor = 45.0
)

// Pivot is one recommended target skill.
type Pivot struct {
	TargetSkill          string  `json:"target_skill"`
	RiskScore            float64 `json:"risk_score"`
	SalaryProjection     float64 `json:"salary_projection"`
	LearningTimeEstimate string  `json:"learning_time_estimate"`
	LearningTimeMonths   int     `json:"learning_time_months"`
}

// Recommendation holds the three tiers, ordered by non-decreasing risk.
type Recommendation struct {
	CurrentSkill string `json:"current_skill"`
	Safe         Pivot  `json:"safe_pivot"`
	Moderate     Pivot  `json:"moderate_pivot"`
	Aggressive   Pivot  `json:"aggressive_pivot"`
}

type candidate struct {
	skill        string
	similarity   float64
	risk         float64
	salary       float64
	demand       float64
	volatility   float64
	desirability float64
}

// Recommend scores every catalog entry other than currentSkill and picks a
// safe, a moderate and an aggressive pivot.
//
// When the picks are not already in risk order they are re-sorted by risk and
// relabelled, so the tier name always reflects relative risk even if the
// underlying selection rule chose differently.
func Recommend(currentSkill string, catalog Catalog) (Recommendation, error) {
	if strings.TrimSpace(currentSkill) == "" {
		return Recommendation{}, validation.Invalid("current_skill must be a non-empty string.")
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	} else if len(catalog) == 0 {
		return Recommendation{}, validation.Invalid("market_profiles must not be empty when provided.")
	}

	current := strings.ToLower(strings.TrimSpace(currentSkill))
	candidates := make([]candidate, 0, len(catalog))
	for _, p := range catalog {
		if strings.ToLower(strings.TrimSpace(p.Skill)) == current {
			continue
		}
		candidates = append(candidates, score(currentSkill, p))
	}
	if len(candidates) < minCandidates {
		return Recommendation{}, validation.Invalid("At least %d distinct target skills are required for pivot suggestions.", minCandidates)
	}

	byRiskAsc := sortedBy(candidates, func(a, b candidate) bool {
		if a.risk != b.risk {
			return a.risk < b.risk
		}
		return a.desirability > b.desirability
	})
	byRiskMid := sortedBy(candidates, func(a, b candidate) bool {
		return math.Abs(a.risk-50) < math.Abs(b.risk-50)
	})
	byUpsideDesc := sortedBy(candidates, func(a, b candidate) bool {
		if a.desirability != b.desirability {
			return a.desirability > b.desirability
		}
		return a.risk < b.risk
	})

	safe := byRiskAsc[0]

	moderate := byRiskMid[0]
	for _, c := range byRiskMid {
		if c.skill != safe.skill {
			moderate = c
			break
		}
	}

	aggressive := byUpsideDesc[0]
	for _, c := range byUpsideDesc {
		if c.skill != safe.skill && c.skill != moderate.skill && c.risk >= aggressiveRiskFloor {
			aggressive = c
			break
		}
	}

	tiers := []Pivot{
		safe.pivot(safeAggressiveness),
		moderate.pivot(moderateAggressiveness),
		aggressive.pivot(aggressiveAggressiveness),
	}
	if !(tiers[0].RiskScore <= tiers[1].RiskScore && tiers[1].RiskScore <= tiers[2].RiskScore) {
		sort.SliceStable(tiers, func(i, j int) bool {
			return tiers[i].RiskScore < tiers[j].RiskScore
		})
	}

	return Recommendation{
		CurrentSkill: strings.TrimSpace(currentSkill),
		Safe:         tiers[0],
		Moderate:     tiers[1],
		Aggressive:   tiers[2],
	}, nil
}

func score(currentSkill string, p Profile) candidate {
	similarity := Similarity(currentSkill, p.Skill)
	marketRisk := 0.45*p.AutomationRisk + 0.30*p.Volatility + 0.25*(100-p.DemandStrength)
	transitionRisk := (1 - similarity) * 100

	c := candidate{
		skill:      p.Skill,
		similarity: similarity,
		risk:       series.Round(series.Clamp(0.55*transitionRisk+0.45*marketRisk, 0, 100), 4),
		salary:     series.Round(p.AvgSalary, 2),
		demand:     series.Round(p.DemandStrength, 4),
		volatility: series.Round(p.Volatility, 4),
	}
	c.desirability = series.Round(0.45*(100-c.risk)+0.30*math.Min(100, c.salary/2000)+0.25*c.demand, 4)
	return c
}

func (c candidate) pivot(aggressiveness float64) Pivot {
	months := LearningMonths(c.similarity, c.volatility, aggressiveness)
	return Pivot{
		TargetSkill:          c.skill,
		RiskScore:            c.risk,
		SalaryProjection:     c.salary,
		LearningTimeEstimate: fmt.Sprintf("%d months", months),
		LearningTimeMonths:   months,
	}
}

// LearningMonths estimates months needed to move into a target skill.
func LearningMonths(similarity, targetVolatility, aggressiveness float64) int {
	base := 3 + (1-similarity)*10
	complexity := targetVolatility / 100 * 3.5
	return int(math.RoundToEven(math.Max(1, base+complexity+aggressiveness*4)))
}

// Similarity is the Jaccard index of the word sets of two skill labels.
func Similarity(left, right string) float64 {
	a, b := tokens(left), tokens(right)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// tokens lowercases a label, treats every non-alphanumeric rune as a
// separator and returns the distinct words.
func tokens(label string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(label))

	out := make(map[string]struct{})
	for _, f := range strings.Fields(cleaned) {
		out[f] = struct{}{}
	}
	return out
}

func sortedBy(in []candidate, less func(a, b candidate) bool) []candidate {
	out := make([]candidate, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
