// Package gap compares a user's skills with the top skills of a region.
package gap

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/HatiCode/skillhalflife/pkg/series"
)

// Analysis lists what the user lacks and what they share with the region.
type Analysis struct {
	MissingSkills    []string `json:"missing_skills"`
	SaturationSkills []string `json:"saturation_skills"`
	GapScore         float64  `json:"gap_score"`
}

// Compare returns region skills the user lacks, user skills the region
// already values, and the share of region skills not covered as a 0..100 score.
func Compare(userSkills, regionSkills []string) Analysis {
	fold := cases.Fold()
	user, userKeys := normalize(userSkills, fold)
	region, regionKeys := normalize(regionSkills, fold)

	out := Analysis{
		MissingSkills:    []string{},
		SaturationSkills: []string{},
	}
	if len(region) == 0 {
		return out
	}

	userSet := make(map[string]struct{}, len(userKeys))
	for _, k := range userKeys {
		userSet[k] = struct{}{}
	}
	regionSet := make(map[string]struct{}, len(regionKeys))
	for _, k := range regionKeys {
		regionSet[k] = struct{}{}
	}

	for i, skill := range region {
		if _, ok := userSet[regionKeys[i]]; !ok {
			out.MissingSkills = append(out.MissingSkills, skill)
		}
	}
	for i, skill := range user {
		if _, ok := regionSet[userKeys[i]]; ok {
			out.SaturationSkills = append(out.SaturationSkills, skill)
		}
	}

	coverage := float64(len(out.SaturationSkills)) / float64(len(region))
	out.GapScore = series.Score((1 - coverage) * 100)
	return out
}

// normalize trims and collapses whitespace, drops empties, and removes
// case-insensitive duplicates keeping the first spelling. It returns the
// cleaned labels and their fold keys in the same order.
func normalize(skills []string, fold cases.Caser) ([]string, []string) {
	labels := make([]string, 0, len(skills))
	keys := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))

	for _, raw := range skills {
		label := strings.Join(strings.Fields(raw), " ")
		if label == "" {
			continue
		}
		key := fold.String(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		labels = append(labels, label)
		keys = append(keys, key)
	}
	return labels, keys
}
