package pivot

// Profile describes the market for one target skill.
type Profile struct {
	Skill          string  `json:"skill" yaml:"skill"`
	AvgSalary      float64 `json:"avg_salary" yaml:"avg_salary"`
	DemandStrength float64 `json:"demand_strength" yaml:"demand_strength"`
	Volatility     float64 `json:"volatility" yaml:"volatility"`
	AutomationRisk float64 `json:"automation_risk" yaml:"automation_risk"`
}

// Catalog is the set of candidate pivot targets. A nil Catalog selects
// DefaultCatalog; an empty non-nil one is rejected.
type Catalog []Profile

// DefaultCatalog returns a fresh copy of the built-in twelve-skill catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		{"Python Backend", 132000, 84, 34, 28},
		{"Data Engineering", 141000, 81, 31, 24},
		{"Machine Learning Engineering", 156000, 78, 42, 30},
		{"Cloud DevOps", 148000, 79, 36, 26},
		{"Cybersecurity", 152000, 83, 29, 18},
		{"Product Analytics", 126000, 74, 33, 27},
		{"Data Science", 149000, 77, 43, 32},
		{"Site Reliability Engineering", 154000, 75, 37, 23},
		{"AI Application Engineering", 164000, 82, 48, 35},
		{"Frontend Engineering", 124000, 70, 41, 33},
		{"Platform Engineering", 158000, 73, 35, 22},
		{"MLOps", 161000, 76, 39, 27},
	}
}
