package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/HatiCode/skillhalflife/pkg/analytics"
)

var csvColumns = []string{
	"country", "city", "skill", "year",
	"demand_index", "salary_estimate", "job_openings", "competition_index",
}

// Batch groups rows read for one key, in file order.
type Batch struct {
	Key  analytics.Key
	Rows []analytics.Row
}

// ReadCSV parses a job-market export with a header row naming the columns
// country, city, skill, year, demand_index, salary_estimate, job_openings
// and competition_index in any order. Rows are grouped by key in order of
// first appearance.
func ReadCSV(r io.Reader) ([]Batch, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var batches []Batch
	byKey := map[analytics.Key]int{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string { return strings.TrimSpace(record[index[name]]) }
		key := analytics.Key{Country: field("country"), City: field("city"), Skill: field("skill")}

		var row analytics.Row
		if row.Year, err = strconv.Atoi(field("year")); err != nil {
			return nil, fmt.Errorf("line %d: year: %w", line, err)
		}
		if row.DemandIndex, err = strconv.ParseFloat(field("demand_index"), 64); err != nil {
			return nil, fmt.Errorf("line %d: demand_index: %w", line, err)
		}
		if row.SalaryEstimate, err = strconv.ParseFloat(field("salary_estimate"), 64); err != nil {
			return nil, fmt.Errorf("line %d: salary_estimate: %w", line, err)
		}
		if row.JobOpenings, err = strconv.Atoi(field("job_openings")); err != nil {
			return nil, fmt.Errorf("line %d: job_openings: %w", line, err)
		}
		if row.CompetitionIndex, err = strconv.ParseFloat(field("competition_index"), 64); err != nil {
			return nil, fmt.Errorf("line %d: competition_index: %w", line, err)
		}

		i, ok := byKey[key]
		if !ok {
			i = len(batches)
			byKey[key] = i
			batches = append(batches, Batch{Key: key})
		}
		batches[i].Rows = append(batches[i].Rows, row)
	}
	return batches, nil
}
