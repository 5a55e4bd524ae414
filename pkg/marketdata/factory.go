package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
)

// New creates a source based on kind and a generic configuration map.
//
// Supported kinds:
//   - "sqlite":   requires "path" (":memory:" allowed)
//   - "postgres": requires "url"
//   - "http":     requires "url", "yearPath", "demandPath", "salaryPath", "competitionPath"
//
// Returns error if kind is unknown or required fields are missing.
func New(ctx context.Context, kind string, config map[string]string) (Source, error) {
	switch kind {
	case "sqlite":
		path := config["path"]
		if path == "" {
			return nil, fmt.Errorf("sqlite source requires 'path' config")
		}
		return OpenSQLite(path)
	case "postgres":
		url := config["url"]
		if url == "" {
			return nil, fmt.Errorf("postgres source requires 'url' config")
		}
		return ConnectPostgres(ctx, url)
	case "http":
		return newHTTP(config)
	default:
		return nil, fmt.Errorf("unknown source kind: %s (must be sqlite, postgres, or http)", kind)
	}
}

func newHTTP(config map[string]string) (Source, error) {
	src := &HTTPSource{
		URL:             config["url"],
		Method:          config["method"],
		Body:            config["body"],
		YearPath:        config["yearPath"],
		DemandPath:      config["demandPath"],
		SalaryPath:      config["salaryPath"],
		CompetitionPath: config["competitionPath"],
		OpeningsPath:    config["openingsPath"],
	}

	if headersJSON := config["headers"]; headersJSON != "" {
		if err := json.Unmarshal([]byte(headersJSON), &src.Headers); err != nil {
			return nil, fmt.Errorf("invalid 'headers' JSON: %w", err)
		}
	}
	if varsJSON := config["templateVars"]; varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &src.TemplateVars); err != nil {
			return nil, fmt.Errorf("invalid 'templateVars' JSON: %w", err)
		}
	}

	if err := src.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}
	return src, nil
}
