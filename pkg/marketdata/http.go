package marketdata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/skillhalflife/pkg/analytics"
)

// HTTPSource calls a JSON API and extracts yearly rows using gjson paths.
//
// URL, Body and header values are templates. Available variables are
// {{.Country}}, {{.City}}, {{.Skill}} plus any TemplateVars; use the
// builtin urlquery function when placing them in a URL:
//
//	src := &HTTPSource{
//	    URL:             "https://labor.example.com/v1/series?country={{urlquery .Country}}&city={{urlquery .City}}&skill={{urlquery .Skill}}",
//	    YearPath:        "data.#.year",
//	    DemandPath:      "data.#.demand",
//	    SalaryPath:      "data.#.salary",
//	    CompetitionPath: "data.#.competition",
//	}
type HTTPSource struct {
	URL    string
	Method string

	Headers      map[string]string
	Body         string
	TemplateVars map[string]string

	// gjson paths; all but OpeningsPath are required and must yield arrays
	// of equal length.
	YearPath        string
	DemandPath      string
	SalaryPath      string
	CompetitionPath string
	OpeningsPath    string

	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client
}

func (h *HTTPSource) Name() string { return "http" }

// Rows implements Source. A 404 response means no data for key.
func (h *HTTPSource) Rows(ctx context.Context, key analytics.Key) ([]analytics.Row, error) {
	if err := h.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}

	data := map[string]any{
		"Country": key.Country,
		"City":    key.City,
		"Skill":   key.Skill,
	}
	for k, v := range h.TemplateVars {
		data[k] = v
	}

	url, err := renderTemplate(h.URL, data)
	if err != nil {
		return nil, fmt.Errorf("render url template: %w", err)
	}

	var body io.Reader
	if h.Body != "" {
		rendered, err := renderTemplate(h.Body, data)
		if err != nil {
			return nil, fmt.Errorf("render body template: %w", err)
		}
		body = bytes.NewBufferString(rendered)
	}

	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for name, value := range h.Headers {
		rendered, err := renderTemplate(value, data)
		if err != nil {
			return nil, fmt.Errorf("render header %s: %w", name, err)
		}
		req.Header.Set(name, rendered)
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []analytics.Row{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(msg))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return h.extract(payload)
}

func (h *HTTPSource) extract(payload []byte) ([]analytics.Row, error) {
	years := gjson.GetBytes(payload, h.YearPath)
	if !years.Exists() {
		return nil, fmt.Errorf("year path %q not found in response", h.YearPath)
	}
	yearArr := years.Array()

	column := func(name, path string) ([]gjson.Result, error) {
		res := gjson.GetBytes(payload, path)
		if !res.Exists() {
			return nil, fmt.Errorf("%s path %q not found in response", name, path)
		}
		arr := res.Array()
		if len(arr) != len(yearArr) {
			return nil, fmt.Errorf("%s count (%d) != year count (%d)", name, len(arr), len(yearArr))
		}
		return arr, nil
	}

	demand, err := column("demand", h.DemandPath)
	if err != nil {
		return nil, err
	}
	salary, err := column("salary", h.SalaryPath)
	if err != nil {
		return nil, err
	}
	competition, err := column("competition", h.CompetitionPath)
	if err != nil {
		return nil, err
	}
	var openings []gjson.Result
	if h.OpeningsPath != "" {
		if openings, err = column("openings", h.OpeningsPath); err != nil {
			return nil, err
		}
	}

	rows := make([]analytics.Row, len(yearArr))
	for i := range rows {
		rows[i] = analytics.Row{
			Year:             int(yearArr[i].Int()),
			DemandIndex:      demand[i].Float(),
			SalaryEstimate:   salary[i].Float(),
			CompetitionIndex: competition[i].Float(),
		}
		if openings != nil {
			rows[i].JobOpenings = int(openings[i].Int())
		}
	}
	return rows, nil
}

// Ping is a no-op; the upstream API is checked on each request.
func (h *HTTPSource) Ping(context.Context) error { return nil }

func (h *HTTPSource) Close() error { return nil }

// ValidateConfig checks that the URL and required paths are set.
func (h *HTTPSource) ValidateConfig() error {
	if h.URL == "" {
		return errors.New("url is required")
	}
	var missing []string
	for _, p := range []struct{ name, path string }{
		{"yearPath", h.YearPath},
		{"demandPath", h.DemandPath},
		{"salaryPath", h.SalaryPath},
		{"competitionPath", h.CompetitionPath},
	} {
		if p.path == "" {
			missing = append(missing, p.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required paths: %s", strings.Join(missing, ", "))
	}
	return nil
}

func renderTemplate(tmplStr string, data map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
