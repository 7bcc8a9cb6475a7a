package config

import "time"

const (
	DefaultAnalyzerAPIVersion   = "2024-12-01-preview"
	DefaultAnalyzerTimeout      = 120 * time.Second
	DefaultAnalyzerPollInterval = 2 * time.Second
)

// Analyzer configures the document-analysis service used by ingestion
type Analyzer struct {
	Endpoint     string `hcl:"endpoint,optional"`
	APIKey       string `hcl:"api_key,optional"`
	AnalyzerID   string `hcl:"analyzer_id,optional"`
	APIVersion   string `hcl:"api_version,optional"`
	Timeout      string `hcl:"timeout,optional"`
	PollInterval string `hcl:"poll_interval,optional"`
}

// Defaults fills in default values for unset fields
func (a *Analyzer) Defaults() {
	if a.APIVersion == "" {
		a.APIVersion = DefaultAnalyzerAPIVersion
	}
}

func (a *Analyzer) GetTimeout() time.Duration {
	d, _ := parseDuration(a.Timeout, DefaultAnalyzerTimeout)
	return d
}

func (a *Analyzer) GetPollInterval() time.Duration {
	d, _ := parseDuration(a.PollInterval, DefaultAnalyzerPollInterval)
	return d
}

func (a *Analyzer) Validate() error {
	var missing []string
	if a.Endpoint == "" {
		missing = append(missing, "analyzer.endpoint")
	}
	if a.APIKey == "" {
		missing = append(missing, "analyzer.api_key")
	}
	if a.AnalyzerID == "" {
		missing = append(missing, "analyzer.analyzer_id")
	}
	if len(missing) > 0 {
		return Missing(missing...)
	}
	if _, err := parseDuration(a.Timeout, DefaultAnalyzerTimeout); err != nil {
		return Invalid("analyzer.timeout: %v", err)
	}
	if _, err := parseDuration(a.PollInterval, DefaultAnalyzerPollInterval); err != nil {
		return Invalid("analyzer.poll_interval: %v", err)
	}
	return nil
}
