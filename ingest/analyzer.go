package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"deepresearch/config"

	"github.com/hashicorp/go-hclog"
)

// Analyzer converts a local document into markdown
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (string, error)
}

const (
	operationLocationHeader = "Operation-Location"
	subscriptionKeyHeader   = "Ocp-Apim-Subscription-Key"
	userAgentHeader         = "x-ms-useragent"
	userAgent               = "deepresearch-go"
)

// ContentUnderstanding is a client for the Azure AI Content Understanding
// analyze API. Requests are submitted as an octet stream and polled via the
// returned operation location until they succeed, fail or time out.
type ContentUnderstanding struct {
	endpoint     string
	apiKey       string
	analyzerID   string
	apiVersion   string
	timeout      time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
	logger       hclog.Logger
}

var _ Analyzer = (*ContentUnderstanding)(nil)

func NewContentUnderstanding(cfg *config.Analyzer, logger hclog.Logger) (*ContentUnderstanding, error) {
	if cfg == nil {
		return nil, config.Missing("analyzer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = config.DefaultAnalyzerAPIVersion
	}
	return &ContentUnderstanding{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		analyzerID:   cfg.AnalyzerID,
		apiVersion:   apiVersion,
		timeout:      cfg.GetTimeout(),
		pollInterval: cfg.GetPollInterval(),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		logger:       logger,
	}, nil
}

func (c *ContentUnderstanding) analyzeURL() string {
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	q.Set("stringEncoding", "utf16")
	return fmt.Sprintf("%s/contentunderstanding/analyzers/%s:analyze?%s",
		c.endpoint, url.PathEscape(c.analyzerID), q.Encode())
}

func (c *ContentUnderstanding) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(subscriptionKeyHeader, c.apiKey)
	req.Header.Set(userAgentHeader, userAgent)
	return req, nil
}

// AnalyzeFile uploads the file and returns the extracted markdown
func (c *ContentUnderstanding) AnalyzeFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.analyzeURL(), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	c.logger.Debug("submitting document", "path", path, "bytes", len(data))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("analysis request failed: %d, %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	location := resp.Header.Get(operationLocationHeader)
	if location == "" {
		return "", fmt.Errorf("%s header missing in response", operationLocationHeader)
	}

	c.logger.Debug("analysis started", "path", path, "operation", location)
	return c.poll(ctx, location)
}

type operationResult struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

func (c *ContentUnderstanding) poll(ctx context.Context, location string) (string, error) {
	deadline := time.Now().Add(c.timeout)

	for {
		if time.Now().After(deadline) {
			return "", fmt.Errorf("operation timed out after %s", c.timeout)
		}

		op, raw, err := c.fetchOperation(ctx, location)
		if err != nil {
			return "", err
		}

		status := strings.ToLower(op.Status)
		c.logger.Trace("analysis status", "status", status)

		switch status {
		case "succeeded":
			return extractMarkdown(op.Result), nil
		case "failed":
			return "", fmt.Errorf("analysis failed: %s", strings.TrimSpace(string(raw)))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *ContentUnderstanding) fetchOperation(ctx context.Context, location string) (*operationResult, []byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("polling: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("polling: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("polling failed: %d, %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var op operationResult
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, nil, fmt.Errorf("decoding operation status: %w", err)
	}
	return &op, raw, nil
}

// extractMarkdown prefers the first content with markdown, then a top-level
// markdown field, and otherwise dumps the result as indented JSON
func extractMarkdown(result json.RawMessage) string {
	var parsed struct {
		Contents []struct {
			Markdown *string `json:"markdown"`
		} `json:"contents"`
		Markdown *string `json:"markdown"`
	}
	if len(result) > 0 && json.Unmarshal(result, &parsed) == nil {
		for _, content := range parsed.Contents {
			if content.Markdown != nil {
				return *content.Markdown
			}
		}
		if parsed.Markdown != nil {
			return *parsed.Markdown
		}
	}

	var generic any
	if err := json.Unmarshal(result, &generic); err != nil || generic == nil {
		generic = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(generic)
	return strings.TrimRight(buf.String(), "\n")
}
