package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/ZanzyTHEbar/introscore/internal/resilience"
)

const ServiceLanguageTool = "languagetool"

// ltMatch is one entry of the LanguageTool /v2/check response
type ltMatch struct {
	Message string `json:"message"`
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	Context struct {
		Text string `json:"text"`
	} `json:"context"`
	Rule struct {
		ID string `json:"id"`
	} `json:"rule"`
}

type ltResponse struct {
	Matches []ltMatch `json:"matches"`
}

// LanguageTool checks grammar against a LanguageTool server
type LanguageTool struct {
	baseURL  string
	language string
	client   *resilience.ServiceClient
}

// NewLanguageTool returns a checker for the server at baseURL, e.g.
// http://localhost:8010. language defaults to en-US.
func NewLanguageTool(baseURL, language string, client *resilience.ServiceClient) *LanguageTool {
	if language == "" {
		language = "en-US"
	}
	return &LanguageTool{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client:   client,
	}
}

// Check returns the issues LanguageTool reports, in server order
func (l *LanguageTool) Check(ctx context.Context, text string) ([]analysis.GrammarIssue, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("language", l.language)

	body, err := l.client.Do(ctx, http.MethodPost, l.baseURL+"/v2/check", []byte(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Accept":       "application/json",
	})
	if err != nil {
		return nil, err
	}

	var resp ltResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewExternalAPIError(ServiceLanguageTool, fmt.Errorf("decode response: %w", err))
	}

	issues := make([]analysis.GrammarIssue, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		issues = append(issues, analysis.GrammarIssue{
			Message: m.Message,
			Context: m.Context.Text,
			Offset:  m.Offset,
			Rule:    m.Rule.ID,
		})
	}
	return issues, nil
}

// Ping asks the server for its language list
func (l *LanguageTool) Ping(ctx context.Context) error {
	_, err := l.client.Do(ctx, http.MethodGet, l.baseURL+"/v2/languages", nil, map[string]string{"Accept": "application/json"})
	return err
}
