package valuation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"dealscout/internal/config"
	"dealscout/internal/model"
	"dealscout/internal/utils"
)

// Estimates outside this band are discarded as model hallucinations.
const (
	minSaneEstimate = 10_000
	maxSaneEstimate = 50_000_000
)

// Estimator produces generative fair-value estimates through an
// OpenAI-compatible chat completion endpoint.
type Estimator struct {
	cfg        *config.EstimatorConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewEstimator creates an estimator client.
func NewEstimator(cfg *config.EstimatorConfig, log *zap.Logger) *Estimator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Estimator{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		log: log,
	}
}

// Enabled reports whether the client is configured and ready
func (e *Estimator) Enabled() bool {
	return e.cfg.Enabled
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// fairValueResponse is the JSON shape the model is asked to produce
type fairValueResponse struct {
	EstimatedValue   float64  `json:"estimated_value"`
	ConfidenceLevel  string   `json:"confidence_level"`
	AnalysisFactors  []string `json:"analysis_factors"`
	MarketComparison string   `json:"market_comparison"`
	Reasoning        string   `json:"reasoning"`
}

// EstimateFairValue asks the model for an independent appraisal of the
// property and returns it as a generative price signal. Idempotent and
// safe to retry.
func (e *Estimator) EstimateFairValue(ctx context.Context, prop model.Property) (model.PriceSignal, error) {
	if !e.cfg.Enabled {
		return model.PriceSignal{}, fmt.Errorf("estimator is not enabled (missing API key)")
	}

	req := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: appraiserSystemPrompt},
			{Role: "user", Content: buildAppraisalPrompt(prop)},
		},
		Temperature:    e.cfg.Temperature,
		MaxTokens:      e.cfg.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	resp, err := e.chatCompletion(ctx, req)
	if err != nil {
		return model.PriceSignal{}, err
	}
	if len(resp.Choices) == 0 {
		return model.PriceSignal{}, fmt.Errorf("empty completion response")
	}

	content := resp.Choices[0].Message.Content
	var parsed fairValueResponse
	if err := utils.ParseModelJSON(content, &parsed); err != nil {
		e.log.Warn("failed to parse estimate response", zap.String("content", utils.Truncate(content, 200)))
		return model.PriceSignal{}, fmt.Errorf("parse estimate response: %w", err)
	}

	if parsed.EstimatedValue < minSaneEstimate || parsed.EstimatedValue > maxSaneEstimate {
		return model.PriceSignal{}, fmt.Errorf("estimate %.0f outside sane bounds", parsed.EstimatedValue)
	}

	confidence := model.Confidence(strings.ToLower(parsed.ConfidenceLevel))
	if !confidence.Valid() {
		confidence = model.ConfidenceMedium
	}

	return model.PriceSignal{
		Source:     model.SourceGenerative,
		Amount:     parsed.EstimatedValue,
		Confidence: confidence,
		Reasoning:  buildReasoning(parsed),
	}, nil
}

func (e *Estimator) chatCompletion(ctx context.Context, req chatRequest) (*chatResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", e.cfg.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", e.cfg.APIKey))

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("estimator request failed with status %d: %s", resp.StatusCode, utils.Truncate(string(body), 200))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

const appraiserSystemPrompt = `You are a professional real estate appraiser with 20+ years of experience. Given a property's details, provide a fair market value estimate.

Respond ONLY with valid JSON in this exact format:
{
    "estimated_value": <fair market value as a number>,
    "confidence_level": "<high/medium/low>",
    "analysis_factors": ["factor 1", "factor 2", "factor 3"],
    "market_comparison": "brief comparison to similar properties in the area",
    "reasoning": "detailed reasoning for this valuation in 2-3 sentences"
}

Focus on a realistic, market-based valuation reflecting current conditions and comparable sales. Consider location desirability, property condition implied by age, and rental income capability.`

// buildAppraisalPrompt renders the property facts the model analyzes.
// Absent fields are written as Unknown rather than omitted so the model
// never invents them.
func buildAppraisalPrompt(prop model.Property) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PROPERTY DETAILS:\n")
	fmt.Fprintf(&b, "Address: %s, %s, %s %s\n", prop.Address, prop.City, prop.State, prop.ZipCode)
	fmt.Fprintf(&b, "Type: %s\n", strOrUnknown(prop.PropertyType))
	fmt.Fprintf(&b, "Bedrooms: %s\n", intOrUnknown(prop.Bedrooms))
	fmt.Fprintf(&b, "Bathrooms: %s\n", floatOrUnknown(prop.Bathrooms))
	fmt.Fprintf(&b, "Square Feet: %s\n", floatOrUnknown(prop.SquareFeet))
	fmt.Fprintf(&b, "Lot Size: %s sqft\n", floatOrUnknown(prop.LotSize))
	if prop.YearBuilt != nil {
		age := time.Now().Year() - *prop.YearBuilt
		fmt.Fprintf(&b, "Year Built: %d (age %d years)\n", *prop.YearBuilt, age)
	} else {
		b.WriteString("Year Built: Unknown\n")
	}

	b.WriteString("\nFINANCIAL DATA:\n")
	hasFinancial := false
	if prop.MarketValue != nil {
		fmt.Fprintf(&b, "Market valuation: %s\n", utils.FormatMoney(*prop.MarketValue))
		hasFinancial = true
	}
	if prop.ThirdPartyEstimate != nil {
		fmt.Fprintf(&b, "Third-party estimate: %s\n", utils.FormatMoney(*prop.ThirdPartyEstimate))
		hasFinancial = true
	}
	if prop.LastSalePrice != nil {
		date := "unknown date"
		if prop.LastSaleDate != nil {
			date = *prop.LastSaleDate
		}
		fmt.Fprintf(&b, "Last sale: %s on %s\n", utils.FormatMoney(*prop.LastSalePrice), date)
		hasFinancial = true
	}
	if prop.PropertyTaxes != nil {
		fmt.Fprintf(&b, "Property taxes: %s/year\n", utils.FormatMoney(*prop.PropertyTaxes))
		hasFinancial = true
	}
	if prop.RentEstimate != nil {
		fmt.Fprintf(&b, "Rent estimate: %s/month\n", utils.FormatMoney(*prop.RentEstimate))
		hasFinancial = true
	}
	if !hasFinancial {
		b.WriteString("No pricing data available\n")
	}

	return b.String()
}

func buildReasoning(parsed fairValueResponse) string {
	parts := make([]string, 0, 3)
	if parsed.Reasoning != "" {
		parts = append(parts, parsed.Reasoning)
	}
	if parsed.MarketComparison != "" {
		parts = append(parts, parsed.MarketComparison)
	}
	if len(parsed.AnalysisFactors) > 0 {
		parts = append(parts, "Factors: "+strings.Join(parsed.AnalysisFactors, "; "))
	}
	return strings.Join(parts, " ")
}

func strOrUnknown(s *string) string {
	if s == nil || *s == "" {
		return "Unknown"
	}
	return *s
}

func intOrUnknown(v *int) string {
	if v == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%d", *v)
}

func floatOrUnknown(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return strings.TrimSuffix(fmt.Sprintf("%.1f", *v), ".0")
}
