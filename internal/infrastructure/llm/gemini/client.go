package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

type Options struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client calls the generateContent endpoint once per GenerateReport call.
type Client struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	httpClient  *http.Client
}

func New(opts Options) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		apiKey:      strings.TrimSpace(opts.APIKey),
		temperature: opts.Temperature,
		httpClient:  httpClient,
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) GenerateReport(ctx context.Context, payload domain.RequestPayload) (string, error) {
	if c.apiKey == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "generate report", errors.New("api key is not configured"))
	}
	if len(payload.Parts) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "generate report", errors.New("empty payload"))
	}

	reqBody := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Role: "user", Parts: toParts(payload.Parts)}},
		GenerationConfig: generationConfig{
			Temperature:      c.temperature,
			ResponseMIMEType: "application/json",
			ResponseSchema:   reportSchema(),
		},
	}

	var response generateResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
	if err := c.postJSON(ctx, path, reqBody, &response, "generateContent"); err != nil {
		return "", err
	}
	return response.text(), nil
}

func toParts(parts []domain.Part) []part {
	out := make([]part, 0, len(parts))
	for _, p := range parts {
		if p.Kind() == domain.PartKindInline {
			out = append(out, part{InlineData: &inlineData{MIMEType: p.MimeType, Data: p.Data}})
			continue
		}
		out = append(out, part{Text: p.Text})
	}
	return out
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   schema  `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
