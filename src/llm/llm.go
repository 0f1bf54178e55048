package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	noTextMarker   = "NO_TEXT_FOUND"
	requestTimeout = 45 * time.Second
	ocrPrompt      = "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
		"- No formatting\n" +
		"- No XML/HTML tags\n" +
		"- No markdown\n" +
		"- No explanations\n" +
		"- Preserve line breaks accurately from the visual layout.\n" +
		"If no text found, return '" + noTextMarker + "'"
)

type Config struct {
	APIKey    string
	Model     string
	Providers []string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to an OpenRouter vision model.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{cfg: cfg, baseURL: baseURL, http: httpClient}, nil
}

// OpenRouter API structures
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type ChatRequest struct {
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *ProviderPreferences `json:"provider,omitempty"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"` // Can be string or number
}

func (c *Client) providerPreferences() *ProviderPreferences {
	if len(c.cfg.Providers) == 0 {
		return nil
	}
	// Use the providers exactly as specified by the user
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          c.cfg.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

// QueryVision sends a PNG image to the vision model and returns the text it
// reads. An image without text yields an empty string.
func (c *Client) QueryVision(ctx context.Context, pngData []byte) (string, error) {
	if len(pngData) == 0 {
		return "", errors.New("image data is empty")
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
	request := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{
				Role: "user",
				Content: []Content{
					{Type: "text", Text: ocrPrompt},
					{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
		Provider:    c.providerPreferences(),
	}

	var response ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat/completions", request, &response); err != nil {
		return "", err
	}
	if response.Error != nil {
		return "", fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no choices in API response")
	}

	text := cleanExtractedText(response.Choices[0].Message.Content)
	if strings.TrimSpace(text) == noTextMarker {
		return "", nil
	}
	return text, nil
}

// Ping checks that the API key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/auth/key", nil, nil)
}

// Close drops pooled connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Title", "Screen OCR Overlay")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
		}
	}
	if resp.StatusCode != http.StatusOK {
		if cr, ok := out.(*ChatResponse); ok && cr.Error != nil {
			return fmt.Errorf("API error: %s (status %d)", cr.Error.Message, resp.StatusCode)
		}
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return nil
}

func cleanExtractedText(text string) string {
	return strings.TrimSuffix(text, "</image>")
}
