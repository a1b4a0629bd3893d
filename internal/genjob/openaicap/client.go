// Package openaicap provides production Analyzer/ImageSynthesizer/
// TextSynthesizer adapters backed by an OpenAI-compatible HTTP API:
// env-driven configuration, JSON chat-completion calls with inline image
// data URLs, and base64 image-generation responses.
package openaicap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/campaignforge/orchestrator/internal/genjob"
	"github.com/campaignforge/orchestrator/internal/pkg/httpx"
	"github.com/campaignforge/orchestrator/internal/platform/logger"
)

// Client is a minimal OpenAI-compatible HTTP client exposing exactly the
// operations the genjob capability adapters need. It intentionally does
// not retry internally: genjob.Executor.retry owns backoff, so Client's
// job is just to perform one HTTP round trip and classify the outcome.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	imageModel string
	imageSize  string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClientFromEnv builds a Client from OPENAI_* environment variables.
func NewClientFromEnv(log *logger.Logger) *Client {
	timeoutSecs := 180
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			timeoutSecs = v
		}
	}
	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-5.2"
	}
	imageModel := strings.TrimSpace(os.Getenv("OPENAI_IMAGE_MODEL"))
	if imageModel == "" {
		imageModel = "gpt-image-1"
	}
	imageSize := strings.TrimSpace(os.Getenv("OPENAI_IMAGE_SIZE"))
	if imageSize == "" {
		imageSize = "1024x1024"
	}
	return &Client{
		apiKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		baseURL:    baseURL,
		model:      model,
		imageModel: imageModel,
		imageSize:  imageSize,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSecs) * time.Second},
		log:        log,
	}
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *chatImageURL   `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateText sends a single text-only prompt and returns the model's raw
// text reply.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: []chatContent{{Type: "text", Text: prompt}}},
		},
	}
	return c.doChat(ctx, req)
}

// GenerateTextWithImage sends a prompt plus one inline image (as a data
// URL, the way caption.go's dataURL helper does) and returns the model's
// raw text reply.
func (c *Client) GenerateTextWithImage(ctx context.Context, prompt string, imageBytes []byte, mimeType string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: []chatContent{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL(imageBytes, mimeType)}},
			}},
		},
	}
	return c.doChat(ctx, req)
}

func (c *Client) doChat(ctx context.Context, reqBody chatRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", genjob.NewError(genjob.KindFatal, "", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", genjob.NewError(genjob.KindFatal, "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", genjob.NewError(genjob.KindNetworkError, "", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := genjob.NewError(genjob.KindFromStatus(resp.StatusCode), "", fmt.Errorf("openai chat completions: status %d: %s", resp.StatusCode, string(raw)))
		e.RetryAfter = httpx.RetryAfterDuration(resp, 0, 30*time.Second)
		return "", e
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", genjob.NewError(genjob.KindFatal, "", fmt.Errorf("decode chat response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", genjob.NewError(genjob.KindFatal, "", fmt.Errorf("chat response had no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

type imageGenRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type imageGenResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// GeneratedImage is one image-generation result: decoded bytes plus the
// provider's revised prompt, if any.
type GeneratedImage struct {
	Bytes         []byte
	MimeType      string
	RevisedPrompt string
}

// GenerateImage requests one image from the image-generation endpoint at
// the given size class; an empty size falls back to the configured default.
func (c *Client) GenerateImage(ctx context.Context, prompt, size string) (*GeneratedImage, error) {
	if size == "" {
		size = c.imageSize
	}
	reqBody := imageGenRequest{Model: c.imageModel, Prompt: prompt, Size: size, N: 1}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, genjob.NewError(genjob.KindFatal, "", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, genjob.NewError(genjob.KindFatal, "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, genjob.NewError(genjob.KindNetworkError, "", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := genjob.NewError(genjob.KindFromStatus(resp.StatusCode), "", fmt.Errorf("openai images/generations: status %d: %s", resp.StatusCode, string(raw)))
		e.RetryAfter = httpx.RetryAfterDuration(resp, 0, 30*time.Second)
		return nil, e
	}

	var parsed imageGenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, genjob.NewError(genjob.KindFatal, "", fmt.Errorf("decode image response: %w", err))
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return nil, genjob.NewError(genjob.KindFatal, "", fmt.Errorf("image response had no data"))
	}
	decoded, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, genjob.NewError(genjob.KindFatal, "", fmt.Errorf("decode base64 image: %w", err))
	}
	return &GeneratedImage{Bytes: decoded, MimeType: "image/png", RevisedPrompt: parsed.Data[0].RevisedPrompt}, nil
}

func dataURL(imageBytes []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageBytes))
}
