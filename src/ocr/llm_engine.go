package ocr

import (
	"context"
	"image"

	"screen-ocr-overlay/src/llm"
	"screen-ocr-overlay/src/screenshot"
)

// LLMEngine reads text with a remote vision model.
type LLMEngine struct {
	client *llm.Client
}

func NewLLMEngine(client *llm.Client) *LLMEngine { return &LLMEngine{client: client} }

func (*LLMEngine) Name() string { return "llm" }

// Client exposes the underlying client for the startup ping.
func (e *LLMEngine) Client() *llm.Client { return e.client }

func (e *LLMEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return e.client.QueryVision(ctx, data)
}

func (e *LLMEngine) Close() error {
	e.client.Close()
	return nil
}
