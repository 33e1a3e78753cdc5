package tts

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"interviewgo/internal/config"
)

// Renderer converts question text to speech. Stateless: keyed only by the
// text, with no session coupling.
type Renderer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

const (
	defaultModel = "gemini-2.5-flash-preview-tts"
	defaultVoice = "Kore"
)

// GoogleRenderer synthesizes speech through the Gemini speech models.
type GoogleRenderer struct {
	client *genai.Client
	model  string
	voice  string
}

// NewGoogleRenderer builds the renderer from app config. The gemini provider
// API key is reused for speech.
func NewGoogleRenderer(cfg *config.Config) (*GoogleRenderer, error) {
	provCfg, ok := cfg.Providers["gemini"]
	if !ok || provCfg.APIKey == "" {
		return nil, errors.New("gemini provider with api_key required for tts")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: provCfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("tts client: %w", err)
	}
	model := cfg.BasicConfig.TTSModel
	if model == "" {
		model = defaultModel
	}
	voice := cfg.BasicConfig.TTSVoice
	if voice == "" {
		voice = defaultVoice
	}
	return &GoogleRenderer{client: client, model: model, voice: voice}, nil
}

// Synthesize returns audio bytes for the text, or an error when the model
// produced none.
func (r *GoogleRenderer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: r.voice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, errors.New("model returned no audio")
}
