// Package adapter wraps the OpenAI API for the two collaborator
// contracts the core consumes: portrait generation and cast extraction.
// Timeouts and retries are the caller's concern.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"owing/backend/pkg/errors"
	"owing/backend/pkg/logger"
)

// CastingSummary is one character extracted from a manuscript
type CastingSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// OpenAIAdapter talks to the OpenAI API (or any compatible endpoint)
type OpenAIAdapter struct {
	client     *openai.Client
	imageModel string
	chatModel  string
	logger     *zap.Logger
}

// NewOpenAIAdapter creates a new OpenAI adapter. baseURL may be empty to
// use the default endpoint.
func NewOpenAIAdapter(apiKey, baseURL, imageModel, chatModel string) *OpenAIAdapter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIAdapter{
		client:     openai.NewClientWithConfig(config),
		imageModel: imageModel,
		chatModel:  chatModel,
		logger:     logger.Get(),
	}
}

// GenerateImage renders one image for the prompt and returns its URL
func (a *OpenAIAdapter) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          a.imageModel,
		N:              1,
		Quality:        openai.CreateImageQualityHD,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", errors.NewGenerationFailed(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.NewGenerationFailed(fmt.Errorf("empty image response"))
	}

	a.logger.Info("image generated", zap.String("model", a.imageModel))
	return resp.Data[0].URL, nil
}

// ExtractCast asks the chat model which characters appear in the
// manuscript and returns their summaries. Known castings are passed so
// returning characters keep their ids; new ones come back with id 0.
func (a *OpenAIAdapter) ExtractCast(ctx context.Context, manuscript string, known []CastingSummary) ([]CastingSummary, error) {
	prompt, err := buildExtractionPrompt(manuscript, known)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, errors.NewGenerationFailed(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.NewGenerationFailed(fmt.Errorf("empty chat response"))
	}

	return parseCastExtraction(resp.Choices[0].Message.Content)
}

// parseCastExtraction decodes the model's JSON object. The summaries sit
// under a single key whose name the model chooses, so the first array
// value wins.
func parseCastExtraction(raw string) ([]CastingSummary, error) {
	var mapped map[string][]CastingSummary
	if err := json.Unmarshal([]byte(raw), &mapped); err != nil {
		return nil, errors.NewParseFailed(err)
	}
	for _, summaries := range mapped {
		return summaries, nil
	}
	return nil, errors.NewParseFailed(fmt.Errorf("no character list in response"))
}

// BuildCharacterPrompt renders the portrait description prompt for a
// casting's fields
func BuildCharacterPrompt(name string, age int64, gender, role, detail string) string {
	return fmt.Sprintf(
		"Create a detailed character description from the following information: "+
			"character name: [%s]\n"+
			"age: [%d]\n"+
			"gender: [%s]\n"+
			"occupation/role: [%s]\n"+
			"provided details: [%s]\n"+
			"Traits: - style: a person with realistic detail\n"+
			"- background: realistic and related to the character's occupation or role.\n"+
			"Compose a vivid, immersive character concept focused on the character's "+
			"appearance, personality and surroundings, incorporating these details. "+
			"Produce exactly one image, with the character's upper body filling most of the frame.\n",
		name, age, gender, role, detail,
	)
}

func buildExtractionPrompt(manuscript string, known []CastingSummary) (string, error) {
	knownJSON, err := json.Marshal(known)
	if err != nil {
		return "", errors.NewParseFailed(err)
	}

	var b strings.Builder
	b.WriteString("You are given a manuscript and the list of characters already registered for it.\n")
	b.WriteString("Return a JSON object with a single key \"characters\" holding the characters appearing in the manuscript.\n")
	b.WriteString("Each entry has fields id, name and gender. Reuse the registered id when the character matches a registered one; use id 0 for new characters.\n\n")
	b.WriteString("Registered characters: ")
	b.Write(knownJSON)
	b.WriteString("\n\nManuscript:\n")
	b.WriteString(manuscript)
	return b.String(), nil
}
