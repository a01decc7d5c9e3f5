package materials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shadowplay/pkg/models"

	openai "github.com/openai/openai-go"
	"github.com/sirupsen/logrus"
)

const generateSystemPrompt = `You write short listening-practice passages for language learners.
Respond with JSON only: {"title": string, "description": string, "text": string}.
The text should be 6-12 natural spoken-style sentences about the requested topic,
matched to the requested difficulty level.`

// Generator produces practice materials from a topic prompt via the chat
// completions API. It is a thin external collaborator: one request, no
// retries.
type Generator struct {
	client openai.Client
	model  string
	logger *logrus.Logger
}

// NewGenerator creates a generator. The client reads OPENAI_API_KEY from the
// environment.
func NewGenerator(model string, logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Generator{
		client: openai.NewClient(),
		model:  model,
		logger: logger,
	}
}

type generatedPassage struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// Generate asks the model for a passage about topic and runs it through the
// text importer, producing a simulated-track material with estimated
// timings.
func (g *Generator) Generate(ctx context.Context, topic, difficulty string) (*models.Material, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if difficulty == "" {
		difficulty = "intermediate"
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(generateSystemPrompt),
			openai.UserMessage(fmt.Sprintf("Topic: %s\nDifficulty: %s", topic, difficulty)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generation returned no choices")
	}

	var passage generatedPassage
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &passage); err != nil {
		return nil, fmt.Errorf("generation returned malformed JSON: %w", err)
	}
	if passage.Text == "" {
		return nil, fmt.Errorf("generation returned empty passage")
	}

	m, err := ImportText(passage.Title, passage.Text, 0)
	if err != nil {
		return nil, err
	}
	m.Description = passage.Description
	m.Category = "generated"
	m.Difficulty = difficulty

	g.logger.WithFields(logrus.Fields{
		"material_id": m.ID,
		"topic":       topic,
		"segments":    len(m.Segments),
	}).Info("Generated material")
	return m, nil
}

// stripCodeFence removes a markdown code fence if the model wrapped its JSON
// in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
