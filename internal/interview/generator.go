package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"interviewgo/internal/config"
	"interviewgo/internal/models"
	"interviewgo/internal/session"
)

// Generator produces interview content (panels, questions, feedback,
// reports) from a chat model. It implements session.ContentProvider; every
// call is a single Generate with a strict-JSON prompt.
type Generator struct {
	chatModel model.ToolCallingChatModel
	provider  string
}

// NewGenerator builds a chat model for the named provider.
func NewGenerator(provider, modelName, token string, provCfg config.ProviderConfig) (*Generator, error) {
	var (
		chatModel model.ToolCallingChatModel
		err       error
	)
	if modelName == "" {
		modelName = provCfg.Model
	}

	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelName,
			APIKey:  token,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: token,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(context.Background(), &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(context.Background(), &claude.Config{
			APIKey:    token,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return &Generator{chatModel: chatModel, provider: provider}, nil
}

const startSystemPrompt = "You are an interview simulation engine. " +
	"You assemble interviewer panels and open mock interviews. " +
	"Respond with a single JSON object and nothing else, using this shape: " +
	`{"interviewers":[{"name":"...","persona":"..."}],"first_question":"...","session_brief":"..."}`

type startPayload struct {
	Interviewers  []models.Interviewer `json:"interviewers"`
	FirstQuestion string               `json:"first_question"`
	SessionBrief  string               `json:"session_brief"`
}

// Start produces the interviewer panel and opening question for a session.
func (g *Generator) Start(ctx context.Context, cfg models.SessionConfig) (*session.StartContent, error) {
	userPrompt := fmt.Sprintf(
		"Open a mock interview.\nTarget role: %s\nCareer level: %s\nDifficulty: %s\n"+
			"Number of interviewers: %d\nCandidate's present skills: %s\nCandidate's missing skills: %s\n"+
			"Create exactly %d interviewer personas and one opening question.",
		cfg.TargetRole, cfg.CareerLevel, cfg.Difficulty,
		cfg.NumInterviewers,
		strings.Join(cfg.PresentSkills, ", "), strings.Join(cfg.MissingSkills, ", "),
		cfg.NumInterviewers,
	)
	var payload startPayload
	if err := g.generateJSON(ctx, startSystemPrompt, userPrompt, &payload); err != nil {
		return nil, err
	}
	return &session.StartContent{
		Interviewers:  payload.Interviewers,
		FirstQuestion: payload.FirstQuestion,
		Brief:         payload.SessionBrief,
	}, nil
}

const answerSystemPrompt = "You are an interview simulation engine scoring one answer. " +
	"Judge the answer against the question, decide whether the interview should continue, " +
	"and optionally issue a time penalty (seconds) for evasive or off-topic answers. " +
	"Respond with a single JSON object and nothing else, using this shape: " +
	`{"feedback":{"summary":"...","strengths":["..."],"improvements":["..."],"score":0},` +
	`"next_question":"...","should_continue":true,"penalty_seconds":0,"penalty_reason":""}`

type answerPayload struct {
	Feedback       models.Feedback `json:"feedback"`
	NextQuestion   string          `json:"next_question"`
	ShouldContinue bool            `json:"should_continue"`
	PenaltySeconds int             `json:"penalty_seconds"`
	PenaltyReason  string          `json:"penalty_reason"`
}

// Answer scores one answer and proposes the next question.
func (g *Generator) Answer(ctx context.Context, ac session.AnswerContext) (*session.AnswerContent, error) {
	historyJSON, err := json.Marshal(ac.Rounds)
	if err != nil {
		return nil, fmt.Errorf("encode round history: %w", err)
	}
	panelJSON, err := json.Marshal(ac.Interviewers)
	if err != nil {
		return nil, fmt.Errorf("encode panel: %w", err)
	}
	userPrompt := fmt.Sprintf(
		"Target role: %s\nCareer level: %s\nDifficulty: %s\nPanel: %s\n"+
			"Round %d of %d, %d seconds remaining.\n"+
			"Interview history so far (JSON): %s\n"+
			"Current interviewer: %s\nCurrent question: %s\nCandidate answer: %s\nSkipped: %t\n"+
			"Score the answer. If the interview should go on, supply the next question.",
		ac.Config.TargetRole, ac.Config.CareerLevel, ac.Config.Difficulty, panelJSON,
		ac.Round, ac.MaxRounds, ac.RemainingSeconds,
		historyJSON,
		ac.InterviewerName, ac.Question, ac.Answer, ac.Skipped,
	)
	var payload answerPayload
	if err := g.generateJSON(ctx, answerSystemPrompt, userPrompt, &payload); err != nil {
		return nil, err
	}
	return &session.AnswerContent{
		Feedback:       payload.Feedback,
		NextQuestion:   payload.NextQuestion,
		ShouldContinue: payload.ShouldContinue,
		PenaltySeconds: payload.PenaltySeconds,
		PenaltyReason:  payload.PenaltyReason,
	}, nil
}

const reportSystemPrompt = "You are an interview simulation engine writing the final report " +
	"for a completed mock interview. Respond with a single JSON object and nothing else, using this shape: " +
	`{"summary":{"overall_impression":"...","hire_recommendation":"...","score":0},` +
	`"round_notes":[{"question":"...","assessment":"..."}],"strengths":["..."],"improvements":["..."]}`

// Report synthesizes the final report from the full round history.
func (g *Generator) Report(ctx context.Context, rounds []models.Round, cfg models.SessionConfig) (*models.Report, error) {
	historyJSON, err := json.Marshal(rounds)
	if err != nil {
		return nil, fmt.Errorf("encode round history: %w", err)
	}
	userPrompt := fmt.Sprintf(
		"Target role: %s\nCareer level: %s\nDifficulty: %s\n"+
			"Full interview transcript (JSON): %s\n"+
			"Write the final report.",
		cfg.TargetRole, cfg.CareerLevel, cfg.Difficulty, historyJSON,
	)
	var report models.Report
	if err := g.generateJSON(ctx, reportSystemPrompt, userPrompt, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (g *Generator) generateJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	resp, err := g.chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: userPrompt},
	})
	if err != nil {
		return fmt.Errorf("%s generate: %w", g.provider, err)
	}
	if err := decodeModelJSON(resp.Content, out); err != nil {
		return fmt.Errorf("%s response: %w", g.provider, err)
	}
	return nil
}

// decodeModelJSON extracts the JSON object from a model reply. Models wrap
// output in markdown fences or prose often enough that plain Unmarshal is
// not good enough.
func decodeModelJSON(content string, out any) error {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}
