package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/field-service-api/internal/constants"
	"github.com/yukikurage/field-service-api/internal/models"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not draft any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be drafted from AI output")
)

// DraftTask is a task proposal extracted from a customer's message. Drafts
// are returned to the operator and never stored directly.
type DraftTask struct {
	Address       string              `json:"address"`
	WorkType      string              `json:"work_type"`
	Description   string              `json:"description"`
	Priority      models.TaskPriority `json:"priority"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	ScheduledTime *time.Time          `json:"scheduled_time"`
}

// TaskDrafter turns free text into draft tasks.
type TaskDrafter interface {
	DraftTasks(ctx context.Context, text string) ([]DraftTask, error)
}

type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

const draftPrompt = `You help a field-service dispatcher. Extract every on-site job requested in the customer message below.

Current time: %s

Message:
%s

Answer with a JSON object of the form:
{"tasks": [
  {
    "address": "street address of the job",
    "work_type": "short category such as repair, installation, inspection",
    "description": "what has to be done",
    "priority": "one of low, medium, high, urgent",
    "customer_name": "name or empty string",
    "customer_phone": "phone or empty string",
    "scheduled_time": "ISO8601 time such as 2025-10-28T09:00:00Z, or null when no time is given"
  }
]}

Rules:
- Return {"tasks": []} when the message contains no job
- Convert relative dates ("tomorrow morning") to absolute times
- Return JSON only`

// DraftTasks asks the chat model for drafts
func (s *AIService) DraftTasks(ctx context.Context, text string) ([]DraftTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(draftPrompt, time.Now().Format(time.RFC3339), text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.2,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseDrafts(resp.Choices[0].Message.Content)
}

func parseDrafts(content string) ([]DraftTask, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload struct {
		Tasks []DraftTask `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	return payload.Tasks, nil
}

// DraftTasks validates what the drafter produced. Drafts without an address
// are dropped, unknown priorities become medium and past times are cleared.
func (s *TaskService) DraftTasks(ctx context.Context, text string) ([]DraftTask, error) {
	if s.drafter == nil {
		return nil, ErrAIServiceNotConfigured
	}

	drafts, err := s.drafter.DraftTasks(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to draft tasks: %w", err)
	}

	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI drafted too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	valid := make([]DraftTask, 0, len(drafts))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, d := range drafts {
		d.Address = strings.TrimSpace(d.Address)
		if d.Address == "" {
			continue
		}
		if !d.Priority.IsValid() {
			d.Priority = models.PriorityMedium
		}
		if d.ScheduledTime != nil && d.ScheduledTime.Before(cutoff) {
			d.ScheduledTime = nil
		}
		valid = append(valid, d)
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}

	return valid, nil
}
