package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/config"
	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/utils"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polsim_ai_requests_total",
			Help: "Total number of requests to the text-generation collaborator.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polsim_ai_request_duration_seconds",
			Help:    "Histogram of text-generation request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
)

// EventContext — структурированный контекст события для AI-коллаборатора:
// тип, серьезность и числовые индикаторы трендов симуляции.
type EventContext struct {
	EventType    string             `json:"event_type"`
	Severity     string             `json:"severity"`
	SessionYear  int                `json:"session_year"`
	Indicators   map[string]float64 `json:"indicators"`
	ExtraContext string             `json:"extra_context,omitempty"`
}

// EventJudgment — структурированный вердикт модели с именованными числовыми
// полями в фиксированных диапазонах.
type EventJudgment struct {
	// Headline — заголовок новостного события.
	Headline string `json:"headline"`
	// ImmigrationShift — доля сельского населения, уходящая в города, [0, 0.2].
	ImmigrationShift float64 `json:"immigration_shift"`
	// ApprovalShift — дельта одобрения протагониста события, [-10, 10].
	ApprovalShift float64 `json:"approval_shift"`
	// StabilityShift — дельта стабильности, [-5, 5].
	StabilityShift float64 `json:"stability_shift"`
}

// TextGenClient — контракт внешнего генератора текста/вердиктов.
// Битый ответ модели оборачивается в models.ErrMalformedAIResponse,
// вызывающая сторона решает, пропустить подшаг или завалить ход.
//
//go:generate mockery --name TextGenClient --output ./mocks --outpkg mocks --case=underscore
type TextGenClient interface {
	// GenerateEventText возвращает свободный текст для события.
	GenerateEventText(ctx context.Context, eventCtx EventContext) (string, error)

	// JudgeEvent возвращает числовой вердикт по событию.
	JudgeEvent(ctx context.Context, eventCtx EventContext) (*EventJudgment, error)
}

type openAITextGenClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

// NewOpenAITextGenClient создает клиент для OpenAI-совместимого endpoint.
func NewOpenAITextGenClient(cfg *config.Config, logger *zap.Logger) TextGenClient {
	openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
	openaiConfig.BaseURL = cfg.AIBaseURL
	openaiConfig.HTTPClient = &http.Client{Timeout: cfg.AITimeout}
	client := openaigo.NewClientWithConfig(openaiConfig)

	log := logger.Named("TextGenClient")
	log.Info("TextGen client created",
		zap.String("baseURL", cfg.AIBaseURL),
		zap.String("model", cfg.AIModel),
		zap.Duration("timeout", cfg.AITimeout))
	return &openAITextGenClient{
		client: client,
		model:  cfg.AIModel,
		logger: log,
	}
}

const eventTextSystemPrompt = `You are the narrator of a 19th-century political simulation.
Given a structured event context, write a short newspaper-style paragraph (2-4 sentences)
describing the event in period-appropriate tone. Respond with plain text only.`

const eventJudgmentSystemPrompt = `You are the numeric adjudicator of a 19th-century political simulation.
Given a structured event context, respond with a single JSON object and nothing else:
{"headline": string, "immigration_shift": number in [0, 0.2], "approval_shift": number in [-10, 10], "stability_shift": number in [-5, 5]}`

func (c *openAITextGenClient) GenerateEventText(ctx context.Context, eventCtx EventContext) (string, error) {
	return c.complete(ctx, eventTextSystemPrompt, eventCtx)
}

func (c *openAITextGenClient) JudgeEvent(ctx context.Context, eventCtx EventContext) (*EventJudgment, error) {
	raw, err := c.complete(ctx, eventJudgmentSystemPrompt, eventCtx)
	if err != nil {
		return nil, err
	}

	// Модели любят заворачивать JSON в markdown, вырезаем объект сами
	payload := utils.ExtractJSONObject(raw)
	if payload == nil {
		c.logger.Warn("AI judgment contains no JSON object", zap.String("raw", truncate(raw, 200)))
		return nil, fmt.Errorf("%w: no JSON object in response", models.ErrMalformedAIResponse)
	}

	var judgment EventJudgment
	if err := utils.DecodeStrict(payload, &judgment); err != nil {
		c.logger.Warn("AI judgment failed strict decode", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedAIResponse, err)
	}
	if err := judgment.validate(); err != nil {
		c.logger.Warn("AI judgment out of range", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedAIResponse, err)
	}
	return &judgment, nil
}

func (j *EventJudgment) validate() error {
	if j.ImmigrationShift < 0 || j.ImmigrationShift > 0.2 {
		return fmt.Errorf("immigration_shift %.3f outside [0, 0.2]", j.ImmigrationShift)
	}
	if j.ApprovalShift < -10 || j.ApprovalShift > 10 {
		return fmt.Errorf("approval_shift %.2f outside [-10, 10]", j.ApprovalShift)
	}
	if j.StabilityShift < -5 || j.StabilityShift > 5 {
		return fmt.Errorf("stability_shift %.2f outside [-5, 5]", j.StabilityShift)
	}
	return nil
}

func (c *openAITextGenClient) complete(ctx context.Context, systemPrompt string, eventCtx EventContext) (string, error) {
	userInput := fmt.Sprintf("event_type=%s severity=%s year=%d indicators=%v %s",
		eventCtx.EventType, eventCtx.Severity, eventCtx.SessionYear, eventCtx.Indicators, eventCtx.ExtraContext)

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: userInput},
		},
	})
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		c.logger.Error("AI request failed", zap.Duration("duration", duration), zap.Error(err))
		return "", fmt.Errorf("ошибка запроса к AI API: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.WithLabelValues(c.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: получен пустой ответ", models.ErrMalformedAIResponse)
	}

	aiRequestsTotal.WithLabelValues(c.model, "success").Inc()
	aiRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	c.logger.Debug("AI response received",
		zap.Duration("duration", duration),
		zap.Int("length", len(resp.Choices[0].Message.Content)))
	return resp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
