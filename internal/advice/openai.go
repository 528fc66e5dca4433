package advice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const SourceOpenAI = "openai"

// OpenAI asks a chat completion model for advice as structured JSON.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

const systemPrompt = `Eres un asesor de finanzas personales. Recibes un resumen en JSON con el
balance del mes, las transacciones recurrentes pendientes y los próximos pagos de tarjetas.
Responde en español con un resumen de una frase y entre uno y cinco consejos concretos.
Los importes están en la moneda del usuario con dos decimales. No inventes datos.`

var adviceSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {"type": "string"},
		"tips": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["summary", "tips"],
	"additionalProperties": false
}`)

func (o *OpenAI) Advise(ctx context.Context, s Snapshot) (Advice, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return Advice{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "advice",
				Schema: adviceSchema,
				Strict: true,
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return Advice{}, fmt.Errorf("call chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Advice{}, errors.New("no response from model")
	}

	var a Advice
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &a); err != nil {
		return Advice{}, fmt.Errorf("parse model response: %w", err)
	}
	if strings.TrimSpace(a.Summary) == "" {
		return Advice{}, errors.New("model returned an empty summary")
	}
	a.Source = SourceOpenAI
	return a, nil
}
