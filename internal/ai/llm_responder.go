package ai

import (
	"context"
	"fmt"
	"strings"

	"chatmypdf/internal/model"
)

const systemPrompt = "You are a concise and helpful assistant answering questions about a PDF the user uploaded. " +
	"You cannot see its content; answer generally and keep replies short."

// LLMResponder asks an OpenAI compatible chat completion endpoint for the
// reply. Only the document name and chat history are sent.
type LLMResponder struct {
	client     *OpenAICompatibleClient
	cfg        ChatConfig
	maxContext int
}

func NewLLMResponder(client *OpenAICompatibleClient, cfg ChatConfig, maxContext int) (*LLMResponder, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("llm responder requires base url, api key and model")
	}
	if client == nil {
		client = NewOpenAICompatibleClient()
	}
	if maxContext <= 0 {
		maxContext = 20
	}
	return &LLMResponder{client: client, cfg: cfg, maxContext: maxContext}, nil
}

func (r *LLMResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	reply, err := r.client.Complete(ctx, r.cfg, r.buildPromptMessages(req))
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("llm returned an empty reply")
	}
	return reply, nil
}

func (r *LLMResponder) buildPromptMessages(req ReplyRequest) []ChatMessage {
	history := req.History
	if len(history) > r.maxContext {
		history = history[len(history)-r.maxContext:]
	}

	messages := make([]ChatMessage, 0, len(history)+2)
	system := systemPrompt
	if req.DocumentName != "" {
		system += " The document is named \"" + req.DocumentName + "\"."
	}
	messages = append(messages, ChatMessage{Role: "system", Content: system})
	for _, item := range history {
		role := "user"
		if item.Sender == model.SenderAssistant {
			role = "assistant"
		}
		messages = append(messages, ChatMessage{Role: role, Content: item.Content})
	}
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		messages = append(messages, ChatMessage{Role: "user", Content: prompt})
	}
	return messages
}
