package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/stridelabs/stride/internal/logging"
)

// OllamaProvider implements the Provider interface for Ollama (local models)
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "qwen3:4b"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}

	httpClient := &http.Client{
		Timeout: 5 * time.Minute, // local inference is slow
	}

	return &OllamaProvider{
		client: api.NewClient(parsedURL, httpClient),
		model:  model,
	}
}

// ID returns the provider identifier
func (p *OllamaProvider) ID() string {
	return "ollama"
}

// Stream sends a request to Ollama and streams the response
func (p *OllamaProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	resultCh := make(chan StreamEvent, 100)

	messages := p.buildMessages(req)

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: messages,
	}

	stream := true
	chatReq.Stream = &stream

	if req.Temperature > 0 || req.MaxTokens > 0 {
		chatReq.Options = make(map[string]any)
		if req.Temperature > 0 {
			chatReq.Options["temperature"] = req.Temperature
		}
		if req.MaxTokens > 0 {
			chatReq.Options["num_predict"] = req.MaxTokens
		}
	}

	if len(req.Tools) > 0 {
		chatReq.Tools = p.buildTools(req.Tools)
	}

	logging.Debugf("ollama: request model=%s messages=%d tools=%d", model, len(messages), len(req.Tools))

	go func() {
		defer close(resultCh)

		toolCallCounter := 0

		err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				resultCh <- StreamEvent{
					Type: EventTypeText,
					Text: resp.Message.Content,
				}
			}

			for _, tc := range resp.Message.ToolCalls {
				toolCallCounter++
				argsJSON, _ := json.Marshal(tc.Function.Arguments.ToMap())
				resultCh <- StreamEvent{
					Type: EventTypeToolCall,
					ToolCall: &ToolCall{
						ID:    fmt.Sprintf("ollama-call-%d", toolCallCounter),
						Name:  tc.Function.Name,
						Input: argsJSON,
					},
				}
			}

			if resp.Done {
				resultCh <- StreamEvent{Type: EventTypeDone}
			}

			return nil
		})

		if err != nil {
			logging.Warnf("ollama: stream error: %v", err)
			resultCh <- StreamEvent{
				Type:  EventTypeError,
				Error: err,
			}
		}
	}()

	return resultCh, nil
}

// buildMessages converts conversation messages to Ollama format
func (p *OllamaProvider) buildMessages(req *ChatRequest) []api.Message {
	messages := make([]api.Message, 0, len(req.Messages)+1)

	if req.System != "" {
		messages = append(messages, api.Message{
			Role:    "system",
			Content: req.System,
		})
	}

	responded := respondedToolIDs(req.Messages)

	for _, msg := range req.Messages {
		switch msg.Role {
		case "user":
			messages = append(messages, api.Message{
				Role:    "user",
				Content: msg.Content,
			})

		case "assistant":
			assistantMsg := api.Message{
				Role:    "assistant",
				Content: msg.Content,
			}

			for _, tc := range msg.ToolCalls {
				if !responded[tc.ID] {
					logging.Debugf("ollama: skipping tool_call without response: %s", tc.ID)
					continue
				}

				args := api.NewToolCallFunctionArguments()
				var argsMap map[string]any
				if err := json.Unmarshal(tc.Input, &argsMap); err == nil {
					for k, v := range argsMap {
						args.Set(k, v)
					}
				}

				assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, api.ToolCall{
					ID: tc.ID,
					Function: api.ToolCallFunction{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}

			if assistantMsg.Content != "" || len(assistantMsg.ToolCalls) > 0 {
				messages = append(messages, assistantMsg)
			}

		case "system":
			messages = append(messages, api.Message{
				Role:    "system",
				Content: msg.Content,
			})

		case "tool":
			for _, r := range msg.ToolResults {
				messages = append(messages, api.Message{
					Role:       "tool",
					Content:    r.Content,
					ToolCallID: r.ToolCallID,
					ToolName:   findToolName(r.ToolCallID, req.Messages),
				})
			}
		}
	}

	return messages
}

// buildTools converts tool definitions to Ollama format
func (p *OllamaProvider) buildTools(tools []ToolDefinition) api.Tools {
	result := make(api.Tools, 0, len(tools))

	for _, tool := range tools {
		var schemaRaw map[string]any
		if err := json.Unmarshal([]byte(tool.InputSchema), &schemaRaw); err != nil {
			continue
		}

		params := api.ToolFunctionParameters{
			Type: "object",
		}

		if props, ok := schemaRaw["properties"].(map[string]any); ok {
			propsMap := api.NewToolPropertiesMap()
			for name, propRaw := range props {
				if propObj, ok := propRaw.(map[string]any); ok {
					propsMap.Set(name, p.convertProperty(propObj))
				}
			}
			params.Properties = propsMap
		}

		if required, ok := schemaRaw["required"].([]any); ok {
			for _, r := range required {
				if s, ok := r.(string); ok {
					params.Required = append(params.Required, s)
				}
			}
		}

		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}

	return result
}

// convertProperty converts a JSON schema property to Ollama format
func (p *OllamaProvider) convertProperty(prop map[string]any) api.ToolProperty {
	result := api.ToolProperty{}

	if typeVal, ok := prop["type"].(string); ok {
		result.Type = api.PropertyType{typeVal}
	}
	if desc, ok := prop["description"].(string); ok {
		result.Description = desc
	}
	if enum, ok := prop["enum"].([]any); ok {
		result.Enum = enum
	}
	if items, ok := prop["items"]; ok {
		result.Items = items
	}

	return result
}

// CheckOllamaAvailable checks if Ollama is running
func CheckOllamaAvailable(baseURL string) bool {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/tags")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
