// Package openai provides a model.Client implementation backed by the OpenAI
// Chat Completions API. It translates runtime requests into
// openai.ChatCompletionNewParams calls using github.com/openai/openai-go and
// maps responses (text, tool calls, usage) back into the generic model
// structures the Agent Loop consumes.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/tools"
)

type (
	// ChatClient captures the subset of the OpenAI SDK client used by the
	// adapter. It is satisfied by the SDK's Chat.Completions service so callers
	// can pass either a real client or a mock in tests.
	ChatClient interface {
		New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
		NewStreaming(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk]
	}

	// Options configures optional OpenAI adapter behavior.
	Options struct {
		// DefaultModel is the default model identifier used when
		// model.Request.Model is empty.
		DefaultModel string

		// HighModel is used when Request.ModelClass is ModelClassHighReasoning
		// and Model is empty.
		HighModel string

		// SmallModel is used when Request.ModelClass is ModelClassSmall and
		// Model is empty.
		SmallModel string

		// MaxTokens sets the default completion cap when a request does not
		// specify MaxTokens.
		MaxTokens int

		// Temperature is used when a request does not specify Temperature.
		Temperature float64
	}

	// Client implements model.Client on top of OpenAI Chat Completions.
	Client struct {
		chat         ChatClient
		defaultModel string
		highModel    string
		smallModel   string
		maxTok       int
		temp         float64
	}
)

// New builds an OpenAI-backed model client from the provided chat client and
// configuration options.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("default model identifier is required")
	}
	return &Client{
		chat:         chat,
		defaultModel: opts.DefaultModel,
		highModel:    opts.HighModel,
		smallModel:   opts.SmallModel,
		maxTok:       opts.MaxTokens,
		temp:         opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a client using the default OpenAI HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, Options{DefaultModel: defaultModel})
}

// Complete issues a non-streaming Chat Completions request and translates the
// response into assistant messages + tool calls.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.chat.New(ctx, *params)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat.completions.new: %w", err)
	}
	return translateResponse(resp), nil
}

// Stream invokes Chat.Completions.NewStreaming and adapts incremental chunks
// into model.Chunks.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	stream := c.chat.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat.completions.new stream: %w", err)
	}
	return newOpenAIStreamer(stream), nil
}

func (c *Client) prepareRequest(req *model.Request) (*sdk.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("openai: messages are required")
	}
	modelID := c.resolveModelID(req)
	if modelID == "" {
		return nil, errors.New("openai: model identifier is required")
	}
	messages, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(modelID),
		Messages: messages,
	}
	if t := c.effectiveTemperature(req.Temperature); t > 0 {
		params.Temperature = sdk.Float(t)
	}
	if maxTokens := c.effectiveMaxTokens(req.MaxTokens); maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(maxTokens))
	}
	if len(req.Tools) > 0 {
		toolParams, err := encodeTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = toolParams
	}
	if req.ToolChoice != nil {
		choice, err := encodeToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		params.ToolChoice = choice
	}
	return &params, nil
}

// resolveModelID decides which concrete model ID to use based on
// Request.Model and Request.ModelClass. Request.Model takes precedence; when
// empty, the class selects among the three configured defaults.
func (c *Client) resolveModelID(req *model.Request) string {
	if req.Model != "" {
		return req.Model
	}
	switch req.ModelClass {
	case model.ModelClassHighReasoning:
		if c.highModel != "" {
			return c.highModel
		}
	case model.ModelClassSmall:
		if c.smallModel != "" {
			return c.smallModel
		}
	}
	return c.defaultModel
}

func (c *Client) effectiveMaxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	return c.maxTok
}

func (c *Client) effectiveTemperature(requested float32) float64 {
	if requested > 0 {
		return float64(requested)
	}
	return c.temp
}

func encodeMessages(msgs []*model.Message) ([]sdk.ChatCompletionMessageParamUnion, error) {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		text, toolResults := splitParts(msg.Parts)
		switch msg.Role {
		case model.ConversationRoleSystem:
			out = append(out, sdk.SystemMessage(text))
		case model.ConversationRoleAssistant:
			assistant := sdk.AssistantMessage(text)
			toolCalls, err := encodeAssistantToolUses(msg.Parts)
			if err != nil {
				return nil, err
			}
			if len(toolCalls) > 0 {
				assistant.OfAssistant.ToolCalls = toolCalls
			}
			out = append(out, assistant)
		default: // user
			if text != "" {
				out = append(out, sdk.UserMessage(text))
			}
			for _, tr := range toolResults {
				content, err := json.Marshal(tr.Content)
				if err != nil {
					return nil, fmt.Errorf("marshal tool result for %s: %w", tr.ToolUseID, err)
				}
				out = append(out, sdk.ToolMessage(string(content), tr.ToolUseID))
			}
		}
	}
	return out, nil
}

// splitParts separates a message's ordered parts into its plain text (parts
// concatenated) and any tool results, since the OpenAI wire format represents
// tool results as separate "tool" role messages rather than inline parts.
func splitParts(parts []model.Part) (string, []model.ToolResultPart) {
	var text strings.Builder
	var results []model.ToolResultPart
	for _, p := range parts {
		switch v := p.(type) {
		case model.TextPart:
			text.WriteString(v.Text)
		case model.ToolResultPart:
			results = append(results, v)
		}
	}
	return text.String(), results
}

func encodeAssistantToolUses(parts []model.Part) ([]sdk.ChatCompletionMessageToolCallParam, error) {
	var out []sdk.ChatCompletionMessageToolCallParam
	for _, p := range parts {
		use, ok := p.(model.ToolUsePart)
		if !ok {
			continue
		}
		args, err := json.Marshal(use.Input)
		if err != nil {
			return nil, fmt.Errorf("marshal tool use %s arguments: %w", use.ID, err)
		}
		out = append(out, sdk.ChatCompletionMessageToolCallParam{
			ID: use.ID,
			Function: sdk.ChatCompletionMessageToolCallFunctionParam{
				Name:      use.Name,
				Arguments: string(args),
			},
		})
	}
	return out, nil
}

func encodeTools(defs []*model.ToolDefinition) ([]sdk.ChatCompletionToolParam, error) {
	out := make([]sdk.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		params, err := toFunctionParameters(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode tool %s schema: %w", def.Name, err)
		}
		out = append(out, sdk.ChatCompletionToolParam{
			Function: sdk.FunctionDefinitionParam{
				Name:        def.Name,
				Description: sdk.String(def.Description),
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func toFunctionParameters(schema any) (sdk.FunctionParameters, error) {
	if schema == nil {
		return sdk.FunctionParameters{"type": "object", "properties": map[string]any{}}, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var params sdk.FunctionParameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func encodeToolChoice(tc *model.ToolChoice) (sdk.ChatCompletionToolChoiceOptionUnionParam, error) {
	switch tc.Mode {
	case model.ToolChoiceModeAuto, "":
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("auto")}, nil
	case model.ToolChoiceModeNone:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("none")}, nil
	case model.ToolChoiceModeAny:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("required")}, nil
	case model.ToolChoiceModeTool:
		if tc.Name == "" {
			return sdk.ChatCompletionToolChoiceOptionUnionParam{}, errors.New("openai: tool choice mode \"tool\" requires a name")
		}
		return sdk.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &sdk.ChatCompletionNamedToolChoiceParam{
				Function: sdk.ChatCompletionNamedToolChoiceFunctionParam{Name: tc.Name},
			},
		}, nil
	default:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{}, fmt.Errorf("openai: unsupported tool choice mode %q", tc.Mode)
	}
}

func translateResponse(resp *sdk.ChatCompletion) *model.Response {
	var messages []model.Message
	var toolCalls []model.ToolCall
	var stop string
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		stop = string(choice.FinishReason)
		var parts []model.Part
		if choice.Message.Content != "" {
			parts = append(parts, model.TextPart{Text: choice.Message.Content})
		}
		for _, call := range choice.Message.ToolCalls {
			parts = append(parts, model.ToolUsePart{ID: call.ID, Name: call.Function.Name, Input: parseArguments(call.Function.Arguments)})
			toolCalls = append(toolCalls, model.ToolCall{
				Name:    tools.Ident(call.Function.Name),
				Payload: json.RawMessage(call.Function.Arguments),
				ID:      call.ID,
			})
		}
		if len(parts) > 0 {
			messages = append(messages, model.Message{Role: model.ConversationRoleAssistant, Parts: parts})
		}
	}
	return &model.Response{
		Content:   messages,
		ToolCalls: toolCalls,
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
		StopReason: stop,
	}
}

func parseArguments(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return map[string]any{"raw": raw}
	}
	return payload
}

func isRateLimited(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
