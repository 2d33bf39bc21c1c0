package openai

import (
	"context"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/tools"
)

type stubChatClient struct {
	lastParams sdk.ChatCompletionNewParams
	resp       *sdk.ChatCompletion
	err        error

	stream *ssestream.Stream[sdk.ChatCompletionChunk]
}

func (s *stubChatClient) New(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) (*sdk.ChatCompletion, error) {
	s.lastParams = body
	return s.resp, s.err
}

func (s *stubChatClient) NewStreaming(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk] {
	s.lastParams = body
	if s.stream == nil {
		dec := &noopDecoder{}
		s.stream = ssestream.NewStream[sdk.ChatCompletionChunk](dec, nil)
	}
	return s.stream
}

type noopDecoder struct{}

func (n *noopDecoder) Event() ssestream.Event { return ssestream.Event{} }
func (n *noopDecoder) Next() bool             { return false }
func (n *noopDecoder) Close() error           { return nil }
func (n *noopDecoder) Err() error             { return nil }

func TestComplete_TextAndToolCall(t *testing.T) {
	stub := &stubChatClient{}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	stub.resp = &sdk.ChatCompletion{
		Choices: []sdk.ChatCompletionChoice{
			{
				FinishReason: "tool_calls",
				Message: sdk.ChatCompletionMessage{
					Content: "hi there",
					ToolCalls: []sdk.ChatCompletionMessageToolCall{
						{
							ID: "call_1",
							Function: sdk.ChatCompletionMessageToolCallFunction{
								Name:      "lookup",
								Arguments: `{"query":"docs"}`,
							},
						},
					},
				},
			},
		},
		Usage: sdk.CompletionUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	req := &model.Request{
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: "ping"}}},
		},
		Tools: []*model.ToolDefinition{
			{Name: "lookup", Description: "Search", InputSchema: map[string]any{"type": "object"}},
		},
	}

	resp, err := cl.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	require.Equal(t, tools.Ident("lookup"), resp.ToolCalls[0].Name)
	require.Equal(t, "call_1", resp.ToolCalls[0].ID)
	require.Equal(t, "tool_calls", resp.StopReason)
	require.Equal(t, 15, resp.Usage.TotalTokens)

	require.Equal(t, sdk.ChatModel("gpt-4o"), stub.lastParams.Model)
	require.Len(t, stub.lastParams.Messages, 1)
	require.Len(t, stub.lastParams.Tools, 1)
}

func TestComplete_ToolChoiceTool(t *testing.T) {
	stub := &stubChatClient{resp: &sdk.ChatCompletion{}}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	req := &model.Request{
		Messages:   []*model.Message{{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: "ping"}}}},
		Tools:      []*model.ToolDefinition{{Name: "lookup", Description: "Search", InputSchema: map[string]any{"type": "object"}}},
		ToolChoice: &model.ToolChoice{Mode: model.ToolChoiceModeTool, Name: "lookup"},
	}

	_, err = cl.Complete(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, stub.lastParams.ToolChoice.OfChatCompletionNamedToolChoice)
	require.Equal(t, "lookup", stub.lastParams.ToolChoice.OfChatCompletionNamedToolChoice.Function.Name)
}

func TestComplete_RequiresDefaultModel(t *testing.T) {
	_, err := New(&stubChatClient{}, Options{})
	require.Error(t, err)
}

func TestComplete_RequiresMessages(t *testing.T) {
	cl, err := New(&stubChatClient{}, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)
	_, err = cl.Complete(context.Background(), &model.Request{})
	require.Error(t, err)
}
