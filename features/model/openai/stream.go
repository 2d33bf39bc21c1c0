package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/tools"
)

// openAIStreamer adapts an OpenAI Chat Completions streaming response to the
// model.Streamer interface, accumulating tool-call argument fragments by
// index the way the wire format delivers them before emitting a single
// ChunkTypeToolCall once a choice's tool calls are complete.
type openAIStreamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream *ssestream.Stream[sdk.ChatCompletionChunk]

	chunks chan model.Chunk

	errMu    sync.Mutex
	errSet   bool
	finalErr error

	metaMu   sync.RWMutex
	metadata map[string]any
}

func newOpenAIStreamer(stream *ssestream.Stream[sdk.ChatCompletionChunk]) model.Streamer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &openAIStreamer{ctx: ctx, cancel: cancel, stream: stream, chunks: make(chan model.Chunk, 32)}
	go s.run()
	return s
}

func (s *openAIStreamer) Recv() (model.Chunk, error) {
	select {
	case chunk, ok := <-s.chunks:
		if ok {
			return chunk, nil
		}
		if err := s.err(); err != nil {
			return model.Chunk{}, err
		}
		return model.Chunk{}, io.EOF
	case <-s.ctx.Done():
		err := s.ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		s.setErr(err)
		return model.Chunk{}, err
	}
}

func (s *openAIStreamer) Close() error {
	s.cancel()
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

func (s *openAIStreamer) Metadata() map[string]any {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	if len(s.metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}
	return out
}

func (s *openAIStreamer) run() {
	defer close(s.chunks)
	defer func() {
		if s.stream != nil {
			_ = s.stream.Close()
		}
	}()

	calls := make(map[int64]*toolCallBuffer)

	for {
		select {
		case <-s.ctx.Done():
			s.setErr(s.ctx.Err())
			return
		default:
		}
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				s.setErr(err)
			} else {
				s.setErr(nil)
			}
			return
		}
		chunk := s.stream.Current()
		if err := s.handle(chunk, calls); err != nil {
			s.setErr(err)
			return
		}
	}
}

func (s *openAIStreamer) handle(chunk sdk.ChatCompletionChunk, calls map[int64]*toolCallBuffer) error {
	if chunk.Usage.TotalTokens > 0 {
		usage := model.TokenUsage{
			InputTokens:  int(chunk.Usage.PromptTokens),
			OutputTokens: int(chunk.Usage.CompletionTokens),
			TotalTokens:  int(chunk.Usage.TotalTokens),
		}
		s.recordUsage(usage)
		if err := s.emit(model.Chunk{Type: model.ChunkTypeUsage, UsageDelta: &usage}); err != nil {
			return err
		}
	}
	if len(chunk.Choices) == 0 {
		return nil
	}
	choice := chunk.Choices[0]
	if choice.Delta.Content != "" {
		if err := s.emit(model.Chunk{
			Type: model.ChunkTypeText,
			Message: &model.Message{
				Role:  model.ConversationRoleAssistant,
				Parts: []model.Part{model.TextPart{Text: choice.Delta.Content}},
			},
		}); err != nil {
			return err
		}
	}
	for _, tc := range choice.Delta.ToolCalls {
		buf := calls[tc.Index]
		if buf == nil {
			buf = &toolCallBuffer{}
			calls[tc.Index] = buf
		}
		if tc.ID != "" {
			buf.id = tc.ID
		}
		if tc.Function.Name != "" {
			buf.name = tc.Function.Name
		}
		if tc.Function.Arguments != "" {
			buf.args.WriteString(tc.Function.Arguments)
			if buf.id == "" || buf.name == "" {
				return errors.New("openai stream: tool call delta missing id or name")
			}
			if err := s.emit(model.Chunk{
				Type: model.ChunkTypeToolCallDelta,
				ToolCallDelta: &model.ToolCallDelta{
					Name:  tools.Ident(buf.name),
					ID:    buf.id,
					Delta: tc.Function.Arguments,
				},
			}); err != nil {
				return err
			}
		}
	}
	if choice.FinishReason != "" {
		for _, buf := range calls {
			if err := s.emit(model.Chunk{
				Type: model.ChunkTypeToolCall,
				ToolCall: &model.ToolCall{
					Name:    tools.Ident(buf.name),
					Payload: buf.finalPayload(),
					ID:      buf.id,
				},
			}); err != nil {
				return err
			}
		}
		return s.emit(model.Chunk{Type: model.ChunkTypeStop, StopReason: string(choice.FinishReason)})
	}
	return nil
}

func (s *openAIStreamer) emit(chunk model.Chunk) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case s.chunks <- chunk:
		return nil
	}
}

func (s *openAIStreamer) recordUsage(usage model.TokenUsage) {
	s.metaMu.Lock()
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}
	s.metadata["usage"] = usage
	s.metaMu.Unlock()
}

func (s *openAIStreamer) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.errSet {
		return
	}
	s.errSet = true
	s.finalErr = err
}

func (s *openAIStreamer) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.finalErr
}

type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

func (tb *toolCallBuffer) finalPayload() json.RawMessage {
	raw := strings.TrimSpace(tb.args.String())
	if raw == "" {
		raw = "{}"
	}
	return json.RawMessage(raw)
}
