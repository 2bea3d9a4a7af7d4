package stub

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"mistral-probe/logger"
	"mistral-probe/pkg"
)

var (
	stop      = "stop"
	length    = "length"
	toolCalls = "tool_calls"
)

// Error writes the flat error body ({"message": ...}).
func Error(ctx *gin.Context, code int, err interface{}) {
	message := ""
	switch e := err.(type) {
	case string:
		message = e
	case error:
		message = e.Error()
	default:
		message = fmt.Sprintf("%v", err)
	}

	ctx.JSON(code, pkg.ChatError{
		Message:   message,
		RequestId: uuid.NewString(),
	})
}

// ValidationFailed writes the 422 body ({"detail": [...]}).
func ValidationFailed(ctx *gin.Context, details ...pkg.ValidationDetail) {
	ctx.JSON(http.StatusUnprocessableEntity, pkg.ValidationError{Detail: details})
}

func Response(ctx *gin.Context, completion pkg.ChatCompletion, content, finishReason string) {
	created := time.Now().Unix()
	promptTokens := pkg.CalcMessagesTokens(completion.Messages)

	ctx.JSON(http.StatusOK, pkg.ChatResponse{
		Model:   completion.Model,
		Created: created,
		Id:      fmt.Sprintf("chatcmpl-%d", created),
		Object:  "chat.completion",
		Choices: []pkg.ChatChoice{
			{
				Index: 0,
				Message: &struct {
					Role    string `json:"role"`
					Content string `json:"content"`

					ToolCalls []pkg.Keyv[interface{}] `json:"tool_calls,omitempty"`
				}{Role: "assistant", Content: content},
				FinishReason: &finishReason,
			},
		},
		Usage: pkg.CalcUsageTokens(content, promptTokens),
	})
}

func SSEResponse(ctx *gin.Context, completion pkg.ChatCompletion, content, finishReason string, created int64) {
	setSSEHeader(ctx)

	id := fmt.Sprintf("chatcmpl-%d", created)
	promptTokens := pkg.CalcMessagesTokens(completion.Messages)

	role := "assistant"
	splitEach(content, func(value string) {
		chunk := pkg.ChatResponse{
			Model:   completion.Model,
			Created: created,
			Id:      id,
			Object:  "chat.completion.chunk",
			Choices: []pkg.ChatChoice{
				{
					Index: 0,
					Delta: &struct {
						Role    string `json:"role,omitempty"`
						Content string `json:"content,omitempty"`

						ToolCalls []pkg.Keyv[interface{}] `json:"tool_calls,omitempty"`
					}{Role: role, Content: value},
				},
			},
		}
		role = ""
		Event(ctx, "", chunk)
	})

	chunk := pkg.ChatResponse{
		Model:   completion.Model,
		Created: created,
		Id:      id,
		Object:  "chat.completion.chunk",
		Choices: []pkg.ChatChoice{
			{
				Index: 0,
				Delta: &struct {
					Role    string `json:"role,omitempty"`
					Content string `json:"content,omitempty"`

					ToolCalls []pkg.Keyv[interface{}] `json:"tool_calls,omitempty"`
				}{},
				FinishReason: &finishReason,
			},
		},
		Usage: pkg.CalcUsageTokens(content, promptTokens),
	}
	Event(ctx, "", chunk)
	Event(ctx, "", "[DONE]")
}

func ToolCallResponse(ctx *gin.Context, completion pkg.ChatCompletion, name, args string) {
	created := time.Now().Unix()
	promptTokens := pkg.CalcMessagesTokens(completion.Messages)

	ctx.JSON(http.StatusOK, pkg.ChatResponse{
		Model:   completion.Model,
		Created: created,
		Id:      fmt.Sprintf("chatcmpl-%d", created),
		Object:  "chat.completion",
		Choices: []pkg.ChatChoice{
			{
				Index: 0,
				Message: &struct {
					Role    string `json:"role"`
					Content string `json:"content"`

					ToolCalls []pkg.Keyv[interface{}] `json:"tool_calls,omitempty"`
				}{
					Role: "assistant",
					ToolCalls: []pkg.Keyv[interface{}]{
						{
							"id":   "call_" + hex(5),
							"type": "function",
							"function": map[string]string{
								"name":      name,
								"arguments": args,
							},
						},
					},
				},
				FinishReason: &toolCalls,
			},
		},
		Usage: pkg.CalcUsageTokens(args, promptTokens),
	})
}

func SSEToolCallResponse(ctx *gin.Context, completion pkg.ChatCompletion, name, args string, created int64) {
	setSSEHeader(ctx)

	id := fmt.Sprintf("chatcmpl-%d", created)
	promptTokens := pkg.CalcMessagesTokens(completion.Messages)

	toolCall := pkg.Keyv[interface{}]{
		"index": 0,
		"id":    "call_" + hex(5),
		"type":  "function",
		"function": map[string]string{
			"name":      name,
			"arguments": args,
		},
	}

	chunk := pkg.ChatResponse{
		Model:   completion.Model,
		Created: created,
		Id:      id,
		Object:  "chat.completion.chunk",
		Choices: []pkg.ChatChoice{
			{
				Index: 0,
				Delta: &struct {
					Role    string `json:"role,omitempty"`
					Content string `json:"content,omitempty"`

					ToolCalls []pkg.Keyv[interface{}] `json:"tool_calls,omitempty"`
				}{
					Role:      "assistant",
					ToolCalls: []pkg.Keyv[interface{}]{toolCall},
				},
			},
		},
	}
	Event(ctx, "", chunk)

	chunk.Choices[0].Delta = nil
	chunk.Choices[0].FinishReason = &toolCalls
	chunk.Usage = pkg.CalcUsageTokens(args, promptTokens)
	Event(ctx, "", chunk)

	Event(ctx, "", "[DONE]")
}

func setSSEHeader(ctx *gin.Context) {
	h := ctx.Writer.Header()
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "text/event-stream")
		h.Set("Transfer-Encoding", "chunked")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
	}
}

func Event(ctx *gin.Context, event string, data interface{}) {
	setSSEHeader(ctx)

	w := ctx.Writer
	layout := ""
	if event != "" {
		layout = "event: " + event + "\n"
	}
	layout += "data: %s\n\n"

	if str, ok := data.(string); ok {
		if _, err := fmt.Fprintf(w, layout, str); err != nil {
			logger.Error(err)
			return
		}
		w.Flush()
		return
	}

	marshal, err := json.Marshal(data)
	if err != nil {
		logger.Error(err)
		return
	}

	if _, err = fmt.Fprintf(w, layout, marshal); err != nil {
		logger.Error(err)
		return
	}
	w.Flush()
}

func splitEach(content string, cb func(value string)) {
	pos := 0
	runeStr := []rune(content)
	step := 1000

	for {
		contentL := len(runeStr[pos:])
		if contentL > step {
			cb(string(runeStr[pos : pos+step]))
			pos += step
			continue
		}
		cb(string(runeStr[pos:]))
		break
	}
}

func hex(n int) string {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var runes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890")
	bytes := make([]rune, n)
	for i := range bytes {
		bytes[i] = runes[r.Intn(len(runes))]
	}
	return string(bytes)
}
