package stub

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mistral-probe/pkg"

	"github.com/tidwall/gjson"
)

func newServer(t *testing.T, rpm int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(New("test-key", rpm).Handler())
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, server *httptest.Server, auth, body string) (int, []byte) {
	t.Helper()
	request, err := http.NewRequest(http.MethodPost, server.URL+"/v1/chat/completions", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	request.Header.Set("Content-Type", "application/json")
	if auth != "" {
		request.Header.Set("Authorization", auth)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatal(err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatal(err)
	}
	return response.StatusCode, data
}

func TestCompletions(t *testing.T) {
	server := newServer(t, 0)
	code, data := post(t, server, "Bearer test-key",
		`{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "Hello, how are you?"}]}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}
	if err := pkg.VerifyCompletion(data); err != nil {
		t.Fatal(err)
	}
	if model := gjson.GetBytes(data, "model").String(); model != "mistral-large-latest" {
		t.Errorf("model = %q", model)
	}
	if reason := gjson.GetBytes(data, "choices.0.finish_reason").String(); reason != "stop" {
		t.Errorf("finish_reason = %q", reason)
	}
}

func TestCompletionsJSONObject(t *testing.T) {
	server := newServer(t, 0)
	code, data := post(t, server, "Bearer test-key",
		`{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "Greet me in JSON."}], "response_format": {"type": "json_object"}}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}

	content := gjson.GetBytes(data, "choices.0.message.content").String()
	if !pkg.ValidJSON(content) {
		t.Errorf("content is not valid json: %q", content)
	}
}

func TestCompletionsRecall(t *testing.T) {
	server := newServer(t, 0)
	code, data := post(t, server, "Bearer test-key", `{
		"model": "mistral-large-latest",
		"messages": [
			{"role": "user", "content": "I am looking at a bike in the shop."},
			{"role": "assistant", "content": "Nice choice! The price of the bike is 199 euros."},
			{"role": "user", "content": "How much does the bike cost?"}
		]
	}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}
	if content := gjson.GetBytes(data, "choices.0.message.content").String(); !strings.Contains(content, "199") {
		t.Errorf("content %q misses the amount", content)
	}
}

func TestCompletionsArithmetic(t *testing.T) {
	server := newServer(t, 0)
	code, data := post(t, server, "Bearer test-key",
		`{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "What is 12 + 9?"}]}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}
	if content := gjson.GetBytes(data, "choices.0.message.content").String(); !strings.Contains(content, "21") {
		t.Errorf("content = %q, want 21", content)
	}
}

func TestCompletionsStop(t *testing.T) {
	server := newServer(t, 0)
	code, data := post(t, server, "Bearer test-key",
		`{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "What is the capital of France?"}], "stop": ["Paris"]}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}
	if content := gjson.GetBytes(data, "choices.0.message.content").String(); strings.Contains(content, "Paris") {
		t.Errorf("content %q should stop before the sequence", content)
	}
}

func TestCompletionsMaxTokens(t *testing.T) {
	server := newServer(t, 0)
	code, data := post(t, server, "Bearer test-key",
		`{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "What is the capital of France?"}], "max_tokens": 3}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}
	if reason := gjson.GetBytes(data, "choices.0.finish_reason").String(); reason != "length" {
		t.Errorf("finish_reason = %q, want length", reason)
	}
}

func TestCompletionsToolCall(t *testing.T) {
	server := newServer(t, 0)
	code, data := post(t, server, "Bearer test-key", `{
		"model": "mistral-large-latest",
		"messages": [{"role": "user", "content": "What is the weather like in Paris today?"}],
		"tools": [{"type": "function", "function": {"name": "get_weather", "description": "Get the current weather", "parameters": {"type": "object", "properties": {"location": {"type": "string"}}}}}],
		"tool_choice": "any"
	}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}

	if reason := gjson.GetBytes(data, "choices.0.finish_reason").String(); reason != "tool_calls" {
		t.Errorf("finish_reason = %q", reason)
	}
	if name := gjson.GetBytes(data, "choices.0.message.tool_calls.0.function.name").String(); name != "get_weather" {
		t.Errorf("name = %q", name)
	}

	args := gjson.GetBytes(data, "choices.0.message.tool_calls.0.function.arguments").String()
	if !pkg.ValidJSON(args) {
		t.Fatalf("arguments are not valid json: %q", args)
	}
	if !strings.Contains(args, "Paris") {
		t.Errorf("arguments %q miss the location", args)
	}
}

func TestCompletionsStreaming(t *testing.T) {
	server := newServer(t, 0)
	code, data := post(t, server, "Bearer test-key",
		`{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "What is 12 + 9?"}], "stream": true}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}

	var (
		content string
		reason  string
		chunks  int
		done    bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		raw := strings.TrimPrefix(line, "data: ")
		if raw == "[DONE]" {
			done = true
			continue
		}

		chunks++
		chunk := gjson.Parse(raw)
		if object := chunk.Get("object").String(); object != "chat.completion.chunk" {
			t.Errorf("object = %q", object)
		}
		content += chunk.Get("choices.0.delta.content").String()
		if value := chunk.Get("choices.0.finish_reason"); value.Exists() && value.String() != "" {
			reason = value.String()
			if chunk.Get("usage.total_tokens").Int() == 0 {
				t.Error("finish chunk misses usage")
			}
		}
	}

	if !done {
		t.Error("stream misses [DONE]")
	}
	if chunks < 2 {
		t.Errorf("chunks = %d", chunks)
	}
	if !strings.Contains(content, "21") {
		t.Errorf("content = %q, want 21", content)
	}
	if reason != "stop" {
		t.Errorf("finish_reason = %q", reason)
	}
}

func TestCompletionsAuth(t *testing.T) {
	server := newServer(t, 0)
	body := `{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "Hello"}]}`

	cases := []struct {
		name string
		auth string
		code int
		want string
	}{
		{"missing", "", http.StatusUnauthorized, "No API key found in request"},
		{"blank", "Bearer ", http.StatusUnauthorized, "No API key found in request"},
		{"wrong", "Bearer nope", http.StatusUnauthorized, "Unauthorized"},
		{"valid", "Bearer test-key", http.StatusOK, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code, data := post(t, server, c.auth, body)
			if code != c.code {
				t.Fatalf("code = %d, want %d: %s", code, c.code, data)
			}
			if c.want == "" {
				return
			}
			if message := gjson.GetBytes(data, "message").String(); !strings.Contains(message, c.want) {
				t.Errorf("message = %q, want %q", message, c.want)
			}
		})
	}
}

func TestCompletionsValidation(t *testing.T) {
	server := newServer(t, 0)
	overflow := fmt.Sprintf(
		`{"model": "mistral-small-latest", "messages": [{"role": "user", "content": "%s"}]}`,
		strings.TrimSpace(strings.Repeat("word ", 37000)))

	cases := []struct {
		name string
		body string
		code int
		path string
		want string
	}{
		{
			name: "empty messages",
			body: `{"model": "mistral-large-latest", "messages": []}`,
			code: http.StatusBadRequest,
			path: "message",
			want: "Conversation must have at least one message",
		},
		{
			name: "missing messages",
			body: `{"model": "mistral-large-latest"}`,
			code: http.StatusUnprocessableEntity,
			path: "detail.0.msg",
			want: "Field required",
		},
		{
			name: "invalid role",
			body: `{"model": "mistral-large-latest", "messages": [{"role": "invalid_role", "content": "Hello"}]}`,
			code: http.StatusUnprocessableEntity,
			path: "detail.0.msg",
			want: "Input tag 'invalid_role' found using 'role' does not match any of the expected tags: 'assistant', 'system', 'tool', 'user'",
		},
		{
			name: "top_p too high",
			body: `{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "Hello"}], "top_p": 1.2}`,
			code: http.StatusUnprocessableEntity,
			path: "detail.0.msg",
			want: "Input should be less than or equal to 1",
		},
		{
			name: "temperature too high",
			body: `{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "Hello"}], "temperature": 2.5}`,
			code: http.StatusUnprocessableEntity,
			path: "detail.0.msg",
			want: "Input should be less than or equal to 2",
		},
		{
			name: "malformed json",
			body: `{"model": "mistral-large-latest", "messages": [`,
			code: http.StatusBadRequest,
			path: "message",
			want: "Invalid request: invalid json body",
		},
		{
			name: "unknown model",
			body: `{"model": "gpt-zero", "messages": [{"role": "user", "content": "Hello"}]}`,
			code: http.StatusBadRequest,
			path: "message",
			want: "Invalid model: gpt-zero",
		},
		{
			name: "over token limit",
			body: overflow,
			code: http.StatusBadRequest,
			path: "message",
			want: "too large for model with 32000 maximum context length",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code, data := post(t, server, "Bearer test-key", c.body)
			if code != c.code {
				t.Fatalf("code = %d, want %d: %s", code, c.code, data)
			}
			if message := gjson.GetBytes(data, c.path).String(); !strings.Contains(message, c.want) {
				t.Errorf("message = %q, want %q", message, c.want)
			}
		})
	}
}

func TestCompletionsLongMessage(t *testing.T) {
	server := newServer(t, 0)
	body := fmt.Sprintf(
		`{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "%s"}]}`,
		strings.TrimSpace(strings.Repeat("word ", 2000)))

	code, data := post(t, server, "Bearer test-key", body)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, data)
	}
	if err := pkg.VerifyCompletion(data); err != nil {
		t.Fatal(err)
	}
}

func TestModels(t *testing.T) {
	server := newServer(t, 0)
	request, err := http.NewRequest(http.MethodGet, server.URL+"/v1/models", nil)
	if err != nil {
		t.Fatal(err)
	}
	request.Header.Set("Authorization", "Bearer test-key")

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatal(err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatal(err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("code = %d: %s", response.StatusCode, data)
	}

	if object := gjson.GetBytes(data, "object").String(); object != "list" {
		t.Errorf("object = %q", object)
	}
	found := false
	for _, item := range gjson.GetBytes(data, "data").Array() {
		if item.Get("id").String() == "mistral-large-latest" {
			found = true
			if by := item.Get("owned_by").String(); by != "mistralai" {
				t.Errorf("owned_by = %q", by)
			}
		}
	}
	if !found {
		t.Error("mistral-large-latest missing from the model list")
	}
}

func TestRateLimit(t *testing.T) {
	server := newServer(t, 2)
	body := `{"model": "mistral-large-latest", "messages": [{"role": "user", "content": "Hello"}]}`

	for i := 0; i < 2; i++ {
		if code, data := post(t, server, "Bearer test-key", body); code != http.StatusOK {
			t.Fatalf("request %d: code = %d: %s", i+1, code, data)
		}
	}

	code, data := post(t, server, "Bearer test-key", body)
	if code != http.StatusTooManyRequests {
		t.Fatalf("code = %d: %s", code, data)
	}
	if message := gjson.GetBytes(data, "message").String(); !strings.Contains(message, "Requests rate limit exceeded") {
		t.Errorf("message = %q", message)
	}
}
