package pkg

import "encoding/json"

// ChatCompletion is the request body of POST /v1/chat/completions.
type ChatCompletion struct {
	Messages       []Keyv[interface{}] `json:"messages"`
	Tools          []Keyv[interface{}] `json:"tools,omitempty"`
	Model          string              `json:"model,omitempty"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	StopSequences  Stops               `json:"stop,omitempty"`
	Temperature    float32             `json:"temperature,omitempty"`
	TopP           float32             `json:"top_p,omitempty"`
	RandomSeed     int                 `json:"random_seed,omitempty"`
	Stream         bool                `json:"stream,omitempty"`
	ResponseFormat Keyv[interface{}]   `json:"response_format,omitempty"`
	ToolChoice     interface{}         `json:"tool_choice,omitempty"`
}

type Keyv[V any] map[string]V

// Stops accepts both wire forms of the stop field, "x" and ["x", "y"].
type Stops []string

// MarshalJSON keeps a single sequence in the short string form.
func (stops Stops) MarshalJSON() ([]byte, error) {
	if len(stops) == 1 {
		return json.Marshal(stops[0])
	}
	return json.Marshal([]string(stops))
}

func (stops *Stops) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*stops = Stops{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*stops = many
	return nil
}

type ChatResponse struct {
	Id      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []ChatChoice      `json:"choices"`
	Usage   Keyv[interface{}] `json:"usage,omitempty"`
}

type ChatChoice struct {
	Index   int `json:"index"`
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`

		ToolCalls []Keyv[interface{}] `json:"tool_calls,omitempty"`
	} `json:"message,omitempty"`
	Delta *struct {
		Role    string `json:"role,omitempty"`
		Content string `json:"content,omitempty"`

		ToolCalls []Keyv[interface{}] `json:"tool_calls,omitempty"`
	} `json:"delta,omitempty"`
	FinishReason *string `json:"finish_reason"`
}

type Model struct {
	Id      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	By      string `json:"owned_by"`
}

type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// ChatError is the flat error body ({"message": ...}).
type ChatError struct {
	Message   string `json:"message"`
	RequestId string `json:"request_id,omitempty"`
}

// ValidationError is the 422 body ({"detail": [...]}).
type ValidationError struct {
	Detail []ValidationDetail `json:"detail"`
}

type ValidationDetail struct {
	Type  string            `json:"type"`
	Loc   []interface{}     `json:"loc"`
	Msg   string            `json:"msg"`
	Input interface{}       `json:"input,omitempty"`
	Ctx   Keyv[interface{}] `json:"ctx,omitempty"`
}

func (kv Keyv[V]) Set(key string, value V) {
	kv[key] = value
}

func (kv Keyv[V]) Get(key string) (V, bool) {
	value, ok := kv[key]
	return value, ok
}

func (kv Keyv[V]) Has(key string) bool {
	_, ok := kv.Get(key)
	return ok
}

func (kv Keyv[V]) GetKeyv(key string) (out Keyv[interface{}]) {
	if value, ok := kv[key]; ok {
		var v interface{} = value
		if val, o := v.(map[string]interface{}); o {
			out = val
			return
		}
	}
	return nil
}

func (kv Keyv[V]) GetString(key string) (out string) {
	if value, ok := kv[key]; ok {
		var v interface{} = value
		if out, ok = v.(string); ok {
			return
		}
	}
	return
}
