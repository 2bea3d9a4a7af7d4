package pkg

import (
	"fmt"
	"strings"

	encoder "github.com/samber/go-gpt-3-encoder"
	"mistral-probe/logger"
)

// maximum context length per served model
var (
	modelOrder = []string{
		"mistral-large-latest",
		"mistral-small-latest",
		"ministral-8b-latest",
		"ministral-3b-latest",
	}

	tokenLimits = map[string]int{
		"mistral-large-latest": 128000,
		"mistral-small-latest": 32000,
		"ministral-8b-latest":  128000,
		"ministral-3b-latest":  128000,
	}
)

func TokenLimit(model string) (int, error) {
	limit, ok := tokenLimits[model]
	if !ok {
		return 0, fmt.Errorf("Invalid model: %s", model)
	}
	return limit, nil
}

func Models() []string {
	return modelOrder
}

func CalcTokens(content string) int {
	resolver, err := encoder.NewEncoder()
	if err != nil {
		logger.Error(err)
		return 0
	}
	result, err := resolver.Encode(content)
	if err != nil {
		logger.Error(err)
		return 0
	}
	return len(result)
}

func CalcUsageTokens(content string, previousTokens int) Keyv[interface{}] {
	tokens := CalcTokens(content)
	return Keyv[interface{}]{
		"completion_tokens": tokens,
		"prompt_tokens":     previousTokens,
		"total_tokens":      previousTokens + tokens,
	}
}

// CalcMessagesTokens sums the token count of every message content.
func CalcMessagesTokens(messages []Keyv[interface{}]) (tokens int) {
	for _, message := range messages {
		tokens += CalcTokens(message.GetString("content"))
	}
	return
}

// TrimTokens cuts content down to at most limit tokens, on a word
// boundary. The second return reports whether anything was cut.
func TrimTokens(content string, limit int) (string, bool) {
	if limit <= 0 || CalcTokens(content) <= limit {
		return content, false
	}

	fields := strings.Fields(content)
	low, high := 0, len(fields)
	for low < high {
		mid := (low + high + 1) / 2
		if CalcTokens(strings.Join(fields[:mid], " ")) <= limit {
			low = mid
		} else {
			high = mid - 1
		}
	}
	return strings.Join(fields[:low], " "), true
}
