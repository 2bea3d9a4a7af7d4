package pkg

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var topFields = []string{
	"id",
	"object",
	"created",
	"model",
	"choices",
}

var usageFields = []string{
	"usage.prompt_tokens",
	"usage.completion_tokens",
	"usage.total_tokens",
}

// VerifyCompletion checks a chat.completion body for the mandatory fields,
// reporting the first one missing.
func VerifyCompletion(data []byte) error {
	for _, field := range topFields {
		if !gjson.GetBytes(data, field).Exists() {
			return fmt.Errorf("missing field: %s", field)
		}
	}

	choices := gjson.GetBytes(data, "choices").Array()
	if len(choices) == 0 {
		return errors.New("choices is empty")
	}

	for index, choice := range choices {
		if !choice.Get("message.content").Exists() {
			return fmt.Errorf("missing field: choices.%d.message.content", index)
		}
		if !choice.Get("finish_reason").Exists() {
			return fmt.Errorf("missing field: choices.%d.finish_reason", index)
		}
	}

	for _, field := range usageFields {
		if !gjson.GetBytes(data, field).Exists() {
			return fmt.Errorf("missing field: %s", field)
		}
	}
	return nil
}

func ValidJSON(str string) bool {
	return gjson.Valid(str)
}
