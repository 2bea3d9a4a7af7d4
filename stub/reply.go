package stub

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"mistral-probe/pkg"
)

var (
	arithmeticRe = regexp2.MustCompile(`(\d+)\s*([+\-*x×/])\s*(\d+)`, regexp2.ECMAScript)
	priceRe      = regexp2.MustCompile(`(\d+(?:[.,]\d+)?)\s*(euros?|dollars?|€|\$)`, regexp2.ECMAScript|regexp2.IgnoreCase)
	capitalRe    = regexp2.MustCompile(`capital of ([A-Za-z]+)`, regexp2.ECMAScript|regexp2.IgnoreCase)
	locationRe   = regexp2.MustCompile(`\bin ([A-Z][a-zA-Z]+)`, regexp2.ECMAScript)
)

var capitals = map[string]string{
	"france":  "Paris",
	"germany": "Berlin",
	"italy":   "Rome",
	"spain":   "Madrid",
	"japan":   "Tokyo",
}

// answer synthesizes a deterministic assistant reply for a conversation.
func answer(completion pkg.ChatCompletion) string {
	prompt := lastUserMessage(completion.Messages)
	content := plainAnswer(prompt, completion.Messages)

	if completion.ResponseFormat.GetString("type") == "json_object" {
		data, _ := json.Marshal(map[string]string{"answer": content})
		return string(data)
	}
	return content
}

func plainAnswer(prompt string, messages []pkg.Keyv[interface{}]) string {
	if m, _ := arithmeticRe.FindStringMatch(prompt); m != nil {
		left, _ := strconv.Atoi(m.GroupByNumber(1).String())
		right, _ := strconv.Atoi(m.GroupByNumber(3).String())
		if result, ok := calc(left, m.GroupByNumber(2).String(), right); ok {
			return strconv.Itoa(result)
		}
	}

	lower := strings.ToLower(prompt)
	if strings.Contains(lower, "how much") || strings.Contains(lower, "price") || strings.Contains(lower, "cost") {
		// recall a stated amount from the conversation
		for i := len(messages) - 1; i >= 0; i-- {
			if m, _ := priceRe.FindStringMatch(messages[i].GetString("content")); m != nil {
				return fmt.Sprintf("It costs %s %s.", m.GroupByNumber(1).String(), currency(m.GroupByNumber(2).String()))
			}
		}
	}

	if m, _ := capitalRe.FindStringMatch(prompt); m != nil {
		country := m.GroupByNumber(1).String()
		if city, ok := capitals[strings.ToLower(country)]; ok {
			return fmt.Sprintf("The capital of %s is %s.", country, city)
		}
	}

	return "Hello! I am doing well, thank you for asking. How can I help you today?"
}

func calc(left int, operator string, right int) (int, bool) {
	switch operator {
	case "+":
		return left + right, true
	case "-":
		return left - right, true
	case "*", "x", "×":
		return left * right, true
	case "/":
		if right == 0 {
			return 0, false
		}
		return left / right, true
	}
	return 0, false
}

func currency(unit string) string {
	switch strings.ToLower(unit) {
	case "dollar", "dollars", "$":
		return "dollars"
	default:
		return "euros"
	}
}

func lastUserMessage(messages []pkg.Keyv[interface{}]) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].GetString("role") == "user" {
			return messages[i].GetString("content")
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].GetString("content")
	}
	return ""
}

// applyStop truncates content before the first stop sequence found.
func applyStop(content string, stops []string) (string, bool) {
	truncated := false
	for _, s := range stops {
		if s == "" {
			continue
		}
		if index := strings.Index(content, s); index >= 0 {
			content = content[:index]
			truncated = true
		}
	}
	return content, truncated
}

// useTool reports whether the request forces a tool call.
func useTool(completion pkg.ChatCompletion) (name string, ok bool) {
	if len(completion.Tools) == 0 {
		return
	}

	choice, _ := completion.ToolChoice.(string)
	if choice != "any" && choice != "required" {
		return
	}

	fun := completion.Tools[0].GetKeyv("function")
	if name = fun.GetString("name"); name == "" {
		return
	}
	return name, true
}

// toolArguments extracts call arguments from the prompt.
func toolArguments(prompt string) string {
	if m, _ := locationRe.FindStringMatch(prompt); m != nil {
		data, _ := json.Marshal(map[string]string{"location": m.GroupByNumber(1).String()})
		return string(data)
	}
	return "{}"
}
