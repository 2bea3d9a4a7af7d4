package sanity

import (
	"net/http"
	"strings"
	"testing"

	"mistral-probe/pkg"
)

func TestEmptyMessages(t *testing.T) {
	forEachModel(t, func(t *testing.T, model string) {
		throttle(t)
		code, data := postCompletion(t, pkg.ChatCompletion{
			Model:    model,
			Messages: []pkg.Keyv[interface{}]{},
		})
		if code != http.StatusBadRequest {
			t.Fatalf("code = %d: %s", code, data)
		}
		if message := errorMessage(data); !strings.Contains(message, "Conversation must have at least one message") {
			t.Errorf("message = %q", message)
		}
	})
}

func TestLongMessage(t *testing.T) {
	forEachModel(t, func(t *testing.T, model string) {
		throttle(t)
		code, data := postCompletion(t, pkg.ChatCompletion{
			Model:    model,
			Messages: []pkg.Keyv[interface{}]{userMessage(strings.Repeat("This is a test message. ", 100))},
		})
		if code != http.StatusOK {
			t.Fatalf("code = %d: %s", code, data)
		}
		if err := pkg.VerifyCompletion(data); err != nil {
			t.Fatal(err)
		}
	})
}

func TestTokenLimit(t *testing.T) {
	forEachModel(t, func(t *testing.T, model string) {
		throttle(t)
		limit, err := pkg.TokenLimit(model)
		if err != nil {
			t.Fatal(err)
		}

		code, data := postCompletion(t, pkg.ChatCompletion{
			Model:    model,
			Messages: []pkg.Keyv[interface{}]{userMessage(repeatWords(limit + 5000))},
		})
		if code != http.StatusBadRequest {
			t.Fatalf("code = %d: %s", code, data)
		}
		if message := errorMessage(data); !strings.Contains(message, "too large for model with") {
			t.Errorf("message = %q", message)
		}
	})
}
