package stub

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"mistral-probe/pkg"
)

const expectedRoles = "'assistant', 'system', 'tool', 'user'"

// validate runs the documented request checks in order. A false return
// means an error response has already been written.
func validate(ctx *gin.Context, data []byte, completion pkg.ChatCompletion) bool {
	messages := gjson.GetBytes(data, "messages")
	if !messages.Exists() {
		ValidationFailed(ctx, pkg.ValidationDetail{
			Type: "missing",
			Loc:  []interface{}{"body", "messages"},
			Msg:  "Field required",
		})
		return false
	}

	items := messages.Array()
	if len(items) == 0 {
		Error(ctx, http.StatusBadRequest, "Conversation must have at least one message")
		return false
	}

	for index, message := range items {
		switch role := message.Get("role").String(); role {
		case "system", "user", "assistant", "tool":
		default:
			ValidationFailed(ctx, roleDetail(index, role, message))
			return false
		}
	}

	if top := gjson.GetBytes(data, "top_p"); top.Exists() {
		if value := top.Float(); value > 1 {
			ValidationFailed(ctx, rangeDetail("top_p", value, "less_than_equal", 1))
			return false
		} else if value < 0 {
			ValidationFailed(ctx, rangeDetail("top_p", value, "greater_than_equal", 0))
			return false
		}
	}

	if temperature := gjson.GetBytes(data, "temperature"); temperature.Exists() {
		if value := temperature.Float(); value > 2 {
			ValidationFailed(ctx, rangeDetail("temperature", value, "less_than_equal", 2))
			return false
		} else if value < 0 {
			ValidationFailed(ctx, rangeDetail("temperature", value, "greater_than_equal", 0))
			return false
		}
	}

	limit, err := pkg.TokenLimit(completion.Model)
	if err != nil {
		Error(ctx, http.StatusBadRequest, err)
		return false
	}

	if tokens := pkg.CalcMessagesTokens(completion.Messages); tokens > limit {
		Error(ctx, http.StatusBadRequest, fmt.Sprintf(
			"Prompt contains %d tokens, too large for model with %d maximum context length", tokens, limit))
		return false
	}
	return true
}

func roleDetail(index int, role string, message gjson.Result) pkg.ValidationDetail {
	return pkg.ValidationDetail{
		Type: "union_tag_invalid",
		Loc:  []interface{}{"body", "messages", index},
		Msg: fmt.Sprintf(
			"Input tag '%s' found using 'role' does not match any of the expected tags: %s", role, expectedRoles),
		Input: message.Value(),
		Ctx: pkg.Keyv[interface{}]{
			"discriminator": "'role'",
			"tag":           role,
			"expected_tags": expectedRoles,
		},
	}
}

func rangeDetail(field string, value float64, kind string, bound int) pkg.ValidationDetail {
	msg := fmt.Sprintf("Input should be less than or equal to %d", bound)
	key := "le"
	if kind == "greater_than_equal" {
		msg = fmt.Sprintf("Input should be greater than or equal to %d", bound)
		key = "ge"
	}

	return pkg.ValidationDetail{
		Type:  kind,
		Loc:   []interface{}{"body", field},
		Msg:   msg,
		Input: value,
		Ctx:   pkg.Keyv[interface{}]{key: bound},
	}
}
