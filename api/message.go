package api

import (
	"bufio"
	"encoding/json"
	"net/http"

	"mistral-probe/logger"
	"mistral-probe/pkg"
)

// Stream is the accounting of one consumed SSE response.
type Stream struct {
	Chunks       int
	Content      string
	FinishReason string
	Done         bool
	Usage        pkg.Keyv[interface{}]
}

// WaitMessage drains an SSE body and returns the aggregated assistant
// content. cancel stops consumption early when it returns true.
func WaitMessage(response *http.Response, cancel func(str string) bool) (content string, err error) {
	defer response.Body.Close()

	scanner := bufio.NewScanner(response.Body)
	for {
		if !scanner.Scan() {
			if err = scanner.Err(); err != nil {
				logger.Error(err)
			}
			break
		}

		data := scanner.Text()
		if len(data) < 6 || data[:6] != "data: " {
			continue
		}

		data = data[6:]
		if data == "[DONE]" {
			break
		}

		var chat pkg.ChatResponse
		err = json.Unmarshal([]byte(data), &chat)
		if err != nil {
			logger.Error(err)
			continue
		}

		if len(chat.Choices) == 0 {
			continue
		}

		choice := chat.Choices[0]
		if choice.Delta == nil {
			continue
		}
		if choice.Delta.Role != "" && choice.Delta.Role != "assistant" {
			continue
		}

		raw := choice.Delta.Content
		if len(raw) == 0 {
			continue
		}

		content += raw
		if cancel != nil && cancel(content) {
			return content, nil
		}
	}

	return content, nil
}

// WaitStream drains an SSE body keeping per-chunk accounting. A chunk
// that fails to decode aborts with the decode error.
func WaitStream(response *http.Response) (stream Stream, err error) {
	defer response.Body.Close()

	scanner := bufio.NewScanner(response.Body)
	for {
		if !scanner.Scan() {
			if e := scanner.Err(); e != nil {
				err = logger.WarpError(e)
			}
			break
		}

		data := scanner.Text()
		if len(data) < 6 || data[:6] != "data: " {
			continue
		}

		data = data[6:]
		if data == "[DONE]" {
			stream.Done = true
			break
		}

		var chat pkg.ChatResponse
		if err = json.Unmarshal([]byte(data), &chat); err != nil {
			err = logger.WarpError(err)
			return
		}

		stream.Chunks++
		if chat.Usage != nil {
			stream.Usage = chat.Usage
		}

		if len(chat.Choices) == 0 {
			continue
		}

		choice := chat.Choices[0]
		if choice.FinishReason != nil {
			stream.FinishReason = *choice.FinishReason
		}
		if choice.Delta != nil {
			stream.Content += choice.Delta.Content
		}
	}
	return
}
