package load

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mistral-probe/logger"
	"mistral-probe/pkg"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// Options configure a load run against a chat-completion endpoint.
type Options struct {
	Host   string
	APIKey string
	Model  string
	Prompt string

	Users     uint64
	SpawnRate float64
	Duration  time.Duration
	Timeout   time.Duration

	ThinkMin time.Duration
	ThinkMax time.Duration
}

func (opts *Options) defaults() {
	if opts.Model == "" {
		opts.Model = "mistral-large-latest"
	}
	if opts.Prompt == "" {
		opts.Prompt = "Hello, this is a load test!"
	}
	if opts.Users == 0 {
		opts.Users = 10
	}
	if opts.SpawnRate == 0 {
		opts.SpawnRate = 2
	}
	if opts.Duration == 0 {
		opts.Duration = time.Minute
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ThinkMin == 0 {
		opts.ThinkMin = 3 * time.Second
	}
	if opts.ThinkMax == 0 {
		opts.ThinkMax = 6 * time.Second
	}
}

// Report wraps the vegeta metrics with a strict 200-only success count.
type Report struct {
	Metrics vegeta.Metrics

	OK     uint64
	Failed uint64
}

func (report *Report) Success() bool {
	return report.Failed == 0 && report.OK > 0
}

// NewTargeter produces the chat-completion request every simulated user sends.
func NewTargeter(opts Options) (vegeta.Targeter, error) {
	opts.defaults()

	body, err := json.Marshal(pkg.ChatCompletion{
		Model: opts.Model,
		Messages: []pkg.Keyv[interface{}]{
			{"role": "user", "content": opts.Prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set("Authorization", "Bearer "+opts.APIKey)

	return vegeta.NewStaticTargeter(vegeta.Target{
		Method: http.MethodPost,
		URL:    strings.TrimSuffix(opts.Host, "/") + "/v1/chat/completions",
		Body:   body,
		Header: header,
	}), nil
}

// Attack runs the load scenario and blocks until Duration elapses. Any
// response other than 200 counts as a failure.
func Attack(opts Options) (*Report, error) {
	opts.defaults()

	targeter, err := NewTargeter(opts)
	if err != nil {
		return nil, err
	}

	pacer := ThinkPacer{
		Min:       opts.ThinkMin,
		Max:       opts.ThinkMax,
		Users:     opts.Users,
		SpawnRate: opts.SpawnRate,
	}

	attacker := vegeta.NewAttacker(
		vegeta.Timeout(opts.Timeout),
		vegeta.Workers(opts.Users),
		vegeta.MaxWorkers(opts.Users),
		vegeta.KeepAlive(true),
	)

	logger.Infof("load start: %s for %s (%s)", opts.Host, opts.Duration, pacer.String())

	report := new(Report)
	for result := range attacker.Attack(targeter, pacer, opts.Duration, "chat-completions") {
		if result.Code == http.StatusOK {
			report.OK++
		} else {
			report.Failed++
			if result.Error == "" {
				result.Error = fmt.Sprintf("Failed with status code %d", result.Code)
			}
		}
		report.Metrics.Add(result)
	}
	report.Metrics.Close()

	logger.Infof("load finished: %d ok, %d failed", report.OK, report.Failed)
	return report, nil
}
