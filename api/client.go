package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bincooo/emit.io"
	"github.com/bogdanfinn/tls-client/profiles"
	"mistral-probe/pkg"
)

// Client issues requests against a chat-completions endpoint. Responses
// are returned regardless of status code so that callers can inspect
// error bodies.
type Client struct {
	session *emit.Session
	baseURL string
	apiKey  string
}

func NewSession(proxies string, connTimeout int) (*emit.Session, error) {
	if connTimeout == 0 {
		connTimeout = 180
	}

	options := []emit.OptionHelper{
		emit.Ja3Helper(emit.Echo{RandomTLSExtension: true, HelloID: profiles.Chrome_133}, connTimeout),
		emit.TLSConfigHelper(&tls.Config{InsecureSkipVerify: true}),
	}
	return emit.NewSession(proxies, false, ips("127.0.0.1"), options...)
}

func NewClient(session *emit.Session, baseURL, apiKey string) *Client {
	return &Client{
		session: session,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Completions posts a chat completion with bearer auth.
func (client *Client) Completions(ctx context.Context, completion pkg.ChatCompletion) (response *http.Response, err error) {
	buffer, err := json.Marshal(completion)
	if err != nil {
		return
	}
	return client.post(ctx, true, buffer)
}

// CompletionsBytes posts a raw payload, leaving the body untouched.
func (client *Client) CompletionsBytes(ctx context.Context, buffer []byte) (*http.Response, error) {
	return client.post(ctx, true, buffer)
}

// CompletionsNoAuth posts without an Authorization header.
func (client *Client) CompletionsNoAuth(ctx context.Context, completion pkg.ChatCompletion) (response *http.Response, err error) {
	buffer, err := json.Marshal(completion)
	if err != nil {
		return
	}
	return client.post(ctx, false, buffer)
}

func (client *Client) Models(ctx context.Context) (*http.Response, error) {
	return emit.ClientBuilder(client.session).
		Context(ctx).
		GET(client.baseURL+"/v1/models").
		Header("Authorization", "Bearer "+client.apiKey).
		DoC(statusCondition)
}

func (client *Client) post(ctx context.Context, auth bool, buffer []byte) (*http.Response, error) {
	builder := emit.ClientBuilder(client.session).
		Context(ctx).
		POST(client.baseURL + "/v1/chat/completions").
		JSONHeader().
		Bytes(buffer)
	if auth {
		builder.Header("Authorization", "Bearer "+client.apiKey)
	}
	return builder.DoC(statusCondition)
}

// statusCondition accepts every well-formed response; callers read the
// status code and body themselves.
func statusCondition(response *http.Response) error {
	if response == nil {
		return emit.Error{Code: -1, Bus: "Status", Err: errors.New("response is nil")}
	}
	return nil
}

func ips(ips ...string) func() []string {
	return func() []string { return ips }
}
