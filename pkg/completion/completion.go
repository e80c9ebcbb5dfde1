// Package completion wraps the OpenAI chat-completions API behind the
// dispatcher's Completion Service boundary.
package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
)

var _ contractx.Completer = (*Client)(nil)

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model   string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: completion api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: completion model is required", contractx.ErrValidation)
	}
	return nil
}

// ClientOption customizes Client.
type ClientOption func(*Client)

// WithRequestOptions appends raw SDK request options; tests use this to point
// the client at an httptest server and disable retries.
func WithRequestOptions(opts ...option.RequestOption) ClientOption {
	return func(c *Client) {
		c.requestOpts = append(c.requestOpts, opts...)
	}
}

// Client satisfies contract.Completer over the OpenAI SDK.
type Client struct {
	api         *openaisdk.Client
	model       string
	requestOpts []option.RequestOption
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := &Client{model: strings.TrimSpace(cfg.Model)}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		sdkOpts = append(sdkOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	sdkOpts = append(sdkOpts, client.requestOpts...)

	api := openaisdk.NewClient(sdkOpts...)
	client.api = &api
	return client, nil
}

func MustNew(cfg Config, opts ...ClientOption) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("completion client: %v", err))
	}
	return client
}

// Complete sends one chat-completion request and returns the reply text.
// Transport and API failures come back wrapped in contract.ErrCompletion so
// callers can degrade uniformly.
func (c *Client) Complete(ctx context.Context, req contractx.CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: empty message list", contractx.ErrValidation)
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.model),
		Messages: toSDKMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(req.MaxTokens))
	}
	if req.Temperature >= 0 {
		params.Temperature = openaisdk.Float(req.Temperature)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response carried no choices", contractx.ErrCompletion)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: response carried an empty reply", contractx.ErrCompletion)
	}
	return reply, nil
}

func toSDKMessages(msgs []contractx.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case contractx.RoleAssistant:
			out = append(out, openaisdk.AssistantMessage(m.Content))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}
