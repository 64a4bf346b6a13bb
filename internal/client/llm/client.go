package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config LLM 客户端配置
type Config struct {
	Provider string // openai（含兼容接口）, anthropic
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 512
)

// Client 大模型客户端，支持 OpenAI 兼容接口与 Anthropic Messages 接口
type Client struct {
	cfg    Config
	client *resty.Client
}

// NewClient 创建 LLM 客户端
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	return &Client{
		cfg: cfg,
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// ChatRequest 聊天请求（OpenAI 兼容）
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse 聊天响应
type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// MessagesRequest Anthropic Messages 请求
type MessagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// MessagesResponse Anthropic Messages 响应
type MessagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Chat 发送对话请求，返回大模型回复文本
func (c *Client) Chat(ctx context.Context, systemPrompt, userContent string) (string, error) {
	if c.cfg.Provider == ProviderAnthropic {
		return c.messages(ctx, systemPrompt, userContent)
	}
	return c.chatCompletions(ctx, systemPrompt, userContent)
}

func (c *Client) chatCompletions(ctx context.Context, systemPrompt, userContent string) (string, error) {
	var chatResp ChatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(ChatRequest{
			Model: c.cfg.Model,
			Messages: []Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userContent},
			},
		}).
		SetResult(&chatResp).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("llm api error: %s %s", resp.Status(), resp.String())
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (c *Client) messages(ctx context.Context, systemPrompt, userContent string) (string, error) {
	var msgResp MessagesResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.cfg.APIKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetBody(MessagesRequest{
			Model:     c.cfg.Model,
			MaxTokens: defaultMaxTokens,
			System:    systemPrompt,
			Messages:  []Message{{Role: "user", Content: userContent}},
		}).
		SetResult(&msgResp).
		Post("/messages")
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("llm api error: %s %s", resp.Status(), resp.String())
	}
	for _, block := range msgResp.Content {
		if block.Type == "text" || block.Type == "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("empty content")
}
