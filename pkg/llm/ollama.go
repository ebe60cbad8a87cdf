package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studymate-go/internal/config"
	"studymate-go/pkg/log"

	"github.com/gorilla/websocket"
	ollama "github.com/ollama/ollama/api"
)

// ollamaClient 通过本机 Ollama 服务生成回答，作为离线部署的备选后端。
type ollamaClient struct {
	client *ollama.Client
	cfg    config.LLMConfig
}

func newOllamaClient(cfg config.LLMConfig) (*ollamaClient, error) {
	host := cfg.OllamaHost
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	httpClient := &http.Client{Timeout: timeout}

	return &ollamaClient{
		client: ollama.NewClient(u, httpClient),
		cfg:    cfg,
	}, nil
}

// options 将生成参数映射为 Ollama 的请求选项（零值不下发）。
func (o *ollamaClient) options() map[string]any {
	opts := map[string]any{}
	gen := o.cfg.Generation
	if gen.Temperature != 0 {
		opts["temperature"] = gen.Temperature
	}
	if gen.TopP != 0 {
		opts["top_p"] = gen.TopP
	}
	if gen.MaxTokens != 0 {
		opts["num_predict"] = gen.MaxTokens
	}
	if gen.RepeatPenalty != 0 {
		opts["repeat_penalty"] = gen.RepeatPenalty
	}
	if gen.RepeatLastN != 0 {
		opts["repeat_last_n"] = gen.RepeatLastN
	}
	return opts
}

func (o *ollamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	log.Infof("[LLMClient] 开始调用 Ollama, model: %s, prompt_len: %d", o.cfg.OllamaModel, len(prompt))

	var text strings.Builder
	req := &ollama.GenerateRequest{
		Model:   o.cfg.OllamaModel,
		Prompt:  prompt,
		Options: o.options(),
	}

	if err := o.client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		if gr.Response != "" {
			text.WriteString(gr.Response)
		}
		return nil
	}); err != nil {
		log.Errorf("[LLMClient] 调用 Ollama 失败: %v", err)
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	return text.String(), nil
}

func (o *ollamaClient) StreamChatMessages(ctx context.Context, messages []Message, writer MessageWriter) error {
	// Ollama 走 generate 接口：把角色消息拼成单条 prompt 后流式输出
	var prompt strings.Builder
	for _, m := range messages {
		if m.Role == "system" {
			prompt.WriteString(m.Content)
			prompt.WriteString("\n\n")
			continue
		}
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}

	req := &ollama.GenerateRequest{
		Model:   o.cfg.OllamaModel,
		Prompt:  prompt.String(),
		Options: o.options(),
	}

	return o.client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		if gr.Response == "" {
			return nil
		}
		if err := writer.WriteMessage(websocket.TextMessage, []byte(gr.Response)); err != nil {
			return fmt.Errorf("failed to write message to websocket: %w", err)
		}
		return nil
	})
}
