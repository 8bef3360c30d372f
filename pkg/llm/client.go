// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider is an OpenAI-compatible chat-completions client. It satisfies
// cognitive.LLMProvider.
type Provider struct {
	cfg        Config
	httpClient *http.Client
}

// New builds a Provider from cfg, defaulting Timeout/MaxTokens when zero.
// A zero Temperature is kept as is.
func New(cfg Config) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return &Provider{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

const defaultTimeout = 30 * time.Second

// Generate makes a single non-streaming completion call.
func (p *Provider) Generate(ctx context.Context, prompt, system string, temperature float64) (string, error) {
	messages := buildMessages(system, prompt)
	req := &chatCompletionRequest{
		Model: p.cfg.Model, Messages: messages,
		Temperature: resolveTemperature(p.cfg.Temperature, temperature), MaxTokens: p.cfg.MaxTokens,
	}
	resp, err := p.call(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response from %s", p.cfg.BaseURL)
	}
	return resp.Choices[0].Message.Content, nil
}

// Chat sends a full message history and returns the assistant's reply.
func (p *Provider) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	req := &chatCompletionRequest{
		Model: p.cfg.Model, Messages: messages,
		Temperature: resolveTemperature(p.cfg.Temperature, temperature), MaxTokens: p.cfg.MaxTokens,
	}
	resp, err := p.call(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response from %s", p.cfg.BaseURL)
	}
	return resp.Choices[0].Message.Content, nil
}

func resolveTemperature(def, override float64) float64 {
	if override != 0 {
		return override
	}
	return def
}

func buildMessages(system, prompt string) []Message {
	var messages []Message
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	return append(messages, Message{Role: "user", Content: prompt})
}

func (p *Provider) call(ctx context.Context, req *chatCompletionRequest) (*chatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	p.setHeaders(httpReq)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("llm: unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("llm: API error: %s (%s)", resp.Error.Message, resp.Error.Type)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: HTTP %d: %s", httpResp.StatusCode, string(respBody))
	}
	return &resp, nil
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
}

// GenerateStream makes a streaming completion call, delivering content
// deltas on the returned channel as they arrive over SSE. Both channels
// close when the stream ends; at most one error is ever sent.
func (p *Provider) GenerateStream(ctx context.Context, prompt, system string, temperature float64) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		req := &chatCompletionRequest{
			Model: p.cfg.Model, Messages: buildMessages(system, prompt),
			Temperature: resolveTemperature(p.cfg.Temperature, temperature), MaxTokens: p.cfg.MaxTokens,
			Stream: true,
		}
		body, err := json.Marshal(req)
		if err != nil {
			errs <- fmt.Errorf("llm: marshal request: %w", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
		if err != nil {
			errs <- fmt.Errorf("llm: build request: %w", err)
			return
		}
		p.setHeaders(httpReq)

		httpResp, err := p.httpClient.Do(httpReq)
		if err != nil {
			errs <- fmt.Errorf("llm: request failed: %w", err)
			return
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(httpResp.Body)
			errs <- fmt.Errorf("llm: HTTP %d: %s", httpResp.StatusCode, string(respBody))
			return
		}

		scanner := bufio.NewScanner(httpResp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}
			var chunk chatCompletionStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				select {
				case chunks <- delta:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("llm: reading stream: %w", err)
		}
	}()

	return chunks, errs
}
