// Package analyzer реализует клиент LLM‑провайдера Groq для построения
// краткого рыночного отчёта по тикеру криптовалюты.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// Client — HTTP‑клиент Groq chat completions.
type Client struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

// New создает Client с заданным ключом, моделью и таймаутом запроса.
// Пустой apiURL означает боевой адрес Groq.
func New(apiKey, model, apiURL string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []message `json:"messages"`
	Model    string    `json:"model"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Шаблоны запроса к модели по языку пользователя.
var promptTemplates = map[string]string{
	"ar": "قم بتحليل العملة الرقمية %s، واذكر وضعها الحالي في السوق، أهم نقاط الدعم والمقاومة، احتمالية صعودها خلال الأسبوعين القادمين، وهل يُنصح بشرائها الآن أم لا؟ بصيغة تقرير واضح ومختصر.",
	"en": "Analyze the cryptocurrency %s: its current market position, key support and resistance levels, the likelihood of growth over the next two weeks, and whether buying now is advisable. Answer as a clear, concise report.",
}

// Analyze строит отчёт по тикеру на языке пользователя.
// Неизвестный язык откатывается к арабскому.
func (c *Client) Analyze(ctx context.Context, symbol, language string) (string, error) {
	const op = "analyzer.Analyze"

	template, ok := promptTemplates[language]
	if !ok {
		template = promptTemplates["ar"]
	}
	prompt := fmt.Sprintf(template, symbol)

	payload, err := json.Marshal(chatRequest{
		Messages: []message{{Role: "user", Content: prompt}},
		Model:    c.model,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices in response", op)
	}
	return chat.Choices[0].Message.Content, nil
}
