// Package paymentprovider реализует клиента платёжного провайдера.
// Счёт создаётся fire-and-forget: его жизненным циклом владеет провайдер,
// права доступа выдаются только обработчиком webhook-уведомлений.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт нового клиента NOWPayments.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		apiURL:     "https://api.nowpayments.io/v1",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewClientWithURL создаёт клиента с явным адресом API, используется в тестах.
func NewClientWithURL(apiKey, apiURL string, timeout time.Duration) *Client {
	c := NewClient(apiKey, timeout)
	c.apiURL = apiURL
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	// Ключ идемпотентности на случай сетевого повтора запроса
	req.Header.Set("X-Idempotency-Key", uuid.NewString())
	return req, nil
}

// CreateInvoice отправляет запрос на создание счёта и возвращает
// пользовательскую ссылку на оплату. Таймаут ограничен httpClient;
// ошибка видима вызывающему и не меняет локального состояния.
func (c *Client) CreateInvoice(ctx context.Context, reqParams CreateInvoiceRequest) (*CreateInvoiceResponse, error) {
	req, err := c.newRequest(ctx, "POST", "/invoice", reqParams)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var invoiceResp CreateInvoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&invoiceResp); err != nil {
		return nil, err
	}
	return &invoiceResp, nil
}
