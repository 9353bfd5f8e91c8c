package relayctl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	v1 "github.com/kiosk404/ragrelay/internal/ragrelay/handler/v1"
	"github.com/kiosk404/ragrelay/pkg/core"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("server returned %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the ragrelay /v1 API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: httpClient,
	}
}

// AskStream is an open frame stream. The caller closes Body.
type AskStream struct {
	ChatID string
	Body   io.ReadCloser
}

// Ask starts a turn in chatID, or in a new chat when chatID is empty.
func (c *Client) Ask(ctx context.Context, chatID, question string) (*AskStream, error) {
	stream := true
	body, err := json.Marshal(v1.CreateChatRequest{
		ChatID:   chatID,
		Messages: []v1.ChatMessage{{Role: "user", Content: question}},
		Stream:   &stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/chats", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return &AskStream{ChatID: resp.Header.Get(v1.HeaderChatID), Body: resp.Body}, nil
}

func (c *Client) Tools(ctx context.Context) ([]v1.ToolResponse, error) {
	var out struct {
		Data []v1.ToolResponse `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/tools", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Chats(ctx context.Context) ([]v1.ChatResponse, error) {
	var out struct {
		Data []v1.ChatResponse `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/chats", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Chat(ctx context.Context, id string) (*v1.ChatDetailResponse, error) {
	var out v1.ChatDetailResponse
	if err := c.do(ctx, http.MethodGet, "/v1/chats/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteChat(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/chats/"+url.PathEscape(id), nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := c.newRequest(ctx, method, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	var body core.ErrResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}
