package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"anime-api/internal/model"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type RegisteredUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type NewPost struct {
	Title       string  `json:"title"`
	EmbedURL    string  `json:"embed_url"`
	Description *string `json:"description,omitempty"`
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*RegisteredUser, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var user RegisteredUser
	if err := c.do(ctx, http.MethodPost, "/register", "application/json", bytes.NewReader(payload), "", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token via the password form.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.do(ctx, http.MethodPost, "/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), "", &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login succeeded but no token returned")
	}
	return out.AccessToken, nil
}

func (c *Client) CreatePost(ctx context.Context, token string, post NewPost) (*model.Post, error) {
	payload, err := json.Marshal(post)
	if err != nil {
		return nil, err
	}
	var created model.Post
	if err := c.do(ctx, http.MethodPost, "/posts", "application/json", bytes.NewReader(payload), token, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListPosts fetches one page. A negative limit leaves the server default.
func (c *Client) ListPosts(ctx context.Context, skip, limit int) ([]model.Post, error) {
	query := url.Values{"skip": {strconv.Itoa(skip)}}
	if limit >= 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var posts []model.Post
	if err := c.do(ctx, http.MethodGet, "/posts?"+query.Encode(), "", nil, "", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response failed: %w", err)
		}
	}
	return nil
}
