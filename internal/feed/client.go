package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feed: server returned %d: %s", e.Status, e.Message)
}

// Client talks to the service's HTTP API on behalf of one session.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the API rooted at baseURL using the bearer token.
// httpClient may be nil.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

type postsPage struct {
	Posts      []Post                 `json:"posts"`
	Pagination registrystore.PageInfo `json:"pagination"`
}

// ProfileFeed returns a Fetcher for the posts of authorID.
func (c *Client) ProfileFeed(authorID uuid.UUID) Fetcher {
	return fetcherFunc(func(ctx context.Context, page, limit int) ([]Post, registrystore.PageInfo, error) {
		q := url.Values{"authorId": {authorID.String()}}
		return c.fetchPosts(ctx, "/v1/posts", q, page, limit)
	})
}

// SavedFeed returns a Fetcher for the session user's saved posts.
func (c *Client) SavedFeed() Fetcher {
	return fetcherFunc(func(ctx context.Context, page, limit int) ([]Post, registrystore.PageInfo, error) {
		return c.fetchPosts(ctx, "/v1/users/me/saved", url.Values{}, page, limit)
	})
}

func (c *Client) fetchPosts(ctx context.Context, path string, q url.Values, page, limit int) ([]Post, registrystore.PageInfo, error) {
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out postsPage
	if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), &out); err != nil {
		return nil, registrystore.PageInfo{}, err
	}
	return out.Posts, out.Pagination, nil
}

// Like likes a post.
func (c *Client) Like(ctx context.Context, postID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/v1/posts/"+postID.String()+"/like", nil)
}

// Unlike removes the session user's like from a post.
func (c *Client) Unlike(ctx context.Context, postID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/v1/posts/"+postID.String()+"/like", nil)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feed: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("feed: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("feed: parse response: %w", err)
	}
	return nil
}

type fetcherFunc func(ctx context.Context, page, limit int) ([]Post, registrystore.PageInfo, error)

func (f fetcherFunc) FetchPage(ctx context.Context, page, limit int) ([]Post, registrystore.PageInfo, error) {
	return f(ctx, page, limit)
}

var _ Liker = (*Client)(nil)
