package vk_api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://api.vk.com/method"
	DefaultAPIVersion = "5.199"
	httpTimeout       = 10 * time.Second
)

// APIError is an error envelope returned by the VK API.
type APIError struct {
	Code int    `json:"error_code"`
	Msg  string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Msg)
}

type apiResponse struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// Client calls VK API methods on behalf of a community.
type Client struct {
	token   string
	groupID int64
	version string
	baseURL string
	client  *http.Client
}

// New creates a client authenticated with a community access token.
func New(token string, groupID int64) *Client {
	return &Client{
		token:   token,
		groupID: groupID,
		version: DefaultAPIVersion,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// WithBaseURL sets a custom base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// WithVersion sets the API version sent with every call.
func (c *Client) WithVersion(v string) *Client {
	if v != "" {
		c.version = v
	}
	return c
}

// Call invokes method with params and decodes the "response" field into out.
// out may be nil.
func (c *Client) Call(ctx context.Context, method string, params url.Values, out any) error {
	form := url.Values{}
	for k, v := range params {
		form[k] = v
	}
	form.Set("access_token", c.token)
	form.Set("v", c.version)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %d", method, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if body.Error != nil {
		return fmt.Errorf("%s: %w", method, body.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body.Response, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// SendMessage posts text to a peer. randomID deduplicates retried sends on
// the VK side.
func (c *Client) SendMessage(ctx context.Context, peerID int64, text string, randomID int32) error {
	return c.Call(ctx, "messages.send", url.Values{
		"peer_id":   {strconv.FormatInt(peerID, 10)},
		"random_id": {strconv.FormatInt(int64(randomID), 10)},
		"message":   {text},
	}, nil)
}

// SetOnline toggles the community's online status.
func (c *Client) SetOnline(ctx context.Context, online bool) error {
	method := "groups.disableOnline"
	if online {
		method = "groups.enableOnline"
	}
	return c.Call(ctx, method, url.Values{"group_id": {strconv.FormatInt(c.groupID, 10)}}, nil)
}

// LongPollServer holds the Bots Long Poll connection parameters.
type LongPollServer struct {
	Key    string `json:"key"`
	Server string `json:"server"`
	TS     TS     `json:"ts"`
}

// GetLongPollServer requests long-poll parameters for the community.
func (c *Client) GetLongPollServer(ctx context.Context) (LongPollServer, error) {
	var srv LongPollServer
	err := c.Call(ctx, "groups.getLongPollServer", url.Values{
		"group_id": {strconv.FormatInt(c.groupID, 10)},
	}, &srv)
	return srv, err
}

// TS is a long-poll cursor. VK sends it as either a JSON string or number.
type TS string

func (t *TS) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TS(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("ts: %w", err)
	}
	*t = TS(n.String())
	return nil
}
