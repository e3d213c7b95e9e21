// Package bluesky delivers posts to an AT Protocol PDS. Publishing
// requires a session: Authenticate exchanges the identifier and app
// password for an access token and DID, both cached for the client's
// lifetime so a dispatch never logs in twice.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asocialdev/asocial/internal/platform"
)

// DefaultBaseURL is used when the platform row carries no api_url.
const DefaultBaseURL = "https://bsky.social"

const errBodyLimit = 512

// Credentials is the typed form of a bluesky platform row's credentials
// document.
type Credentials struct {
	Identifier  string `json:"identifier"`
	AppPassword string `json:"app_password"`
}

// Client is a session-based Bluesky adapter.
type Client struct {
	baseURL    string
	identifier string
	password   string
	client     *http.Client

	accessJwt string
	did       string
}

// NewClient decodes the credentials blob. A missing identifier or app
// password is ErrInvalidCredentials.
func NewClient(credentials json.RawMessage, apiURL string, timeout time.Duration) (*Client, error) {
	var creds Credentials
	if err := json.Unmarshal(credentials, &creds); err != nil {
		return nil, fmt.Errorf("%w: bluesky: %v", platform.ErrInvalidCredentials, err)
	}
	if strings.TrimSpace(creds.Identifier) == "" {
		return nil, fmt.Errorf("%w: bluesky: identifier is missing", platform.ErrInvalidCredentials)
	}
	if strings.TrimSpace(creds.AppPassword) == "" {
		return nil, fmt.Errorf("%w: bluesky: app_password is missing", platform.ErrInvalidCredentials)
	}

	base := strings.TrimSpace(apiURL)
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		identifier: creds.Identifier,
		password:   creds.AppPassword,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Name() string { return "bluesky" }

// Authenticate creates a session and caches the access token and DID.
func (c *Client) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(createSessionRequest{
		Identifier: c.identifier,
		Password:   c.password,
	})
	if err != nil {
		return fmt.Errorf("encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/xrpc/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return platform.ClassifyTransportError("bluesky", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read session response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp.StatusCode, respBody)
	}

	var session createSessionResponse
	if err := json.Unmarshal(respBody, &session); err != nil {
		return fmt.Errorf("decode session response: %w", err)
	}
	if session.AccessJwt == "" || session.Did == "" {
		return fmt.Errorf("session response missing accessJwt or did")
	}

	c.accessJwt = session.AccessJwt
	c.did = session.Did
	return nil
}

// Publish creates an app.bsky.feed.post record. Requires a prior
// successful Authenticate; returns ErrNotAuthenticated otherwise without
// touching the network.
func (c *Client) Publish(ctx context.Context, content platform.Content) (string, error) {
	if c.accessJwt == "" || c.did == "" {
		return "", fmt.Errorf("bluesky: %w", platform.ErrNotAuthenticated)
	}

	body, err := json.Marshal(createRecordRequest{
		Repo:       c.did,
		Collection: "app.bsky.feed.post",
		Record: postRecord{
			Type:      "app.bsky.feed.post",
			Text:      content.Text,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/xrpc/com.atproto.repo.createRecord", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessJwt)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", platform.ClassifyTransportError("bluesky", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read record response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.statusError(resp.StatusCode, respBody)
	}

	return string(respBody), nil
}

func (c *Client) statusError(code int, body []byte) error {
	if platform.AuthStatus(code) {
		return &platform.AuthError{Platform: "bluesky", StatusCode: code}
	}
	detail := string(body)
	if len(detail) > errBodyLimit {
		detail = detail[:errBodyLimit]
	}
	return &platform.APIError{Platform: "bluesky", StatusCode: code, Body: detail}
}

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type createSessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type postRecord struct {
	Type      string `json:"$type"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// Compile-time checks.
var (
	_ platform.Client        = (*Client)(nil)
	_ platform.Authenticator = (*Client)(nil)
)
