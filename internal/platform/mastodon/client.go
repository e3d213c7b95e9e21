// Package mastodon delivers posts to a Mastodon instance with a
// long-lived bearer token. Media attachments are uploaded first, then the
// status referencing them is created.
package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asocialdev/asocial/internal/platform"
)

const errBodyLimit = 512

// Credentials is the typed form of a mastodon platform row's credentials
// document.
type Credentials struct {
	AccessToken string `json:"access_token"`
}

// Client is a stateless-token Mastodon adapter.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient decodes the credentials blob and builds a client for one
// instance. The instance base URL comes from the platform row's api_url;
// a missing URL or token is ErrInvalidCredentials, never defaulted.
func NewClient(credentials json.RawMessage, apiURL string, timeout time.Duration) (*Client, error) {
	var creds Credentials
	if err := json.Unmarshal(credentials, &creds); err != nil {
		return nil, fmt.Errorf("%w: mastodon: %v", platform.ErrInvalidCredentials, err)
	}
	if strings.TrimSpace(creds.AccessToken) == "" {
		return nil, fmt.Errorf("%w: mastodon: access_token is missing", platform.ErrInvalidCredentials)
	}
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("%w: mastodon: instance URL is missing", platform.ErrInvalidCredentials)
	}

	return &Client{
		baseURL: strings.TrimRight(apiURL, "/"),
		token:   creds.AccessToken,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Name() string { return "mastodon" }

// Publish uploads any media attachments, then creates the status. The raw
// response body of the status create is the delivery receipt.
func (c *Client) Publish(ctx context.Context, content platform.Content) (string, error) {
	mediaIDs := make([]string, 0, len(content.MediaPaths))
	for _, path := range content.MediaPaths {
		id, err := c.uploadMedia(ctx, path)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, id)
	}

	body, err := json.Marshal(statusRequest{
		Status:   content.Text,
		MediaIDs: mediaIDs,
	})
	if err != nil {
		return "", fmt.Errorf("encode status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/statuses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", platform.ClassifyTransportError("mastodon", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read status response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.statusError(resp.StatusCode, respBody)
	}

	return string(respBody), nil
}

// uploadMedia sends one attachment to the media endpoint and returns the
// server-assigned id.
func (c *Client) uploadMedia(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build media form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read media %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish media form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/media", &buf)
	if err != nil {
		return "", fmt.Errorf("build media request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", platform.ClassifyTransportError("mastodon", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read media response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.statusError(resp.StatusCode, respBody)
	}

	var media mediaResponse
	if err := json.Unmarshal(respBody, &media); err != nil {
		return "", fmt.Errorf("decode media response: %w", err)
	}
	if media.ID == "" {
		return "", fmt.Errorf("media response for %s has no id", path)
	}
	return media.ID, nil
}

func (c *Client) statusError(code int, body []byte) error {
	if platform.AuthStatus(code) {
		return &platform.AuthError{Platform: "mastodon", StatusCode: code}
	}
	detail := string(body)
	if len(detail) > errBodyLimit {
		detail = detail[:errBodyLimit]
	}
	return &platform.APIError{Platform: "mastodon", StatusCode: code, Body: detail}
}

type statusRequest struct {
	Status   string   `json:"status"`
	MediaIDs []string `json:"media_ids,omitempty"`
}

type mediaResponse struct {
	ID string `json:"id"`
}

// Compile-time check that Client implements platform.Client.
var _ platform.Client = (*Client)(nil)
