// Package platform defines the delivery adapter contract: every external
// network gets one Client implementation that authenticates (if the
// platform needs a session) and submits content, translating the remote
// response into the shared error taxonomy.
package platform

import "context"

// Content is what an adapter publishes: the post text and any media
// attachment paths, for platforms that support them.
type Content struct {
	Text       string
	MediaPaths []string
}

// Client submits content to one external platform. Implementations carry
// their own credentials and never retry internally; retry is the queue's
// responsibility.
type Client interface {
	Name() string
	// Publish submits the content and returns the platform's raw response
	// body as a delivery receipt.
	Publish(ctx context.Context, content Content) (string, error)
}

// Authenticator is implemented by session-based clients. Authenticate must
// be called and succeed before Publish; the acquired session is cached for
// the client's lifetime.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}
