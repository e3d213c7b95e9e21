// Package dispatch drives claimed jobs through their platform adapter
// and records the terminal outcome. One Dispatcher serves all platforms;
// a fresh adapter client is built per job so no credentials or session
// state is shared between deliveries.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/asocialdev/asocial/internal/activity"
	"github.com/asocialdev/asocial/internal/platform"
	"github.com/asocialdev/asocial/internal/store"
	"github.com/asocialdev/asocial/pkg/models"
)

// Outcome statuses.
const (
	StatusDelivered       = "delivered"
	StatusFailed          = "failed"
	StatusRequeued        = "requeued"
	StatusUnknownPlatform = "unknown_platform"
)

// Outcome is the result of one dispatch cycle for one job.
type Outcome struct {
	JobID    uuid.UUID
	Platform string
	Status   string
	Receipt  string
	Detail   string
}

// ClientBuilder constructs a platform adapter from a name and stored
// credentials. Satisfied by registry.Registry.
type ClientBuilder interface {
	Client(name string, credentials json.RawMessage, apiURL string) (platform.Client, error)
}

// Dispatcher delivers one claimed job at a time. It owns the full cycle
// from payload assembly to outcome write-back: a job handed to Dispatch
// always leaves processing before the call returns.
type Dispatcher struct {
	store       store.Store
	registry    ClientBuilder
	feed        activity.Feed
	timeout     time.Duration
	maxAttempts int
}

// NewDispatcher creates a Dispatcher. timeout bounds each delivery;
// maxAttempts bounds how many times a transiently failing job is
// requeued.
func NewDispatcher(st store.Store, reg ClientBuilder, feed activity.Feed, timeout time.Duration, maxAttempts int) *Dispatcher {
	return &Dispatcher{
		store:       st,
		registry:    reg,
		feed:        feed,
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

// Dispatch delivers a claimed job and writes its outcome back to the
// store. The job must be in processing (held by the caller via
// ClaimNextJob). The returned Outcome mirrors what was recorded; the
// error return covers only outcome write-back failures, never delivery
// failures, which are terminal states of the job itself.
func (d *Dispatcher) Dispatch(ctx context.Context, job *models.Job) (Outcome, error) {
	payload, err := d.store.GetJobPayload(ctx, job.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The post or platform row vanished under the job. Nothing to
			// deliver and nothing a retry could recover.
			return d.fail(ctx, job, "", fmt.Sprintf("payload unavailable: %v", err))
		}
		return Outcome{}, fmt.Errorf("loading payload for job %s: %w", job.ID, err)
	}

	client, err := d.registry.Client(payload.PlatformName, payload.Credentials, deref(payload.APIURL))
	if err != nil {
		if errors.Is(err, platform.ErrUnknownPlatform) {
			slog.Warn("no adapter for platform", "job_id", job.ID, "platform", payload.PlatformName)
			return d.record(ctx, job, payload.PlatformName, StatusUnknownPlatform, "", err.Error(),
				d.store.MarkJobFailed(ctx, job.ID, err.Error()))
		}
		// Invalid or malformed credentials: terminal, surfaced verbatim.
		return d.fail(ctx, job, payload.PlatformName, err.Error())
	}

	dctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if auth, ok := client.(platform.Authenticator); ok {
		if err := auth.Authenticate(dctx); err != nil {
			slog.Warn("platform authentication failed",
				"job_id", job.ID, "platform", payload.PlatformName, "error", err)
			return d.fail(ctx, job, payload.PlatformName, err.Error())
		}
	}

	receipt, err := client.Publish(dctx, platform.Content{
		Text:       payload.Content,
		MediaPaths: payload.MediaPaths,
	})
	if err != nil {
		if platform.Transient(err) && job.AttemptCount < d.maxAttempts {
			slog.Info("requeueing job after transient failure",
				"job_id", job.ID, "platform", payload.PlatformName,
				"attempt", job.AttemptCount, "error", err)
			return d.record(ctx, job, payload.PlatformName, StatusRequeued, "", err.Error(),
				d.store.RequeueJob(ctx, job.ID, err.Error()))
		}
		return d.fail(ctx, job, payload.PlatformName, err.Error())
	}

	slog.Info("job delivered", "job_id", job.ID, "platform", payload.PlatformName)
	return d.record(ctx, job, payload.PlatformName, StatusDelivered, receipt, "",
		d.store.MarkJobDelivered(ctx, job.ID))
}

func (d *Dispatcher) fail(ctx context.Context, job *models.Job, platformName, detail string) (Outcome, error) {
	slog.Warn("job failed", "job_id", job.ID, "platform", platformName, "error", detail)
	return d.record(ctx, job, platformName, StatusFailed, "", detail,
		d.store.MarkJobFailed(ctx, job.ID, detail))
}

// record assembles the Outcome, surfaces the store write-back error, and
// appends to the activity feed. Feed failures are logged, never fatal;
// the store is the source of truth.
func (d *Dispatcher) record(ctx context.Context, job *models.Job, platformName, status, receipt, detail string, storeErr error) (Outcome, error) {
	outcome := Outcome{
		JobID:    job.ID,
		Platform: platformName,
		Status:   status,
		Receipt:  receipt,
		Detail:   detail,
	}

	if storeErr != nil {
		return outcome, fmt.Errorf("recording %s outcome for job %s: %w", status, job.ID, storeErr)
	}

	if err := d.feed.Record(ctx, activity.Entry{
		JobID:      job.ID,
		Platform:   platformName,
		Status:     status,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		slog.Warn("activity feed write failed", "job_id", job.ID, "error", err)
	}

	return outcome, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
