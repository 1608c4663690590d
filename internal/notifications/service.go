package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"liftdb/internal/config"
)

const userAgent = "liftdb/0.1.0"

// Service defines the notification surface exposed to the batch runner.
type Service interface {
	NotifyBatchStarted(ctx context.Context, batchID string, rows int) error
	NotifyBatchCompleted(ctx context.Context, batchID string, resolved, created, queued int, duration time.Duration) error
	NotifyIntegrityConflict(ctx context.Context, name, detail string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		batch:     cfg.Notifications.Batch,
		conflicts: cfg.Notifications.Conflicts,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	batch     bool
	conflicts bool
	errors    bool
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, batchID string, rows int) error {
	if !n.batch {
		return nil
	}
	data := payload{
		title:   "liftdb - Batch Started",
		message: fmt.Sprintf("Started batch %s with %d rows", strings.TrimSpace(batchID), rows),
		tags:    []string{"liftdb", "batch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, batchID string, resolved, created, queued int, duration time.Duration) error {
	if !n.batch {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if queued == 0 {
		title = "liftdb - Batch Complete"
		message = fmt.Sprintf("Batch %s complete: %d resolved, %d created in %s", strings.TrimSpace(batchID), resolved, created, durationText)
	} else {
		title = "liftdb - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch %s complete: %d resolved, %d created, %d queued for reprocessing in %s", strings.TrimSpace(batchID), resolved, created, queued, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"liftdb", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyIntegrityConflict(ctx context.Context, name, detail string) error {
	if !n.conflicts {
		return nil
	}
	name = strings.TrimSpace(name)
	detail = strings.TrimSpace(detail)
	message := fmt.Sprintf("Integrity conflict on %s", name)
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	data := payload{
		title:    "liftdb - Integrity Conflict",
		message:  message,
		tags:     []string{"liftdb", "conflict", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "liftdb - Error",
		message:  builder.String(),
		tags:     []string{"liftdb", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "liftdb - Test",
		message:  "Notification system test",
		tags:     []string{"liftdb", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Noop returns a notifier that silently discards every event.
func Noop() Service {
	return noopService{}
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyBatchCompleted(context.Context, string, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyIntegrityConflict(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error              { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
