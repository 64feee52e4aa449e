package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultPollInterval is the delay between run status checks.
	DefaultPollInterval = 1 * time.Second

	// DefaultMaxAttempts is the default poll attempt budget. Polling is
	// always bounded; a run stuck in a non-terminal state yields
	// ErrPollTimeout rather than hanging forever.
	DefaultMaxAttempts = 30

	// FallbackReply is returned when a completed run yields no
	// extractable assistant text.
	FallbackReply = "The assistant did not return a response."

	// fileContentSeparator joins a user message with text extracted from
	// an uploaded file.
	fileContentSeparator = "\n\nContent from uploaded file:\n"
)

// ErrPollTimeout is returned when the attempt budget is exhausted before
// the run reaches a terminal state. It is distinct from a remote failure:
// the run may still complete on the service side, but the caller has
// stopped waiting.
var ErrPollTimeout = errors.New("assistant response timed out")

// RunFailure is returned when a run ends in a terminal failure state
// (failed, cancelled, or expired). It carries the remote status and any
// diagnostic the service provided.
type RunFailure struct {
	Status string
	Detail string
}

func (e *RunFailure) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("assistant run %s", e.Status)
	}
	return fmt.Sprintf("assistant run %s: %s", e.Status, e.Detail)
}

// PollConfig tunes the polling protocol.
type PollConfig struct {
	// Interval is the initial delay between status checks.
	// Zero means DefaultPollInterval.
	Interval time.Duration

	// MaxInterval, when greater than Interval, enables capped exponential
	// backoff: the delay doubles after each check until it reaches
	// MaxInterval. Zero keeps a fixed interval.
	MaxInterval time.Duration

	// MaxAttempts bounds the number of status checks.
	// Zero means DefaultMaxAttempts; polling is never unbounded.
	MaxAttempts int
}

func (cfg PollConfig) withDefaults() PollConfig {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return cfg
}

// Request describes one conversation turn to be answered by the assistant.
type Request struct {
	// Message is the user's text. Must be non-empty.
	Message string

	// FileContent is optional enrichment text extracted from an uploaded
	// file, appended to the message after a separator.
	FileContent string

	// History holds prior turns replayed into the fresh remote thread so
	// the assistant sees the conversation so far. Ordered oldest first.
	History []Turn
}

// enrichedContent builds the final user turn submitted to the thread.
func (r Request) enrichedContent() string {
	if r.FileContent == "" {
		return r.Message
	}
	return r.Message + fileContentSeparator + r.FileContent
}

// AwaitReply obtains exactly one assistant reply for the request.
//
// It opens a fresh thread, replays history, submits the (possibly
// enriched) user message, starts a run, and polls the run status until it
// reaches a terminal state or the attempt budget runs out. The remote
// operation is asynchronous; this call converts it into ordinary
// request/response with latency bounded by attempts and interval.
//
// Cancelling ctx aborts polling between checks, so a disconnected caller
// does not keep a poll loop alive. The remote run itself is not cancelled
// and runs to completion or expiry on the service side.
//
// Error taxonomy:
//   - *RunFailure for a run that ends failed, cancelled, or expired.
//     Terminal failures are reported immediately and never resubmitted.
//   - ErrPollTimeout when the budget is exhausted first.
//   - ctx.Err() when the caller goes away.
//   - transport errors from the underlying client otherwise.
func (c *Client) AwaitReply(ctx context.Context, req Request, cfg PollConfig) (string, error) {
	if req.Message == "" {
		return "", errors.New("message cannot be empty")
	}
	for _, turn := range req.History {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			return "", fmt.Errorf("invalid history role: %q", turn.Role)
		}
	}
	cfg = cfg.withDefaults()

	thread, err := c.CreateThread(ctx)
	if err != nil {
		return "", err
	}

	for _, turn := range req.History {
		if err := c.AddMessage(ctx, thread.ID, turn.Role, turn.Content); err != nil {
			return "", err
		}
	}

	if err := c.AddMessage(ctx, thread.ID, RoleUser, req.enrichedContent()); err != nil {
		return "", err
	}

	run, err := c.StartRun(ctx, thread.ID)
	if err != nil {
		return "", err
	}

	if err := c.pollRun(ctx, thread.ID, run.ID, cfg); err != nil {
		return "", err
	}

	return c.latestReply(ctx, thread.ID)
}

// pollRun checks run status until completion, a terminal failure, or
// budget exhaustion.
func (c *Client) pollRun(ctx context.Context, threadID, runID string, cfg PollConfig) error {
	interval := cfg.Interval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		run, err := c.GetRun(ctx, threadID, runID)
		if err != nil {
			return err
		}

		switch run.Status {
		case StatusCompleted:
			return nil
		case StatusFailed, StatusCancelled, StatusExpired:
			detail := ""
			if run.LastError != nil {
				detail = run.LastError.Message
			}
			return &RunFailure{Status: run.Status, Detail: detail}
		}

		// Still queued or in progress; wait for the next check unless the
		// caller has gone away.
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if cfg.MaxInterval > cfg.Interval {
			interval *= 2
			if interval > cfg.MaxInterval {
				interval = cfg.MaxInterval
			}
		}
	}

	return ErrPollTimeout
}

// latestReply extracts the text of the most recent assistant turn in the
// thread. A completed run with no extractable text yields FallbackReply
// rather than an error.
func (c *Client) latestReply(ctx context.Context, threadID string) (string, error) {
	messages, err := c.ListMessages(ctx, threadID)
	if err != nil {
		return "", err
	}

	// Listing is ordered newest first; the first assistant entry is the
	// reply to the run that just completed.
	for _, msg := range messages {
		if msg.Role != RoleAssistant {
			continue
		}
		for _, block := range msg.Content {
			if block.Type == "text" && block.Text != nil && block.Text.Value != "" {
				return block.Text.Value, nil
			}
		}
		break
	}

	return FallbackReply, nil
}
