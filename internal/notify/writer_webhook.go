package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

const eventTypeHeader = "X-CounselPro-Event"

type WebhookOption func(w *WebhookWriter)

func WithWebhookBackOff(fn func() backoff.BackOff) WebhookOption {
	return func(w *WebhookWriter) {
		w.newBackOff = fn
	}
}

func WithWebhookClient(client *http.Client) WebhookOption {
	return func(w *WebhookWriter) {
		w.client = client
	}
}

// WebhookWriter posts each event as JSON to a subscriber URL.
type WebhookWriter struct {
	url        string
	client     *http.Client
	newBackOff func() backoff.BackOff
}

func NewWebhookWriter(url string, timeout time.Duration, opts ...WebhookOption) *WebhookWriter {
	w := &WebhookWriter{
		url:        url,
		client:     &http.Client{Timeout: timeout},
		newBackOff: defaultWebhookBackOff,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *WebhookWriter) Write(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	post := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(eventTypeHeader, e.Type)

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("webhook answered %s", resp.Status)
		default:
			return backoff.Permanent(fmt.Errorf("webhook answered %s", resp.Status))
		}
	}

	if err := backoff.Retry(post, backoff.WithContext(w.newBackOff(), ctx)); err != nil {
		return errors.Wrapf(err, "failed to post %s", e)
	}
	return nil
}

func (w *WebhookWriter) Close(_ context.Context) error {
	w.client.CloseIdleConnections()
	return nil
}

func defaultWebhookBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(b, 3)
}
