package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultURL   = "https://api.deepgram.com/v1/listen"
	DefaultModel = "nova-3"

	language         = "en-US"
	utteranceSplit   = 0.8
	maxErrorBodySize = 4 << 10
)

// Client turns an audio file into a diarized Deepgram response.
type Client interface {
	Transcribe(ctx context.Context, audioPath string) (*Response, error)
}

// Response is the part of the Deepgram pre-recorded answer the service reads.
type Response struct {
	Metadata struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
		Channels  int     `json:"channels"`
	} `json:"metadata"`
	Results struct {
		Utterances []DeepgramUtterance `json:"utterances"`
	} `json:"results"`
}

type DeepgramUtterance struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Channel    int     `json:"channel"`
	Transcript string  `json:"transcript"`
	Speaker    int     `json:"speaker"`
}

type ClientOption func(c *DeepgramClient)

type DeepgramClient struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	log        *zap.SugaredLogger
}

func NewDeepgramClient(apiKey string, opts ...ClientOption) *DeepgramClient {
	c := &DeepgramClient{
		url:        DefaultURL,
		apiKey:     apiKey,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		newBackOff: defaultBackOff,
		log:        zap.S().Named("deepgram"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func WithURL(u string) ClientOption {
	return func(c *DeepgramClient) {
		if u != "" {
			c.url = u
		}
	}
}

func WithModel(model string) ClientOption {
	return func(c *DeepgramClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *DeepgramClient) {
		c.httpClient = client
	}
}

func WithBackOff(fn func() backoff.BackOff) ClientOption {
	return func(c *DeepgramClient) {
		c.newBackOff = fn
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.WithMaxRetries(b, 4)
}

// Transcribe uploads the audio file. Network errors, 429 and 5xx answers are retried; other
// answers fail at once.
func (c *DeepgramClient) Transcribe(ctx context.Context, audioPath string) (*Response, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	var resp Response
	op := func() error {
		return c.listen(ctx, endpoint, audioPath, &resp)
	}
	notify := func(err error, next time.Duration) {
		c.log.Warnw("transcription request failed", "error", err, "retry_in", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(c.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *DeepgramClient) listen(ctx context.Context, endpoint string, audioPath string, target *Response) error {
	f, err := os.Open(audioPath)
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "opening audio"))
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, f)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling deepgram")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		err := fmt.Errorf("deepgram answered %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return backoff.Permanent(errors.Wrap(err, "decoding deepgram response"))
	}
	return nil
}

func (c *DeepgramClient) endpoint() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", errors.Wrap(err, "parsing deepgram url")
	}

	q := u.Query()
	q.Set("model", c.model)
	q.Set("language", language)
	q.Set("punctuate", "true")
	q.Set("diarize", "true")
	q.Set("utterances", "true")
	q.Set("utt_split", strconv.FormatFloat(utteranceSplit, 'f', -1, 64))
	u.RawQuery = q.Encode()

	return u.String(), nil
}
