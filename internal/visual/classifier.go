package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
)

const maxErrorBodySize = 4 << 10

// Observation is what the classifier saw of one participant in one frame.
type Observation struct {
	ParticipantID string `json:"id"`
	CameraOn      bool   `json:"cameraOn"`
	StaticImage   bool   `json:"staticImage"`
}

// Rating scores one aspect of the counselor's environment from 0 to 100.
type Rating struct {
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// FrameLabel is the classification of a single frame.
type FrameLabel struct {
	Participants []Observation `json:"participants"`
	Attire       *Rating       `json:"attire,omitempty"`
	Background   *Rating       `json:"background,omitempty"`
}

// FrameClassifier labels a frame. Implementations must be safe for concurrent use.
type FrameClassifier interface {
	Classify(ctx context.Context, frame pipeline.Frame) (FrameLabel, error)
}

// HttpClassifier posts each JPEG frame to a vision endpoint answering with a FrameLabel.
type HttpClassifier struct {
	url    string
	client *http.Client
}

func NewHttpClassifier(endpoint string, timeout time.Duration) *HttpClassifier {
	return &HttpClassifier{
		url:    endpoint,
		client: &http.Client{Timeout: timeout},
	}
}

func (h *HttpClassifier) Classify(ctx context.Context, frame pipeline.Frame) (FrameLabel, error) {
	var label FrameLabel

	data, err := os.ReadFile(frame.Path)
	if err != nil {
		return label, errors.Wrap(err, "reading frame")
	}

	u, err := url.Parse(h.url)
	if err != nil {
		return label, errors.Wrap(err, "parsing vision url")
	}
	q := u.Query()
	q.Set("offset", strconv.FormatFloat(frame.Offset, 'f', 2, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return label, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := h.client.Do(req)
	if err != nil {
		return label, errors.Wrap(err, "calling vision endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return label, fmt.Errorf("vision endpoint answered %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&label); err != nil {
		return label, errors.Wrap(err, "decoding frame label")
	}
	return label, nil
}
