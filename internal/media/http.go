package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type HttpResolver struct {
	client *http.Client
}

func NewHttpResolver(client *http.Client) *HttpResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HttpResolver{client: client}
}

func (h *HttpResolver) Supports(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func (h *HttpResolver) Fetch(ctx context.Context, ref string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return NewInvalidRefError(ref, err.Error())
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "requesting %s", ref)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download recording %q, status code: %d", ref, resp.StatusCode)
	}

	totalSize := int64(0)
	if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
		totalSize = n
	}

	newCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pw := newProgressWriter(newCtx, dst, totalSize)

	if _, err := io.Copy(pw, resp.Body); err != nil {
		return errors.Wrapf(err, "downloading %s", ref)
	}

	return pw.complete()
}

func (h *HttpResolver) Type() string {
	return "http"
}
