package media

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const fileScheme = "file://"

// FileResolver reads recordings from the local filesystem, either file:// URIs or plain paths.
type FileResolver struct{}

func NewFileResolver() *FileResolver {
	return &FileResolver{}
}

func (f *FileResolver) Supports(ref string) bool {
	if strings.HasPrefix(ref, fileScheme) {
		return true
	}
	return ref != "" && !strings.Contains(ref, "://")
}

func (f *FileResolver) Fetch(ctx context.Context, ref string, dst io.Writer) error {
	path := strings.TrimPrefix(ref, fileScheme)

	src, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening recording %s", path)
	}
	defer src.Close()

	if _, err := io.Copy(dst, &contextReader{ctx: ctx, r: src}); err != nil {
		return errors.Wrapf(err, "copying recording %s", path)
	}
	return nil
}

func (f *FileResolver) Type() string {
	return "file"
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
