package media

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Resolver fetches the recording behind a reference.
type Resolver interface {
	Supports(ref string) bool
	Fetch(ctx context.Context, ref string, dst io.Writer) error
	Type() string
}

// Manager tries its resolvers in registration order and stops at the first successful fetch.
type Manager struct {
	resolvers map[int]Resolver // keep them in the order of the registration
}

func NewResolverManager() *Manager {
	return &Manager{
		resolvers: map[int]Resolver{},
	}
}

func (m *Manager) Register(resolver Resolver) *Manager {
	m.resolvers[len(m.resolvers)] = resolver
	return m
}

func (m *Manager) Supports(ref string) bool {
	for i := 0; i < len(m.resolvers); i++ {
		if m.resolvers[i].Supports(ref) {
			return true
		}
	}
	return false
}

func (m *Manager) Fetch(ctx context.Context, ref string, dst io.Writer) error {
	tried := 0
	var lastErr error
	for i := 0; i < len(m.resolvers); i++ {
		resolver := m.resolvers[i]
		if !resolver.Supports(ref) {
			continue
		}
		tried++

		zap.S().Named("media").Infow("fetching recording", "ref", ref, "resolver_type", resolver.Type())

		if err := resolver.Fetch(ctx, ref, dst); err != nil {
			zap.S().Named("media").Errorw("failed to fetch recording", "error", err, "resolver_type", resolver.Type())
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		return nil
	}

	if tried == 0 {
		return NewUnsupportedRefError(ref)
	}
	return fmt.Errorf("failed to fetch recording %q: all resolvers failed: %w", ref, lastErr)
}

func (m *Manager) Type() string {
	return "manager"
}

// progressWriter counts the bytes written through it and logs the progress of long downloads.
type progressWriter struct {
	written int64
	total   int64
	w       io.Writer
}

func newProgressWriter(ctx context.Context, w io.Writer, total int64) *progressWriter {
	pw := &progressWriter{w: w, total: total}
	go pw.start(ctx)

	return pw
}

func (p *progressWriter) start(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.total == 0 {
				zap.S().Named("media").Debugw("recording downloading", "progress", fmt.Sprintf("%.2f Mb", float32(p.written)/(1024*1024)))
				continue
			}
			zap.S().Named("media").Debugw("recording downloading", "progress", fmt.Sprintf("%.2f%%", 100*(float32(p.written)/float32(p.total))))
		}
	}
}

func (p *progressWriter) Write(b []byte) (n int, err error) {
	n, err = p.w.Write(b)
	if err == nil {
		p.written += int64(n)
	}
	return
}

func (p *progressWriter) complete() error {
	if p.total > 0 && p.total != p.written {
		return fmt.Errorf("failed to download the entire recording. expected bytes %d received %d", p.total, p.written)
	}
	return nil
}
