package media

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"go.uber.org/zap"
)

const (
	DefaultFrameInterval = 10 * time.Second

	audioFileName = "audio.wav"
	framesDirName = "frames"
	framePattern  = "frame_%05d.jpg"
	frameWidth    = 640
)

var durationRegex = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

type ExtractorOption func(e *Extractor)

// Extractor downloads a recording and splits it into a mono 16kHz wav file and JPEG frames
// sampled every FrameInterval.
type Extractor struct {
	resolver      Resolver
	runner        CommandRunner
	ffmpegPath    string
	workDir       string
	frameInterval time.Duration
	log           *zap.SugaredLogger
}

func NewExtractor(resolver Resolver, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		resolver:      resolver,
		runner:        &execRunner{},
		ffmpegPath:    "ffmpeg",
		frameInterval: DefaultFrameInterval,
		log:           zap.S().Named("media_extractor"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func WithCommandRunner(runner CommandRunner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

func WithFfmpegPath(p string) ExtractorOption {
	return func(e *Extractor) {
		if p != "" {
			e.ffmpegPath = p
		}
	}
}

// WithWorkDir sets the parent of the per-run temporary directories. Empty means os.TempDir.
func WithWorkDir(dir string) ExtractorOption {
	return func(e *Extractor) {
		e.workDir = dir
	}
}

func WithFrameInterval(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.frameInterval = d
		}
	}
}

// Run produces the artifacts of job. The recording must be fetchable and at least one of the audio
// track or the frames must be extracted, otherwise the run fails and nothing is left on disk.
func (e *Extractor) Run(ctx context.Context, job pipeline.Job) pipeline.StageResult[*pipeline.Artifacts] {
	log := e.log.With("session_id", job.SessionID)

	workDir, err := os.MkdirTemp(e.workDir, fmt.Sprintf("session-%s-*", job.SessionID))
	if err != nil {
		return pipeline.Failed[*pipeline.Artifacts](errors.Wrap(err, "creating work directory"))
	}

	artifacts, err := e.extract(ctx, job, workDir, log)
	if err != nil {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warnw("failed to remove work directory", "work_dir", workDir, "error", rmErr)
		}
		return pipeline.Failed[*pipeline.Artifacts](err)
	}

	log.Infow("media extracted", "audio", artifacts.AudioPath != "", "frames", len(artifacts.Frames), "duration_seconds", artifacts.DurationSeconds)
	return pipeline.Ok(artifacts)
}

func (e *Extractor) extract(ctx context.Context, job pipeline.Job, workDir string, log *zap.SugaredLogger) (*pipeline.Artifacts, error) {
	source := filepath.Join(workDir, "recording"+recordingExt(job.RecordingRef))
	if err := e.download(ctx, job.RecordingRef, source); err != nil {
		return nil, err
	}

	artifacts := &pipeline.Artifacts{
		WorkDir:       workDir,
		FrameInterval: e.frameInterval.Seconds(),
	}

	audioPath := filepath.Join(workDir, audioFileName)
	res, audioErr := e.runner.Run(ctx, e.ffmpegPath, audioArgs(source, audioPath)...)
	if audioErr == nil {
		artifacts.AudioPath = audioPath
	} else {
		audioErr = &CommandError{Command: e.ffmpegPath, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: audioErr}
		log.Warnw("audio extraction failed", "error", audioErr)
	}
	artifacts.DurationSeconds = parseDuration(res.Stderr)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	framesDir := filepath.Join(workDir, framesDirName)
	frames, framesErr := e.extractFrames(ctx, source, framesDir)
	if framesErr != nil {
		log.Warnw("frame extraction failed", "error", framesErr)
	}
	artifacts.Frames = frames

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if artifacts.AudioPath == "" && len(artifacts.Frames) == 0 {
		if audioErr == nil {
			audioErr = framesErr
		}
		if audioErr == nil {
			audioErr = errors.New("recording has neither audio nor video")
		}
		return nil, fmt.Errorf("no audio or frames could be extracted: %w", audioErr)
	}

	if artifacts.DurationSeconds == 0 && len(frames) > 0 {
		artifacts.DurationSeconds = frames[len(frames)-1].Offset + artifacts.FrameInterval
	}

	// the raw recording is no longer needed once split
	_ = os.Remove(source)

	return artifacts, nil
}

func (e *Extractor) download(ctx context.Context, ref string, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "creating recording file")
	}
	defer f.Close()

	if err := e.resolver.Fetch(ctx, ref, f); err != nil {
		return err
	}
	return f.Sync()
}

func (e *Extractor) extractFrames(ctx context.Context, source string, dir string) ([]pipeline.Frame, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating frames directory")
	}

	res, err := e.runner.Run(ctx, e.ffmpegPath, frameArgs(source, filepath.Join(dir, framePattern), e.frameInterval)...)
	if err != nil {
		return nil, &CommandError{Command: e.ffmpegPath, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing frames")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jpg") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	frames := make([]pipeline.Frame, 0, len(names))
	for i, name := range names {
		frames = append(frames, pipeline.Frame{
			Path:   filepath.Join(dir, name),
			Offset: float64(i) * e.frameInterval.Seconds(),
		})
	}
	return frames, nil
}

// Cleanup removes every file produced for the run.
func (e *Extractor) Cleanup(artifacts *pipeline.Artifacts) error {
	if artifacts == nil || artifacts.WorkDir == "" {
		return nil
	}
	return os.RemoveAll(artifacts.WorkDir)
}

func audioArgs(source, out string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", source,
		"-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
		out,
	}
}

func frameArgs(source, pattern string, interval time.Duration) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", source,
		"-an",
		"-vf", fmt.Sprintf("fps=1/%s,scale=%d:-2", strconv.FormatFloat(interval.Seconds(), 'f', -1, 64), frameWidth),
		"-q:v", "3",
		pattern,
	}
}

// parseDuration reads the input duration ffmpeg prints on stderr.
func parseDuration(stderr string) float64 {
	m := durationRegex.FindStringSubmatch(stderr)
	if len(m) != 4 {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, _ := strconv.ParseFloat(m[3], 64)
	return float64(h*3600+mins*60) + secs
}

func recordingExt(ref string) string {
	p := ref
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	if ext == "" || len(ext) > 6 {
		return ".media"
	}
	return strings.ToLower(ext)
}
