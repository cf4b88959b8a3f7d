// Package thumbnail extracts a single still frame from a video with ffmpeg.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DirName is the subdirectory of the output directory that receives thumbnails.
const DirName = "thumbnails"

// DefaultTimeout bounds each ffprobe and ffmpeg invocation.
const DefaultTimeout = 60 * time.Second

// Options configures a Generator.
type Options struct {
	FFmpeg   string
	FFprobe  string
	Width    int
	Height   int
	Position *Position
	Timeout  time.Duration
	Runner   Runner
	Logger   *zap.Logger
}

// Generator produces thumbnails by shelling out to ffprobe and ffmpeg.
type Generator struct {
	ffmpeg   string
	ffprobe  string
	width    int
	height   int
	position Position
	timeout  time.Duration
	runner   Runner
	logger   *zap.Logger
}

// Request describes one thumbnail to produce.
type Request struct {
	Source    string
	OutputDir string
	Stem      string
	// Position overrides the generator default when set.
	Position *Position
}

// NewGenerator fills unset options with defaults.
func NewGenerator(opts Options) *Generator {
	g := &Generator{
		ffmpeg:   strings.TrimSpace(opts.FFmpeg),
		ffprobe:  strings.TrimSpace(opts.FFprobe),
		width:    opts.Width,
		height:   opts.Height,
		position: DefaultPosition,
		timeout:  opts.Timeout,
		runner:   opts.Runner,
		logger:   opts.Logger,
	}
	if g.ffmpeg == "" {
		g.ffmpeg = "ffmpeg"
	}
	if g.ffprobe == "" {
		g.ffprobe = "ffprobe"
	}
	if g.width <= 0 || g.height <= 0 {
		g.width, g.height = 320, 240
	}
	if opts.Position != nil {
		g.position = *opts.Position
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.runner == nil {
		g.runner = ExecRunner{}
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// FileName returns the deterministic thumbnail name for a stem.
func FileName(stem string) string {
	return "thumb_" + stem + ".jpg"
}

// Stem strips the directory and extension from a file name.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Generate writes <OutputDir>/thumbnails/thumb_<Stem>.jpg and returns its
// absolute path. Any error leaves no output file behind.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Source) == "" {
		return "", errors.New("thumbnail: empty source path")
	}
	if strings.TrimSpace(req.Stem) == "" {
		return "", errors.New("thumbnail: empty stem")
	}

	dir, err := filepath.Abs(filepath.Join(req.OutputDir, DirName))
	if err != nil {
		return "", fmt.Errorf("thumbnail: resolve output dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("thumbnail: create output dir: %w", err)
	}
	out := filepath.Join(dir, FileName(req.Stem))

	pos := g.position
	if req.Position != nil {
		pos = *req.Position
	}

	var duration float64
	if pos.IsRelative() {
		probeCtx, cancel := context.WithTimeout(ctx, g.timeout)
		duration, err = probeDuration(probeCtx, g.runner, g.ffprobe, req.Source)
		cancel()
		if err != nil {
			// ffmpeg gets the final say on whether the file is usable.
			g.logger.Debug("duration probe failed, capturing first frame",
				zap.String("source", req.Source), zap.Error(err))
		}
	}
	offset := pos.Resolve(duration)

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	output, err := g.runner.Run(runCtx, g.ffmpeg,
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", req.Source,
		"-frames:v", "1",
		"-s", fmt.Sprintf("%dx%d", g.width, g.height),
		"-y",
		out)
	if err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("ffmpeg screenshot: %w: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(out)
		return "", fmt.Errorf("ffmpeg produced no frame at %.3fs", offset)
	}
	return out, nil
}

// Available reports whether the configured binaries resolve. The returned
// slice lists the ones that do not.
func (g *Generator) Available() (bool, []string) {
	var missing []string
	for _, bin := range []string{g.ffmpeg, g.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return len(missing) == 0, missing
}
