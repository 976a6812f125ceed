package whisper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"tellmemore/internal/config"
	"tellmemore/internal/services"
	"tellmemore/internal/transcript"
)

// Service provides speech-to-text via the whisper.cpp CLI. The binary prints
// timestamped lines on stdout which are parsed into transcript segments.
type Service struct {
	binary        string
	modelPath     string
	maxLineChars  int
	commandRunner func(ctx context.Context, name string, args ...string) (string, error)
}

// NewService creates a whisper service from the configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		binary:       cfg.Whisper.Binary,
		modelPath:    cfg.Whisper.ModelPath,
		maxLineChars: cfg.Whisper.MaxLineChars,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	s.commandRunner = runner
}

// Model returns the configured model path for logging.
func (s *Service) Model() string {
	return s.modelPath
}

// Transcribe runs whisper.cpp over the audio file and parses its output into
// ordered segments. An output containing no timestamp markers yields an
// empty transcript, not an error; validity is the caller's policy decision.
func (s *Service) Transcribe(ctx context.Context, audioPath string) (*transcript.Transcript, error) {
	if audioPath == "" {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "run", "audio path required", nil)
	}
	if _, err := os.Stat(s.modelPath); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "run",
			fmt.Sprintf("whisper model not found at %s", s.modelPath), err)
	}

	output, err := s.run(ctx, s.binary, s.buildArgs(audioPath)...)
	if err != nil {
		marker := services.ErrExternalTool
		if ctx.Err() == context.DeadlineExceeded {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "transcribe", "run", "whisper invocation failed", err)
	}

	parsed := transcript.Parse(output)
	return &parsed, nil
}

func (s *Service) buildArgs(audioPath string) []string {
	args := []string{
		"-m", s.modelPath,
		"-f", audioPath,
	}
	if s.maxLineChars > 0 {
		args = append(args, "-ml", strconv.Itoa(s.maxLineChars))
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return string(output), nil
}
