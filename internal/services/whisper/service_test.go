package whisper_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"tellmemore/internal/services"
	"tellmemore/internal/services/whisper"
	"tellmemore/internal/testsupport"
)

const sampleOutput = `[00:00:00.000 --> 00:00:04.500] welcome back to the show
[00:05:10.000 --> 00:05:18.500] reports of the cartel crossing the border
`

func TestTranscribeParsesCommandOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.Whisper.ModelPath, []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	service := whisper.NewService(cfg)
	var gotArgs []string
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = append([]string{name}, args...)
		return sampleOutput, nil
	})

	tr, err := service.Transcribe(context.Background(), "/tmp/ep-a.mp3")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(tr.Segments))
	}
	if tr.Segments[1].StartSeconds != 310.0 {
		t.Errorf("second segment start = %v, want 310.0", tr.Segments[1].StartSeconds)
	}
	if gotArgs[0] != cfg.Whisper.Binary {
		t.Errorf("invoked %s, want %s", gotArgs[0], cfg.Whisper.Binary)
	}
}

func TestTranscribeMissingModelIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := whisper.NewService(cfg)

	_, err := service.Transcribe(context.Background(), "/tmp/ep-a.mp3")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	if services.Retryable(err) {
		t.Error("missing model should not be retryable")
	}
}

func TestTranscribeCommandFailureIsExternalToolError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.Whisper.ModelPath, []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	service := whisper.NewService(cfg)
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("segfault")
	})

	_, err := service.Transcribe(context.Background(), "/tmp/ep-a.mp3")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want ErrExternalTool", err)
	}
	if !services.Retryable(err) {
		t.Error("tool crash should be retryable")
	}
}

func TestTranscribeMarkerlessOutputYieldsEmptyTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.Whisper.ModelPath, []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	service := whisper.NewService(cfg)
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return "no timestamps in here", nil
	})

	tr, err := service.Transcribe(context.Background(), "/tmp/ep-a.mp3")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Valid() {
		t.Error("markerless output should produce an invalid transcript")
	}
}
