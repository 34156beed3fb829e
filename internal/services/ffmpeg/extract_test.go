package ffmpeg_test

import (
	"context"
	"errors"
	"testing"

	"lectern/internal/services"
	"lectern/internal/services/ffmpeg"
)

func TestExtractAudioBuildsWavArgs(t *testing.T) {
	extractor := ffmpeg.NewExtractor(ffmpeg.Options{Format: "wav", SampleRate: 16000})

	var gotName string
	var gotArgs []string
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	if err := extractor.ExtractAudio(context.Background(), "/in/lecture01.mp4", "/out/lecture01.wav"); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	if gotName != "ffmpeg" {
		t.Fatalf("unexpected binary %q", gotName)
	}
	want := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", "/in/lecture01.mp4",
		"-vn", "-sn", "-dn",
		"-ac", "1", "-ar", "16000",
		"-c:a", "pcm_s16le",
		"/out/lecture01.wav",
	}
	if len(gotArgs) != len(want) {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("arg %d = %q, want %q", i, gotArgs[i], want[i])
		}
	}
}

func TestExtractAudioMP3Codec(t *testing.T) {
	extractor := ffmpeg.NewExtractor(ffmpeg.Options{Format: "mp3", SampleRate: 22050})

	var gotArgs []string
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return nil
	})

	if err := extractor.ExtractAudio(context.Background(), "src.mkv", "dst.mp3"); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	found := false
	for i, arg := range gotArgs {
		if arg == "-c:a" && i+1 < len(gotArgs) && gotArgs[i+1] == "libmp3lame" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected libmp3lame codec, args: %v", gotArgs)
	}
}

func TestExtractAudioWrapsFailures(t *testing.T) {
	extractor := ffmpeg.NewExtractor(ffmpeg.Options{})
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("ffmpeg: moov atom not found")
	})

	err := extractor.ExtractAudio(context.Background(), "broken.mp4", "broken.wav")
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if details := services.Details(err); details.Kind != "extraction" {
		t.Fatalf("unexpected failure kind %q", details.Kind)
	}
}

func TestExtractAudioRejectsUnknownFormat(t *testing.T) {
	extractor := ffmpeg.NewExtractor(ffmpeg.Options{Format: "flac"})
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("runner must not be called for an unsupported format")
		return nil
	})

	err := extractor.ExtractAudio(context.Background(), "a.mp4", "a.flac")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
