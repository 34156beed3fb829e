package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"lectern/internal/config"
	"lectern/internal/fileutil"
	"lectern/internal/notes"
	"lectern/internal/services"
	"lectern/internal/services/ffmpeg"
	"lectern/internal/services/llm"
	"lectern/internal/services/whisper"
	"lectern/internal/services/ytdlp"
	"lectern/internal/stage"
)

// Stage and ledger column names, in pipeline order.
const (
	StageDownload   = "download"
	StageExtract    = "extract"
	StageImport     = "import"
	StageTranscribe = "transcribe"
	StageStructure  = "structure"

	ColumnDownloaded  = "downloaded"
	ColumnExtracted   = "extracted"
	ColumnImported    = "imported"
	ColumnTranscribed = "transcribed"
	ColumnStructured  = "structured"
)

var recordingPatterns = []string{"*.mp4", "*.mkv", "*.mov", "*.avi", "*.webm", "*.wmv"}

var audioPatterns = []string{"*.wav", "*.mp3", "*.m4a", "*.flac", "*.ogg"}

// Columns returns every ledger column in persisted order. The schema is fixed
// even when a stage is disabled, so ledgers stay loadable across config
// changes.
func Columns() []string {
	return []string{ColumnDownloaded, ColumnExtracted, ColumnImported, ColumnTranscribed, ColumnStructured}
}

// Collaborators holds the external services the stage handlers drive.
type Collaborators struct {
	Downloader  *ytdlp.Downloader
	Extractor   *ffmpeg.Extractor
	Transcriber *whisper.Service
	Model       *llm.Client
	Prompts     *llm.Prompts
	Renderer    *notes.Renderer
}

// NewCollaborators builds every collaborator from the configuration.
func NewCollaborators(cfg *config.Config) (*Collaborators, error) {
	prompts, err := llm.LoadPrompts(cfg.LLM.PromptsPath)
	if err != nil {
		return nil, err
	}
	if _, err := prompts.Profile(cfg.LLM.PromptProfile); err != nil {
		return nil, err
	}

	return &Collaborators{
		Downloader: ytdlp.New(ytdlp.Options{
			Binary:      cfg.Downloader.Binary,
			AudioFormat: cfg.Downloader.AudioFormat,
		}),
		Extractor: ffmpeg.NewExtractor(ffmpeg.Options{
			Binary:     cfg.Extraction.Binary,
			Format:     cfg.Extraction.AudioFormat,
			SampleRate: cfg.Extraction.SampleRate,
		}),
		Transcriber: whisper.New(whisper.Options{
			Binary:   cfg.Transcriber.Binary,
			Model:    cfg.Transcriber.Model,
			Language: cfg.Transcriber.Language,
			EmitSRT:  cfg.Transcriber.EmitSRT,
			EmitJSON: cfg.Transcriber.EmitJSON,
		}),
		Model: llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}),
		Prompts:  prompts,
		Renderer: notes.NewRenderer(),
	}, nil
}

// Stages returns the stage definitions in execution order. The download stage
// is only included when the downloader is enabled; its ledger column exists
// either way.
func Stages(cfg *config.Config, collab *Collaborators) []stage.Definition {
	defs := make([]stage.Definition, 0, 5)
	if cfg.Downloader.Enabled {
		defs = append(defs, downloadStage(cfg, collab.Downloader))
	}
	defs = append(defs,
		extractStage(cfg, collab.Extractor),
		importStage(cfg),
		transcribeStage(cfg, collab.Transcriber),
		structureStage(cfg, collab),
	)
	return defs
}

func downloadStage(cfg *config.Config, downloader *ytdlp.Downloader) stage.Definition {
	ext := downloader.OutputExt()
	return stage.Definition{
		Name:   StageDownload,
		Column: ColumnDownloaded,
		Discover: func(ctx context.Context) ([]stage.Item, error) {
			entries, err := ytdlp.LoadTable(cfg.Paths.URLTable)
			if err != nil {
				return nil, err
			}
			items := make([]stage.Item, 0, len(entries))
			for _, entry := range entries {
				items = append(items, stage.Item{
					Key:     entry.Title,
					Source:  entry.URL,
					Outputs: []string{filepath.Join(cfg.Paths.AudioDir, entry.Title+ext)},
				})
			}
			return items, nil
		},
		Handler: func(ctx context.Context, item stage.Item) error {
			staging := filepath.Join(cfg.StagingDir(), item.Key+ext)
			defer os.Remove(staging)
			if err := downloader.Download(ctx, item.Source, staging); err != nil {
				return err
			}
			return fileutil.ReplaceFile(staging, item.Outputs[0])
		},
	}
}

func extractStage(cfg *config.Config, extractor *ffmpeg.Extractor) stage.Definition {
	ext := extractor.OutputExt()
	return stage.Definition{
		Name:   StageExtract,
		Column: ColumnExtracted,
		Discover: stage.DirSource(cfg.Paths.RecordingsDir, recordingPatterns, func(key string) []string {
			return []string{filepath.Join(cfg.Paths.AudioDir, key+ext)}
		}),
		Handler: func(ctx context.Context, item stage.Item) error {
			staging := filepath.Join(cfg.StagingDir(), item.Key+ext)
			defer os.Remove(staging)
			if err := extractor.ExtractAudio(ctx, item.Source, staging); err != nil {
				return err
			}
			return fileutil.ReplaceFile(staging, item.Outputs[0])
		},
	}
}

// importStage copies hand-written transcripts from the raw text directory
// into the transcripts directory, so text-only lectures enter the pipeline
// without an audio file.
func importStage(cfg *config.Config) stage.Definition {
	return stage.Definition{
		Name:   StageImport,
		Column: ColumnImported,
		Discover: stage.DirSource(cfg.Paths.RawTextDir, []string{"*.txt"}, func(key string) []string {
			return []string{filepath.Join(cfg.Paths.TranscriptsDir, key+".txt")}
		}),
		Handler: func(ctx context.Context, item stage.Item) error {
			data, err := os.ReadFile(item.Source)
			if err != nil {
				return fmt.Errorf("read raw text %q: %w", item.Source, err)
			}
			return fileutil.WriteFileAtomic(item.Outputs[0], data, 0o644)
		},
	}
}

func transcribeStage(cfg *config.Config, transcriber *whisper.Service) stage.Definition {
	exts := transcriber.OutputExts()
	return stage.Definition{
		Name:   StageTranscribe,
		Column: ColumnTranscribed,
		Discover: stage.DirSource(cfg.Paths.AudioDir, audioPatterns, func(key string) []string {
			outputs := make([]string, 0, len(exts))
			for _, ext := range exts {
				outputs = append(outputs, filepath.Join(cfg.Paths.TranscriptsDir, key+ext))
			}
			return outputs
		}),
		Handler: func(ctx context.Context, item stage.Item) error {
			scratch := filepath.Join(cfg.StagingDir(), "transcribe-"+item.Key)
			if err := os.MkdirAll(scratch, 0o755); err != nil {
				return fmt.Errorf("create scratch dir: %w", err)
			}
			defer os.RemoveAll(scratch)

			result, err := transcriber.Transcribe(ctx, item.Source, scratch)
			if err != nil {
				return err
			}
			moves := map[string]string{
				result.TextPath: filepath.Join(cfg.Paths.TranscriptsDir, item.Key+".txt"),
			}
			if result.SRTPath != "" {
				moves[result.SRTPath] = filepath.Join(cfg.Paths.TranscriptsDir, item.Key+".srt")
			}
			if result.JSONPath != "" {
				moves[result.JSONPath] = filepath.Join(cfg.Paths.TranscriptsDir, item.Key+".json")
			}
			for src, dst := range moves {
				if err := fileutil.ReplaceFile(src, dst); err != nil {
					return services.Wrap(services.ErrTranscription, StageTranscribe, item.Key, "publish transcript", err)
				}
			}
			return nil
		},
	}
}

func structureStage(cfg *config.Config, collab *Collaborators) stage.Definition {
	outputFor := func(key string) []string {
		outputs := []string{filepath.Join(cfg.Paths.NotesDir, key+".md")}
		if cfg.LLM.SaveHTML {
			outputs = append(outputs, filepath.Join(cfg.Paths.NotesDir, key+".html"))
		}
		return outputs
	}
	return stage.Definition{
		Name:         StageStructure,
		Column:       ColumnStructured,
		DependsOnAny: []string{ColumnTranscribed, ColumnImported},
		Discover:     stage.DirSource(cfg.Paths.TranscriptsDir, []string{"*.txt"}, outputFor),
		Handler: func(ctx context.Context, item stage.Item) error {
			data, err := os.ReadFile(item.Source)
			if err != nil {
				return fmt.Errorf("read transcript %q: %w", item.Source, err)
			}
			profile, err := collab.Prompts.Profile(cfg.LLM.PromptProfile)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, StageStructure, item.Key, "", err)
			}

			content, err := collab.Model.CompleteMarkdown(ctx, profile.System, profile.Render(string(data)))
			if err != nil {
				return err
			}

			title := collab.Renderer.TitleFor(item.Key)
			markdown := collab.Renderer.EnsureHeading(title, content)
			if err := fileutil.WriteFileAtomic(item.Outputs[0], []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("write notes: %w", err)
			}
			if cfg.LLM.SaveHTML {
				page, err := collab.Renderer.RenderHTML(title, markdown)
				if err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(item.Outputs[1], page, 0o644); err != nil {
					return fmt.Errorf("write notes page: %w", err)
				}
			}
			return nil
		},
	}
}
