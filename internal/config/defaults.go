package config

const (
	defaultRecordingsDir  = "~/lectures/recordings"
	defaultAudioDir       = "~/lectures/extracted_audio"
	defaultRawTextDir     = "~/lectures/record_text_raw"
	defaultTranscriptsDir = "~/lectures/transcribed"
	defaultNotesDir       = "~/lectures/structured"
	defaultLogDir         = "~/.local/share/lectern/logs"
	defaultURLTable       = "~/lectures/urls.csv"
	defaultLedgerPath     = "~/lectures/log.csv"

	defaultExtractionBinary = "ffmpeg"
	defaultAudioFormat      = "wav"
	defaultSampleRate       = 16000

	defaultTranscriberBinary = "whisper"
	defaultTranscriberModel  = "large-v3-turbo"
	defaultLanguage          = "ko"

	defaultLLMBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel          = "gpt-4o-mini"
	defaultLLMTimeoutSeconds = 300
	defaultPromptsPath       = "~/.config/lectern/prompts.yaml"
	defaultPromptProfile     = "lecture"

	defaultDownloaderBinary = "yt-dlp"

	defaultStageTimeoutSeconds  = 3600
	defaultWatchDebounceSeconds = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RecordingsDir:  defaultRecordingsDir,
			AudioDir:       defaultAudioDir,
			RawTextDir:     defaultRawTextDir,
			TranscriptsDir: defaultTranscriptsDir,
			NotesDir:       defaultNotesDir,
			LogDir:         defaultLogDir,
			URLTable:       defaultURLTable,
			LedgerPath:     defaultLedgerPath,
		},
		Extraction: Extraction{
			Binary:      defaultExtractionBinary,
			AudioFormat: defaultAudioFormat,
			SampleRate:  defaultSampleRate,
		},
		Transcriber: Transcriber{
			Binary:   defaultTranscriberBinary,
			Model:    defaultTranscriberModel,
			Language: defaultLanguage,
			EmitSRT:  true,
			EmitJSON: true,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			PromptsPath:    defaultPromptsPath,
			PromptProfile:  defaultPromptProfile,
			SaveHTML:       true,
		},
		Downloader: Downloader{
			Enabled:     false,
			Binary:      defaultDownloaderBinary,
			AudioFormat: defaultAudioFormat,
		},
		Workflow: Workflow{
			StageTimeoutSeconds:  defaultStageTimeoutSeconds,
			WatchDebounceSeconds: defaultWatchDebounceSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
