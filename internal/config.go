package internal

import (
	"fmt"
	"time"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=info"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	// Local upload directory; when S3Bucket is set, uploads go to S3
	// instead.
	UploadDir       string `env:"UPLOAD_DIR,default=uploads"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`

	AssistantModel   string `env:"ASSISTANT_MODEL,default=gpt-4o-mini"`
	AssistantBaseURL string `env:"ASSISTANT_BASE_URL"`
	AssistantAPIKey  string `env:"ASSISTANT_API_KEY,required=true"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	// Comma-separated dictionary; empty disables moderation.
	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// CharacterRune validates that the replacement is a single character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
