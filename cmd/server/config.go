package main

import "time"

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Empty path keeps the store purely in memory.
	BadgerFilepath string `env:"BADGER_FILEPATH"`

	DeltaBufferSize int           `env:"DELTA_BUFFER_SIZE,default=256"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,default=1m"`

	ModerationEnabled         bool   `env:"MODERATION_ENABLED,default=false"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	TokenSecret   string        `env:"TOKEN_SECRET,required=true"`
	TokenDuration time.Duration `env:"TOKEN_DURATION,default=24h"`
}
