package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gatherly/api/internal/server"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Warn().Msg("no .env file found, relying on environment")
	}

	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
