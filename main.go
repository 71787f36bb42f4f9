package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/internal/config"
	"github.com/robalobadob/mastermind/internal/db"
	"github.com/robalobadob/mastermind/internal/httpserver"
	"github.com/robalobadob/mastermind/internal/rules"
	"github.com/robalobadob/mastermind/internal/solver"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := rules.Init(cfg.Game.RulesFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load presets")
	}
	if _, err := rules.Get(cfg.Game.DefaultPreset); err != nil {
		log.Fatal().Err(err).Strs("presets", rules.Names()).Msg("DEFAULT_PRESET not loaded")
	}
	if _, err := solver.StrategyByName(cfg.Game.Strategy); err != nil {
		log.Fatal().Err(err).Strs("strategies", solver.StrategyNames()).Msg("SOLVER_STRATEGY not known")
	}

	sqlDB, err := db.OpenAndMigrate(cfg.Server.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Server.DBPath).Msg("open database")
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httpserver.New(cfg, sqlDB)
	log.Info().Str("port", cfg.Server.Port).Str("preset", cfg.Game.DefaultPreset).Msg("starting mastermind server")
	if err := srv.Start(ctx, ":"+cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
