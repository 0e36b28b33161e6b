package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/gavel/internal/dbconfig"
)

func setupDatabase() (*sql.DB, dbconfig.Config, error) {
	dbCfg := dbconfig.NewConfigFromEnv()

	database, err := sql.Open("pgx", dbCfg.DSN())
	if err != nil {
		return nil, dbCfg, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.Ping(); err != nil {
		return nil, dbCfg, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", dbCfg.Host).
		Str("database", dbCfg.Database).
		Msg("connected to database")
	return database, dbCfg, nil
}
