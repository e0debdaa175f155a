// Package main runs the gymstats MCP server over stdio (for local assistant use).
// Tools act on behalf of one user: LIFTLOG_USER_ID, or the owner of
// LIFTLOG_SESSION_TOKEN when a session was issued with `liftctl login`.
package main

import (
	"context"
	"flag"
	"net"

	"github.com/2beens/liftlog/internal/auth"
	"github.com/2beens/liftlog/internal/config"
	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/datastore/pgstore"
	"github.com/2beens/liftlog/internal/db"
	gymstatsmcp "github.com/2beens/liftlog/internal/gymstats/mcp"
	"github.com/2beens/liftlog/internal/logging"

	"github.com/go-redis/redis/v8"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	secrets, err := config.LoadSecrets(ctx)
	if err != nil {
		log.Fatalf("load secrets: %v", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogsPath,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
		Environment:   cfg.Environment,
		// stdout carries the protocol
		Stderr: true,
	})

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer dbPool.Close()

	userID, err := resolveUser(ctx, cfg, secrets)
	if err != nil {
		log.Errorf("resolve user: %s", err)
	}
	if userID == "" {
		log.Warnln("no user configured, set LIFTLOG_USER_ID or LIFTLOG_SESSION_TOKEN")
	}

	store := pgstore.New(dbPool, func(context.Context) (string, error) {
		if userID == "" {
			return "", datastore.ErrUnauthenticated
		}
		return userID, nil
	})

	server := gymstatsmcp.NewServer(gymstatsmcp.ServerParams{
		Store:               store,
		Schema:              gymstatsmcp.NewPoolSchemaRepo(dbPool),
		ComparisonScanLimit: cfg.ComparisonScanLimit,
	})

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}

func resolveUser(ctx context.Context, cfg *config.Config, secrets *config.Secrets) (string, error) {
	if secrets.UserID != "" {
		return secrets.UserID, nil
	}
	if secrets.SessionToken == "" {
		return "", nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: secrets.RedisPassword,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Debugf("close redis: %s", err)
		}
	}()

	return auth.NewService(auth.DefaultTTL, rdb).UserForToken(ctx, secrets.SessionToken)
}
