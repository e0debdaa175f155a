// Command liftctl administers a liftlog database: schema migration, demo data,
// week generation, weekly summaries, and session tokens for the API and MCP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/2beens/liftlog/internal/auth"
	"github.com/2beens/liftlog/internal/config"
	"github.com/2beens/liftlog/internal/datastore/pgstore"
	"github.com/2beens/liftlog/internal/db"
	"github.com/2beens/liftlog/internal/logging"

	"github.com/fatih/color"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errNoUser = errors.New("no user: pass --user or set LIFTLOG_USER_ID")

var (
	envFlag        string
	configPathFlag string
	userFlag       string

	cfg     *config.Config
	secrets *config.Secrets
)

var rootCmd = &cobra.Command{
	Use:   "liftctl",
	Short: "Administer a liftlog database",
	Long: `liftctl works directly against the liftlog Postgres database and Redis.

  $ liftctl migrate                                  # create or update the schema
  $ liftctl seed --user u1 --weeks 8 --template PPL  # demo history and a template
  $ liftctl generate --user u1 --template <id>       # log this week's workouts
  $ liftctl weekly --user u1 --weeks 4               # weekly volume summary
  $ liftctl login --user u1                          # issue a session token
  $ liftctl whoami --server http://localhost:9000`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(envFlag, configPathFlag)
		if err != nil {
			return err
		}
		secrets, err = config.LoadSecrets(cmd.Context())
		if err != nil {
			return err
		}

		logging.Setup(logging.LoggerSetupParams{
			LogLevel:    "warn",
			Environment: cfg.Environment,
			// stdout is for command output
			Stderr: true,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "./config.toml", "path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "user id to act as (default LIFTLOG_USER_ID)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("✗ %s", err)
		stop()
		os.Exit(1)
	}
}

func userID() string {
	if userFlag != "" {
		return userFlag
	}
	return secrets.UserID
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: cfg.PostgresHost,
		DBPort: cfg.PostgresPort,
		DBName: cfg.PostgresDBName,
	})
	if err != nil {
		return nil, fmt.Errorf("db pool: %w", err)
	}
	return pool, nil
}

// openUserStore returns a store scoped to the acting user and the context carrying that user.
func openUserStore(ctx context.Context) (*pgstore.Store, context.Context, func(), error) {
	user := userID()
	if user == "" {
		return nil, ctx, nil, errNoUser
	}

	pool, err := openPool(ctx)
	if err != nil {
		return nil, ctx, nil, err
	}
	log.Debugf("acting as user [%s]", user)
	return pgstore.New(pool, auth.FindUser), auth.ContextWithUser(ctx, user), pool.Close, nil
}

func newRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: secrets.RedisPassword,
	})
}
