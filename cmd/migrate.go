package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/xenn00/ruready-server/config"
	"github.com/xenn00/ruready-server/internal/entity"
	call_repo "github.com/xenn00/ruready-server/internal/repo/call"
	message_repo "github.com/xenn00/ruready-server/internal/repo/message"
	"github.com/xenn00/ruready-server/internal/utils/types"
	"github.com/xenn00/ruready-server/internal/worker"
	"github.com/xenn00/ruready-server/state"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the users table and the Mongo indexes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		conf := config.Conf
		setupLogger(conf)

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		db, sqlDB, err := state.InitPostgres(conf.DATABASE.Postgres.DSN)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := db.WithContext(ctx).AutoMigrate(&entity.User{}); err != nil {
			return fmt.Errorf("failed to migrate users: %w", err)
		}
		log.Info().Msg("users table migrated")

		mongoClient, err := state.InitMongo(ctx, conf.DATABASE.Mongo.Url)
		if err != nil {
			return err
		}
		defer mongoClient.Disconnect(context.Background())
		mdb := mongoClient.Database(conf.DATABASE.Mongo.Database)

		if err := call_repo.EnsureIndexes(ctx, mdb); err != nil {
			return fmt.Errorf("failed to create call indexes: %w", err)
		}
		if err := message_repo.EnsureIndexes(ctx, mdb); err != nil {
			return fmt.Errorf("failed to create message indexes: %w", err)
		}
		dlq := worker.NewMongoDLQStore(mdb, types.DefaultDLQRetryConfig().CollectionName)
		if err := dlq.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to create dlq indexes: %w", err)
		}

		log.Info().Msg("mongo indexes created")
		return nil
	},
}
