package state

import (
	"context"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"
)

type AppState struct {
	Ctx       context.Context
	Cancel    context.CancelFunc
	DB        *gorm.DB
	Redis     *redis.Client
	Mongo     *mongo.Client
	MongoDB   *mongo.Database
	JwtSecret *JwtSecret
	Firebase  *firebase.App
}

func InitAppState(ctx context.Context, cancel context.CancelFunc, conf *config.AppConfig) (*AppState, error) {
	app := &AppState{Ctx: ctx, Cancel: cancel}

	db, _, err := InitPostgres(conf.DATABASE.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	app.DB = db

	mongoClient, err := InitMongo(ctx, conf.DATABASE.Mongo.Url)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Mongo = mongoClient
	app.MongoDB = mongoClient.Database(conf.DATABASE.Mongo.Database)

	rdb, err := InitRedis(conf.DATABASE.Redis.Addr, conf.DATABASE.Redis.Password, conf.DATABASE.Redis.DB)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Redis = rdb

	if conf.AUTH.Mode == "jwt" {
		secret, err := InitSecret(conf.AUTH.PrivateKeyPath, conf.AUTH.PublicKeyPath)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.JwtSecret = secret
	}

	if conf.NeedsFirebase() {
		fb, err := InitFirebase(ctx, FirebaseCredentials{
			ProjectID:       conf.FIREBASE.ProjectID,
			ClientEmail:     conf.FIREBASE.ClientEmail,
			PrivateKey:      conf.FIREBASE.PrivateKey,
			CredentialsFile: conf.FIREBASE.CredentialsFile,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Firebase = fb
	}

	return app, nil
}

func (a *AppState) Close() {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			log.Info().Msg("Closing PostgreSQL database connection...")
			sqlDB.Close()
		}
	}

	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Closing MongoDB client...")
		if err := a.Mongo.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("failed to disconnect MongoDB client")
		}
	}

	if a.Redis != nil {
		log.Info().Msg("Closing Redis client...")
		if err := a.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis client")
		}
	}
}
