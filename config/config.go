package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name           string `mapstructure:"NAME"`
		Port           string `mapstructure:"PORT"`
		Env            string `mapstructure:"ENV"`
		LogLevel       string `mapstructure:"LOG_LEVEL"`
		LogFormat      string `mapstructure:"LOG_FORMAT"`
		FrontendURL    string `mapstructure:"FRONTEND_URL"`
		BodyLimitBytes int64  `mapstructure:"BODY_LIMIT_BYTES"`
	}

	DATABASE struct {
		Postgres struct {
			DSN string `mapstructure:"URL"`
		}
		Redis struct {
			Addr     string `mapstructure:"ADDR"`
			Password string `mapstructure:"PASSWORD"`
			DB       int    `mapstructure:"DB"`
		}
		Mongo struct {
			Url      string `mapstructure:"URL"`
			Database string `mapstructure:"DATABASE"`
		}
	}

	AUTH struct {
		Mode           string `mapstructure:"MODE"`
		PublicKeyPath  string `mapstructure:"PUBLIC_KEY_PATH"`
		PrivateKeyPath string `mapstructure:"PRIVATE_KEY_PATH"`
	}

	FIREBASE struct {
		ProjectID       string `mapstructure:"PROJECT_ID"`
		ClientEmail     string `mapstructure:"CLIENT_EMAIL"`
		PrivateKey      string `mapstructure:"PRIVATE_KEY"`
		CredentialsFile string `mapstructure:"CREDENTIALS_FILE"`
	}

	AGORA struct {
		AppID           string `mapstructure:"APP_ID"`
		AppCertificate  string `mapstructure:"APP_CERTIFICATE"`
		TokenTTLSeconds uint32 `mapstructure:"TOKEN_TTL_SECONDS"`
	}

	PUSH struct {
		Mode    string        `mapstructure:"MODE"`
		URL     string        `mapstructure:"URL"`
		Timeout time.Duration `mapstructure:"TIMEOUT"`
	}

	CALL struct {
		RingTimeout time.Duration `mapstructure:"RING_TIMEOUT"`
		MaxDuration time.Duration `mapstructure:"MAX_DURATION"`
	}

	MAIL struct {
		Enabled  bool   `mapstructure:"ENABLED"`
		SMTPHost string `mapstructure:"SMTP_HOST"`
		SMTPPort int    `mapstructure:"SMTP_PORT"`
		Username string `mapstructure:"USERNAME"`
		Password string `mapstructure:"PASSWORD"`
		From     string `mapstructure:"FROM"`
	}

	WORKER struct {
		Count int `mapstructure:"COUNT"`
	}
}

var Conf *AppConfig

// legacyEnv maps the unprefixed variable names the deployment already uses.
var legacyEnv = map[string]string{
	"app.port":                  "PORT",
	"app.env":                   "NODE_ENV",
	"app.frontend_url":          "FRONTEND_URL",
	"agora.app_id":              "AGORA_APP_ID",
	"agora.app_certificate":     "AGORA_APP_CERTIFICATE",
	"firebase.project_id":       "FIREBASE_PROJECT_ID",
	"firebase.client_email":     "FIREBASE_CLIENT_EMAIL",
	"firebase.private_key":      "FIREBASE_PRIVATE_KEY",
	"firebase.credentials_file": "FIREBASE_CREDENTIALS_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ruready-server")
	v.SetDefault("app.port", "5000")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")
	v.SetDefault("app.frontend_url", "http://localhost:5173")
	v.SetDefault("app.body_limit_bytes", 10<<20)

	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.mongo.database", "ruready")

	v.SetDefault("auth.mode", "firebase")
	v.SetDefault("auth.public_key_path", "public.pem")
	v.SetDefault("auth.private_key_path", "private.pem")

	v.SetDefault("agora.token_ttl_seconds", 3600)

	v.SetDefault("push.mode", "http")
	v.SetDefault("push.timeout", 10*time.Second)

	v.SetDefault("call.ring_timeout", 45*time.Second)
	v.SetDefault("call.max_duration", 4*time.Hour)

	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("worker.count", 5)
}

func LoadConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RUREADY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "RUREADY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("error binding env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("application.yaml not found, using env and defaults")
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	config.normalize()
	if err := config.Validate(); err != nil {
		return err
	}

	Conf = &config
	log.Info().Msg("configuration loaded...")
	return nil
}

func (c *AppConfig) normalize() {
	if c.App.Port != "" && !strings.HasPrefix(c.App.Port, ":") {
		c.App.Port = ":" + c.App.Port
	}
	c.AGORA.AppID = strings.TrimSpace(c.AGORA.AppID)
	c.AGORA.AppCertificate = strings.TrimSpace(c.AGORA.AppCertificate)
	// service-account keys usually arrive with escaped newlines from env files
	c.FIREBASE.PrivateKey = strings.ReplaceAll(strings.TrimSpace(c.FIREBASE.PrivateKey), `\n`, "\n")
	c.AUTH.Mode = strings.ToLower(strings.TrimSpace(c.AUTH.Mode))
	c.PUSH.Mode = strings.ToLower(strings.TrimSpace(c.PUSH.Mode))
}

// Validate fails fast on settings the server cannot run without.
func (c *AppConfig) Validate() error {
	if c.AGORA.AppID == "" {
		return errors.New("AGORA_APP_ID is missing in environment variables")
	}
	if c.AGORA.AppCertificate == "" {
		return errors.New("AGORA_APP_CERTIFICATE is missing in environment variables")
	}

	switch c.AUTH.Mode {
	case "firebase", "jwt":
	default:
		return fmt.Errorf("unknown auth mode %q", c.AUTH.Mode)
	}

	switch c.PUSH.Mode {
	case "http":
		if c.PUSH.URL == "" {
			return errors.New("push.url is required when push.mode is http")
		}
	case "fcm", "none":
	default:
		return fmt.Errorf("unknown push mode %q", c.PUSH.Mode)
	}

	if c.NeedsFirebase() && c.FIREBASE.CredentialsFile == "" {
		if c.FIREBASE.ProjectID == "" {
			return errors.New("Firebase config error: FIREBASE_PROJECT_ID is missing in environment variables")
		}
		if c.FIREBASE.ClientEmail == "" {
			return errors.New("Firebase config error: FIREBASE_CLIENT_EMAIL is missing in environment variables")
		}
		if c.FIREBASE.PrivateKey == "" {
			return errors.New("Firebase config error: FIREBASE_PRIVATE_KEY is missing in environment variables")
		}
	}

	return nil
}

func (c *AppConfig) NeedsFirebase() bool {
	return c.AUTH.Mode == "firebase" || c.PUSH.Mode == "fcm"
}
