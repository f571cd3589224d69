package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server          Server
	Database        Database
	Sync            Sync
	Upload          Upload
	Storage         Storage
	AnswerKeySecret string
	GeminiApiKey    string
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Sync struct {
	MaxRetries int
}

type Upload struct {
	StagingDir        string
	StaleAfterMinutes int
}

type Storage struct {
	B2AccountID string
	B2AppKey    string
	B2Bucket    string
	LocalDir    string
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SYNC_MAX_RETRIES", 5)
	viper.SetDefault("UPLOAD_STAGING_DIR", "./staging")
	viper.SetDefault("UPLOAD_STALE_AFTER_MINUTES", 120)
	viper.SetDefault("STORAGE_LOCAL_DIR", "./media")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Sync.MaxRetries = viper.GetInt("SYNC_MAX_RETRIES")
	config.Upload.StagingDir = viper.GetString("UPLOAD_STAGING_DIR")
	config.Upload.StaleAfterMinutes = viper.GetInt("UPLOAD_STALE_AFTER_MINUTES")

	config.Storage.B2AccountID = viper.GetString("B2_ACCOUNT_ID")
	config.Storage.B2AppKey = viper.GetString("B2_APP_KEY")
	config.Storage.B2Bucket = viper.GetString("B2_BUCKET")
	config.Storage.LocalDir = viper.GetString("STORAGE_LOCAL_DIR")

	config.AnswerKeySecret = viper.GetString("ANSWER_KEY_SECRET")
	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	log.Info().Str("port", config.Server.Port).Msg("Config loaded")
	return &config, nil
}
