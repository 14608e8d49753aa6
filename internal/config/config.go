package config

import (
	"log/slog"
	"os"

	"github.com/corray333/backend-labs/serviceorder/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MustInit loads .env and config.yaml and installs the default logger.
// A missing .env is fine when the environment is provided by the container.
func MustInit() {
	envErr := godotenv.Load("./.env")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/service-order-svc")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()

	if envErr != nil {
		slog.Debug("No .env file loaded", "error", envErr)
	}
	slog.Info("Configuration loaded", "file", viper.ConfigFileUsed())
}

// SetupLogger installs a JSON logger at log.level as the slog default.
func SetupLogger() {
	log := logger.New(os.Stdout, logger.ParseLevel(viper.GetString("log.level")))
	slog.SetDefault(log)
}
