// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers = []string{"sqlite", "postgres"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("auth.jwt_secret", "auth_jwt_secret")
	v.BindEnv("auth.token_expiry", "auth_token_expiry")
	v.BindEnv("auth.admin_email", "auth_admin_email")
	v.BindEnv("auth.admin_password", "auth_admin_password")

	v.BindEnv("storage.sync_dir", "storage_sync_dir")
	v.BindEnv("storage.default_quota", "storage_default_quota")
	v.BindEnv("storage.system_owner_email", "storage_system_owner_email")

	v.BindEnv("upload.max_size", "upload_max_size")

	v.BindEnv("crypto.key_path", "crypto_key_path")

	v.BindEnv("watcher.rescan_minutes", "watcher_rescan_minutes")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "websync.db")

	v.SetDefault("auth.token_expiry", 86400)
	v.SetDefault("auth.admin_email", "admin@websync.local")

	v.SetDefault("storage.sync_dir", "uploads")
	v.SetDefault("storage.default_quota", 1024)

	v.SetDefault("upload.max_size", 50)

	v.SetDefault("crypto.key_path", "clipboard.key")

	v.SetDefault("watcher.rescan_minutes", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("database dsn can't be empty")
	}

	if v.GetString("auth.jwt_secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetInt("auth.token_expiry") <= 0 {
		return errors.New("token expiry must be bigger than 0")
	}

	if v.GetString("auth.admin_password") == "" {
		fmt.Println("WARNING: You haven't set an initial admin password, so one has been generated for you:\n\n" + genSecret()[:16] + "\n\nSet it as auth.admin_password in your config.toml file and restart.")
		os.Exit(0)
	}

	if v.GetString("storage.sync_dir") == "" {
		return errors.New("sync dir can't be empty")
	}

	if v.GetInt64("storage.default_quota") <= 0 {
		return errors.New("default quota must be bigger than 0")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("max upload size must be bigger than 0")
	}

	if v.GetString("crypto.key_path") == "" {
		return errors.New("clipboard key path can't be empty")
	}

	if v.GetInt("watcher.rescan_minutes") < 0 {
		return errors.New("rescan interval can't be negative")
	}

	// Both are configured in megabytes
	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	v.Set("storage.default_quota", v.GetInt64("storage.default_quota")<<20)
	return nil
}
