package config

import "github.com/spf13/viper"

func GetDefault() BaseConfig {
	return BaseConfig{
		ShutdownTimeout: "10s",

		Log: LogConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},
		Database: DatabaseConfig{
			Type:       "sqlite",
			LogQueries: false,
			SQLite: SQLiteDBConfig{
				Path: "alder.db",
			},
		},
		Opal: OpalConfig{
			Host:     "localhost",
			Port:     8843,
			Username: "",
			Password: "",
			Timeout:  "30s",
			Insecure: false,
			PageSize: 100,
		},
		Images: ImagesConfig{
			Root: "images",
		},
		Admin: AdminConfig{
			Username: "administrator",
		},
	}
}

func setDefaults() {
	defaults := GetDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("database.type", defaults.Database.Type)
	viper.SetDefault("database.log_queries", defaults.Database.LogQueries)
	viper.SetDefault("database.sqlite.path", defaults.Database.SQLite.Path)

	viper.SetDefault("opal.host", defaults.Opal.Host)
	viper.SetDefault("opal.port", defaults.Opal.Port)
	viper.SetDefault("opal.username", defaults.Opal.Username)
	viper.SetDefault("opal.password", defaults.Opal.Password)
	viper.SetDefault("opal.timeout", defaults.Opal.Timeout)
	viper.SetDefault("opal.insecure", defaults.Opal.Insecure)
	viper.SetDefault("opal.page_size", defaults.Opal.PageSize)

	viper.SetDefault("images.root", defaults.Images.Root)

	viper.SetDefault("admin.username", defaults.Admin.Username)
	viper.SetDefault("admin.password", defaults.Admin.Password)
}
