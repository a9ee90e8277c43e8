package config

// DatabaseConfig holds record store configuration
type DatabaseConfig struct {
	Type       string         `mapstructure:"type"        yaml:"type"`
	LogQueries bool           `mapstructure:"log_queries" yaml:"log_queries"`
	SQLite     SQLiteDBConfig `mapstructure:"sqlite"      yaml:"sqlite"`
}

// SQLiteDBConfig holds SQLite-specific configuration
type SQLiteDBConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}
