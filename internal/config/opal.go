package config

// OpalConfig describes how to reach the remote study-data service.
type OpalConfig struct {
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     int    `mapstructure:"port"     yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Timeout  string `mapstructure:"timeout"  yaml:"timeout"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
	PageSize int    `mapstructure:"page_size" yaml:"page_size"`
}

// ImagesConfig controls where downloaded image files are written.
type ImagesConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// AdminConfig names the account allowed to run batch maintenance tools.
type AdminConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}
