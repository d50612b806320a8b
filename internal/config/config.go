package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/timmy/linemaint/internal/apiclient"
	"github.com/timmy/linemaint/internal/storage"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`   // sqlite file
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, s3, r2, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	LocalDir  string `mapstructure:"local_dir"`
}

type UploadConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"` // bytes
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

type ClientConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIPrefix string        `mapstructure:"api_prefix"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GetStorageConfig converts the storage section for storage.NewStorage.
func (c *Config) GetStorageConfig() *storage.Config {
	return &storage.Config{
		Type:      storage.StorageType(c.Storage.Type),
		Endpoint:  c.Storage.Endpoint,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
		UseSSL:    c.Storage.UseSSL,
		Bucket:    c.Storage.Bucket,
		Region:    c.Storage.Region,
		PublicURL: c.Storage.PublicURL,
		LocalDir:  c.Storage.LocalDir,
	}
}

// GetClientConfig converts the client section for apiclient.New.
func (c *Config) GetClientConfig() apiclient.Config {
	return apiclient.Config{
		BaseURL:   c.Client.BaseURL,
		APIPrefix: c.Client.APIPrefix,
		Timeout:   c.Client.Timeout,
	}
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/linemaint.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "linemaint")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "./data/photos")
	v.SetDefault("storage.bucket", "linemaint")
	v.SetDefault("upload.max_file_size", 10*1024*1024)
	v.SetDefault("upload.allowed_extensions", []string{".jpg", ".jpeg", ".png", ".webp"})
	v.SetDefault("client.base_url", apiclient.DefaultBaseURL)
	v.SetDefault("client.api_prefix", apiclient.DefaultAPIPrefix)
	v.SetDefault("client.timeout", apiclient.DefaultTimeout)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("client.base_url", "MAINTENANCE_API_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
