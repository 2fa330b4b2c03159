package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
	Vision     VisionConfig     `yaml:"vision"`
	Upload     UploadConfig     `yaml:"upload"`
	Thumbnail  ThumbnailConfig  `yaml:"thumbnail"`
	Queue      QueueConfig      `yaml:"queue"`
	JWT        JWTConfig        `yaml:"jwt"`
	Pagination PaginationConfig `yaml:"pagination"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Endpoint         string `yaml:"endpoint"`
	AccessKeyID      string `yaml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key"`
	Bucket           string `yaml:"bucket"`
	UseSSL           bool   `yaml:"use_ssl"`
	SignedURLExpire  int    `yaml:"signed_url_expire_seconds"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_seconds"`
}

type VisionConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	MaxLabels       int    `yaml:"max_labels"`
}

type UploadConfig struct {
	MaxFileSize      int64    `yaml:"max_file_size"`
	MaxFilesPerBatch int      `yaml:"max_files_per_batch"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types"`
	MaxDimension     int      `yaml:"max_dimension"`
	JPEGQuality      int      `yaml:"jpeg_quality"`
}

type ThumbnailConfig struct {
	Size    int `yaml:"size"`
	Quality int `yaml:"quality"`
}

type QueueConfig struct {
	Name           string `yaml:"name"`
	Concurrency    int    `yaml:"concurrency"`
	MaxRetry       int    `yaml:"max_retry"`
	RetryBaseDelay int    `yaml:"retry_base_delay_seconds"`
	TaskTimeout    int    `yaml:"task_timeout_seconds"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type PaginationConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var AppConfig *Config

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	AppConfig = &cfg
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Upload.MaxFileSize == 0 {
		cfg.Upload.MaxFileSize = 10 << 20
	}
	if cfg.Upload.MaxFilesPerBatch == 0 {
		cfg.Upload.MaxFilesPerBatch = 10
	}
	if len(cfg.Upload.AllowedMimeTypes) == 0 {
		cfg.Upload.AllowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp"}
	}
	if cfg.Upload.MaxDimension == 0 {
		cfg.Upload.MaxDimension = 2400
	}
	if cfg.Upload.JPEGQuality == 0 {
		cfg.Upload.JPEGQuality = 90
	}
	if cfg.Thumbnail.Size == 0 {
		cfg.Thumbnail.Size = 300
	}
	if cfg.Thumbnail.Quality == 0 {
		cfg.Thumbnail.Quality = 85
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "analysis"
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 2
	}
	if cfg.Queue.MaxRetry == 0 {
		cfg.Queue.MaxRetry = 5
	}
	if cfg.Queue.RetryBaseDelay == 0 {
		cfg.Queue.RetryBaseDelay = 3
	}
	if cfg.Queue.TaskTimeout == 0 {
		cfg.Queue.TaskTimeout = 300
	}
	if cfg.Vision.MaxLabels == 0 {
		cfg.Vision.MaxLabels = 10
	}
	if cfg.Storage.SignedURLExpire == 0 {
		cfg.Storage.SignedURLExpire = 3600
	}
	if cfg.Storage.FetchTimeoutSecs == 0 {
		cfg.Storage.FetchTimeoutSecs = 30
	}
	if cfg.Pagination.DefaultPageSize == 0 {
		cfg.Pagination.DefaultPageSize = 20
	}
	if cfg.Pagination.MaxPageSize == 0 {
		cfg.Pagination.MaxPageSize = 100
	}
	if cfg.JWT.ExpireHours == 0 {
		cfg.JWT.ExpireHours = 24
	}
}
