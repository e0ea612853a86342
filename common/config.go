package common

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the whole environment surface of the server.
type Config struct {
	Environment      string `env:"ENV" envDefault:"production"`
	Port             string `env:"PORT" envDefault:"8080"`
	Domain           string `env:"DOMAIN" envDefault:"http://localhost:8080"`
	SQLitePath       string `env:"SQLITE_DB"`
	SessionSecret    string `env:"SESSION_SECRET"`
	UploadDir        string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	BackofficeEmails string `env:"BACKOFFICE_EMAILS"` // comma-separated operator allowlist

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
}

// LoadConfig reads .env if present, then parses the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
