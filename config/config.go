package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rvi-ar/casos-api/logging"
	"github.com/rvi-ar/casos-api/models"
)

// Config holds the project config values
type Config struct {
	Env            string           `yaml:"env"`
	URL            string           `yaml:"dbUri"`
	DatabaseName   string           `yaml:"dbName"`
	BaseURL        string           `yaml:"baseUrl"`
	AppRoot        string           `yaml:"appRoot"`
	Port           string           `yaml:"port"`
	RequestTimeout time.Duration    `yaml:"requestTimeout"`
	Auth           AuthConfig       `yaml:"auth"`
	Mail           MailConfig       `yaml:"mail"`
	Cloudinary     CloudinaryConfig `yaml:"cloudinary"`
	Geo            GeoConfig        `yaml:"geo"`
}

// AuthConfig configures the authentication gate
type AuthConfig struct {
	DevBypass       bool          `yaml:"devBypass"` // skips every credential check, local development only
	JWTSecret       string        `yaml:"jwtSecret"`
	CallbackTimeout time.Duration `yaml:"callbackTimeout"`
	MagicLinkTTL    time.Duration `yaml:"magicLinkTTL"`
}

// MailConfig configures outgoing email
type MailConfig struct {
	SendGridAPIKey      string   `yaml:"sendgridApiKey"`
	FromAddress         string   `yaml:"fromAddress"`
	FromName            string   `yaml:"fromName"`
	NotifyEmails        []string `yaml:"notifyEmails"`
	AnniversarySchedule string   `yaml:"anniversarySchedule"`
}

// CloudinaryConfig configures the object store for uploaded resources
type CloudinaryConfig struct {
	URL       string `yaml:"url"`
	CloudName string `yaml:"cloudName"`
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
	Folder    string `yaml:"folder"`
}

// GeoConfig configures the public geographic lookups
type GeoConfig struct {
	GeoRefURL    string        `yaml:"georefUrl"`
	CountriesURL string        `yaml:"countriesUrl"`
	RedisURL     string        `yaml:"redisUrl"`
	CacheTTL     time.Duration `yaml:"cacheTTL"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Env:            "local",
		DatabaseName:   "casos",
		AppRoot:        "/",
		Port:           "8080",
		RequestTimeout: 30 * time.Second,
		Auth: AuthConfig{
			CallbackTimeout: 8 * time.Second,
			MagicLinkTTL:    15 * time.Minute,
		},
		Mail: MailConfig{
			FromAddress:         "no-reply@registro-violencia.org.ar",
			FromName:            "Registro de Casos",
			AnniversarySchedule: "0 9 * * *",
		},
		Cloudinary: CloudinaryConfig{
			Folder: "recursos",
		},
		Geo: GeoConfig{
			GeoRefURL:    "https://apis.datos.gob.ar/georef/api",
			CountriesURL: "https://restcountries.com/v3.1",
			CacheTTL:     24 * time.Hour,
		},
	}
}

// Load reads an optional YAML file, then applies environment overrides and
// replaces the global logger. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	c.applyEnvOverrides()
	setupLogger(c.Env)
	return c, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Env, "APP_ENV")
	setString(&c.URL, "DB_URI")
	setString(&c.DatabaseName, "DB_NAME")
	setString(&c.BaseURL, "BASE_URL")
	setString(&c.AppRoot, "APP_ROOT")
	setString(&c.Port, "PORT")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Mail.SendGridAPIKey, "SENDGRID_API_KEY")
	setString(&c.Mail.FromAddress, "MAIL_FROM")
	setString(&c.Mail.AnniversarySchedule, "ANNIVERSARY_SCHEDULE")
	setString(&c.Cloudinary.URL, "CLOUDINARY_URL")
	setString(&c.Cloudinary.CloudName, "CLOUDINARY_CLOUD_NAME")
	setString(&c.Cloudinary.APIKey, "CLOUDINARY_API_KEY")
	setString(&c.Cloudinary.APISecret, "CLOUDINARY_API_SECRET")
	setString(&c.Cloudinary.Folder, "CLOUDINARY_FOLDER")
	setString(&c.Geo.GeoRefURL, "GEOREF_URL")
	setString(&c.Geo.CountriesURL, "COUNTRIES_URL")
	setString(&c.Geo.RedisURL, "REDIS_URL")

	if v, ok := os.LookupEnv("DEV_BYPASS_AUTH"); ok {
		c.Auth.DevBypass = v == "true" || v == "1"
	}
	if v := os.Getenv("NOTIFY_EMAILS"); v != "" {
		c.Mail.NotifyEmails = splitList(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setupLogger(env string) {
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)
}

// setLogger picks the zap flavor for the environment
func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With("error", err).Error(message)
	resp := models.ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
