package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix          = "COMMONS"
	defaultHTTPAddress = "0.0.0.0:8080"
	defaultDatabaseURL = "commons.db"
	defaultLogLevel    = "info"
	defaultMpesaEnv    = "sandbox"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress string
	DatabaseURL string
	LogLevel    string
	Mpesa       MpesaConfig
}

// MpesaConfig holds the Daraja credentials used for STK push payments.
type MpesaConfig struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	BaseURL        string
}

// Configured reports whether every credential needed to reach the provider is present.
func (m MpesaConfig) Configured() bool {
	return len(m.missing()) == 0
}

func (m MpesaConfig) missing() []string {
	var missing []string
	for key, value := range map[string]string{
		"mpesa.consumer_key":    m.ConsumerKey,
		"mpesa.consumer_secret": m.ConsumerSecret,
		"mpesa.shortcode":       m.Shortcode,
		"mpesa.passkey":         m.Passkey,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func (m MpesaConfig) empty() bool {
	return strings.TrimSpace(m.ConsumerKey) == "" &&
		strings.TrimSpace(m.ConsumerSecret) == "" &&
		strings.TrimSpace(m.Shortcode) == "" &&
		strings.TrimSpace(m.Passkey) == ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
// Unprefixed DATABASE_URL and MPESA_* variables are honoured alongside the COMMONS_ ones.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.url", defaultDatabaseURL)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("mpesa.env", defaultMpesaEnv)

	mustBindEnv(configViper, "database.url", "COMMONS_DATABASE_URL", "DATABASE_URL")
	mustBindEnv(configViper, "mpesa.env", "COMMONS_MPESA_ENV", "MPESA_ENV")
	mustBindEnv(configViper, "mpesa.consumer_key", "COMMONS_MPESA_CONSUMER_KEY", "MPESA_CONSUMER_KEY")
	mustBindEnv(configViper, "mpesa.consumer_secret", "COMMONS_MPESA_CONSUMER_SECRET", "MPESA_CONSUMER_SECRET")
	mustBindEnv(configViper, "mpesa.shortcode", "COMMONS_MPESA_SHORTCODE", "MPESA_SHORTCODE")
	mustBindEnv(configViper, "mpesa.passkey", "COMMONS_MPESA_PASSKEY", "MPESA_PASSKEY")
	mustBindEnv(configViper, "mpesa.base_url", "COMMONS_MPESA_BASE_URL", "MPESA_BASE_URL")
}

func mustBindEnv(configViper *viper.Viper, key string, envNames ...string) {
	input := append([]string{key}, envNames...)
	if err := configViper.BindEnv(input...); err != nil {
		panic(fmt.Sprintf("bind env %s: %v", key, err))
	}
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress: configViper.GetString("http.address"),
		DatabaseURL: configViper.GetString("database.url"),
		LogLevel:    configViper.GetString("log.level"),
		Mpesa: MpesaConfig{
			Environment:    configViper.GetString("mpesa.env"),
			ConsumerKey:    configViper.GetString("mpesa.consumer_key"),
			ConsumerSecret: configViper.GetString("mpesa.consumer_secret"),
			Shortcode:      configViper.GetString("mpesa.shortcode"),
			Passkey:        configViper.GetString("mpesa.passkey"),
			BaseURL:        configViper.GetString("mpesa.base_url"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("database.url is required")
	}
	switch c.Mpesa.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("mpesa.env must be sandbox or production, got %q", c.Mpesa.Environment)
	}
	// Payments are optional; a partial credential set is a misconfiguration.
	if !c.Mpesa.empty() && !c.Mpesa.Configured() {
		missing := c.Mpesa.missing()
		sort.Strings(missing)
		return fmt.Errorf("incomplete mpesa credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}
