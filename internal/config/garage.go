package config

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GarageConfig holds the shop settings that can change while the server runs.
type GarageConfig struct {
	Currency           string  `mapstructure:"currency"`
	CheckoutSuccessURL string  `mapstructure:"checkoutSuccessURL"`
	CheckoutCancelURL  string  `mapstructure:"checkoutCancelURL"`
	CheckoutRate       float64 `mapstructure:"checkoutRate"`
	CheckoutBurst      int     `mapstructure:"checkoutBurst"`
}

func DefaultGarageConfig() GarageConfig {
	return GarageConfig{
		Currency:           "USD",
		CheckoutSuccessURL: "http://localhost:3000/invoices",
		CheckoutCancelURL:  "http://localhost:3000/invoices",
		CheckoutRate:       0.2,
		CheckoutBurst:      5,
	}
}

type GarageConfigHolder struct {
	current atomic.Value // holds GarageConfig
}

// NewStaticGarageConfigHolder returns a holder that never reloads.
func NewStaticGarageConfigHolder(cfg GarageConfig) *GarageConfigHolder {
	holder := &GarageConfigHolder{}
	holder.current.Store(normalizeGarageConfig(cfg))
	return holder
}

func NewGarageConfigHolder(cfg Config) (*GarageConfigHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(cfg.GarageConfigPath); path != "" {
		v.SetConfigFile(filepath.Clean(path))
	} else {
		v.SetConfigName("garage")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/garagedesk")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GARAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultGarageConfig()
	v.SetDefault("garage.currency", defaults.Currency)
	v.SetDefault("garage.checkoutSuccessURL", defaults.CheckoutSuccessURL)
	v.SetDefault("garage.checkoutRate", defaults.CheckoutRate)
	v.SetDefault("garage.checkoutBurst", defaults.CheckoutBurst)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	garage, err := decodeGarageConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &GarageConfigHolder{}
	holder.current.Store(garage)

	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeGarageConfig(v)
		if err != nil {
			log.Printf("[garage-config] reload ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[garage-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *GarageConfigHolder) Get() GarageConfig {
	if h == nil {
		return DefaultGarageConfig()
	}
	cfg, ok := h.current.Load().(GarageConfig)
	if !ok {
		return DefaultGarageConfig()
	}
	return cfg
}

// decodeGarageConfig unmarshals the merged settings so defaults fill keys
// missing from the file.
func decodeGarageConfig(v *viper.Viper) (GarageConfig, error) {
	var wrapper struct {
		Garage GarageConfig `mapstructure:"garage"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return GarageConfig{}, err
	}
	if err := validateGarageConfig(wrapper.Garage); err != nil {
		return GarageConfig{}, err
	}
	return normalizeGarageConfig(wrapper.Garage), nil
}

func validateGarageConfig(cfg GarageConfig) error {
	if len(strings.TrimSpace(cfg.Currency)) != 3 {
		return errors.New("garage.currency must be a 3-letter code")
	}
	if strings.TrimSpace(cfg.CheckoutSuccessURL) == "" {
		return errors.New("garage.checkoutSuccessURL cannot be empty")
	}
	if cfg.CheckoutRate < 0 || cfg.CheckoutBurst < 0 {
		return errors.New("garage.checkoutRate and garage.checkoutBurst cannot be negative")
	}
	return nil
}

func normalizeGarageConfig(cfg GarageConfig) GarageConfig {
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	cfg.CheckoutSuccessURL = strings.TrimSpace(cfg.CheckoutSuccessURL)
	cfg.CheckoutCancelURL = strings.TrimSpace(cfg.CheckoutCancelURL)
	if cfg.CheckoutCancelURL == "" {
		cfg.CheckoutCancelURL = cfg.CheckoutSuccessURL
	}
	return cfg
}
