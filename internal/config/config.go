package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	// EnvPrefix is the prefix of environment variables overriding the configuration file.
	// Nested keys are separated with a double underscore, e.g. VWARMUP_CHARGER__PASSWORD.
	EnvPrefix = "VWARMUP_"

	DefaultEaseeBaseURL     = "https://api.easee.com"
	DefaultWeConnectBaseURL = "https://emea.bff.cariad.digital"

	defaultPollingInterval = 5 * time.Minute
	defaultHTTPTimeout     = 30 * time.Second
	defaultQueueSize       = 4
)

// Config is a model containing all application configuration settings.
type Config struct {
	LogLevel          string `json:"logLevel"`
	LogFormat         string `json:"logFormat"`
	LogFile           string `json:"logFile"`
	SuppressTimerLogs bool   `json:"suppressTimerLogs"`

	PollingInterval string `json:"pollingInterval"`
	HTTPTimeout     string `json:"httpTimeout"`
	QueueSize       int    `json:"queueSize"`

	Vehicle VehicleCfg `json:"vehicle"`
	Charger ChargerCfg `json:"charger"`

	// PollBackoff skips scheduled polls after failures. Waits longer than the polling interval
	// delay the reaction to a climatisation change by whole cycles.
	PollBackoff BackoffCfg `json:"pollBackoff"`
	AuthBackoff BackoffCfg `json:"authBackoff"`

	Metrics MetricsCfg `json:"metrics"`
	MQTT    MQTTCfg    `json:"mqtt"`
}

// VehicleCfg holds the vehicle service settings.
type VehicleCfg struct {
	// BaseURL serves the vehicle endpoints under /vehicle/v1 and the password login at
	// POST /login/v1/token, which takes {"username", "password"} and returns
	// {"accessToken", "refreshToken", "expiresIn"}. The cariad service only offers the vehicle
	// endpoints, so the login requires a token proxy in front of it.
	BaseURL  string `json:"baseURL"`
	Username string `json:"username"`
	Password string `json:"password"`
	// VIN selects the vehicle, the first vehicle of the account is used when empty.
	VIN string `json:"vin"`
}

// ChargerCfg holds the Easee charger service settings.
type ChargerCfg struct {
	BaseURL  string `json:"baseURL"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// BackoffCfg is a raw backoff configuration, durations are Go duration strings.
type BackoffCfg struct {
	InitialBackoff       string `json:"initialBackoff"`
	RepeatedBackoff      string `json:"repeatedBackoff"`
	FinalBackoff         string `json:"finalBackoff"`
	InitialFailureCount  uint32 `json:"initialFailureCount"`
	RepeatedFailureCount uint32 `json:"repeatedFailureCount"`
}

// MetricsCfg configures the Prometheus endpoint. Empty address disables it.
type MetricsCfg struct {
	Address string `json:"address"`
}

// MQTTCfg configures outcome reports over FIMP. Empty server URI disables them.
type MQTTCfg struct {
	ServerURI      string `json:"serverURI"`
	ClientIDPrefix string `json:"clientIDPrefix"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Topic          string `json:"topic"`
}

// Credentials are a username and password pair for one of the remote services.
type Credentials struct {
	Username string
	Password string
}

// Empty checks if any part of the credentials is missing.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

// Backoff is a parsed backoff configuration.
type Backoff struct {
	InitialBackoff       time.Duration
	RepeatedBackoff      time.Duration
	FinalBackoff         time.Duration
	InitialFailureCount  uint32
	RepeatedFailureCount uint32
}

// New returns a configuration with default settings.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		PollingInterval: defaultPollingInterval.String(),
		HTTPTimeout:     defaultHTTPTimeout.String(),
		QueueSize:       defaultQueueSize,
		Vehicle:         VehicleCfg{BaseURL: DefaultWeConnectBaseURL},
		Charger:         ChargerCfg{BaseURL: DefaultEaseeBaseURL},
		PollBackoff: BackoffCfg{
			InitialBackoff:       "1m",
			RepeatedBackoff:      "2m",
			FinalBackoff:         "4m",
			InitialFailureCount:  3,
			RepeatedFailureCount: 3,
		},
		AuthBackoff: BackoffCfg{
			InitialBackoff:       "30s",
			RepeatedBackoff:      "5m",
			FinalBackoff:         "30m",
			InitialFailureCount:  2,
			RepeatedFailureCount: 3,
		},
		MQTT: MQTTCfg{
			ClientIDPrefix: "vwarmup",
			Topic:          "pt:j1/mt:evt/rt:app/rn:vwarmup/ad:1",
		},
	}
}

// Load reads the configuration from an optional JSON file and the environment.
// Environment variables take precedence over the file, and defaults fill whatever is left empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), json.Parser()); err != nil {
				return nil, errors.Wrapf(err, "failed to load configuration file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to access configuration file %s", path)
		}
	}

	keys := knownKeys(reflect.TypeOf(Config{}), "")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		name = strings.ReplaceAll(name, "__", ".")

		if key, ok := keys[name]; ok {
			return key
		}

		return name
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration from environment")
	}

	cfg := New()

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	return cfg, nil
}

// Validate checks that the settings required to run are present.
func (c *Config) Validate() error {
	var missing []string

	if c.Vehicle.Username == "" {
		missing = append(missing, "vehicle username")
	}

	if c.Vehicle.Password == "" {
		missing = append(missing, "vehicle password")
	}

	if c.Charger.Username == "" {
		missing = append(missing, "charger username")
	}

	if c.Charger.Password == "" {
		missing = append(missing, "charger password")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.QueueSize < 0 {
		return fmt.Errorf("queue size must not be negative, got %d", c.QueueSize)
	}

	return nil
}

// knownKeys maps lower-cased configuration paths to their canonical form, so that
// case-insensitive environment variables land on the same keys as the file.
func knownKeys(t reflect.Type, prefix string) map[string]string {
	keys := make(map[string]string)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		tag := strings.Split(field.Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}

		key := prefix + tag

		if field.Type.Kind() == reflect.Struct {
			for k, v := range knownKeys(field.Type, key+".") {
				keys[k] = v
			}

			continue
		}

		keys[strings.ToLower(key)] = key
	}

	return keys
}

// Service provides concurrency safe access to the settings.
type Service struct {
	lock  *sync.RWMutex
	model *Config
}

// NewService creates a new configuration service.
func NewService(cfg *Config) *Service {
	return &Service{
		lock:  &sync.RWMutex{},
		model: cfg,
	}
}

// Model returns the underlying configuration.
func (cs *Service) Model() *Config {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return cs.model
}

// GetVehicleCredentials allows to safely access a configuration setting.
func (cs *Service) GetVehicleCredentials() Credentials {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return Credentials{Username: cs.model.Vehicle.Username, Password: cs.model.Vehicle.Password}
}

// GetChargerCredentials allows to safely access a configuration setting.
func (cs *Service) GetChargerCredentials() Credentials {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return Credentials{Username: cs.model.Charger.Username, Password: cs.model.Charger.Password}
}

// GetVehicleBaseURL allows to safely access a configuration setting.
func (cs *Service) GetVehicleBaseURL() string {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return strings.TrimSuffix(cs.model.Vehicle.BaseURL, "/")
}

// GetVIN allows to safely access a configuration setting.
func (cs *Service) GetVIN() string {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return cs.model.Vehicle.VIN
}

// GetEaseeBaseURL allows to safely access a configuration setting.
func (cs *Service) GetEaseeBaseURL() string {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return strings.TrimSuffix(cs.model.Charger.BaseURL, "/")
}

// GetPollingInterval allows to safely access a configuration setting.
func (cs *Service) GetPollingInterval() time.Duration {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	interval := parseDuration(cs.model.PollingInterval, defaultPollingInterval)
	if interval == 0 {
		return defaultPollingInterval
	}

	return interval
}

// GetHTTPTimeout allows to safely access a configuration setting.
func (cs *Service) GetHTTPTimeout() time.Duration {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return parseDuration(cs.model.HTTPTimeout, defaultHTTPTimeout)
}

// GetQueueSize allows to safely access a configuration setting.
func (cs *Service) GetQueueSize() int {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	if cs.model.QueueSize <= 0 {
		return defaultQueueSize
	}

	return cs.model.QueueSize
}

// GetPollBackoffCfg allows to safely access a configuration setting.
func (cs *Service) GetPollBackoffCfg() Backoff {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return cs.model.PollBackoff.parse()
}

// GetAuthBackoffCfg allows to safely access a configuration setting.
func (cs *Service) GetAuthBackoffCfg() Backoff {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return cs.model.AuthBackoff.parse()
}

// GetMetricsAddress allows to safely access a configuration setting.
func (cs *Service) GetMetricsAddress() string {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return cs.model.Metrics.Address
}

// GetMQTT allows to safely access a configuration setting.
func (cs *Service) GetMQTT() MQTTCfg {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return cs.model.MQTT
}

// GetSuppressTimerLogs allows to safely access a configuration setting.
func (cs *Service) GetSuppressTimerLogs() bool {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return cs.model.SuppressTimerLogs
}

func (b BackoffCfg) parse() Backoff {
	return Backoff{
		InitialBackoff:       parseDuration(b.InitialBackoff, 0),
		RepeatedBackoff:      parseDuration(b.RepeatedBackoff, 0),
		FinalBackoff:         parseDuration(b.FinalBackoff, 0),
		InitialFailureCount:  b.InitialFailureCount,
		RepeatedFailureCount: b.RepeatedFailureCount,
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}

	return d
}
