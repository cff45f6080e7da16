package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sangpham88/ncore/clock"
	"github.com/sangpham88/ncore/eeprom"
	"github.com/sangpham88/ncore/logger"
	"github.com/sangpham88/ncore/pins"
	"github.com/sangpham88/ncore/serial"
	"github.com/sangpham88/ncore/shell"
)

// EnvPrefix prefixes environment overrides: eeprom.path is read from
// NCORE_EEPROM_PATH.
const EnvPrefix = "NCORE"

// Loader layers configuration sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader holding only the defaults.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag makes a command-line flag override key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for config key '%s'", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads path, if given, and returns the validated configuration.
// Without a path, ncore.{yaml,toml,json} is looked for in the current
// directory and in ~/.config/ncore, and a missing file is not an error.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName("ncore")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("$HOME/.config/ncore")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FileUsed returns the config file that was read, or "".
func (l *Loader) FileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load is shorthand for NewLoader().Load(path).
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Default returns the configuration with no file, environment or flags.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sketch", "idle")

	v.SetDefault("clock.mode", string(clock.ModeWall))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.journal", false)
	v.SetDefault("logging.history", logger.DefaultHistory)

	v.SetDefault("pins.count", pins.DefaultCount)

	v.SetDefault("serial.rx_capacity", serial.DefaultRxCapacity)
	v.SetDefault("serial.tx_capacity", serial.DefaultTxCapacity)
	v.SetDefault("serial.baud", serial.DefaultBaud)

	v.SetDefault("eeprom.size", eeprom.DefaultSize)
	v.SetDefault("eeprom.backend", string(eeprom.BackendFile))
	v.SetDefault("eeprom.path", "eeprom.bin")
	v.SetDefault("eeprom.autosave", false)

	v.SetDefault("shell.prompt", shell.DefaultPrompt)
	v.SetDefault("shell.history_file", "")
	v.SetDefault("shell.history_limit", shell.DefaultHistoryLimit)
	v.SetDefault("shell.color", true)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Sketch == "" {
		return errors.New("config: sketch must not be empty")
	}
	if _, ok := clock.New(clock.Mode(c.Clock.Mode)); !ok {
		return fmt.Errorf("config: clock.mode '%s' is not wall or virtual", c.Clock.Mode)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: logging.level: %w", err)
	}
	if c.Pins.Count < 1 || c.Pins.Count > 256 {
		return fmt.Errorf("config: pins.count %d out of range 1..256", c.Pins.Count)
	}
	if c.Serial.RxCapacity < 1 || c.Serial.TxCapacity < 1 {
		return errors.New("config: serial capacities must be positive")
	}
	if c.Serial.Baud < 1 {
		return fmt.Errorf("config: serial.baud %d must be positive", c.Serial.Baud)
	}
	if c.EEPROM.Size < 1 || c.EEPROM.Size > 1<<20 {
		return fmt.Errorf("config: eeprom.size %d out of range 1..%d", c.EEPROM.Size, 1<<20)
	}
	switch eeprom.Backend(c.EEPROM.Backend) {
	case eeprom.BackendFile, eeprom.BackendSQLite:
		if c.EEPROM.Path == "" {
			return fmt.Errorf("config: eeprom.path is required for the %s backend", c.EEPROM.Backend)
		}
	case eeprom.BackendMemory:
	default:
		return fmt.Errorf("config: eeprom.backend '%s' is not file, sqlite or memory", c.EEPROM.Backend)
	}
	return nil
}
