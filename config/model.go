// Package config loads emulator settings from defaults, an optional
// config file, NCORE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

// Config is the complete emulator configuration.
type Config struct {
	// Sketch names the built-in sketch to run.
	Sketch string `mapstructure:"sketch" yaml:"sketch"`

	Clock   ClockConfig   `mapstructure:"clock" yaml:"clock"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Pins    PinsConfig    `mapstructure:"pins" yaml:"pins"`
	Serial  SerialConfig  `mapstructure:"serial" yaml:"serial"`
	EEPROM  EEPROMConfig  `mapstructure:"eeprom" yaml:"eeprom"`
	Shell   ShellConfig   `mapstructure:"shell" yaml:"shell"`
}

// ClockConfig selects the time source.
type ClockConfig struct {
	// Mode is "wall" or "virtual".
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// LoggingConfig configures the diagnostic sink.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level" yaml:"level"`
	// File receives a copy of every record when set.
	File string `mapstructure:"file" yaml:"file"`
	// Journal sends records to the systemd journal.
	Journal bool `mapstructure:"journal" yaml:"journal"`
	// History is the number of lines kept for log-history.
	History int `mapstructure:"history" yaml:"history"`
}

// PinsConfig sizes the pin bank.
type PinsConfig struct {
	Count int `mapstructure:"count" yaml:"count"`
}

// SerialConfig sizes the serial queues.
type SerialConfig struct {
	RxCapacity int `mapstructure:"rx_capacity" yaml:"rx_capacity"`
	TxCapacity int `mapstructure:"tx_capacity" yaml:"tx_capacity"`
	Baud       int `mapstructure:"baud" yaml:"baud"`
}

// EEPROMConfig sizes the EEPROM and selects where it is persisted.
type EEPROMConfig struct {
	Size int `mapstructure:"size" yaml:"size"`
	// Backend is file, sqlite or memory.
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is the image file or database. Unused by the memory backend.
	Path     string `mapstructure:"path" yaml:"path"`
	AutoSave bool   `mapstructure:"autosave" yaml:"autosave"`
}

// ShellConfig configures the interactive shell.
type ShellConfig struct {
	Prompt       string `mapstructure:"prompt" yaml:"prompt"`
	HistoryFile  string `mapstructure:"history_file" yaml:"history_file"`
	HistoryLimit int    `mapstructure:"history_limit" yaml:"history_limit"`
	Color        bool   `mapstructure:"color" yaml:"color"`
}
