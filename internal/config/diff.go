package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; anything else
// (listen address, storage DSN, provider selection) needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// TTSKeysChanged is true when the voice key pool credential list changed.
	TTSKeysChanged bool

	// InterviewChanged is true when retry or deadline tuning changed. New
	// sessions pick the values up; running sessions keep their snapshot.
	InterviewChanged bool
}

// Empty reports whether no tracked field changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.TTSKeysChanged && !d.InterviewChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Providers.TTS.APIKeys, new.Providers.TTS.APIKeys) {
		d.TTSKeysChanged = true
	}

	if old.Interview != new.Interview {
		d.InterviewChanged = true
	}

	return d
}
