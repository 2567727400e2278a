package recorder

import "github.com/pkg/errors"

// Config is the recorder configuration, read from YAML. Durations are plain
// millisecond integers. Validation failures here are the only fatal errors in
// the system; everything after startup is retried or suppressed.
type Config struct {
	SourcePath string `json:"source_path" yaml:"source_path"`
	StorePath  string `json:"store_path" yaml:"store_path"`
	HTTPPort   uint16 `json:"http_port" yaml:"http_port"`

	PollIntervalMs int `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	ReadTimeoutMs  int `json:"read_timeout_ms" yaml:"read_timeout_ms"`

	QueueSize int `json:"queue_size" yaml:"queue_size"`

	BackoffMinMs int `json:"backoff_min_ms" yaml:"backoff_min_ms"`
	BackoffMaxMs int `json:"backoff_max_ms" yaml:"backoff_max_ms"`

	PersistenceMaxAttempts int  `json:"persistence_max_attempts" yaml:"persistence_max_attempts"`
	PersistLiveUpdates     bool `json:"persist_live_updates" yaml:"persist_live_updates"`
}

func DefaultConfig() Config {
	return Config{
		SourcePath:             "/dev/shm/acpmf_telemetry",
		StorePath:              "./trackday.db",
		HTTPPort:               9666,
		PollIntervalMs:         250,
		ReadTimeoutMs:          200,
		QueueSize:              256,
		BackoffMinMs:           500,
		BackoffMaxMs:           30000,
		PersistenceMaxAttempts: 5,
		PersistLiveUpdates:     false,
	}
}

func (c Config) Validate() error {
	if c.SourcePath == "" {
		return errors.New("config: source_path must be set")
	}

	if c.StorePath == "" {
		return errors.New("config: store_path must be set")
	}

	if c.PollIntervalMs < 1 {
		return errors.Errorf("config: poll_interval_ms must be at least 1, got %d", c.PollIntervalMs)
	}

	if c.ReadTimeoutMs < 1 {
		return errors.Errorf("config: read_timeout_ms must be at least 1, got %d", c.ReadTimeoutMs)
	}

	if c.QueueSize < 1 {
		return errors.Errorf("config: queue_size must be at least 1, got %d", c.QueueSize)
	}

	if c.BackoffMinMs < 1 || c.BackoffMaxMs < c.BackoffMinMs {
		return errors.Errorf("config: backoff bounds are invalid (%d..%d)", c.BackoffMinMs, c.BackoffMaxMs)
	}

	if c.PersistenceMaxAttempts < 1 {
		return errors.Errorf("config: persistence_max_attempts must be at least 1, got %d", c.PersistenceMaxAttempts)
	}

	return nil
}
