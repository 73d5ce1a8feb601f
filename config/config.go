package config

import (
	"os"
	"time"

	"seqcell/infra/logging"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Sink names accepted by Broadcaster.Client.
const (
	ClientSarama  = "sarama"
	ClientKafkaGo = "kafka-go"
)

// Read strategies accepted by Feed.ReadBackoff.
const (
	BackoffSpin  = "spin"
	BackoffYield = "yield"
)

type Config struct {
	Log         logging.Config    `yaml:"log"`
	Feed        FeedConfig        `yaml:"feed"`
	GRPC        GRPCConfig        `yaml:"grpc"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Outbox      OutboxConfig      `yaml:"outbox"`
	Broadcaster BroadcasterConfig `yaml:"broadcaster"`
}

type FeedConfig struct {
	Symbol       string        `yaml:"symbol"`
	TickInterval time.Duration `yaml:"tick_interval"`
	StartPrice   int64         `yaml:"start_price"`
	ReadBackoff  string        `yaml:"read_backoff"`
	YieldAfter   int           `yaml:"yield_after"`
}

type GRPCConfig struct {
	Listen string `yaml:"listen"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type OutboxConfig struct {
	Dir string `yaml:"dir"`
}

type BroadcasterConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Client   string        `yaml:"client"`
	Brokers  []string      `yaml:"brokers"`
	Topic    string        `yaml:"topic"`

	// MaxRetries parks a record after that many failed sends; 0 never parks.
	MaxRetries uint32 `yaml:"max_retries"`
}

// Default is the configuration used when no file is given. Every
// loaded file is layered on top of it.
func Default() Config {
	return Config{
		Log: logging.Config{Level: "info", Format: "json"},
		Feed: FeedConfig{
			Symbol:       "BTC-USD",
			TickInterval: 10 * time.Millisecond,
			StartPrice:   100_000,
			ReadBackoff:  BackoffSpin,
			YieldAfter:   64,
		},
		GRPC:    GRPCConfig{Listen: ":50051"},
		Metrics: MetricsConfig{Listen: ":9102"},
		Outbox:  OutboxConfig{Dir: "./outbox"},
		Broadcaster: BroadcasterConfig{
			Enabled:  false,
			Interval: 250 * time.Millisecond,
			Client:   ClientSarama,
			Brokers:  []string{"localhost:9092"},
			Topic:    "quotes",

			MaxRetries: 20,
		},
	}
}

// Load reads a YAML file over Default and validates the result. An
// empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Feed.Symbol == "" {
		return errors.New("feed.symbol is required")
	}
	if c.Feed.TickInterval <= 0 {
		return errors.New("feed.tick_interval must be positive")
	}
	if c.Feed.StartPrice <= 0 {
		return errors.New("feed.start_price must be positive")
	}
	switch c.Feed.ReadBackoff {
	case BackoffSpin, BackoffYield:
	default:
		return errors.Errorf("feed.read_backoff %q: want %s or %s", c.Feed.ReadBackoff, BackoffSpin, BackoffYield)
	}
	if c.GRPC.Listen == "" {
		return errors.New("grpc.listen is required")
	}

	if !c.Broadcaster.Enabled {
		return nil
	}
	if c.Broadcaster.Interval <= 0 {
		return errors.New("broadcaster.interval must be positive")
	}
	switch c.Broadcaster.Client {
	case ClientSarama, ClientKafkaGo:
	default:
		return errors.Errorf("broadcaster.client %q: want %s or %s", c.Broadcaster.Client, ClientSarama, ClientKafkaGo)
	}
	if len(c.Broadcaster.Brokers) == 0 {
		return errors.New("broadcaster.brokers is required")
	}
	if c.Broadcaster.Topic == "" {
		return errors.New("broadcaster.topic is required")
	}
	if c.Outbox.Dir == "" {
		return errors.New("outbox.dir is required when the broadcaster is enabled")
	}
	return nil
}
