// Package config loads the YAML configuration shared by every hybrix app.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	IsDebug bool `yaml:"is_debug"`

	DataDir string `yaml:"data_dir"`

	MySQL MySQL `yaml:"mysql"`
	Redis Redis `yaml:"redis"`
	Etcd  Etcd  `yaml:"etcd"`
	Nats  Nats  `yaml:"nats"`

	Matcher Matcher `yaml:"matcher"`
}

type MySQL struct {
	Main MySQLServer `yaml:"main"`
}

type MySQLServer struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Pass         string `yaml:"pass"`
	DB           string `yaml:"db"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type Redis struct {
	Main RedisServer `yaml:"main"`
}

type RedisServer struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
	Pass    string `yaml:"pass"`
}

type Etcd struct {
	Main EtcdServer `yaml:"main"`
}

type EtcdServer struct {
	Enabled  bool   `yaml:"enabled"`
	Url      string `yaml:"url"`
	LeaseTTL int64  `yaml:"lease_ttl"` // seconds
}

type Nats struct {
	Url    string `yaml:"url"` // used when etcd has no entry
	Stream string `yaml:"stream"`
}

type Matcher struct {
	TickPrecision int           `yaml:"tick_precision"`
	Interval      time.Duration `yaml:"interval"`
	PassTimeout   time.Duration `yaml:"pass_timeout"`
	Pairs         []string      `yaml:"pairs"`
}

const DEVDATA = "/usr/local/hybrix/devdata"

var Shared *Config

var fConfig string

func init() {
	flag.StringVar(&fConfig, "config", "", "specify the config file")
}

// Default returns a config with every optional field filled.
func Default() *Config {
	return &Config{
		DataDir: DEVDATA,
		MySQL: MySQL{Main: MySQLServer{
			Host:         "127.0.0.1",
			Port:         3306,
			MaxOpenConns: 8,
		}},
		Etcd: Etcd{Main: EtcdServer{LeaseTTL: 10}},
		Nats: Nats{Stream: "MATCHER"},
		Matcher: Matcher{
			TickPrecision: 3,
			Interval:      time.Second,
			PassTimeout:   30 * time.Second,
		},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (cfg *Config, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return
	}

	cfg = Default()
	err = yaml.Unmarshal(b, cfg)
	if err != nil {
		return nil, err
	}

	for i, pair := range cfg.Matcher.Pairs {
		cfg.Matcher.Pairs[i] = strings.ToUpper(pair)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return
}

func (c *Config) Validate() error {
	if c.Matcher.TickPrecision < 0 || c.Matcher.TickPrecision > 15 {
		return fmt.Errorf("matcher.tick_precision out of range: %d", c.Matcher.TickPrecision)
	}
	if c.Matcher.Interval <= 0 {
		return errors.New("matcher.interval must be positive")
	}
	seen := map[string]bool{}
	for _, pair := range c.Matcher.Pairs {
		ss := strings.Split(pair, "_")
		if len(ss) != 2 || ss[0] == "" || ss[1] == "" {
			return fmt.Errorf("invalid pair %q, want BASE_QUOTE", pair)
		}
		if seen[pair] {
			return fmt.Errorf("duplicated pair %q", pair)
		}
		seen[pair] = true
	}
	return nil
}

// Init loads configFile into Shared and panics on failure.
func Init(configFile string) {
	cfg, err := Load(configFile)
	if err != nil {
		panic(err)
	}
	Shared = cfg
}

// EasyInit loads the file given by -config, falling back to
// config/config.yml and then to DEVDATA.
func EasyInit() {
	fpath := fConfig
	if fpath == "" {
		fpath = "config/config.yml"
	}

	if _, err := os.Stat(fpath); os.IsNotExist(err) {
		fpath = DEVDATA + "/config.yml"
		printf(fmt.Sprintf("use config: %s (DEVDATA)", fpath))
	} else {
		printf(fmt.Sprintf("use config: %s", fpath))
	}

	Init(fpath)
}

// printf is used before the logger exists.
func printf(s string) {
	fmt.Printf("%s %s\n", time.Now().Format("2006/01/02 15:04:05"), s)
}
