// Package param holds the scheduler's deployment constants (NUID, NPROC,
// USER_CURRENCY, and the quantum), read from YAML.
package param

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	db "lottery/debug"
	"lottery/proc"
	"lottery/serr"
)

// Built-in params; a config file only needs the keys it changes.
var defaults = `
sched:
  nuid: 8
  nproc: 64
  quantum: 10ms
  seed: 0

currency:
  user_currency: 300
  caps: {}
`

type Config struct {
	Sched struct {
		// Number of distinct user ids; valid uids are [0, NUID).
		NUID int `yaml:"nuid"`
		// Process table capacity.
		NPROC int `yaml:"nproc"`
		// Length of a scheduling quantum for the real-time clock.
		QUANTUM time.Duration `yaml:"quantum"`
		// Seed for the lottery's generator; 0 picks a time-based seed.
		SEED uint64 `yaml:"seed"`
	} `yaml:"sched"`
	Currency struct {
		// Per-user currency cap.
		USER_CURRENCY proc.Ttickets `yaml:"user_currency"`
		// Per-uid overrides of USER_CURRENCY.
		CAPS map[proc.Tuid]proc.Ttickets `yaml:"caps"`
	} `yaml:"currency"`
}

func ReadConfig(params string) (*Config, error) {
	config := &Config{}
	if err := decode(params, config); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

func decode(params string, config *Config) error {
	d := yaml.NewDecoder(strings.NewReader(params))
	if err := d.Decode(config); err != nil {
		return errors.Wrapf(err, "yaml decode params")
	}
	return nil
}

// Default returns the built-in params.
func Default() *Config {
	config, err := ReadConfig(defaults)
	if err != nil {
		db.DFatalf("Built-in params %v", err)
	}
	return config
}

// Load reads the params file at pn on top of the built-in params.
func Load(pn string) (*Config, error) {
	b, err := os.ReadFile(pn)
	if err != nil {
		return nil, errors.Wrapf(err, "read params %v", pn)
	}
	config := Default()
	if err := decode(string(b), config); err != nil {
		return nil, errors.Wrapf(err, "params %v", pn)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	db.DPrintf(db.PARAM, "Load %v: %v", pn, config)
	return config, nil
}

func (config *Config) Validate() error {
	if config.Sched.NUID <= 0 {
		return serr.NewErr(serr.TErrInval, fmt.Sprintf("nuid %d", config.Sched.NUID))
	}
	if config.Sched.NPROC <= 0 {
		return serr.NewErr(serr.TErrInval, fmt.Sprintf("nproc %d", config.Sched.NPROC))
	}
	if config.Sched.QUANTUM <= 0 {
		return serr.NewErr(serr.TErrInval, fmt.Sprintf("quantum %v", config.Sched.QUANTUM))
	}
	if config.Currency.USER_CURRENCY <= 0 || config.Currency.USER_CURRENCY > proc.MAX_TICKETS {
		return serr.NewErr(serr.TErrInvalTickets, fmt.Sprintf("user_currency %d", config.Currency.USER_CURRENCY))
	}
	for uid, c := range config.Currency.CAPS {
		if !config.ValidUid(uid) {
			return serr.NewErr(serr.TErrInvalUid, fmt.Sprintf("caps %v", uid))
		}
		if c <= 0 || c > proc.MAX_TICKETS {
			return serr.NewErr(serr.TErrInvalTickets, fmt.Sprintf("caps %v: %d", uid, c))
		}
	}
	return nil
}

func (config *Config) ValidUid(uid proc.Tuid) bool {
	return uid >= 0 && int(uid) < config.Sched.NUID
}

// Cap returns uid's currency cap.
func (config *Config) Cap(uid proc.Tuid) proc.Ttickets {
	if c, ok := config.Currency.CAPS[uid]; ok {
		return c
	}
	return config.Currency.USER_CURRENCY
}

func (config *Config) String() string {
	return fmt.Sprintf("{nuid %d nproc %d quantum %v seed %d currency %d caps %v}",
		config.Sched.NUID, config.Sched.NPROC, config.Sched.QUANTUM, config.Sched.SEED,
		config.Currency.USER_CURRENCY, config.Currency.CAPS)
}
