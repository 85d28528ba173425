// Package env loads the configuration shared by the OBC daemon and the
// ground tools: defaults, then environment variables, then a YAML file,
// then command line flags.
package env

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l0/comm"
	"github.com/robotalks/obc.go/pkg/l0/radio"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/command"
	"github.com/robotalks/obc.go/pkg/obc"
)

// Identity identifies the node.
type Identity struct {
	Type        string            `yaml:"type"`
	ID          string            `yaml:"id"`
	Description string            `yaml:"description,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

// SerialConfig configures the UART to the transceiver.
type SerialConfig struct {
	Device string `yaml:"device"`
	// Baud is the rate tried first.
	Baud int `yaml:"baud"`
	// TargetBaud is negotiated at startup, 0 keeps the working rate.
	TargetBaud int `yaml:"target_baud"`
}

// LinkConfig tunes the link core.
type LinkConfig struct {
	Interval       time.Duration `yaml:"interval"`
	QueueCapacity  int           `yaml:"queue_capacity"`
	TimeoutTicks   int           `yaml:"timeout_ticks"`
	MaxPayload     int           `yaml:"max_payload"`
	Strict         bool          `yaml:"strict"`
	GuardDelay     time.Duration `yaml:"guard_delay"`
	StatusInterval time.Duration `yaml:"status_interval"`
}

// Config provides common options of OBC programs.
type Config struct {
	// File is the YAML file loaded by Load.
	File   string       `yaml:"-"`
	Node   Identity     `yaml:"node"`
	Serial SerialConfig `yaml:"serial"`
	// CAN is the SocketCAN interface, e.g. can0.
	CAN string `yaml:"can"`
	// GroundURL is where ground tools reach the node, one of
	// mqtt://host:port/topic-prefix/, tcp://host:port/type/id or
	// ws://host:port/path?node=type/id. The node serves every URL of a
	// comma-separated list; ground tools use the first.
	GroundURL string     `yaml:"ground_url"`
	Link      LinkConfig `yaml:"link"`
}

var defaultConfig = Config{
	Node: Identity{Type: "flight"},
	Serial: SerialConfig{
		Baud: radio.SupportedBaudRates[0],
	},
	GroundURL: "mqtt://localhost:1883/obc/",
	Link: LinkConfig{
		Interval:       fx.DefaultInterval,
		QueueCapacity:  command.DefaultQueueCapacity,
		TimeoutTicks:   command.DefaultTimeoutTicks,
		MaxPayload:     comm.DefaultMaxPayload,
		GuardDelay:     comm.DefaultGuardDelay,
		StatusInterval: obc.DefaultStatusInterval,
	},
}

func init() {
	defaultConfig.Node.ID = MachineID()
	overrides := []struct {
		name string
		dst  *string
	}{
		{"OBC_CONFIG", &defaultConfig.File},
		{"OBC_TYPE", &defaultConfig.Node.Type},
		{"OBC_ID", &defaultConfig.Node.ID},
		{"OBC_SERIAL", &defaultConfig.Serial.Device},
		{"OBC_CAN", &defaultConfig.CAN},
		{"OBC_GROUND_URL", &defaultConfig.GroundURL},
	}
	for _, o := range overrides {
		if val := os.Getenv(o.name); val != "" {
			*o.dst = val
		}
	}
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// SetupFlags sets command line flags bound to c.
func (c *Config) SetupFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.File, "config", "c", c.File, "YAML config file")
	fs.StringVar(&c.Node.Type, "type", c.Node.Type, "Node type")
	fs.StringVar(&c.Node.ID, "id", c.Node.ID, "Node ID")
	fs.StringVar(&c.Serial.Device, "serial", c.Serial.Device, "UART device of the transceiver")
	fs.IntVar(&c.Serial.Baud, "baud", c.Serial.Baud, "Initial UART baud rate")
	fs.IntVar(&c.Serial.TargetBaud, "target-baud", c.Serial.TargetBaud, "Baud rate negotiated at startup")
	fs.StringVar(&c.CAN, "can", c.CAN, "CAN interface")
	fs.StringVarP(&c.GroundURL, "ground", "g", c.GroundURL, "Ground bridge URL")
	fs.DurationVar(&c.Link.Interval, "interval", c.Link.Interval, "Loop interval")
	fs.IntVar(&c.Link.QueueCapacity, "queue", c.Link.QueueCapacity, "Command queue capacity")
	fs.IntVar(&c.Link.TimeoutTicks, "timeout-ticks", c.Link.TimeoutTicks, "Command watchdog in loop intervals")
	fs.BoolVar(&c.Link.Strict, "strict", c.Link.Strict, "Fail commands whose reply overflows")
}

// Load applies the YAML file over c, keeping the flags explicitly set in fs.
func (c *Config) Load(fs *pflag.FlagSet) error {
	if c.File == "" {
		return nil
	}
	changed := make(map[string]string)
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) {
			changed[f.Name] = f.Value.String()
		})
	}
	if err := c.LoadFile(c.File); err != nil {
		return err
	}
	for name, val := range changed {
		if err := fs.Set(name, val); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}

// LoadFile merges a YAML file into c.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	file := c.File
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", fn, err)
	}
	c.File = file
	return nil
}

// MustLoad loads the config and fails on error.
func (c *Config) MustLoad(fs *pflag.FlagSet) *Config {
	if err := c.Load(fs); err != nil {
		log.Fatalln(err)
	}
	return c
}

// Ref returns the node reference.
func (c *Config) Ref() l1.NodeRef {
	return l1.NodeRef{Type: c.Node.Type, ID: c.Node.ID}
}

// Info returns the node information published to the ground.
func (c *Config) Info() l1.NodeInfo {
	return l1.NodeInfo{
		Ref: c.Ref(),
		Meta: l1.NodeMeta{
			Description: c.Node.Description,
			Labels:      c.Node.Labels,
		},
	}
}

// NodeConfig fills the settings of the link core. Collaborators are left
// for the caller.
func (c *Config) NodeConfig() obc.NodeConfig {
	return obc.NodeConfig{
		QueueCapacity:  c.Link.QueueCapacity,
		TimeoutTicks:   c.Link.TimeoutTicks,
		MaxPayload:     c.Link.MaxPayload,
		Strict:         c.Link.Strict,
		GuardDelay:     c.Link.GuardDelay,
		ConfiguredBaud: c.Serial.Baud,
		TargetBaud:     c.Serial.TargetBaud,
		StatusInterval: c.Link.StatusInterval,
	}
}
