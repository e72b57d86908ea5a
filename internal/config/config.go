package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/pump-alarm-gateway/internal/domain/machine"
	"github.com/oshokin/pump-alarm-gateway/internal/threshold"
)

// Config holds the settings shared by the sampling and decision binaries.
type Config struct {
	// Transport describes how to reach the Modbus bus.
	Transport TransportConfig `yaml:"transport"`
	// Sampling controls the producer loop.
	Sampling SamplingConfig `yaml:"sampling"`
	// Decision controls the consumer loop.
	Decision DecisionConfig `yaml:"decision"`
	// StateFile is the path of the shared snapshot artifact.
	StateFile string `yaml:"state_file"`
	// Thresholds holds the classifier boundaries per channel type.
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	// Points overrides the built-in channel plan, keyed by point name.
	Points map[string]PointConfig `yaml:"points"`
	// Electrical locates the three-phase readings on the bus.
	Electrical ElectricalConfig `yaml:"electrical"`
	// VibrationScale converts raw vibration register values to mm/s.
	VibrationScale float64 `yaml:"vibration_scale"`
	// MetricsAddress enables the Prometheus listener when non-empty.
	MetricsAddress string `yaml:"metrics_addr"`
	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// TransportConfig selects and parameterizes the Modbus transport.
type TransportConfig struct {
	// Mode is "rtu" for serial or "tcp" for Modbus TCP.
	Mode string `yaml:"mode"`
	// SerialPort is the device path in rtu mode.
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the serial speed in rtu mode.
	BaudRate int `yaml:"baud_rate"`
	// Address is the host:port target in tcp mode.
	Address string `yaml:"address"`
	// UnitID is the slave address of the RTU that receives register writes.
	UnitID uint8 `yaml:"unit_id"`
	// Timeout bounds every read or write on the bus.
	Timeout time.Duration `yaml:"timeout"`
}

// SamplingConfig controls the producer loop cadence.
type SamplingConfig struct {
	// Interval is the sampling period.
	Interval time.Duration `yaml:"interval"`
	// ChannelRetention is how long a failed channel keeps its last good
	// reading before the point is marked degraded.
	ChannelRetention time.Duration `yaml:"channel_retention"`
}

// DecisionConfig controls the consumer loop cadence and freshness contract.
type DecisionConfig struct {
	// Interval is the decision/write period.
	Interval time.Duration `yaml:"interval"`
	// StalenessBound is the maximum accepted snapshot age.
	StalenessBound time.Duration `yaml:"staleness_bound"`
}

// ThresholdsConfig groups the classifier boundaries per channel type.
type ThresholdsConfig struct {
	// Vibration applies to the four vibration points (raw register units).
	Vibration threshold.Config `yaml:"vibration"`
	// Photoelectric applies to the distance points.
	Photoelectric threshold.Config `yaml:"photoelectric"`
}

// PointConfig locates one monitored point on the bus. Addresses are the raw
// protocol addresses from the sensor documentation.
type PointConfig struct {
	// UnitID is the slave address of the sensor.
	UnitID uint8 `yaml:"unit_id"`
	// Address is the first register of the reading (three consecutive
	// registers for vibration axes, one for photoelectric distance).
	Address uint16 `yaml:"address"`
	// Disabled excludes the point from sampling; its severity stays 0.
	Disabled bool `yaml:"disabled,omitempty"`
}

// ElectricalConfig locates the three-phase readings.
type ElectricalConfig struct {
	// UnitID is the slave address carrying the electrical parameters.
	UnitID uint8 `yaml:"unit_id"`
	// Address is the first of three consecutive phase registers.
	Address uint16 `yaml:"address"`
}

// Defaults mirror the original field deployment.
const (
	// DefaultConfigFilename is the default settings file name.
	DefaultConfigFilename = "pump-alarm-settings.yaml"
	// DefaultStateFilename is the default shared snapshot path.
	DefaultStateFilename = "pump-sensor-state.json"
	// DefaultFilePermissions is used for files written by the gateway.
	DefaultFilePermissions = 0o600

	// DefaultSamplingInterval is the producer period.
	DefaultSamplingInterval = time.Second
	// DefaultDecisionInterval is the consumer period.
	DefaultDecisionInterval = time.Second
	// DefaultStalenessBound is the maximum accepted snapshot age.
	DefaultStalenessBound = 10 * time.Second
	// DefaultChannelRetention bounds how long failed channels coast on
	// their last good reading.
	DefaultChannelRetention = 10 * time.Second
	// DefaultTimeout bounds individual bus operations.
	DefaultTimeout = 3 * time.Second

	// DefaultSerialPort is the RS485 port of the gateway hardware.
	DefaultSerialPort = "/dev/ttyS2"
	// DefaultBaudRate is the bus speed.
	DefaultBaudRate = 9600
	// DefaultVibrationScale converts raw vibration counts to mm/s.
	DefaultVibrationScale = 0.01
)

var (
	// errTransportMode is returned for an unknown transport mode.
	errTransportMode = errors.New(`transport mode must be "rtu" or "tcp"`)
	// errSerialPortRequired is returned when rtu mode lacks a port.
	errSerialPortRequired = errors.New("serial port must be provided in rtu mode")
	// errUnknownPoint is returned for an unrecognized point override.
	errUnknownPoint = errors.New("unknown point name")
	// errStalenessTooTight is returned when the staleness bound cannot be
	// satisfied even by a perfectly healthy producer.
	errStalenessTooTight = errors.New("staleness bound must exceed the sampling interval")
)

// defaultPlan is the built-in channel plan recovered from the field wiring:
// vibration sensors on units 1-4 expose X/Y/Z speed at three consecutive
// holding registers, photoelectric sensors on units 5-6 expose distance at
// input register 0. The reserved line point stays disabled until wired.
var defaultPlan = map[machine.Point]PointConfig{
	machine.PointCrankLeft:   {UnitID: 1, Address: 58},
	machine.PointCrankRight:  {UnitID: 2, Address: 58},
	machine.PointTailBearing: {UnitID: 3, Address: 58},
	machine.PointMidBearing:  {UnitID: 4, Address: 58},
	machine.PointHorsehead:   {UnitID: 5, Address: 0},
	machine.PointBelt:        {UnitID: 6, Address: 0},
	machine.PointLine:        {UnitID: 5, Address: 0, Disabled: true},
}

// Load reads configuration from the provided path, applies defaults and
// validates it. Invalid configuration is fatal at startup by contract, so
// callers must not continue on error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is not set")
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields, applies defaults and rejects malformed
// thresholds and channel plans.
//
//nolint:cyclop // A flat sequence of field checks reads better than a split.
func Validate(cfg *Config) error {
	switch cfg.Transport.Mode {
	case "", "rtu":
		cfg.Transport.Mode = "rtu"

		if cfg.Transport.SerialPort == "" {
			cfg.Transport.SerialPort = DefaultSerialPort
		}

		if cfg.Transport.BaudRate <= 0 {
			cfg.Transport.BaudRate = DefaultBaudRate
		}
	case "tcp":
		if _, err := net.ResolveTCPAddr("tcp", cfg.Transport.Address); err != nil {
			return fmt.Errorf("invalid transport address: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", errTransportMode, cfg.Transport.Mode)
	}

	if cfg.Transport.Mode == "rtu" && cfg.Transport.SerialPort == "" {
		return errSerialPortRequired
	}

	if cfg.Transport.UnitID == 0 {
		cfg.Transport.UnitID = 1
	}

	if cfg.Transport.Timeout <= 0 {
		cfg.Transport.Timeout = DefaultTimeout
	}

	if cfg.Sampling.Interval <= 0 {
		cfg.Sampling.Interval = DefaultSamplingInterval
	}

	if cfg.Sampling.ChannelRetention <= 0 {
		cfg.Sampling.ChannelRetention = DefaultChannelRetention
	}

	if cfg.Decision.Interval <= 0 {
		cfg.Decision.Interval = DefaultDecisionInterval
	}

	if cfg.Decision.StalenessBound <= 0 {
		cfg.Decision.StalenessBound = DefaultStalenessBound
	}

	if cfg.Decision.StalenessBound <= cfg.Sampling.Interval {
		return fmt.Errorf("%w: bound %s, interval %s",
			errStalenessTooTight, cfg.Decision.StalenessBound, cfg.Sampling.Interval)
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if cfg.VibrationScale <= 0 {
		cfg.VibrationScale = DefaultVibrationScale
	}

	applyThresholdDefaults(&cfg.Thresholds)

	if err := cfg.Thresholds.Vibration.Validate(); err != nil {
		return fmt.Errorf("vibration thresholds: %w", err)
	}

	if err := cfg.Thresholds.Photoelectric.Validate(); err != nil {
		return fmt.Errorf("photoelectric thresholds: %w", err)
	}

	for name := range cfg.Points {
		if _, ok := machine.PointByName(name); !ok {
			return fmt.Errorf("%w: %q", errUnknownPoint, name)
		}
	}

	if cfg.Electrical.UnitID == 0 {
		cfg.Electrical.UnitID = cfg.Transport.UnitID
	}

	if cfg.Electrical.Address == 0 {
		cfg.Electrical.Address = 102
	}

	return nil
}

// applyThresholdDefaults fills in the original deployment boundaries for any
// channel type left unset.
func applyThresholdDefaults(t *ThresholdsConfig) {
	if t.Vibration == (threshold.Config{}) {
		t.Vibration = threshold.Config{Level1: 2000, Level2: 2500, Level3: 3000}
	}

	if t.Photoelectric == (threshold.Config{}) {
		t.Photoelectric = threshold.Config{Level1: 1000, Level2: 1500, Level3: 2500}
	}
}

// PointPlan resolves the effective channel plan: the built-in defaults with
// any per-point overrides applied. Validate must have succeeded first.
func (c *Config) PointPlan() map[machine.Point]PointConfig {
	plan := make(map[machine.Point]PointConfig, len(defaultPlan))
	for point, pc := range defaultPlan {
		plan[point] = pc
	}

	for name, override := range c.Points {
		if point, ok := machine.PointByName(name); ok {
			plan[point] = override
		}
	}

	return plan
}

// ThresholdFor returns the classifier boundaries for the point's sensor kind.
func (c *Config) ThresholdFor(p machine.Point) threshold.Config {
	if p.Kind() == machine.KindVibration {
		return c.Thresholds.Vibration
	}

	return c.Thresholds.Photoelectric
}
