package robot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
)

const DefaultConfigFile = "testdrive.json"

// Config holds deployment settings: which hardware to open and where to
// send telemetry. Drive tuning is not configurable here.
type Config struct {
	CANInterface string          `json:"can_interface" env:"TESTDRIVE_CAN_INTERFACE"`
	JoystickPort int             `json:"joystick_port" env:"TESTDRIVE_JOYSTICK_PORT"`
	Hz           int             `json:"hz,omitempty" env:"TESTDRIVE_HZ"`
	Dashboard    DashboardConfig `json:"dashboard"`
	Camera       CameraConfig    `json:"camera"`
	LogFile      string          `json:"log_file,omitempty" env:"TESTDRIVE_LOG_FILE"`
}

// DashboardConfig selects the telemetry sinks. Empty values disable a sink.
type DashboardConfig struct {
	MQTTBroker      string `json:"mqtt_broker,omitempty" env:"TESTDRIVE_MQTT_BROKER"`
	MQTTPrefix      string `json:"mqtt_prefix,omitempty" env:"TESTDRIVE_MQTT_PREFIX"`
	WebSocketListen string `json:"websocket_listen,omitempty" env:"TESTDRIVE_WS_LISTEN"`
}

// CameraConfig names the streamer process started at init.
type CameraConfig struct {
	Command []string `json:"command,omitempty" env:"TESTDRIVE_CAMERA_COMMAND" envSeparator:" "`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		CANInterface: "can0",
		Hz:           50,
		Dashboard: DashboardConfig{
			MQTTPrefix: "SmartDashboard",
		},
	}
}

// IsComplete returns true if the hardware has been set up
func (c *Config) IsComplete() bool {
	return c.CANInterface != ""
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TESTDRIVE_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
