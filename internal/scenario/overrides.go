package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides adjusts scenario sizing and payloads from a YAML file,
// without touching the main config surface. Nil sections leave the
// built-in scenario untouched.
type Overrides struct {
	Prediction *PredictionOverride `yaml:"prediction"`
	Trading    *TradingOverride    `yaml:"trading"`
	Load       *LoadOverride       `yaml:"load"`
}

type PredictionOverride struct {
	Requests int                    `yaml:"requests"`
	Payload  map[string]interface{} `yaml:"payload"`
}

type TradingOverride struct {
	Orders int `yaml:"orders"`
}

type LoadOverride struct {
	Users           int `yaml:"users"`
	RequestsPerUser int `yaml:"requests_per_user"`
}

// LoadOverrides reads and parses an overrides file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (o *Overrides) validate() error {
	if o.Prediction != nil && o.Prediction.Requests < 0 {
		return fmt.Errorf("prediction.requests must be >= 0")
	}
	if o.Trading != nil && o.Trading.Orders < 0 {
		return fmt.Errorf("trading.orders must be >= 0")
	}
	if o.Load != nil && (o.Load.Users < 0 || o.Load.RequestsPerUser < 0) {
		return fmt.Errorf("load.users and load.requests_per_user must be >= 0")
	}
	return nil
}

// PredictionBody renders the overridden prediction payload as JSON, or
// nil when no payload override is present.
func (o *Overrides) PredictionBody() ([]byte, error) {
	if o == nil || o.Prediction == nil || len(o.Prediction.Payload) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(o.Prediction.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode prediction payload: %w", err)
	}
	return body, nil
}
