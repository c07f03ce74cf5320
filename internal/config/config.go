// Package config provides unified configuration loading for ethos.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ethos-sim/ethos/internal/constants"
)

// Config contains all ethos configuration settings.
type Config struct {
	Spreading    SpreadingConfig    `json:"spreading" yaml:"spreading"`
	Learning     LearningConfig     `json:"learning" yaml:"learning"`
	Decay        DecayConfig        `json:"decay" yaml:"decay"`
	Perturbation PerturbationConfig `json:"perturbation" yaml:"perturbation"`
	Healing      HealingConfig      `json:"healing" yaml:"healing"`
	Evolution    EvolutionConfig    `json:"evolution" yaml:"evolution"`
	Alignment    AlignmentConfig    `json:"alignment" yaml:"alignment"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
}

// SpreadingConfig tunes the propagation engine.
type SpreadingConfig struct {
	// Damping scales every edge contribution (< 1).
	Damping float64 `json:"damping" yaml:"damping"`

	// CaptureThreshold is the activation an anchor must hold to accrue
	// capture progress.
	CaptureThreshold float64 `json:"capture_threshold" yaml:"capture_threshold"`

	// MaxSteps bounds a single propagation run.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
}

// LearningConfig tunes Hebbian reinforcement.
type LearningConfig struct {
	// LearningRate scales edge strengthening.
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
}

// DecayConfig tunes temporal decay.
type DecayConfig struct {
	// Constant is the per-period weight multiplier for unused edges.
	Constant float64 `json:"constant" yaml:"constant"`

	// Interval is the elapsed time that counts as one decay period.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// PerturbationConfig tunes randomized activation injection.
type PerturbationConfig struct {
	// Interval is the number of ticks between scheduled perturbations.
	Interval int `json:"interval" yaml:"interval"`

	// Strength is the base activation injected.
	Strength float64 `json:"strength" yaml:"strength"`

	// BlindSpotBias biases node sampling toward low activation when true.
	BlindSpotBias bool `json:"blind_spot_bias" yaml:"blind_spot_bias"`
}

// HealingConfig tunes the self-healing monitor.
type HealingConfig struct {
	// StaleThreshold is how long a node may go unactivated before the
	// blindness detector flags it.
	StaleThreshold time.Duration `json:"stale_threshold" yaml:"stale_threshold"`

	// SlowCheckCadence runs dead-zone and blindness checks every this many
	// cycles.
	SlowCheckCadence int `json:"slow_check_cadence" yaml:"slow_check_cadence"`
}

// EvolutionConfig tunes the evolutionary search.
type EvolutionConfig struct {
	PopulationSize int     `json:"population_size" yaml:"population_size"`
	Generations    int     `json:"generations" yaml:"generations"`
	ElitismCount   int     `json:"elitism_count" yaml:"elitism_count"`
	MutationRate   float64 `json:"mutation_rate" yaml:"mutation_rate"`
	CrossoverRate  float64 `json:"crossover_rate" yaml:"crossover_rate"`

	// Workers is the number of concurrent fitness evaluations (0 = 1).
	Workers int `json:"workers" yaml:"workers"`

	// Selection names the selection method: "tournament", "roulette",
	// "rank", or "diversity".
	Selection string `json:"selection" yaml:"selection"`

	// Crossover names the crossover method: "uniform", "single-point",
	// "virtue", or "multi-parent".
	Crossover string `json:"crossover" yaml:"crossover"`

	// Mutation names the mutation method: "standard", "aggressive",
	// "adaptive", "directed", or "topology-preserving".
	Mutation string `json:"mutation" yaml:"mutation"`
}

// AlignmentConfig tunes the alignment tester.
type AlignmentConfig struct {
	// StimulusCount is the number of stimuli per test run.
	StimulusCount int `json:"stimulus_count" yaml:"stimulus_count"`

	// PassCaptureRate is the minimum capture rate for a pass.
	PassCaptureRate float64 `json:"pass_capture_rate" yaml:"pass_capture_rate"`

	// MaxEscapeRate is the escape rate a pass must stay strictly below.
	MaxEscapeRate float64 `json:"max_escape_rate" yaml:"max_escape_rate"`
}

// LoggingConfig configures ethos logging.
type LoggingConfig struct {
	// Level sets log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to .ethos/events.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Spreading: SpreadingConfig{
			Damping:          constants.Damping,
			CaptureThreshold: constants.CaptureThreshold,
			MaxSteps:         constants.DefaultMaxSteps,
		},
		Learning: LearningConfig{
			LearningRate: constants.DefaultLearningRate,
		},
		Decay: DecayConfig{
			Constant: constants.DefaultDecayConstant,
			Interval: constants.DefaultDecayInterval,
		},
		Perturbation: PerturbationConfig{
			Interval:      constants.DefaultPerturbationInterval,
			Strength:      constants.DefaultPerturbationStrength,
			BlindSpotBias: true,
		},
		Healing: HealingConfig{
			StaleThreshold:   constants.DefaultStaleThreshold,
			SlowCheckCadence: constants.SlowCheckCadence,
		},
		Evolution: EvolutionConfig{
			PopulationSize: constants.DefaultPopulationSize,
			Generations:    constants.DefaultGenerationCap,
			ElitismCount:   constants.DefaultElitismCount,
			MutationRate:   constants.DefaultMutationRate,
			CrossoverRate:  constants.DefaultCrossoverRate,
			Workers:        1,
			Selection:      "tournament",
			Crossover:      "uniform",
			Mutation:       "standard",
		},
		Alignment: AlignmentConfig{
			StimulusCount:   constants.DefaultStimulusCount,
			PassCaptureRate: constants.AlignmentPassCaptureRate,
			MaxEscapeRate:   constants.AlignmentMaxEscapeRate,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment
// variables. Order: defaults -> ~/.ethos/config.yaml -> environment.
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".ethos", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields absent
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// applyEnvOverrides applies ETHOS_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("ETHOS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("ETHOS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Evolution.Workers = n
		}
	}
	if v := os.Getenv("ETHOS_POPULATION_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Evolution.PopulationSize = n
		}
	}
	if v := os.Getenv("ETHOS_GENERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Evolution.Generations = n
		}
	}
	if v := os.Getenv("ETHOS_STIMULUS_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Alignment.StimulusCount = n
		}
	}
}
