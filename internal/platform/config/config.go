package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "drawclass/internal/platform/errors"
)

const FileName = "drawclass.yaml"

type Config struct {
	DataDir     string `yaml:"-"`
	DBPath      string `yaml:"-"`
	PluginsPath string `yaml:"-"`

	Training  Training  `yaml:"training"`
	Animation Animation `yaml:"animation"`
	Capture   Capture   `yaml:"capture"`
	Log       Log       `yaml:"log"`
}

type Training struct {
	ImageSize    int     `yaml:"image_size"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Shuffle      bool    `yaml:"shuffle"`
	Seed         uint64  `yaml:"seed"`
	Workers      int     `yaml:"workers"`
}

type Animation struct {
	TrainingDelay   time.Duration `yaml:"training_delay"`
	PredictionDelay time.Duration `yaml:"prediction_delay"`
}

type Capture struct {
	// Source is "file", "webcam" or "plugin:<name>".
	Source string `yaml:"source"`
	// Device is a file or directory for the file source and a camera index
	// for the webcam.
	Device      string `yaml:"device"`
	PreviewSize int    `yaml:"preview_size"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("%w: data directory is required", apperrors.ErrConfig)
	}
	return Config{
		DataDir:     dataDir,
		DBPath:      filepath.Join(dataDir, ".drawclass", "dataset.db"),
		PluginsPath: filepath.Join(dataDir, ".drawclass", "plugins.json"),
		Training: Training{
			ImageSize:    64,
			Epochs:       15,
			BatchSize:    16,
			LearningRate: 0.001,
			Shuffle:      true,
		},
		Animation: Animation{
			TrainingDelay:   120 * time.Millisecond,
			PredictionDelay: 80 * time.Millisecond,
		},
		Capture: Capture{Source: "file", PreviewSize: 6},
		Log:     Log{Level: "info"},
	}, nil
}

// Load builds the defaults for dataDir and overlays <dataDir>/drawclass.yaml
// when it exists.
func Load(dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode %s: %v", apperrors.ErrConfig, FileName, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Training.ImageSize <= 0:
		return fmt.Errorf("%w: training.image_size must be positive", apperrors.ErrConfig)
	case c.Training.Epochs <= 0:
		return fmt.Errorf("%w: training.epochs must be positive", apperrors.ErrConfig)
	case c.Training.BatchSize <= 0:
		return fmt.Errorf("%w: training.batch_size must be positive", apperrors.ErrConfig)
	case c.Training.LearningRate <= 0:
		return fmt.Errorf("%w: training.learning_rate must be positive", apperrors.ErrConfig)
	case c.Training.Workers < 0:
		return fmt.Errorf("%w: training.workers must not be negative", apperrors.ErrConfig)
	case c.Animation.TrainingDelay < 0 || c.Animation.PredictionDelay < 0:
		return fmt.Errorf("%w: animation delays must not be negative", apperrors.ErrConfig)
	case c.Capture.Source == "":
		return fmt.Errorf("%w: capture.source is required", apperrors.ErrConfig)
	case c.Capture.PreviewSize <= 0:
		return fmt.Errorf("%w: capture.preview_size must be positive", apperrors.ErrConfig)
	}
	return nil
}
