package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	internal "github.com/ZanzyTHEbar/tokprep/tokprep"
	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
	"github.com/ZanzyTHEbar/tokprep/tokprep/tokenizer"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Tokenizer  TokenizerConfig  `mapstructure:"tokenizer"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Log        LogConfig        `mapstructure:"log"`
}

// TokenizerConfig selects the tokenizer backend.
type TokenizerConfig struct {
	Backend        string `mapstructure:"backend"`
	Path           string `mapstructure:"path"`
	Encoding       string `mapstructure:"encoding"`
	PadToken       string `mapstructure:"padToken"`
	PadID          int    `mapstructure:"padId"`
	ModelMaxLength int    `mapstructure:"modelMaxLength"`
	Lowercase      bool   `mapstructure:"lowercase"`
}

// PreprocessConfig stores the tokenization wrapper settings. Truncation and
// padding are strings so that both booleans and strategy names are accepted.
// MaxLength 0 means no length cap.
type PreprocessConfig struct {
	TruncationSide string `mapstructure:"truncationSide"`
	Truncation     string `mapstructure:"truncation"`
	Padding        string `mapstructure:"padding"`
	MaxLength      int    `mapstructure:"maxLength"`
	ReturnLength   bool   `mapstructure:"returnLength"`
}

// DatasetConfig stores batch mapping settings.
type DatasetConfig struct {
	BatchSize int `mapstructure:"batchSize"`
	Workers   int `mapstructure:"workers"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("tokenizer.backend", tokenizer.BackendHF)
	v.SetDefault("tokenizer.encoding", tokenizer.DefaultTiktokenEncoding)
	v.SetDefault("tokenizer.padToken", "[PAD]")
	v.SetDefault("tokenizer.padId", -1)
	v.SetDefault("tokenizer.modelMaxLength", 512)
	v.SetDefault("tokenizer.lowercase", true)
	v.SetDefault("preprocess.truncationSide", "right")
	v.SetDefault("preprocess.truncation", "true")
	v.SetDefault("preprocess.padding", "false")
	v.SetDefault("preprocess.maxLength", 0)
	v.SetDefault("preprocess.returnLength", false)
	v.SetDefault("dataset.batchSize", internal.DefaultBatchSize)
	v.SetDefault("dataset.workers", internal.DefaultWorkers)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // preprocess.maxLength becomes TOKPREP_PREPROCESS_MAXLENGTH

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &cfg, nil
}

// ToPreprocess converts the file settings into a validated preprocess.Config.
func (p PreprocessConfig) ToPreprocess() (preprocess.Config, error) {
	side, err := preprocess.ParseSide(p.TruncationSide)
	if err != nil {
		return preprocess.Config{}, err
	}
	truncation, err := preprocess.ParseTruncation(p.Truncation)
	if err != nil {
		return preprocess.Config{}, err
	}
	padding, err := preprocess.ParsePadding(p.Padding)
	if err != nil {
		return preprocess.Config{}, err
	}

	length := preprocess.Unbounded()
	if p.MaxLength != 0 {
		length, err = preprocess.NewBounded(p.MaxLength)
		if err != nil {
			return preprocess.Config{}, err
		}
	}

	cfg := preprocess.Config{
		TruncationSide: side,
		Truncation:     truncation,
		Padding:        padding,
		MaxLength:      length,
		ReturnLength:   p.ReturnLength,
	}
	return cfg, cfg.Validate()
}

// TokenizerOptions converts the tokenizer section into tokenizer.Options.
func (t TokenizerConfig) TokenizerOptions() tokenizer.Options {
	return tokenizer.Options{
		Backend:        t.Backend,
		Path:           t.Path,
		Encoding:       t.Encoding,
		PadToken:       t.PadToken,
		PadID:          t.PadID,
		ModelMaxLength: t.ModelMaxLength,
		Lowercase:      t.Lowercase,
	}
}

func (p PreprocessConfig) String() string {
	maxLength := "none"
	if p.MaxLength != 0 {
		maxLength = strconv.Itoa(p.MaxLength)
	}
	return fmt.Sprintf("side=%s truncation=%s padding=%s max_length=%s return_length=%t",
		p.TruncationSide, p.Truncation, p.Padding, maxLength, p.ReturnLength)
}
