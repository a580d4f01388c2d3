package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"filefeed/internal/parse"
)

const (
	defaultPort           = 8080
	defaultExtension      = ".csv"
	defaultDelimiter      = ","
	defaultMaxActiveTasks = 5
	defaultMaxQueuedTasks = 10

	// FileTypeDelimited selects the line/delimiter parser.
	FileTypeDelimited = "delimited"
	// FileTypeFixedWidth selects the fixed-size binary record parser.
	FileTypeFixedWidth = "fixedWidth"
)

// Config describes one ingestion pipeline instance. Key names stay
// camelCase so configuration documents from existing deployments carry
// over unchanged.
type Config struct {
	Port int `yaml:"port"`

	FileFolderPath string `yaml:"fileFolderPath"`
	FilePrefix     string `yaml:"filePrefix"`
	FileExtension  string `yaml:"fileExtension"`

	FileType          string    `yaml:"fileType"`
	MaxLinesInEvent   int       `yaml:"maxLinesInEvent"`
	Delimiter         string    `yaml:"delimiter"`
	ProcessNullValues bool      `yaml:"processNullValues"`
	SkipFirstLine     bool      `yaml:"skipFirstLine"`
	Schema            yaml.Node `yaml:"schema"`
	FixedRecordSize   int       `yaml:"fixedRecordSize"`
	WaitBetweenTxMs   int       `yaml:"waitBetweenTx"`

	MaxActiveTasks int `yaml:"maxActiveTasks"`
	MaxQueuedTasks int `yaml:"maxQueuedTasks"`

	ProcessExistingFiles     bool   `yaml:"processExistingFiles"`
	ExtensionAfterProcessing string `yaml:"extensionAfterProcessing"`
	DeleteAfterProcessing    bool   `yaml:"deleteAfterProcessing"`

	TargetURL string `yaml:"targetURL"`

	// decoded from Schema according to FileType
	FieldNames  map[string]string           `yaml:"-"`
	FixedFields map[string]parse.FixedField `yaml:"-"`
}

// Default returns the values assumed when a key is omitted.
func Default() Config {
	return Config{
		Port:           defaultPort,
		FileType:       FileTypeDelimited,
		FileExtension:  defaultExtension,
		Delimiter:      defaultDelimiter,
		MaxActiveTasks: defaultMaxActiveTasks,
		MaxQueuedTasks: defaultMaxQueuedTasks,
	}
}

// Load reads YAML config from the provided path and validates it. Any
// problem, including a missing file, is a configuration error: this
// pipeline has required keys and cannot start from bare defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by deployment
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Finalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Finalize fills derived values and validates required ones. Load calls
// it; configs built in code (tests, embedding) call it directly.
func (c *Config) Finalize() error {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.FileFolderPath == "" {
		return errors.New("fileFolderPath is required")
	}
	if c.MaxLinesInEvent < 1 {
		return fmt.Errorf("invalid maxLinesInEvent: %d (must be >= 1)", c.MaxLinesInEvent)
	}
	if c.MaxActiveTasks < 1 {
		c.MaxActiveTasks = defaultMaxActiveTasks
	}
	if c.MaxQueuedTasks < 0 {
		c.MaxQueuedTasks = defaultMaxQueuedTasks
	}

	if c.FileExtension == "" {
		c.FileExtension = defaultExtension
	}
	c.FileExtension = dotPrefixed(c.FileExtension)

	if !c.DeleteAfterProcessing {
		if c.ExtensionAfterProcessing == "" {
			c.ExtensionAfterProcessing = c.FileExtension + ".done"
		}
		c.ExtensionAfterProcessing = dotPrefixed(c.ExtensionAfterProcessing)
	}

	switch c.FileType {
	case "", FileTypeDelimited:
		c.FileType = FileTypeDelimited
		if c.Delimiter == "" {
			c.Delimiter = defaultDelimiter
		}
		if !c.Schema.IsZero() && c.FieldNames == nil {
			if err := c.Schema.Decode(&c.FieldNames); err != nil {
				return fmt.Errorf("decode delimited schema: %w", err)
			}
		}
	case FileTypeFixedWidth:
		if c.FixedFields == nil {
			if c.Schema.IsZero() {
				return errors.New("fixedWidth requires a schema of field descriptors")
			}
			var raw map[string]fixedFieldYAML
			if err := c.Schema.Decode(&raw); err != nil {
				return fmt.Errorf("decode fixed-width schema: %w", err)
			}
			c.FixedFields = make(map[string]parse.FixedField, len(raw))
			for name, f := range raw {
				c.FixedFields[name] = parse.FixedField{
					Offset:   f.Offset,
					Length:   f.Length,
					Charset:  f.Charset,
					Reversed: f.Reversed,
				}
			}
		}
	default:
		return fmt.Errorf("unknown fileType %q", c.FileType)
	}
	return nil
}

type fixedFieldYAML struct {
	Offset   int    `yaml:"offset"`
	Length   int    `yaml:"length"`
	Charset  string `yaml:"charset"`
	Reversed bool   `yaml:"reversed"`
}

func dotPrefixed(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
