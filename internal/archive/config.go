package archive

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"autounpack/internal/config"
	"autounpack/internal/plugin"
	"autounpack/internal/services/sevenzip"
)

// Modes select the last phase the step runs.
const (
	ModeList    = "list"
	ModeTest    = "test"
	ModeExtract = "extract"
)

// Config configures the archive step.
type Config struct {
	plugin.LoadKey `yaml:",inline"`
	plugin.SaveKey `yaml:",inline"`

	Mode         string `yaml:"mode"`
	PasswordPath string `yaml:"password_path"`
	FailKey      string `yaml:"fail_key"`

	StatFileName string `yaml:"stat_file_name"`
	StatDetails  bool   `yaml:"stat_details"`

	ThreadMax      int `yaml:"thread_max"`
	ListThreads    int `yaml:"list_threads"`
	TestThreads    int `yaml:"test_threads"`
	ExtractThreads int `yaml:"extract_threads"`

	ResultProcessingMode string                 `yaml:"result_processing_mode"`
	Recoverable          []sevenzip.Recoverable `yaml:"recoverable"`

	OutputDir string `yaml:"output_dir"`
	KeepDir   bool   `yaml:"keep_dir"`
}

func (c *Config) SetDefaults() {
	c.Mode = ModeExtract
	c.PasswordPath = "passwords.txt"
	c.StatDetails = true
	c.ThreadMax = 10
	c.ResultProcessingMode = sevenzip.ModeStrict
	c.Recoverable = sevenzip.DefaultRecoverable()
	c.OutputDir = "output"
	c.KeepDir = true
}

// Validate normalizes enums and paths and checks the password file exists.
func (c *Config) Validate() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case ModeList, ModeTest, ModeExtract:
	default:
		return fmt.Errorf("mode must be list, test, or extract (got %q)", c.Mode)
	}
	c.ResultProcessingMode = strings.ToLower(strings.TrimSpace(c.ResultProcessingMode))
	switch c.ResultProcessingMode {
	case sevenzip.ModeStrict, sevenzip.ModeGreedy:
	default:
		return fmt.Errorf("result_processing_mode must be strict or greedy (got %q)", c.ResultProcessingMode)
	}
	if c.ThreadMax <= 0 {
		return fmt.Errorf("thread_max must be greater than 0 (got %d)", c.ThreadMax)
	}
	for name, n := range map[string]int{"list_threads": c.ListThreads, "test_threads": c.TestThreads, "extract_threads": c.ExtractThreads} {
		if n < 0 {
			return fmt.Errorf("%s must be >= 0 (got %d)", name, n)
		}
	}
	if c.FailKey != "" && c.FailKey == c.SaveTo() {
		return errors.New("fail_key must differ from save_key")
	}
	if strings.ContainsAny(c.StatFileName, `/\`) {
		return fmt.Errorf("stat_file_name must be a bare name (got %q)", c.StatFileName)
	}

	var err error
	if c.PasswordPath, err = config.ExpandPath(strings.TrimSpace(c.PasswordPath)); err != nil {
		return fmt.Errorf("password_path: %w", err)
	}
	if c.PasswordPath == "" {
		return errors.New("password_path is required")
	}
	if info, statErr := os.Stat(c.PasswordPath); statErr != nil || info.IsDir() {
		return fmt.Errorf("password file %q does not exist", c.PasswordPath)
	}
	if c.OutputDir, err = config.ExpandPath(strings.TrimSpace(c.OutputDir)); err != nil {
		return fmt.Errorf("output_dir: %w", err)
	}
	if c.Mode == ModeExtract && c.OutputDir == "" {
		return errors.New("output_dir is required in extract mode")
	}
	return nil
}

func (c *Config) threads(phase int) int {
	if phase > 0 {
		return phase
	}
	return c.ThreadMax
}
