package config

const (
	defaultConfigPath       = "~/.config/autounpack/config.toml"
	defaultInfoDir          = "info"
	defaultCacheDir         = "~/.cache/autounpack"
	defaultLogDir           = "~/.local/share/autounpack/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultSevenZipBinary   = "7z"
	defaultLedgerPath       = "~/.local/share/autounpack/ledger.db"
)

var projectConfigNames = []string{"autounpack.toml", "autounpack.yaml", "autounpack.yml", "autounpack.json"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InfoDir:  defaultInfoDir,
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		SevenZip: SevenZip{
			Binary: defaultSevenZipBinary,
		},
		Ledger: Ledger{
			Path: defaultLedgerPath,
		},
	}
}
