package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	NotesDir string `json:"notes_dir"`          // root directory of the note store
	Folder   string `json:"folder,omitempty"`   // target folder inside the store
	CCDir    string `json:"cc_dir,omitempty"`   // optional copy dir for rendered HTML
	LogFile  string `json:"log_file,omitempty"` // optional rotating log file
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // path to global config if loaded, empty otherwise
	Project string // path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		NotesDir: "notes",
		Folder:   "ChatGPT",
	}
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".chat2notes.json"

var (
	errConfigFileRead  = errors.New("cannot read config file")
	errConfigInvalid   = errors.New("invalid config file")
	errNotesDirEmpty   = errors.New("notes_dir cannot be empty")
	errFolderEmpty     = errors.New("folder cannot be empty")
	errSourceRequired  = errors.New("source path is required")
	errUnknownCommand  = errors.New("unknown command")
	errWatchWithDryRun = errors.New("--watch cannot be combined with --dry-run")
)

// globalConfigPath returns the path to the global config file. Uses
// $XDG_CONFIG_HOME/chat2notes/config.json if set, otherwise
// ~/.config/chat2notes/config.json. Empty when no home dir is known.
func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "chat2notes", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "chat2notes", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "chat2notes", "config.json")
	}

	return ""
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config file (.chat2notes.json in the work dir, if present)
// 4. Explicit config file via configPath (if non-empty)
// 5. CLI flag overrides, applied later by the individual commands.
func LoadConfig(workDir, configPath string, env map[string]string) (Config, ConfigSources, error) {
	cfg := DefaultConfig()

	var sources ConfigSources

	globalPath := globalConfigPath(env)
	if globalPath != "" {
		loaded, ok, err := loadConfigFile(globalPath, false)
		if err != nil {
			return Config{}, ConfigSources{}, err
		}

		if ok {
			sources.Global = globalPath
			cfg = mergeConfig(cfg, loaded)
		}
	}

	projectPath := configPath
	mustExist := configPath != ""

	if projectPath == "" {
		projectPath = filepath.Join(workDir, ConfigFileName)
	}

	loaded, ok, err := loadConfigFile(projectPath, mustExist)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	if ok {
		sources.Project = projectPath
		cfg = mergeConfig(cfg, loaded)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, ConfigSources{}, err
	}

	return cfg, sources, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", errConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// mergeConfig overlays non-empty fields of overlay onto base.
func mergeConfig(base, overlay Config) Config {
	if overlay.NotesDir != "" {
		base.NotesDir = overlay.NotesDir
	}

	if overlay.Folder != "" {
		base.Folder = overlay.Folder
	}

	if overlay.CCDir != "" {
		base.CCDir = overlay.CCDir
	}

	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.NotesDir == "" {
		return errNotesDirEmpty
	}

	if cfg.Folder == "" {
		return errFolderEmpty
	}

	return nil
}
