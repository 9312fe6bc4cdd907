// Command typeahead runs the completion daemon for the companion
// Neovim plugin. The plugin spawns `typeahead` as a child process; the
// client mode relays its stdio to the daemon's unix socket, starting
// the daemon first if none is running.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"

	"typeahead/engine"
	"typeahead/logger"
)

// Config is the daemon configuration, loaded from TOML with built-in
// defaults.
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Trigger TriggerConfig `toml:"trigger"`
	Source  SourceConfig  `toml:"source"`
	Daemon  DaemonConfig  `toml:"daemon"`
	Log     LogConfig     `toml:"log"`
}

// EngineConfig tunes the completion engine.
type EngineConfig struct {
	FrameIntervalMs int `toml:"frame_interval_ms"`
	FetchTimeoutMs  int `toml:"fetch_timeout_ms"`
}

// TriggerConfig defines the before-caret trigger expression. Group
// selects the capture group that becomes the matched text.
type TriggerConfig struct {
	Pattern string `toml:"pattern"`
	Group   int    `toml:"group"`
}

// SourceConfig selects where candidates come from.
type SourceConfig struct {
	// Type is "wordlist", "httpapi", or "ipc".
	Type string `toml:"type"`

	// Wordlist settings.
	WordsFile string `toml:"words_file"`

	// HTTP API settings.
	URL        string `toml:"url"`
	MetricsURL string `toml:"metrics_url"`
	AuthToken  string `toml:"auth_token"`
	TimeoutMs  int    `toml:"timeout_ms"`

	// IPC settings: the completion server command to spawn.
	Command []string `toml:"command"`

	// Shared settings.
	Limit      int    `toml:"limit"`
	TrimPrefix string `toml:"trim_prefix"`
}

// DaemonConfig tunes daemon lifecycle behavior.
type DaemonConfig struct {
	IdleShutdownSec        int  `toml:"idle_shutdown_sec"`
	DebugImmediateShutdown bool `toml:"debug_immediate_shutdown"`
}

// LogConfig tunes logging.
type LogConfig struct {
	Level string `toml:"level"`
}

func defaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			FrameIntervalMs: 16,
			FetchTimeoutMs:  5000,
		},
		Trigger: TriggerConfig{
			Pattern: `(?:^|\W)(\w{2,})$`,
			Group:   1,
		},
		Source: SourceConfig{
			Type:  "wordlist",
			Limit: 8,
		},
		Daemon: DaemonConfig{
			IdleShutdownSec: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// loadConfig reads the TOML file over the defaults. A missing file is
// not an error; a malformed one is.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()
	if path == "" {
		path = filepath.Join(execDir(), "typeahead.toml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}
	return config, nil
}

func (c Config) engineConfig() engine.Config {
	return engine.Config{
		FrameInterval: time.Duration(c.Engine.FrameIntervalMs) * time.Millisecond,
		FetchTimeout:  time.Duration(c.Engine.FetchTimeoutMs) * time.Millisecond,
	}
}

func (c Config) triggerRegexp() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.Trigger.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid trigger pattern: %w", err)
	}
	return re, nil
}

func execDir() string {
	execPath, err := os.Executable()
	if err != nil {
		logger.Fatal("error getting executable path: %v", err)
	}
	return filepath.Dir(execPath)
}

func getSocketPath() string { return filepath.Join(execDir(), "typeahead.sock") }
func getPidPath() string    { return filepath.Join(execDir(), "typeahead.pid") }
func getLogPath() string    { return filepath.Join(execDir(), "typeahead.log") }

// setupDaemonLogger points the logger at the daemon log file. Caller
// closes the returned file.
func setupDaemonLogger(level string) *os.File {
	f, err := os.OpenFile(getLogPath(), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		logger.Fatal("error opening log file: %v", err)
	}
	logger.Setup(f, level)
	return f
}

func isDaemonRunning() (bool, int) {
	data, err := os.ReadFile(getPidPath())
	if err != nil {
		return false, 0
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return false, 0
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}
	// On Unix, signal 0 probes for existence.
	err = process.Signal(syscall.Signal(0))
	return err == nil, pid
}

func runDaemon(configPath string) {
	config, err := loadConfig(configPath)
	if err != nil {
		logger.Fatal("%v", err)
	}

	f := setupDaemonLogger(config.Log.Level)
	defer f.Close()

	daemon, err := NewDaemon(config)
	if err != nil {
		logger.Fatal("error creating daemon: %v", err)
	}
	if err := daemon.Start(); err != nil {
		logger.Fatal("error starting daemon: %v", err)
	}
}

func runClient() {
	client := NewRelayClient()

	if err := client.EnsureDaemonRunning(); err != nil {
		logger.Fatal("error ensuring daemon is running: %v", err)
	}
	if err := client.Connect(); err != nil {
		logger.Fatal("error connecting to daemon: %v", err)
	}
}

func main() {
	daemonMode := false
	configPath := ""
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--daemon":
			daemonMode = true
		case "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		}
	}

	if daemonMode {
		runDaemon(configPath)
	} else {
		runClient()
	}
}
