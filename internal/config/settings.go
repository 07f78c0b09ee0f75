package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"markdesk-server/internal/logger"
)

var log = logger.WithComponent("CONFIG")

// ProviderDetails holds connection settings for one LLM provider.
type ProviderDetails struct {
	APIKey  *string `json:"api_key"`
	BaseURL *string `json:"base_url"`
	Model   *string `json:"model"`
}

// Settings is the user-editable settings document persisted next to the server.
type Settings struct {
	HexoPath    *string                    `json:"hexo_path"`
	LLMProvider string                     `json:"llm_provider"`
	Providers   map[string]ProviderDetails `json:"providers"`
}

// WorkspacePath returns the configured workspace root or "" when unset.
func (s Settings) WorkspacePath() string {
	if s.HexoPath == nil {
		return ""
	}
	return *s.HexoPath
}

func strPtr(s string) *string { return &s }

// DefaultSettings returns the settings written on first start.
func DefaultSettings() Settings {
	provider := func(baseURL, model string) ProviderDetails {
		return ProviderDetails{BaseURL: strPtr(baseURL), Model: strPtr(model)}
	}
	return Settings{
		LLMProvider: "openai",
		Providers: map[string]ProviderDetails{
			"openai":   provider("https://api.openai.com/v1", "gpt-4o-mini"),
			"claude":   provider("https://api.anthropic.com", "claude-3-5-sonnet-20241022"),
			"gemini":   provider("https://generativelanguage.googleapis.com/v1beta", "gemini-2.0-flash-exp"),
			"qwen":     provider("https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-plus"),
			"deepseek": provider("https://api.deepseek.com/v1", "deepseek-chat"),
		},
	}
}

// fallbackSettings is served when the settings file exists but cannot be parsed.
func fallbackSettings() Settings {
	return Settings{LLMProvider: "openai", Providers: map[string]ProviderDetails{}}
}

// SettingsStore loads and saves Settings as JSON.
type SettingsStore struct {
	mu      sync.RWMutex
	path    string
	current Settings
}

// NewSettingsStore opens the settings file at path, creating it with defaults when missing.
func NewSettingsStore(path string) (*SettingsStore, error) {
	s := &SettingsStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.current = DefaultSettings()
		if err := s.write(s.current); err != nil {
			return nil, err
		}
		log.Info("Created default settings file: %s", path)
	case err != nil:
		return nil, fmt.Errorf("read settings file: %w", err)
	default:
		var settings Settings
		if err := json.Unmarshal(data, &settings); err != nil {
			log.Warn("Settings file %s is corrupt, using fallback: %v", path, err)
			settings = fallbackSettings()
		}
		if settings.Providers == nil {
			settings.Providers = map[string]ProviderDetails{}
		}
		s.current = settings
	}

	return s, nil
}

// Path returns the settings file location.
func (s *SettingsStore) Path() string {
	return s.path
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save replaces the current settings and persists them.
func (s *SettingsStore) Save(settings Settings) error {
	if settings.Providers == nil {
		settings.Providers = map[string]ProviderDetails{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(settings); err != nil {
		return err
	}
	s.current = settings
	return nil
}

func (s *SettingsStore) write(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
