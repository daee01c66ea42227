package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load загружает конфигурацию из YAML файла. Поля, отсутствующие в файле,
// берутся из Default.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	err = validateConfig(config)
	if err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return config, nil
}

// LoadOrDefault загружает файл, если он существует, иначе возвращает Default
func LoadOrDefault(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(filename)
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return err
	}

	seen := make(map[string]bool, len(config.Metrics.FillerWords))
	for i, word := range config.Metrics.FillerWords {
		normalized := strings.ToLower(strings.TrimSpace(word))
		if normalized == "" {
			return fmt.Errorf("filler_words[%d] не может быть пустым", i)
		}
		if seen[normalized] {
			return fmt.Errorf("filler_words содержит дубликат %q", word)
		}
		seen[normalized] = true
	}

	for i := 1; i < len(config.Timer.WarningSeconds); i++ {
		if config.Timer.WarningSeconds[i] >= config.Timer.WarningSeconds[i-1] {
			return fmt.Errorf("warning_seconds должны идти по убыванию")
		}
	}

	if len(config.Timer.WarningSeconds) > 0 &&
		config.Timer.WarningSeconds[0] >= config.Interview.DurationMinutes*60 {
		return fmt.Errorf("первое предупреждение (%d с) должно быть меньше длительности интервью", config.Timer.WarningSeconds[0])
	}

	return nil
}
