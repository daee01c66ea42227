package config

import "time"

// Config представляет YAML конфигурацию клиента интервью
type Config struct {
	Interview InterviewDefaults `yaml:"interview"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Timer     TimerConfig       `yaml:"timer"`
	Resume    ResumeConfig      `yaml:"resume"`
}

// InterviewDefaults - значения по умолчанию для нового интервью
type InterviewDefaults struct {
	Type            string `yaml:"type" validate:"required,oneof=technical behavioral hr case-study aptitude"`
	SubType         string `yaml:"sub_type"`
	Industry        string `yaml:"industry" validate:"required"`
	Role            string `yaml:"role" validate:"required"`
	Company         string `yaml:"company"`
	Difficulty      string `yaml:"difficulty" validate:"required,oneof=entry mid senior"`
	DurationMinutes int    `yaml:"duration_minutes" validate:"required,oneof=15 30 45 60"`
	VoiceEnabled    bool   `yaml:"voice_enabled"`
	VideoEnabled    bool   `yaml:"video_enabled"`
}

// MetricsConfig - константы расчета живых метрик ответа
type MetricsConfig struct {
	FillerWords []string `yaml:"filler_words" validate:"required,min=1,dive,required"`
	// WordCeiling - количество слов, после которого объем ответа перестает повышать уверенность
	WordCeiling   int     `yaml:"word_ceiling" validate:"required,gt=0"`
	FillerPenalty float64 `yaml:"filler_penalty" validate:"gt=0"`
}

// TimerConfig - пороги предупреждений таймера в секундах до конца
type TimerConfig struct {
	WarningSeconds []int `yaml:"warning_seconds" validate:"dive,gt=0"`
}

type ResumeConfig struct {
	MaxBytes          int64    `yaml:"max_bytes" validate:"required,gt=0"`
	AllowedExtensions []string `yaml:"allowed_extensions" validate:"required,min=1,dive,startswith=."`
}

// Warnings возвращает пороги предупреждений как длительности
func (c TimerConfig) Warnings() []time.Duration {
	out := make([]time.Duration, 0, len(c.WarningSeconds))
	for _, s := range c.WarningSeconds {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

// Duration возвращает длительность интервью
func (d InterviewDefaults) Duration() time.Duration {
	return time.Duration(d.DurationMinutes) * time.Minute
}

// Default возвращает встроенную конфигурацию, которая используется без YAML файла
func Default() *Config {
	return &Config{
		Interview: InterviewDefaults{
			Type:            "technical",
			Industry:        "Technology",
			Role:            "Software Engineer",
			Difficulty:      "mid",
			DurationMinutes: 30,
			VoiceEnabled:    true,
		},
		Metrics: MetricsConfig{
			FillerWords: []string{
				"um", "umm", "uh", "uhh", "uhm", "er", "erm", "ah", "hmm",
				"like", "basically", "actually", "literally", "totally",
				"you know", "i mean", "sort of", "kind of", "you see",
			},
			WordCeiling:   50,
			FillerPenalty: 2.0,
		},
		Timer: TimerConfig{
			WarningSeconds: []int{300, 60},
		},
		Resume: ResumeConfig{
			MaxBytes:          5 * 1024 * 1024,
			AllowedExtensions: []string{".pdf", ".doc", ".docx", ".txt"},
		},
	}
}
