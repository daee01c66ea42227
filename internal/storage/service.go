package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"interview-coach/internal/api"
)

const (
	DefaultDir = "results"
	filePrefix = "interview_"
	fileSuffix = ".json"
)

var (
	ErrNotFound  = errors.New("результат интервью не найден")
	ErrInvalidID = errors.New("некорректный ID интервью")
)

// Store хранит результаты интервью в JSON файлах interview_<id>.json
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) Dir() string {
	return s.dir
}

// Archive сохраняет интервью вместе с необязательным AI отчетом
func (s *Store) Archive(interview *api.Interview, feedback *api.FeedbackSummary) error {
	if interview == nil {
		return fmt.Errorf("%w: пустое интервью", ErrInvalidID)
	}
	return s.SaveResult(&InterviewResult{
		InterviewID: interview.ID,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		Interview:   *interview,
		Feedback:    feedback,
	})
}

// SaveResult сохраняет результат интервью в JSON файл
func (s *Store) SaveResult(result *InterviewResult) error {
	path, err := s.path(result.InterviewID)
	if err != nil {
		return err
	}

	// Создаем директорию если её нет
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("ошибка создания директории %s: %w", s.dir, err)
	}

	// Сериализуем результат в JSON с отступами
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации результата: %w", err)
	}

	// Пишем во временный файл и переименовываем, чтобы не оставить обрезанный JSON
	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи файла %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}

	return nil
}

// LoadResult загружает результат интервью из JSON файла
func (s *Store) LoadResult(interviewID string) (*InterviewResult, error) {
	path, err := s.path(interviewID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, interviewID)
		}
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	var result InterviewResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("ошибка десериализации JSON: %w", err)
	}

	return &result, nil
}

// ListResults возвращает отсортированный список ID сохраненных интервью
func (s *Store) ListResults() ([]string, error) {
	// Проверяем существование директории
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", s.dir, err)
	}

	results := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		interviewID := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if interviewID != "" {
			results = append(results, interviewID)
		}
	}
	sort.Strings(results)

	return results, nil
}

func (s *Store) path(interviewID string) (string, error) {
	if interviewID == "" || interviewID == "." || interviewID == ".." ||
		strings.ContainsAny(interviewID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, interviewID)
	}
	return filepath.Join(s.dir, filePrefix+interviewID+fileSuffix), nil
}
