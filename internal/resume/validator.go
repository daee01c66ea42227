// Package resume проверяет файл резюме перед отправкой на анализ
package resume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxBytes = 5 << 20

var (
	ErrEmpty           = errors.New("resume file is empty")
	ErrTooLarge        = errors.New("resume file is too large")
	ErrUnsupportedType = errors.New("unsupported resume file type")
)

var DefaultExtensions = []string{".pdf", ".doc", ".docx", ".txt"}

// contentTypes - типы, которые принимает сервер, по расширению
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// containers - общие форматы, которыми может определиться документ без
// характерных признаков (docx - zip архив, doc - OLE контейнер)
var containers = map[string][]string{
	".docx": {"application/zip"},
	".doc":  {"application/x-ole-storage"},
}

// File - проверенный файл, готовый к загрузке
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

type Validator struct {
	maxBytes   int64
	extensions map[string]bool
}

// NewValidator создает валидатор; неположительный лимит и пустой список
// расширений заменяются значениями по умолчанию
func NewValidator(maxBytes int64, extensions []string) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	v := &Validator{maxBytes: maxBytes, extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		v.extensions[strings.ToLower(ext)] = true
	}
	return v
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateFile проверяет размер, расширение и содержимое файла и читает его.
// Все проверки выполняются до любого сетевого вызова.
func (v *Validator) ValidateFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedType, path)
	}
	if err := v.checkSize(info.Size()); err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))
	if !v.extensions[ext] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}
	// файл мог измениться между Stat и чтением
	if err := v.checkSize(int64(len(data))); err != nil {
		return nil, err
	}

	contentType, err := sniff(ext, data)
	if err != nil {
		return nil, err
	}

	return &File{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (v *Validator) checkSize(size int64) error {
	if size == 0 {
		return ErrEmpty
	}
	if size > v.maxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, v.maxBytes)
	}
	return nil
}

// sniff сверяет содержимое с расширением и возвращает тип для загрузки
func sniff(ext string, data []byte) (string, error) {
	detected := mimetype.Detect(data)

	expected, known := contentTypes[ext]
	if !known {
		return detected.String(), nil
	}

	for m := detected; m != nil; m = m.Parent() {
		if m.Is(expected) {
			return expected, nil
		}
	}
	for _, container := range containers[ext] {
		if detected.Is(container) {
			return expected, nil
		}
	}
	return "", fmt.Errorf("%w: %s content detected as %s", ErrUnsupportedType, ext, detected.String())
}
