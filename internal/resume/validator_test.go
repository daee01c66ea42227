package resume

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestValidateFile_Accepts(t *testing.T) {
	v := NewValidator(0, nil)

	tests := []struct {
		name        string
		file        string
		data        []byte
		contentType string
	}{
		{"plain text", "cv.txt", []byte("Jane Doe\nBackend engineer, 6 years of Go.\n"), "text/plain"},
		{"pdf", "CV.PDF", []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"), "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := v.ValidateFile(writeFile(t, tt.file, tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.file, file.Name)
			assert.Equal(t, tt.contentType, file.ContentType)
			assert.Equal(t, int64(len(tt.data)), file.Size)
			assert.Equal(t, tt.data, file.Data)
		})
	}
}

func TestValidateFile_Rejects(t *testing.T) {
	v := NewValidator(64, nil)

	tests := []struct {
		name string
		file string
		data []byte
		want error
	}{
		{"empty", "cv.txt", nil, ErrEmpty},
		{"too large", "cv.txt", bytes.Repeat([]byte("a"), 65), ErrTooLarge},
		{"extension", "cv.exe", []byte("text"), ErrUnsupportedType},
		{"no extension", "cv", []byte("text"), ErrUnsupportedType},
		{"pdf extension with text body", "cv.pdf", []byte("just some text"), ErrUnsupportedType},
		{"txt extension with png body", "cv.txt", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateFile(writeFile(t, tt.file, tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateFile_Missing(t *testing.T) {
	_, err := NewValidator(0, nil).ValidateFile(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewValidator(0, nil).ValidateFile(t.TempDir())
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestNewValidator_Defaults(t *testing.T) {
	v := NewValidator(-1, []string{".TXT"})
	assert.Equal(t, int64(DefaultMaxBytes), v.MaxBytes())

	_, err := v.ValidateFile(writeFile(t, "cv.txt", []byte("hello")))
	assert.NoError(t, err)

	_, err = v.ValidateFile(writeFile(t, "cv.pdf", []byte("%PDF-1.4\n")))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
