package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// CommandSynthesizer произносит текст внешней командой (espeak, say),
// передавая фразу последним аргументом
type CommandSynthesizer struct {
	name string
	args []string
}

func NewCommandSynthesizer(command string) (*CommandSynthesizer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrUnsupported
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return &CommandSynthesizer{name: fields[0], args: fields[1:]}, nil
}

func (s *CommandSynthesizer) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), s.args...), text)
	cmd := exec.CommandContext(ctx, s.name, args...)

	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	if err != nil {
		return fmt.Errorf("ошибка синтеза речи: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// LineRecognizer читает готовые расшифровки построчно из источника,
// например FIFO, в который пишет внешняя программа диктовки.
// Каждая непустая строка - финальный результат. Конец потока означает,
// что движок остановился сам; следующий Start откроет источник заново.
//
// Обычный файл читается как tail -f: следующий Start продолжает с места,
// где остановился предыдущий, а строка без перевода строки ждет его.
// Файл короче запомненной позиции читается с начала.
type LineRecognizer struct {
	open func() (io.ReadCloser, error)

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	current io.ReadCloser
	offset  int64
}

// NewLineRecognizer читает расшифровки из именованного канала или
// дописываемого файла
func NewLineRecognizer(path string) *LineRecognizer {
	return NewReaderRecognizer(func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

func NewReaderRecognizer(open func() (io.ReadCloser, error)) *LineRecognizer {
	return &LineRecognizer{open: open}
}

func (r *LineRecognizer) Start(handler func(EngineEvent)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrEngineBusy
	}
	r.running = true
	r.stop = make(chan struct{})

	go r.run(r.stop, handler)
	return nil
}

func (r *LineRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}
	r.running = false
	close(r.stop)

	if r.current != nil {
		err := r.current.Close()
		r.current = nil
		return err
	}
	return nil
}

func (r *LineRecognizer) run(stop chan struct{}, handler func(EngineEvent)) {
	defer func() {
		r.mu.Lock()
		if r.stop == stop {
			r.running = false
			r.current = nil
		}
		r.mu.Unlock()
		handler(EngineEvent{Kind: EventEnd})
	}()

	rc, err := r.open()
	if err != nil {
		handler(EngineEvent{Kind: EventError, Code: openErrorCode(err), Err: err})
		return
	}
	defer rc.Close()

	r.mu.Lock()
	select {
	case <-stop:
		r.mu.Unlock()
		return
	default:
	}
	r.current = rc
	r.mu.Unlock()

	follow, base := r.resume(rc)
	var consumed int64

	scanner := bufio.NewScanner(rc)
	scanner.Split(splitLines(follow, &consumed))
	for scanner.Scan() {
		if follow {
			r.setOffset(base + consumed)
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handler(EngineEvent{Kind: EventResult, Transcript: line, Final: true})
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-stop:
		default:
			handler(EngineEvent{Kind: EventError, Code: CodeAborted, Err: err})
		}
	}
}

// resume переходит к запомненной позиции, если источник - обычный файл
func (r *LineRecognizer) resume(rc io.ReadCloser) (bool, int64) {
	f, ok := rc.(*os.File)
	if !ok {
		return false, 0
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false, 0
	}

	r.mu.Lock()
	offset := r.offset
	if offset > info.Size() {
		offset = 0
	}
	r.mu.Unlock()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return false, 0
	}
	return true, offset
}

func (r *LineRecognizer) setOffset(offset int64) {
	r.mu.Lock()
	r.offset = offset
	r.mu.Unlock()
}

// splitLines - bufio.ScanLines со счетчиком прочитанных байт. В режиме
// follow незавершенная строка в конце файла не отдается.
func splitLines(follow bool, consumed *int64) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if follow && atEOF && bytes.IndexByte(data, '\n') < 0 {
			return 0, nil, nil
		}
		advance, token, err := bufio.ScanLines(data, atEOF)
		*consumed += int64(advance)
		return advance, token, err
	}
}

func openErrorCode(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return CodeNotAllowed
	case errors.Is(err, fs.ErrNotExist):
		return CodeAudioCapture
	default:
		return CodeAborted
	}
}
