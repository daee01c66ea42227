package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const defaultStartupWindow = 200 * time.Millisecond

// CommandDevice захватывает поток внешней командой (arecord, ffmpeg).
// Процесс живет, пока открыт поток; все дорожки потока останавливают его.
type CommandDevice struct {
	name          string
	args          []string
	startupWindow time.Duration
}

func NewCommandDevice(command string) (*CommandDevice, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrDeviceNotFound
	}
	return &CommandDevice{name: fields[0], args: fields[1:], startupWindow: defaultStartupWindow}, nil
}

// WithStartupWindow задает, сколько ждать раннего завершения процесса
func (d *CommandDevice) WithStartupWindow(window time.Duration) *CommandDevice {
	d.startupWindow = window
	return d
}

// Open запускает процесс захвата. Если он завершился с ошибкой в пределах
// окна проверки, устройство считается занятым.
func (d *CommandDevice) Open(ctx context.Context, constraints Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(d.name, d.args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		default:
			return nil, err
		}
	}

	proc := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		proc.waitErr = cmd.Wait()
		close(proc.done)
	}()

	select {
	case <-proc.done:
		if proc.waitErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, strings.TrimSpace(stderr.String()))
		}
	case <-time.After(d.startupWindow):
	case <-ctx.Done():
		_ = proc.stop()
		return nil, ctx.Err()
	}

	stream := &commandStream{}
	if constraints.Audio {
		stream.tracks = append(stream.tracks, &processTrack{kind: KindAudio, proc: proc})
	}
	if constraints.Video {
		stream.tracks = append(stream.tracks, &processTrack{kind: KindVideo, proc: proc})
	}
	return stream, nil
}

type process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
	once    sync.Once
}

func (p *process) stop() error {
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		_ = p.cmd.Process.Kill()
		<-p.done
	})
	return nil
}

func (p *process) running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

type commandStream struct {
	tracks []Track
}

func (s *commandStream) Tracks() []Track {
	return s.tracks
}

type processTrack struct {
	kind Kind
	proc *process
}

func (t *processTrack) Kind() Kind {
	return t.kind
}

func (t *processTrack) Stop() error {
	return t.proc.stop()
}
