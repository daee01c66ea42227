package terminal

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// Input - построчный ввод, общий для нескольких интерактивных циклов одной
// команды (просмотр вопросов, затем интервью). Строки читает одна горутина,
// поэтому ни одна строка не теряется между циклами. Next вызывается из
// одной горутины.
type Input struct {
	lines     chan string
	readErr   chan error
	stop      chan struct{}
	closeOnce sync.Once

	finished bool
	err      error
}

// NewInput запускает чтение. Горутина завершается по концу ввода, отмене
// ctx или Close.
func NewInput(ctx context.Context, in io.Reader) *Input {
	i := &Input{
		lines:   make(chan string),
		readErr: make(chan error, 1),
		stop:    make(chan struct{}),
	}

	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case i.lines <- scanner.Text():
			case <-i.stop:
				return
			case <-ctx.Done():
				return
			}
		}
		i.readErr <- scanner.Err()
	}()

	return i
}

// Next ждет следующую строку. ok=false означает конец ввода (err - ошибка
// чтения или nil) либо отмену ctx.
func (i *Input) Next(ctx context.Context) (line string, ok bool, err error) {
	if i.finished {
		return "", false, i.err
	}
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case err := <-i.readErr:
		i.end(err)
		return "", false, err
	case line := <-i.lines:
		return line, true, nil
	}
}

func (i *Input) end(err error) {
	i.finished = true
	i.err = err
}

// Close останавливает чтение
func (i *Input) Close() {
	i.closeOnce.Do(func() { close(i.stop) })
}
