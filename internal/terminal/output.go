// Package terminal - интерактивный интерфейс клиента в терминале
package terminal

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Output печатает сообщения пользователю. Безопасен для вызова из
// горутин таймера и распознавания речи.
type Output struct {
	mu    sync.Mutex
	w     io.Writer
	plain bool
}

// NewOutput создает вывод. plain отключает цвета (для файлов и тестов);
// в остальном действует глобальный color.NoColor (--no-color, NO_COLOR, не TTY).
func NewOutput(w io.Writer, plain bool) *Output {
	return &Output{w: w, plain: plain}
}

// Send печатает строку как есть
func (o *Output) Send(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.w, text)
}

// Sendf печатает форматированную строку
func (o *Output) Sendf(format string, args ...interface{}) {
	o.Send(fmt.Sprintf(format, args...))
}

func (o *Output) Info(text string) {
	o.Send(o.paint(color.FgCyan, text))
}

func (o *Output) Success(text string) {
	o.Send(o.paint(color.FgGreen, text))
}

func (o *Output) Warn(text string) {
	o.Send(o.paint(color.FgYellow, text))
}

func (o *Output) Error(text string) {
	o.Send(o.paint(color.FgRed, "✖ "+text))
}

// Title печатает заголовок раздела
func (o *Output) Title(text string) {
	o.Send(o.paint(color.Bold, text))
}

// Faint - второстепенный текст (подсказки, метрики)
func (o *Output) Faint(text string) {
	o.Send(o.paint(color.Faint, text))
}

func (o *Output) paint(attr color.Attribute, text string) string {
	if o.plain {
		return text
	}
	return color.New(attr).Sprint(text)
}
