// Package speech объединяет распознавание и синтез речи за одним интерфейсом.
// Конкретные движки подключаются через RecognitionEngine и Synthesizer.
package speech

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNoMicrophone     = errors.New("microphone not accessible")
	ErrEngineBusy       = errors.New("speech engine busy")
	ErrNetwork          = errors.New("speech recognition network error")
	ErrUnsupported      = errors.New("speech engine not available")
	ErrAlreadyListening = errors.New("already listening")
	ErrInterrupted      = errors.New("utterance interrupted")
	ErrRecognition      = errors.New("speech recognition failed")
)

// Коды ошибок движка распознавания
const (
	CodeNoSpeech          = "no-speech"
	CodeNotAllowed        = "not-allowed"
	CodeServiceNotAllowed = "service-not-allowed"
	CodeAudioCapture      = "audio-capture"
	CodeNetwork           = "network"
	CodeBusy              = "busy"
	CodeAborted           = "aborted"
)

type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// EngineEvent - событие движка распознавания
type EngineEvent struct {
	Kind       EventKind
	Transcript string
	Final      bool
	// Code заполняется для EventError
	Code string
	Err  error
}

// RecognitionEngine - непрерывное распознавание речи. После Start движок
// отправляет события в handler; EventEnd означает, что движок остановился сам
// или после Stop.
type RecognitionEngine interface {
	Start(handler func(EngineEvent)) error
	Stop() error
}

// Synthesizer произносит текст и блокируется до конца фразы или отмены ctx
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// ErrorForCode переводит код ошибки движка в ошибку пакета.
// Для no-speech возвращает nil: это ожидаемая пауза, а не сбой.
func ErrorForCode(code string) error {
	switch code {
	case CodeNoSpeech:
		return nil
	case CodeNotAllowed, CodeServiceNotAllowed:
		return ErrPermissionDenied
	case CodeAudioCapture:
		return ErrNoMicrophone
	case CodeNetwork:
		return ErrNetwork
	case CodeBusy, CodeAborted:
		return ErrEngineBusy
	default:
		return fmt.Errorf("%w: %s", ErrRecognition, code)
	}
}
