package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"interview-coach/internal/logger"
	"interview-coach/internal/metrics"
)

const (
	DefaultRestartDelay = 100 * time.Millisecond
	module              = "speech"
)

// State - состояние цикла распознавания
type State int

const (
	StateIdle State = iota
	StateListening
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRestarting:
		return "restarting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Bridge управляет движками речи.
//
// Распознавание: idle -> listening -> (движок остановился, а слушать все еще нужно)
// -> restarting -> listening. Каждый запуск движка получает свое поколение,
// события прошлых поколений игнорируются.
//
// Синтез: новая фраза отменяет предыдущую и начинается только после ее завершения.
type Bridge struct {
	engine       RecognitionEngine
	synth        Synthesizer
	restartDelay time.Duration
	log          logger.Logger
	metrics      *metrics.Metrics

	mu           sync.Mutex
	state        State
	generation   uint64
	onPartial    func(text string, final bool)
	onError      func(error)
	restartTimer *time.Timer

	speakGen    uint64
	speakCancel context.CancelFunc
	speakDone   chan struct{}
	speaking    bool
	wg          sync.WaitGroup
}

type Option func(*Bridge)

func WithRestartDelay(d time.Duration) Option {
	return func(b *Bridge) {
		if d >= 0 {
			b.restartDelay = d
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(b *Bridge) {
		b.log = log
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// NewBridge создает мост. Любой из движков может быть nil: соответствующие
// операции вернут ErrUnsupported.
func NewBridge(engine RecognitionEngine, synth Synthesizer, opts ...Option) *Bridge {
	b := &Bridge{
		engine:       engine,
		synth:        synth,
		restartDelay: DefaultRestartDelay,
		log:          logger.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// StartListening запускает непрерывное распознавание. onPartial получает
// промежуточные и финальные расшифровки, onError - ошибки, после которых
// распознавание остановлено.
func (b *Bridge) StartListening(onPartial func(text string, final bool), onError func(error)) error {
	if b.engine == nil {
		return ErrUnsupported
	}

	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return ErrAlreadyListening
	}
	b.generation++
	gen := b.generation
	b.state = StateListening
	b.onPartial = onPartial
	b.onError = onError
	b.mu.Unlock()

	if err := b.engine.Start(b.handler(gen)); err != nil {
		b.mu.Lock()
		if b.generation == gen {
			b.state = StateIdle
			b.generation++
		}
		b.mu.Unlock()
		return fmt.Errorf("ошибка запуска распознавания: %w", err)
	}

	b.log.Info(module, "Speech recognition started", nil)
	return nil
}

// StopListening останавливает распознавание и отменяет запланированный перезапуск
func (b *Bridge) StopListening() {
	b.mu.Lock()
	if b.state == StateIdle {
		b.mu.Unlock()
		return
	}
	wasListening := b.state == StateListening
	b.state = StateIdle
	b.generation++
	if b.restartTimer != nil {
		b.restartTimer.Stop()
		b.restartTimer = nil
	}
	b.mu.Unlock()

	if wasListening {
		if err := b.engine.Stop(); err != nil {
			b.log.Warn(module, "Error stopping speech recognition", map[string]interface{}{"error": err})
		}
	}
	b.log.Info(module, "Speech recognition stopped", nil)
}

func (b *Bridge) handler(gen uint64) func(EngineEvent) {
	return func(ev EngineEvent) {
		b.handleEvent(gen, ev)
	}
}

func (b *Bridge) handleEvent(gen uint64, ev EngineEvent) {
	b.mu.Lock()
	if gen != b.generation || b.state != StateListening {
		b.mu.Unlock()
		return
	}

	switch ev.Kind {
	case EventResult:
		onPartial := b.onPartial
		b.mu.Unlock()
		if onPartial != nil {
			onPartial(ev.Transcript, ev.Final)
		}

	case EventError:
		err := ErrorForCode(ev.Code)
		if err == nil {
			b.mu.Unlock()
			b.log.Debug(module, "No speech detected, continuing to listen", nil)
			return
		}
		b.state = StateIdle
		b.generation++
		onError := b.onError
		b.mu.Unlock()

		b.log.Warn(module, "Speech recognition error", map[string]interface{}{
			"code":  ev.Code,
			"error": err,
		})
		_ = b.engine.Stop()
		if onError != nil {
			onError(err)
		}

	case EventEnd:
		b.state = StateRestarting
		b.restartTimer = time.AfterFunc(b.restartDelay, func() {
			b.restart(gen)
		})
		b.mu.Unlock()
		b.log.Debug(module, "Speech recognition ended, restarting", nil)

	default:
		b.mu.Unlock()
	}
}

func (b *Bridge) restart(prev uint64) {
	b.mu.Lock()
	if prev != b.generation || b.state != StateRestarting {
		b.mu.Unlock()
		return
	}
	b.generation++
	gen := b.generation
	b.state = StateListening
	b.restartTimer = nil
	b.mu.Unlock()

	b.metrics.IncrementRecognitionRestarts()

	if err := b.engine.Start(b.handler(gen)); err != nil {
		b.mu.Lock()
		current := b.generation == gen
		if current {
			b.state = StateIdle
			b.generation++
		}
		onError := b.onError
		b.mu.Unlock()

		if !current {
			return
		}
		b.log.Error(module, "Failed to restart recognition", map[string]interface{}{"error": err})
		if onError != nil {
			onError(fmt.Errorf("ошибка перезапуска распознавания: %w", err))
		}
	}
}

// Speak отменяет текущую фразу и произносит новую. onDone вызывается по
// завершении: с nil, с ErrInterrupted при отмене или с ошибкой синтеза.
func (b *Bridge) Speak(text string, onDone func(error)) {
	if b.synth == nil {
		if onDone != nil {
			onDone(ErrUnsupported)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	b.mu.Lock()
	if b.speakCancel != nil {
		b.speakCancel()
	}
	prev := b.speakDone
	b.speakGen++
	gen := b.speakGen
	b.speakCancel = cancel
	b.speakDone = done
	b.speaking = true
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer close(done)
		defer cancel()

		if prev != nil {
			<-prev
		}

		var err error
		if ctx.Err() != nil {
			err = ErrInterrupted
		} else {
			err = b.synth.Speak(ctx, text)
			if err != nil && ctx.Err() != nil {
				err = ErrInterrupted
			}
		}

		b.mu.Lock()
		if b.speakGen == gen {
			b.speaking = false
			b.speakCancel = nil
		}
		b.mu.Unlock()

		if err != nil && !errors.Is(err, ErrInterrupted) {
			b.log.Warn(module, "Speech synthesis failed", map[string]interface{}{"error": err})
		}
		if onDone != nil {
			onDone(err)
		}
	}()
}

// StopSpeaking прерывает текущую фразу
func (b *Bridge) StopSpeaking() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.speakCancel != nil {
		b.speakCancel()
		b.speakCancel = nil
	}
	b.speaking = false
}

// Close останавливает распознавание и синтез и дожидается завершения фраз
func (b *Bridge) Close() {
	b.StopListening()
	b.StopSpeaking()
	b.wg.Wait()
}
