package timer

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultWarnings - пороги предупреждений по умолчанию
var DefaultWarnings = []time.Duration{5 * time.Minute, time.Minute}

// Countdown - обратный отсчет одной сессии интервью от startedAt + duration.
// Каждое предупреждение срабатывает не более одного раза, истечение - ровно один раз.
type Countdown struct {
	mu       sync.Mutex
	deadline time.Time
	warnings []time.Duration
	warned   []bool
	expired  bool
	stopped  bool

	now       func() time.Time
	interval  time.Duration
	onWarning func(remaining time.Duration)
	onExpire  func()
}

type Option func(*Countdown)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(c *Countdown) {
		c.now = now
	}
}

// WithInterval задает период тиков Run (по умолчанию секунда)
func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithWarnings задает пороги оставшегося времени для предупреждений
func WithWarnings(thresholds []time.Duration) Option {
	return func(c *Countdown) {
		c.warnings = thresholds
	}
}

// OnWarning регистрирует обработчик предупреждения; remaining - сработавший порог
func OnWarning(fn func(remaining time.Duration)) Option {
	return func(c *Countdown) {
		c.onWarning = fn
	}
}

// OnExpire регистрирует обработчик истечения времени
func OnExpire(fn func()) Option {
	return func(c *Countdown) {
		c.onExpire = fn
	}
}

func NewCountdown(startedAt time.Time, duration time.Duration, opts ...Option) *Countdown {
	c := &Countdown{
		deadline: startedAt.Add(duration),
		warnings: DefaultWarnings,
		now:      time.Now,
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	thresholds := make([]time.Duration, 0, len(c.warnings))
	for _, w := range c.warnings {
		if w > 0 {
			thresholds = append(thresholds, w)
		}
	}
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] > thresholds[j] })
	c.warnings = thresholds
	c.warned = make([]bool, len(thresholds))
	return c
}

// Deadline возвращает момент окончания интервью
func (c *Countdown) Deadline() time.Time {
	return c.deadline
}

// Remaining возвращает оставшееся время на момент now, не меньше нуля
func (c *Countdown) Remaining(now time.Time) time.Duration {
	remaining := c.deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired сообщает, сработало ли истечение
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Tick оценивает состояние таймера на момент now. Обработчики вызываются
// вне блокировки; повторные тики после нуля ничего не делают.
func (c *Countdown) Tick(now time.Time) {
	remaining := c.Remaining(now)

	c.mu.Lock()
	if c.stopped || c.expired {
		c.mu.Unlock()
		return
	}

	if remaining == 0 {
		c.expired = true
		for i := range c.warned {
			c.warned[i] = true
		}
		onExpire := c.onExpire
		c.mu.Unlock()

		if onExpire != nil {
			onExpire()
		}
		return
	}

	// Если пересечено сразу несколько порогов (например, после возобновления),
	// объявляется только наименьший.
	announce := time.Duration(-1)
	for i, threshold := range c.warnings {
		if !c.warned[i] && remaining <= threshold {
			c.warned[i] = true
			announce = threshold
		}
	}
	onWarning := c.onWarning
	c.mu.Unlock()

	if announce >= 0 && onWarning != nil {
		onWarning(announce)
	}
}

// Run сразу выполняет тик, затем тикает с заданным периодом до истечения,
// Stop или отмены ctx
func (c *Countdown) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.Tick(c.now())
		if c.done() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop отключает таймер; последующие тики игнорируются
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

func (c *Countdown) done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped || c.expired
}
