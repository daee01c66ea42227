// Package media владеет захватом камеры и микрофона. Открытый поток
// принадлежит одному Capture и обязан быть освобожден на любом пути выхода.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"interview-coach/internal/logger"
)

var (
	ErrPermissionDenied = errors.New("device permission denied")
	ErrDeviceNotFound   = errors.New("capture device not found")
	ErrDeviceBusy       = errors.New("capture device is used by another application")
)

const module = "media"

type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Constraints - какие дорожки нужны
type Constraints struct {
	Audio bool
	Video bool
}

func (c Constraints) Empty() bool {
	return !c.Audio && !c.Video
}

type Track interface {
	Kind() Kind
	Stop() error
}

type Stream interface {
	Tracks() []Track
}

// Device открывает поток с устройства
type Device interface {
	Open(ctx context.Context, constraints Constraints) (Stream, error)
}

// Capture хранит единственный открытый поток
type Capture struct {
	device Device
	log    logger.Logger

	mu          sync.Mutex
	stream      Stream
	constraints Constraints
}

func NewCapture(device Device, log logger.Logger) *Capture {
	if log == nil {
		log = logger.NewNop()
	}
	return &Capture{device: device, log: log}
}

// Acquire открывает поток. Повторный вызов с уже открытым потоком ничего не делает.
func (c *Capture) Acquire(ctx context.Context, constraints Constraints) error {
	if constraints.Empty() {
		return nil
	}
	if c.device == nil {
		return ErrDeviceNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	stream, err := c.device.Open(ctx, constraints)
	if err != nil {
		c.log.Warn(module, "Capture access failed", map[string]interface{}{
			"audio": constraints.Audio,
			"video": constraints.Video,
			"error": err,
		})
		return fmt.Errorf("ошибка доступа к устройству: %w", err)
	}

	c.stream = stream
	c.constraints = constraints
	c.log.Info(module, "Capture access granted", map[string]interface{}{
		"tracks": len(stream.Tracks()),
	})
	return nil
}

// Release останавливает все дорожки. Идемпотентен.
func (c *Capture) Release() {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.constraints = Constraints{}
	c.mu.Unlock()

	if stream == nil {
		return
	}
	for _, track := range stream.Tracks() {
		if err := track.Stop(); err != nil {
			c.log.Warn(module, "Error stopping track", map[string]interface{}{
				"kind":  string(track.Kind()),
				"error": err,
			})
		}
	}
	c.log.Info(module, "Capture released", nil)
}

func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Remediation возвращает подсказку пользователю по ошибке доступа
func Remediation(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Allow access to the camera and microphone for this terminal and try again."
	case errors.Is(err, ErrDeviceNotFound):
		return "No capture device detected. Connect a camera or microphone, or set CAPTURE_COMMAND."
	case errors.Is(err, ErrDeviceBusy):
		return "The device is being used by another application. Close it and try again."
	default:
		return ""
	}
}
