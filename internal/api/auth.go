package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired возвращается, если срок действия JWT истек
var ErrTokenExpired = errors.New("срок действия токена истек")

// TokenSource выдает bearer токен для очередного запроса.
// Пустой токен без ошибки означает, что пользователь не авторизован.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// JWTTokenSource читает токен из загрузчика и отбрасывает просроченные JWT.
// Непрозрачные (не JWT) токены передаются как есть.
type JWTTokenSource struct {
	load   func() (string, error)
	now    func() time.Time
	parser *jwt.Parser
}

// NewStaticTokenSource создает источник с фиксированным токеном
func NewStaticTokenSource(token string) *JWTTokenSource {
	return newJWTTokenSource(func() (string, error) { return token, nil })
}

// NewFileTokenSource читает токен из файла при каждом запросе,
// чтобы подхватывать токены, обновленные внешним инструментом
func NewFileTokenSource(path string) *JWTTokenSource {
	return newJWTTokenSource(func() (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", nil
			}
			return "", fmt.Errorf("ошибка чтения токена %s: %w", path, err)
		}
		return string(data), nil
	})
}

func newJWTTokenSource(load func() (string, error)) *JWTTokenSource {
	return &JWTTokenSource{
		load:   load,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

func (s *JWTTokenSource) Token(_ context.Context) (string, error) {
	raw, err := s.load()
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return "", nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(raw, claims); err != nil {
		return raw, nil
	}

	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && !s.now().Before(exp.Time) {
		return "", ErrTokenExpired
	}
	return raw, nil
}
