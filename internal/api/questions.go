package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultQuestionSetSize = 5
	DefaultPracticeCount   = 5
	DefaultHistoryLimit    = 20
)

var (
	// ErrInvalidPractice возвращается до сетевого вызова для некорректных параметров тренировки
	ErrInvalidPractice = errors.New("некорректные параметры тренировки")
	ErrNoQuestions     = errors.New("набор вопросов пуст")
)

// PreviewQuestion - вопрос набора, который пользователь просматривает до старта
type PreviewQuestion struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type questionSetRequest struct {
	Config InterviewConfig `json:"config"`
	Count  int             `json:"count"`
}

type questionSetResponse struct {
	Questions []PreviewQuestion `json:"questions"`
	Count     int               `json:"count"`
}

type regenerateRequest struct {
	Config     InterviewConfig `json:"config"`
	QuestionID string          `json:"questionId"`
}

type regenerateResponse struct {
	Question PreviewQuestion `json:"question"`
}

type startWithQuestionsRequest struct {
	Config    InterviewConfig   `json:"config"`
	Questions []PreviewQuestion `json:"questions"`
}

// BankQuestion - вопрос из встроенного банка сервера
type BankQuestion struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags,omitempty"`
}

// PracticeRequest - параметры генерации тренировочных вопросов
type PracticeRequest struct {
	Category   string `validate:"required,oneof=technical behavioral hr"`
	Difficulty string `validate:"required,oneof=entry mid senior"`
	Count      int    `validate:"min=1,max=10"`
}

// PracticeQuestion - вопрос быстрой тренировки с подсказками
type PracticeQuestion struct {
	Question   string   `json:"question"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Hints      []string `json:"hints,omitempty"`
	Topics     []string `json:"topics,omitempty"`
}

// PracticeSet - сгенерированные вопросы и ID тренировочной сессии
type PracticeSet struct {
	Questions []PracticeQuestion `json:"questions"`
	Count     int                `json:"count"`
	SessionID string             `json:"sessionId"`
}

type PracticeAnswerRequest struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Category  string `json:"category"`
	SessionID string `json:"sessionId,omitempty"`
}

// PracticeEvaluation - быстрая оценка тренировочного ответа
type PracticeEvaluation struct {
	Score     float64  `json:"score"`
	Feedback  string   `json:"feedback"`
	KeyPoints []string `json:"keyPoints,omitempty"`
}

// PracticeAnswer - ответ, сохраненный в тренировочной сессии
type PracticeAnswer struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Score      float64    `json:"score"`
	Feedback   string     `json:"feedback"`
	AnsweredAt *Timestamp `json:"answeredAt,omitempty"`
}

// PracticeSession - история одной тренировки
type PracticeSession struct {
	ID                 string           `json:"id"`
	Category           string           `json:"category"`
	Difficulty         string           `json:"difficulty"`
	StartedAt          Timestamp        `json:"startedAt"`
	EndedAt            *Timestamp       `json:"endedAt,omitempty"`
	TotalQuestions     int              `json:"totalQuestions"`
	CompletedQuestions int              `json:"completedQuestions"`
	AverageScore       *float64         `json:"averageScore,omitempty"`
	Questions          []PracticeAnswer `json:"questions,omitempty"`
}

type practiceHistoryResponse struct {
	Sessions []PracticeSession `json:"sessions"`
	Count    int               `json:"count"`
}

// GenerateQuestionSet генерирует весь набор вопросов до старта интервью.
// count <= 0 означает размер по умолчанию.
func (c *Client) GenerateQuestionSet(ctx context.Context, cfg InterviewConfig, count int) ([]PreviewQuestion, error) {
	if err := c.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = DefaultQuestionSetSize
	}

	var resp questionSetResponse
	err := c.doJSON(ctx, "generate_question_set", http.MethodPost, "/api/interviews/generate-question-set",
		questionSetRequest{Config: cfg, Count: count}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации вопросов: %w", err)
	}
	if len(resp.Questions) == 0 {
		return nil, fmt.Errorf("ошибка генерации вопросов: %w", ErrNoQuestions)
	}
	return resp.Questions, nil
}

// RegenerateQuestion заменяет один вопрос набора. ID и позиция сохраняются.
func (c *Client) RegenerateQuestion(ctx context.Context, cfg InterviewConfig, question PreviewQuestion) (*PreviewQuestion, error) {
	var resp regenerateResponse
	err := c.doJSON(ctx, "regenerate_question", http.MethodPost, "/api/interviews/regenerate-question",
		regenerateRequest{Config: cfg, QuestionID: question.ID}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка замены вопроса: %w", err)
	}
	if strings.TrimSpace(resp.Question.Text) == "" {
		return nil, fmt.Errorf("ошибка замены вопроса: сервер вернул пустой вопрос")
	}

	replaced := PreviewQuestion{ID: question.ID, Text: strings.TrimSpace(resp.Question.Text), Order: question.Order}
	return &replaced, nil
}

// StartWithQuestions создает интервью с одобренным набором вопросов
func (c *Client) StartWithQuestions(ctx context.Context, cfg InterviewConfig, questions []PreviewQuestion) (*StartResponse, error) {
	if err := c.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("ошибка запуска интервью: %w", ErrNoQuestions)
	}

	var resp StartResponse
	err := c.doJSON(ctx, "start_with_questions", http.MethodPost, "/api/interviews/start-with-questions",
		startWithQuestionsRequest{Config: cfg, Questions: questions}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка запуска интервью: %w", err)
	}
	if resp.InterviewID == "" {
		return nil, fmt.Errorf("ошибка запуска интервью: сервер не вернул interviewId")
	}

	c.invalidateList()
	return &resp, nil
}

// BankQuestions возвращает вопросы встроенного банка. Пустые фильтры не применяются.
func (c *Client) BankQuestions(ctx context.Context, category, difficulty string) ([]BankQuestion, error) {
	query := url.Values{}
	if category != "" {
		query.Set("category", category)
	}
	if difficulty != "" {
		query.Set("difficulty", difficulty)
	}

	var resp []BankQuestion
	if err := c.doJSON(ctx, "bank_questions", http.MethodGet, withQuery("/api/questions", query), nil, &resp); err != nil {
		return nil, fmt.Errorf("ошибка загрузки банка вопросов: %w", err)
	}
	return resp, nil
}

// ValidatePractice проверяет параметры тренировки без сетевого вызова
func (c *Client) ValidatePractice(req PracticeRequest) error {
	if err := c.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPractice, err)
	}
	return nil
}

// GeneratePractice генерирует тренировочные вопросы и открывает сессию
func (c *Client) GeneratePractice(ctx context.Context, req PracticeRequest) (*PracticeSet, error) {
	if err := c.ValidatePractice(req); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("category", req.Category)
	query.Set("difficulty", req.Difficulty)
	query.Set("count", strconv.Itoa(req.Count))

	var resp PracticeSet
	if err := c.doJSON(ctx, "generate_practice", http.MethodGet, withQuery("/api/questions/generate", query), nil, &resp); err != nil {
		return nil, fmt.Errorf("ошибка генерации тренировки: %w", err)
	}
	if len(resp.Questions) == 0 {
		return nil, fmt.Errorf("ошибка генерации тренировки: %w", ErrNoQuestions)
	}
	return &resp, nil
}

// EvaluatePractice оценивает тренировочный ответ и сохраняет его в сессии
func (c *Client) EvaluatePractice(ctx context.Context, req PracticeAnswerRequest) (*PracticeEvaluation, error) {
	var resp PracticeEvaluation
	if err := c.doJSON(ctx, "evaluate_practice", http.MethodPost, "/api/questions/evaluate", req, &resp); err != nil {
		return nil, fmt.Errorf("ошибка оценки ответа: %w", err)
	}
	return &resp, nil
}

// FinishPractice отмечает тренировочную сессию завершенной
func (c *Client) FinishPractice(ctx context.Context, sessionID string) error {
	path := "/api/questions/finish-session/" + url.PathEscape(sessionID)
	if err := c.doJSON(ctx, "finish_practice", http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("ошибка завершения тренировки %s: %w", sessionID, err)
	}
	return nil
}

// PracticeHistory возвращает последние тренировки пользователя (limit от 1 до 50)
func (c *Client) PracticeHistory(ctx context.Context, limit int) ([]PracticeSession, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > 50 {
		limit = 50
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var resp practiceHistoryResponse
	if err := c.doJSON(ctx, "practice_history", http.MethodGet, withQuery("/api/questions/history", query), nil, &resp); err != nil {
		return nil, fmt.Errorf("ошибка загрузки истории тренировок: %w", err)
	}
	return resp.Sessions, nil
}

// GetPracticeSession загружает одну тренировку с ответами
func (c *Client) GetPracticeSession(ctx context.Context, sessionID string) (*PracticeSession, error) {
	var resp PracticeSession
	path := "/api/questions/session/" + url.PathEscape(sessionID)
	if err := c.doJSON(ctx, "get_practice_session", http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("ошибка загрузки тренировки %s: %w", sessionID, err)
	}
	if resp.ID == "" {
		resp.ID = sessionID
	}
	return &resp, nil
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
