package session

import (
	"context"
	"errors"
	"time"

	"interview-coach/internal/api"
	"interview-coach/internal/textmetrics"
)

var (
	ErrEmptyAnswer        = errors.New("please provide an answer")
	ErrSubmissionInFlight = errors.New("an answer is already being submitted")
	ErrSessionFinished    = errors.New("interview is already finished")
	ErrNotReady           = errors.New("interview is not loaded")
	ErrNoQuestion         = errors.New("interview has no current question")
	ErrAlreadyStarted     = errors.New("interview already started")
)

// State - состояние сессии интервью
type State string

const (
	StateNew            State = "new"
	StateLoading        State = "loading"
	StateAwaitingAnswer State = "awaiting_answer"
	StateSubmitting     State = "submitting"
	// StateFinishing - сессия уже терминальна, запрос завершения еще не подтвержден
	StateFinishing State = "finishing"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Terminal сообщает, что ответы больше не принимаются
func (s State) Terminal() bool {
	return s == StateFinishing || s == StateCompleted || s == StateAborted
}

// EventKind - тип события для интерфейса
type EventKind string

const (
	EventQuestion          EventKind = "question"
	EventEvaluation        EventKind = "evaluation"
	EventNotify            EventKind = "notify"
	EventTimerWarning      EventKind = "timer_warning"
	EventCompleted         EventKind = "completed"
	EventNavigateDashboard EventKind = "navigate_dashboard"
	EventNavigateResults   EventKind = "navigate_results"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Event - сообщение контроллера подписчику
type Event struct {
	Kind        EventKind
	InterviewID string

	// EventQuestion
	Question string
	Answered int

	// EventEvaluation
	Evaluation *api.Evaluation

	// EventNotify
	Level   Level
	Message string
	Err     error

	// EventTimerWarning
	Remaining time.Duration

	// EventCompleted
	OverallScore *float64
}

// Snapshot - согласованный срез состояния для отображения
type Snapshot struct {
	State        State
	InterviewID  string
	Config       api.InterviewConfig
	Question     string
	Answered     int
	Draft        string
	Live         textmetrics.LiveMetrics
	Remaining    time.Duration
	OverallScore *float64
}

// InterviewAPI - операции удаленного API, нужные контроллеру
type InterviewAPI interface {
	StartInterview(ctx context.Context, cfg api.InterviewConfig) (*api.StartResponse, error)
	StartWithQuestions(ctx context.Context, cfg api.InterviewConfig, questions []api.PreviewQuestion) (*api.StartResponse, error)
	GetInterview(ctx context.Context, interviewID string) (*api.Interview, error)
	SubmitAnswer(ctx context.Context, interviewID string, req api.SubmitAnswerRequest) (*api.AnswerResponse, error)
	FinishInterview(ctx context.Context, interviewID string) (*api.FinishResponse, error)
}

// Voice - синтез и распознавание речи (speech.Bridge)
type Voice interface {
	Speak(text string, onDone func(error))
	StopSpeaking()
	StopListening()
}

// Capture - захват камеры и микрофона (media.Capture)
type Capture interface {
	Release()
}

// Archive - локальное хранилище завершенных интервью (storage.Store)
type Archive interface {
	Archive(interview *api.Interview, feedback *api.FeedbackSummary) error
}
