package api

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Статусы интервью на стороне сервера
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// InterviewConfig - параметры интервью, которые выбирает пользователь
type InterviewConfig struct {
	Type            string `json:"type" validate:"required,oneof=technical behavioral hr case-study aptitude"`
	SubType         string `json:"subType,omitempty"`
	Industry        string `json:"industry" validate:"required"`
	Role            string `json:"role" validate:"required"`
	Company         string `json:"company,omitempty"`
	Difficulty      string `json:"difficulty" validate:"required,oneof=entry mid senior"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,oneof=15 30 45 60"`
	VoiceEnabled    bool   `json:"voiceEnabled"`
	VideoEnabled    bool   `json:"videoEnabled"`
}

// Duration возвращает длительность интервью
func (c InterviewConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// QuestionAnswer - одна пара вопрос/ответ с оценкой
type QuestionAnswer struct {
	QuestionID   string   `json:"questionId,omitempty"`
	QuestionText string   `json:"questionText"`
	AnswerText   string   `json:"answerText"`
	StartTs      int64    `json:"startTs"`
	EndTs        int64    `json:"endTs"`
	AIScore      *float64 `json:"aiScore,omitempty"`
	AIFeedback   string   `json:"aiFeedback,omitempty"`
	ModelAnswer  string   `json:"modelAnswer,omitempty"`
}

// ResponseTime возвращает время ответа по меткам start/end (миллисекунды)
func (qa QuestionAnswer) ResponseTime() time.Duration {
	if qa.EndTs <= qa.StartTs {
		return 0
	}
	return time.Duration(qa.EndTs-qa.StartTs) * time.Millisecond
}

// InterviewMetrics - агрегированные метрики завершенного интервью
type InterviewMetrics struct {
	AvgResponseTime float64  `json:"avgResponseTime"`
	FillerCount     int      `json:"fillerCount"`
	ConfidenceScore float64  `json:"confidenceScore"`
	WordCount       int      `json:"wordCount"`
	SpeakingPace    *float64 `json:"speakingPace,omitempty"`
}

// Interview - полная сессия интервью с историей вопросов
type Interview struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId,omitempty"`
	Config        InterviewConfig   `json:"config"`
	StartedAt     Timestamp         `json:"startedAt"`
	EndedAt       *Timestamp        `json:"endedAt,omitempty"`
	Status        string            `json:"status"`
	Transcript    string            `json:"transcript,omitempty"`
	QA            []QuestionAnswer  `json:"qa"`
	FirstQuestion string            `json:"firstQuestion,omitempty"`
	OverallScore  *float64          `json:"overallScore,omitempty"`
	Metrics       *InterviewMetrics `json:"metrics,omitempty"`
}

// Completed сообщает, закрыто ли интервью на сервере
func (i *Interview) Completed() bool {
	return i.Status == StatusCompleted
}

// Evaluation - оценка ответа от AI
type Evaluation struct {
	Score        float64  `json:"score"`
	Feedback     string   `json:"feedback"`
	ModelAnswer  string   `json:"modelAnswer,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

type startRequest struct {
	Config InterviewConfig `json:"config"`
}

type StartResponse struct {
	InterviewID   string `json:"interviewId"`
	FirstQuestion string `json:"firstQuestion"`
}

type SubmitAnswerRequest struct {
	AnswerText        string `json:"answerText"`
	ElapsedMs         int64  `json:"elapsedMs"`
	PartialTranscript string `json:"partialTranscript,omitempty"`
}

type AnswerResponse struct {
	NextQuestion *string     `json:"nextQuestion"`
	Evaluation   *Evaluation `json:"evaluation"`
	Completed    bool        `json:"completed"`
}

// HasNextQuestion сообщает, прислал ли сервер следующий вопрос
func (r *AnswerResponse) HasNextQuestion() bool {
	return !r.Completed && r.NextQuestion != nil && strings.TrimSpace(*r.NextQuestion) != ""
}

type FinishResponse struct {
	ReportID     string  `json:"reportId"`
	OverallScore float64 `json:"overallScore"`
}

type listResponse struct {
	Interviews []Interview `json:"interviews"`
}

// QuestionFeedback - разбор одного ответа в итоговом отчете
type QuestionFeedback struct {
	QuestionNumber int     `json:"questionNumber"`
	Question       string  `json:"question"`
	Score          float64 `json:"score"`
	Feedback       string  `json:"feedback"`
	ModelAnswer    string  `json:"modelAnswer,omitempty"`
}

// FeedbackSummary - итоговый AI отчет по интервью
type FeedbackSummary struct {
	OverallScore      float64            `json:"overallScore"`
	TotalQuestions    int                `json:"totalQuestions"`
	AnsweredQuestions int                `json:"answeredQuestions"`
	AverageScore      float64            `json:"averageScore"`
	Strengths         []string           `json:"strengths"`
	Improvements      []string           `json:"improvements"`
	DetailedFeedback  []QuestionFeedback `json:"detailedFeedback"`
	// Feedback заполняется сервером, когда ответов еще нет
	Feedback string `json:"feedback,omitempty"`
}

// ResumeAnalysis - результат ATS анализа резюме
type ResumeAnalysis struct {
	Score           float64  `json:"score"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

// Timestamp принимает RFC 3339 и "наивные" ISO метки без зоны,
// которые отдает бэкенд (datetime.isoformat()). Наивные метки считаются UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("неизвестный формат времени %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
