package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"interview-coach/internal/api"
	"interview-coach/internal/logger"
	"interview-coach/internal/report"
	"interview-coach/internal/textmetrics"
)

// PracticeClient - операции API быстрой тренировки (api.Client)
type PracticeClient interface {
	GeneratePractice(ctx context.Context, req api.PracticeRequest) (*api.PracticeSet, error)
	EvaluatePractice(ctx context.Context, req api.PracticeAnswerRequest) (*api.PracticeEvaluation, error)
	FinishPractice(ctx context.Context, sessionID string) error
}

// PracticeSummary - итог тренировки
type PracticeSummary struct {
	SessionID string
	Total     int
	Scores    []float64
}

// Average возвращает средний балл по оцененным ответам
func (s PracticeSummary) Average() (float64, bool) {
	if len(s.Scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range s.Scores {
		sum += v
	}
	return sum / float64(len(s.Scores)), true
}

// Practice ведет быструю тренировку: вопросы без таймера, оценка каждого
// ответа сразу после отправки
type Practice struct {
	out         *Output
	log         logger.Logger
	client      PracticeClient
	analyzer    *textmetrics.Analyzer
	rateLimiter *RateLimiter
	now         func() time.Time
}

func NewPractice(out *Output, log logger.Logger, client PracticeClient, analyzer *textmetrics.Analyzer) *Practice {
	if log == nil {
		log = logger.NewNop()
	}
	if analyzer == nil {
		analyzer = textmetrics.Default()
	}
	return &Practice{
		out:         out,
		log:         log,
		client:      client,
		analyzer:    analyzer,
		rateLimiter: NewRateLimiter(10, time.Minute),
		now:         time.Now,
	}
}

type practiceStep int

const (
	stepNext practiceStep = iota
	stepStop
)

// Run генерирует вопросы и проводит по ним пользователя. Сессия на сервере
// закрывается на любом выходе, если сервер ее открыл.
func (p *Practice) Run(ctx context.Context, req api.PracticeRequest, input *Input) (PracticeSummary, error) {
	p.out.Faint("Generating practice questions...")
	set, err := p.client.GeneratePractice(ctx, req)
	if err != nil {
		return PracticeSummary{}, err
	}

	summary := PracticeSummary{SessionID: set.SessionID, Total: len(set.Questions)}
	p.log.Info(module, "Practice session started", map[string]interface{}{
		"session_id": set.SessionID,
		"questions":  len(set.Questions),
	})
	p.out.Success(fmt.Sprintf("Practice questions generated! %d %s questions at %s level.", len(set.Questions), req.Category, req.Difficulty))

	var runErr error
	for i, q := range set.Questions {
		step, err := p.ask(ctx, input, set.SessionID, req.Category, i, len(set.Questions), q, &summary)
		if err != nil {
			runErr = err
			break
		}
		if step == stepStop {
			break
		}
	}

	p.finish(ctx, summary)
	return summary, runErr
}

func (p *Practice) ask(ctx context.Context, input *Input, sessionID, category string, i, total int,
	q api.PracticeQuestion, summary *PracticeSummary) (practiceStep, error) {
	p.out.Send("")
	p.out.Title(fmt.Sprintf("Question %d of %d [%s · %s]", i+1, total, q.Category, q.Difficulty))
	p.out.Send(q.Question)
	p.out.Faint("Type your answer, then /send. /hint shows hints, /skip moves on, /quit ends practice.")

	shownAt := p.now()
	var draft []string

	for {
		line, ok, err := input.Next(ctx)
		if !ok {
			if err != nil && !errors.Is(err, context.Canceled) {
				return stepStop, fmt.Errorf("ошибка чтения ввода: %w", err)
			}
			return stepStop, err
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if !strings.HasPrefix(text, "/") {
			draft = append(draft, text)
			p.out.Faint(FormatLive(p.analyzer.Analyze(strings.Join(draft, " "), p.now().Sub(shownAt))))
			continue
		}

		command, arg, _ := strings.Cut(text, " ")
		switch strings.ToLower(command) {
		case "/send", "/s":
			if arg = strings.TrimSpace(arg); arg != "" {
				draft = append(draft, arg)
			}
			if p.submit(ctx, sessionID, category, q, strings.Join(draft, " "), summary) {
				return stepNext, nil
			}
		case "/hint", "/hints":
			p.hints(q)
		case "/clear":
			draft = nil
			p.out.Faint("Answer cleared.")
		case "/skip", "/next":
			p.out.Faint("Skipped.")
			return stepNext, nil
		case "/quit", "/exit", "/end":
			return stepStop, nil
		default:
			p.out.Warn("Unknown command " + command + ". Use /send, /hint, /clear, /skip or /quit.")
		}
	}
}

// submit возвращает true, если ответ оценен и можно переходить дальше
func (p *Practice) submit(ctx context.Context, sessionID, category string, q api.PracticeQuestion, answer string, summary *PracticeSummary) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		p.out.Error("Please provide an answer")
		return false
	}
	if !p.rateLimiter.IsAllowed("/send") {
		p.out.Warn("Too many submissions. Please wait a minute.")
		return false
	}

	p.out.Faint("Evaluating...")
	ev, err := p.client.EvaluatePractice(ctx, api.PracticeAnswerRequest{
		Question:  q.Question,
		Answer:    answer,
		Category:  category,
		SessionID: sessionID,
	})
	if err != nil {
		p.log.Warn(module, "Failed to evaluate practice answer", map[string]interface{}{"error": err})
		p.out.Error("Failed to evaluate answer: " + api.Detail(err))
		p.out.Faint("Your answer is kept. Use /send to try again.")
		return false
	}

	summary.Scores = append(summary.Scores, ev.Score)
	if ev.Score >= 70 {
		p.out.Success("Answer evaluated! " + score(p.out, &ev.Score))
	} else {
		p.out.Warn("Answer evaluated. " + score(p.out, &ev.Score))
	}
	if ev.Feedback != "" {
		p.out.Send(ev.Feedback)
	}
	renderList(p.out, "Key points:", ev.KeyPoints)
	return true
}

func (p *Practice) hints(q api.PracticeQuestion) {
	if len(q.Hints) == 0 && len(q.Topics) == 0 {
		p.out.Faint("No hints for this question.")
		return
	}
	renderList(p.out, "Hints:", q.Hints)
	if len(q.Topics) > 0 {
		p.out.Faint("Topics: " + strings.Join(q.Topics, ", "))
	}
}

func (p *Practice) finish(ctx context.Context, summary PracticeSummary) {
	if summary.SessionID != "" {
		// сессию закрываем и после Ctrl+C
		if err := p.client.FinishPractice(context.WithoutCancel(ctx), summary.SessionID); err != nil {
			p.log.Warn(module, "Failed to finish practice session", map[string]interface{}{
				"session_id": summary.SessionID,
				"error":      err,
			})
		}
	}

	p.out.Send("")
	avg, ok := summary.Average()
	if !ok {
		p.out.Info("Practice ended. No answers were evaluated.")
		return
	}
	p.out.Success(fmt.Sprintf("Practice complete! Average score: %.1f/100", avg))
	p.out.Faint(fmt.Sprintf("Answered %d of %d. %s", len(summary.Scores), summary.Total, report.OverallRating(avg).Message))
}

// RenderPracticeHistory печатает последние тренировки
func RenderPracticeHistory(out *Output, sessions []api.PracticeSession) {
	if len(sessions) == 0 {
		out.Info("No practice sessions yet. Start one with: interview-coach practice")
		return
	}

	out.Title(fmt.Sprintf("%-24s  %-16s  %-11s  %-7s  %-8s  %s", "ID", "STARTED", "CATEGORY", "LEVEL", "ANSWERED", "AVERAGE"))
	for _, s := range sessions {
		started := "-"
		if !s.StartedAt.IsZero() {
			started = s.StartedAt.Local().Format(timeLayout)
		}
		out.Sendf("%-24s  %-16s  %-11s  %-7s  %-8s  %s",
			truncate(s.ID, 24), started, s.Category, s.Difficulty,
			fmt.Sprintf("%d/%d", s.CompletedQuestions, s.TotalQuestions), score(out, s.AverageScore))
	}
}

// RenderPracticeSession печатает ответы одной тренировки
func RenderPracticeSession(out *Output, s *api.PracticeSession) {
	out.Title("Practice session " + s.ID)
	out.Sendf("Category: %s (%s)", s.Category, s.Difficulty)
	out.Sendf("Average:  %s", score(out, s.AverageScore))
	for i, a := range s.Questions {
		value := a.Score
		out.Send("")
		out.Sendf("%d. %s", i+1, a.Question)
		out.Faint("Your answer: " + truncate(a.Answer, 200))
		out.Sendf("Score: %s", score(out, &value))
		if a.Feedback != "" {
			out.Send(a.Feedback)
		}
	}
}

// RenderBankQuestions печатает вопросы встроенного банка
func RenderBankQuestions(out *Output, questions []api.BankQuestion) {
	if len(questions) == 0 {
		out.Info("No questions match these filters.")
		return
	}
	for _, q := range questions {
		out.Sendf("• %s", q.Text)
		meta := q.Category + " · " + q.Difficulty
		if len(q.Tags) > 0 {
			meta += " · " + strings.Join(q.Tags, ", ")
		}
		out.Faint("  " + meta)
	}
}
