package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"interview-coach/internal/api"
	"interview-coach/internal/logger"
	"interview-coach/internal/session"
	"interview-coach/internal/textmetrics"
)

const (
	module = "terminal"

	maxLineLength = 4000
	maxLineBytes  = 1 << 20
)

// Session - операции контроллера, доступные из терминала (session.Controller)
type Session interface {
	Submit(ctx context.Context, text string) (*api.Evaluation, error)
	Finish(ctx context.Context) error
	UpdateDraft(text string) (textmetrics.LiveMetrics, error)
	AppendDraft(fragment string) (textmetrics.LiveMetrics, error)
	SetInterim(text string)
	RepeatQuestion() error
	StopSpeaking()
	Snapshot() session.Snapshot
}

// Outcome - чем закончился интерактивный цикл
type Outcome string

const (
	// OutcomeInput - ввод закончился, интервью можно продолжить через resume
	OutcomeInput     Outcome = "input_closed"
	OutcomeLeft      Outcome = "left"
	OutcomeResults   Outcome = "results"
	OutcomeDashboard Outcome = "dashboard"
)

// Handler переводит строки пользователя в команды контроллера
// и печатает его события
type Handler struct {
	out         *Output
	log         logger.Logger
	rateLimiter *RateLimiter

	doneOnce sync.Once
	done     chan struct{}
	mu       sync.Mutex
	outcome  Outcome
}

func NewHandler(out *Output, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		out:         out,
		log:         log,
		rateLimiter: NewRateLimiter(10, time.Minute),
		done:        make(chan struct{}),
	}
}

// HandleEvent - подписчик событий контроллера
func (h *Handler) HandleEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventQuestion:
		h.out.Send("")
		h.out.Title(fmt.Sprintf("Question %d:", ev.Answered+1))
		h.out.Send(ev.Question)
		h.out.Faint("Type your answer, then /send. /help lists commands.")
	case session.EventEvaluation:
		h.renderEvaluation(ev)
	case session.EventNotify:
		h.notify(ev.Level, ev.Message)
	case session.EventTimerWarning:
		h.out.Warn("⏰ " + ev.Message)
	case session.EventCompleted:
		h.out.Success(ev.Message)
		h.out.Sendf("Overall score: %s", h.score(ev.OverallScore))
	case session.EventNavigateResults:
		h.finish(OutcomeResults)
	case session.EventNavigateDashboard:
		h.finish(OutcomeDashboard)
	}
}

// Done закрывается, когда сессия закончилась или пользователь вышел
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Outcome возвращает итог цикла; пусто, пока цикл не завершен
func (h *Handler) Outcome() Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}

func (h *Handler) finish(outcome Outcome) {
	h.doneOnce.Do(func() {
		h.mu.Lock()
		h.outcome = outcome
		h.mu.Unlock()
		close(h.done)
	})
}

// Run читает строки из in до конца сессии, отмены ctx или конца ввода
func (h *Handler) Run(ctx context.Context, sess Session, in io.Reader) (Outcome, error) {
	input := NewInput(ctx, in)
	defer input.Close()
	return h.RunInput(ctx, sess, input)
}

// RunInput - Run поверх общего ввода команды. input не закрывается.
func (h *Handler) RunInput(ctx context.Context, sess Session, input *Input) (Outcome, error) {
	if input.finished {
		h.finish(OutcomeInput)
		return OutcomeInput, input.err
	}

	for {
		select {
		case <-ctx.Done():
			return h.Outcome(), ctx.Err()
		case <-h.done:
			return h.Outcome(), nil
		case err := <-input.readErr:
			input.end(err)
			// события, пришедшие вместе с последней строкой, важнее конца ввода
			select {
			case <-h.done:
				return h.Outcome(), nil
			default:
			}
			h.finish(OutcomeInput)
			if err != nil {
				return OutcomeInput, fmt.Errorf("ошибка чтения ввода: %w", err)
			}
			return OutcomeInput, nil
		case line := <-input.lines:
			h.HandleLine(ctx, sess, line)
		}
	}
}

// HandleLine обрабатывает одну строку: команду или часть ответа
func (h *Handler) HandleLine(ctx context.Context, sess Session, line string) {
	text := strings.TrimSpace(line)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		command, arg, _ := strings.Cut(text, " ")
		h.handleCommand(ctx, sess, strings.ToLower(command), strings.TrimSpace(arg))
		return
	}
	h.handleUserInput(sess, text)
}

func (h *Handler) handleCommand(ctx context.Context, sess Session, command, arg string) {
	switch command {
	case "/send", "/s":
		h.handleSendCommand(ctx, sess, arg)
	case "/end":
		h.handleEndCommand(ctx, sess)
	case "/repeat":
		h.handleRepeatCommand(sess)
	case "/draft":
		h.handleDraftCommand(sess)
	case "/clear":
		h.handleClearCommand(sess)
	case "/status":
		h.handleStatusCommand(sess)
	case "/mute":
		sess.StopSpeaking()
	case "/quit", "/exit":
		h.out.Info("Leaving the interview. Continue later with: interview-coach resume " + sess.Snapshot().InterviewID)
		h.finish(OutcomeLeft)
	case "/help":
		h.handleHelpCommand()
	default:
		h.out.Error("Unknown command. Use /help to list commands.")
	}
}

func (h *Handler) handleSendCommand(ctx context.Context, sess Session, arg string) {
	if !h.rateLimiter.IsAllowed("/send") {
		h.out.Warn("Too many submissions. Please wait a minute.")
		return
	}
	if arg != "" {
		if err := h.validateUserInput(arg); err != nil {
			h.out.Error(err.Error())
			return
		}
		if _, err := sess.AppendDraft(arg); err != nil {
			h.reportStateError(err)
			return
		}
	}

	h.out.Faint("Submitting answer...")
	_, err := sess.Submit(ctx, sess.Snapshot().Draft)
	if err != nil {
		// пустой ответ и ошибки API контроллер уже показал
		h.reportStateError(err)
		if api.IsTemporary(err) {
			h.out.Faint("The server is busy. Your answer is kept, send it again with /send.")
		}
		h.log.Debug(module, "Submit rejected", map[string]interface{}{"error": err})
	}
}

func (h *Handler) handleEndCommand(ctx context.Context, sess Session) {
	if !h.rateLimiter.IsAllowed("/end") {
		h.out.Warn("Too many attempts. Please wait a minute.")
		return
	}
	h.out.Faint("Ending interview...")
	if err := sess.Finish(ctx); err != nil {
		h.reportStateError(err)
		if !isStateError(err) {
			h.out.Faint("Use /end to try again.")
		}
	}
}

func (h *Handler) handleRepeatCommand(sess Session) {
	if !h.rateLimiter.IsAllowed("/repeat") {
		h.out.Warn("Too many repeats. Please wait a minute.")
		return
	}
	if err := sess.RepeatQuestion(); err != nil {
		h.reportStateError(err)
	}
}

func (h *Handler) handleDraftCommand(sess Session) {
	snap := sess.Snapshot()
	if strings.TrimSpace(snap.Draft) == "" {
		h.out.Faint("Your answer is empty.")
		return
	}
	h.out.Title("Your answer:")
	h.out.Send(snap.Draft)
	h.ShowLive(snap.Live)
}

func (h *Handler) handleClearCommand(sess Session) {
	live, err := sess.UpdateDraft("")
	if err != nil {
		h.reportStateError(err)
		return
	}
	h.out.Faint("Answer cleared.")
	h.ShowLive(live)
}

func (h *Handler) handleStatusCommand(sess Session) {
	snap := sess.Snapshot()
	h.out.Title("Interview status")
	h.out.Sendf("ID:        %s", snap.InterviewID)
	h.out.Sendf("Role:      %s (%s, %s)", snap.Config.Role, snap.Config.Type, snap.Config.Difficulty)
	h.out.Sendf("State:     %s", describeState(snap.State))
	h.out.Sendf("Answered:  %d", snap.Answered)
	if snap.Config.DurationMinutes > 0 {
		h.out.Sendf("Time left: %s", session.FormatClock(snap.Remaining))
	}
	if snap.OverallScore != nil {
		h.out.Sendf("Score:     %s", h.score(snap.OverallScore))
	}
}

func (h *Handler) handleHelpCommand() {
	h.out.Title("Commands")
	h.out.Send(`Type any text to add it to your answer.
/send [text]  submit the answer (optionally adding text first)
/draft        show the current answer and live metrics
/clear        clear the current answer
/repeat       repeat the question
/mute         stop reading the question aloud
/status       show interview progress and time left
/end          end the interview and see results
/quit         leave now and resume later
/help         show this message`)
}

// validateUserInput проверяет строку ответа до отправки в черновик
func (h *Handler) validateUserInput(text string) error {
	if len(text) > maxLineLength {
		return fmt.Errorf("line is too long (max %d characters)", maxLineLength)
	}

	if len(text) > 10 && strings.Count(text, text[:1]) > len(text)*8/10 {
		return errors.New("line contains too many repeated characters")
	}

	return nil
}

func (h *Handler) handleUserInput(sess Session, text string) {
	if err := h.validateUserInput(text); err != nil {
		h.out.Error(err.Error())
		return
	}
	live, err := sess.AppendDraft(text)
	if err != nil {
		h.reportStateError(err)
		return
	}
	h.ShowLive(live)
}

// Dictation возвращает обработчик распознанной речи для speech.Bridge:
// окончательные фразы дописываются в ответ, промежуточные запоминаются
func (h *Handler) Dictation(sess Session) func(text string, final bool) {
	return func(text string, final bool) {
		if !final {
			sess.SetInterim(text)
			return
		}
		live, err := sess.AppendDraft(text)
		if err != nil {
			h.log.Debug(module, "Dictation ignored", map[string]interface{}{"error": err})
			return
		}
		h.out.Faint("🎤 " + strings.TrimSpace(text))
		h.ShowLive(live)
	}
}

// SpeechError показывает ошибку распознавания речи
func (h *Handler) SpeechError(err error) {
	h.out.Warn("Speech recognition stopped: " + err.Error())
	h.out.Faint("You can keep typing your answer.")
}

// ShowLive печатает живые метрики ответа одной строкой
func (h *Handler) ShowLive(live textmetrics.LiveMetrics) {
	h.out.Faint(FormatLive(live))
}

// FormatLive форматирует живые метрики ответа
func FormatLive(live textmetrics.LiveMetrics) string {
	parts := []string{
		fmt.Sprintf("words %d", live.WordCount),
		fmt.Sprintf("fillers %d", live.FillerCount),
		fmt.Sprintf("confidence %.0f%%", live.ConfidenceScore),
		fmt.Sprintf("time %.0fs", live.ResponseTimeSeconds),
	}
	if live.WordsPerMinute > 0 {
		parts = append(parts, fmt.Sprintf("pace %.0f wpm", live.WordsPerMinute))
	}
	return strings.Join(parts, " · ")
}

func (h *Handler) renderEvaluation(ev session.Event) {
	h.out.Send("")
	if ev.Evaluation == nil {
		h.out.Success("Answer recorded.")
		return
	}
	score := ev.Evaluation.Score
	h.out.Sendf("Score: %s  %s", h.score(&score), ev.Message)
	if ev.Evaluation.Feedback != "" {
		h.out.Send(ev.Evaluation.Feedback)
	}
	renderList(h.out, "Strengths:", ev.Evaluation.Strengths)
	renderList(h.out, "To improve:", ev.Evaluation.Improvements)
	if ev.Evaluation.ModelAnswer != "" {
		h.out.Faint("Model answer: " + ev.Evaluation.ModelAnswer)
	}
}

func (h *Handler) notify(level session.Level, message string) {
	switch level {
	case session.LevelError:
		h.out.Error(message)
	case session.LevelSuccess:
		h.out.Success(message)
	default:
		h.out.Info(message)
	}
}

func (h *Handler) score(value *float64) string {
	return score(h.out, value)
}

// reportStateError печатает ошибки состояния, которые контроллер не показывает сам
func (h *Handler) reportStateError(err error) {
	switch {
	case errors.Is(err, session.ErrSubmissionInFlight):
		h.out.Warn("Your answer is still being submitted.")
	case errors.Is(err, session.ErrSessionFinished):
		h.out.Warn("The interview has already ended.")
	case errors.Is(err, session.ErrNotReady):
		h.out.Warn("The interview is not ready yet.")
	}
}

func isStateError(err error) bool {
	return errors.Is(err, session.ErrSubmissionInFlight) ||
		errors.Is(err, session.ErrSessionFinished) ||
		errors.Is(err, session.ErrNotReady)
}

func describeState(state session.State) string {
	switch state {
	case session.StateAwaitingAnswer:
		return "waiting for your answer"
	case session.StateSubmitting:
		return "evaluating your answer"
	case session.StateFinishing:
		return "ending"
	case session.StateCompleted:
		return "completed"
	case session.StateAborted:
		return "aborted"
	default:
		return "loading"
	}
}

func renderList(out *Output, title string, items []string) {
	if len(items) == 0 {
		return
	}
	out.Send(title)
	for _, item := range items {
		out.Send("  • " + item)
	}
}
