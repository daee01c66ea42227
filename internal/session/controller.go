// Package session ведет одну сессию интервью: загрузку, ответы, таймер и
// завершение. Все побочные эффекты идут через внедренные зависимости,
// интерфейс получает события через единственного подписчика.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"interview-coach/internal/api"
	"interview-coach/internal/logger"
	"interview-coach/internal/metrics"
	"interview-coach/internal/textmetrics"
	"interview-coach/internal/timer"
)

const module = "session"

type Controller struct {
	client   InterviewAPI
	voice    Voice
	capture  Capture
	archive  Archive
	analyzer *textmetrics.Analyzer
	log      logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	observer func(Event)
	warnings []time.Duration
	interval time.Duration

	// ctx живет до Close; на нем работают таймер и автозавершение
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.Mutex
	state           State
	interview       *api.Interview
	question        string
	questionShownAt time.Time
	draft           string
	interim         string
	live            textmetrics.LiveMetrics
	finishInFlight  bool
	countdown       *timer.Countdown
	stopTimer       context.CancelFunc
	closed          bool
}

type Option func(*Controller)

func WithVoice(voice Voice) Option {
	return func(c *Controller) {
		c.voice = voice
	}
}

func WithCapture(capture Capture) Option {
	return func(c *Controller) {
		c.capture = capture
	}
}

func WithArchive(archive Archive) Option {
	return func(c *Controller) {
		c.archive = archive
	}
}

func WithAnalyzer(analyzer *textmetrics.Analyzer) Option {
	return func(c *Controller) {
		if analyzer != nil {
			c.analyzer = analyzer
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithObserver задает подписчика на события. Он вызывается вне блокировок
// и не должен вызывать Close синхронно.
func WithObserver(observer func(Event)) Option {
	return func(c *Controller) {
		if observer != nil {
			c.observer = observer
		}
	}
}

func WithWarnings(warnings []time.Duration) Option {
	return func(c *Controller) {
		c.warnings = warnings
	}
}

func WithTickInterval(interval time.Duration) Option {
	return func(c *Controller) {
		c.interval = interval
	}
}

func NewController(client InterviewAPI, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		client:   client,
		analyzer: textmetrics.Default(),
		log:      logger.NewNop(),
		now:      time.Now,
		observer: func(Event) {},
		warnings: timer.DefaultWarnings,
		interval: time.Second,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateNew,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start создает интервью на сервере и загружает его
func (c *Controller) Start(ctx context.Context, cfg api.InterviewConfig) (string, error) {
	return c.create(ctx, func(ctx context.Context) (*api.StartResponse, error) {
		return c.client.StartInterview(ctx, cfg)
	})
}

// StartWithQuestions создает интервью с заранее просмотренным набором вопросов
func (c *Controller) StartWithQuestions(ctx context.Context, cfg api.InterviewConfig, questions []api.PreviewQuestion) (string, error) {
	return c.create(ctx, func(ctx context.Context) (*api.StartResponse, error) {
		return c.client.StartWithQuestions(ctx, cfg, questions)
	})
}

func (c *Controller) create(ctx context.Context, start func(context.Context) (*api.StartResponse, error)) (string, error) {
	c.mu.Lock()
	if c.state != StateNew {
		c.mu.Unlock()
		return "", ErrAlreadyStarted
	}
	c.state = StateLoading
	c.mu.Unlock()

	resp, err := start(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateNew
		c.mu.Unlock()

		c.log.Error(module, "Failed to start interview", map[string]interface{}{"error": err})
		c.notifyError("Failed to start interview", err)
		return "", fmt.Errorf("ошибка запуска интервью: %w", err)
	}

	c.log.Info(module, "Interview created", map[string]interface{}{"interview_id": resp.InterviewID})
	return resp.InterviewID, c.load(ctx, resp.InterviewID)
}

// Load загружает существующее интервью. Если ответы уже есть, текущим
// становится вопрос последнего ответа, иначе первый вопрос интервью.
// Ошибка загрузки переводит сессию в aborted и отправляет на дашборд.
func (c *Controller) Load(ctx context.Context, interviewID string) error {
	c.mu.Lock()
	if c.state != StateNew {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateLoading
	c.mu.Unlock()

	return c.load(ctx, interviewID)
}

func (c *Controller) load(ctx context.Context, interviewID string) error {
	interview, err := c.client.GetInterview(ctx, interviewID)
	if err != nil {
		c.abort(interviewID, err)
		return fmt.Errorf("ошибка загрузки интервью %s: %w", interviewID, err)
	}

	if interview.Completed() {
		c.mu.Lock()
		c.state = StateCompleted
		c.interview = interview
		c.mu.Unlock()

		c.log.Info(module, "Interview already completed", map[string]interface{}{"interview_id": interviewID})
		c.emit(Event{Kind: EventNavigateResults, InterviewID: interviewID})
		return nil
	}

	question := currentQuestion(interview)
	if question == "" {
		c.abort(interviewID, ErrNoQuestion)
		return ErrNoQuestion
	}

	now := c.now()
	startedAt := interview.StartedAt.Time
	if startedAt.IsZero() {
		startedAt = now
	}

	var countdown *timer.Countdown
	if duration := interview.Config.Duration(); duration > 0 {
		countdown = timer.NewCountdown(startedAt, duration,
			timer.WithClock(c.now),
			timer.WithInterval(c.interval),
			timer.WithWarnings(c.warnings),
			timer.OnWarning(c.onTimerWarning),
			timer.OnExpire(c.onTimerExpired),
		)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionFinished
	}
	c.state = StateAwaitingAnswer
	c.interview = interview
	c.question = question
	c.questionShownAt = now
	c.draft = ""
	c.interim = ""
	c.live = textmetrics.LiveMetrics{}
	c.countdown = countdown
	answered := len(interview.QA)
	c.mu.Unlock()

	c.metrics.IncrementInterviewsStarted()
	c.log.Info(module, "Interview loaded", map[string]interface{}{
		"interview_id": interviewID,
		"answered":     answered,
	})

	c.emit(Event{Kind: EventQuestion, InterviewID: interviewID, Question: question, Answered: answered})
	c.speak(interview.Config, question)

	if countdown != nil {
		// сессия, начатая слишком давно, завершается сразу
		countdown.Tick(now)
		c.startTimer(countdown)
	}
	return nil
}

func currentQuestion(interview *api.Interview) string {
	if n := len(interview.QA); n > 0 {
		return strings.TrimSpace(interview.QA[n-1].QuestionText)
	}
	return strings.TrimSpace(interview.FirstQuestion)
}

func (c *Controller) abort(interviewID string, err error) {
	c.mu.Lock()
	c.state = StateAborted
	c.mu.Unlock()

	c.log.Error(module, "Failed to load interview", map[string]interface{}{
		"interview_id": interviewID,
		"error":        err,
	})
	c.releaseResources()
	c.notifyError("Failed to load interview. Please try again.", err)
	c.emit(Event{Kind: EventNavigateDashboard, InterviewID: interviewID})
}

// UpdateDraft сохраняет черновик и пересчитывает живые метрики
func (c *Controller) UpdateDraft(text string) (textmetrics.LiveMetrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateDraftLocked(text)
}

// AppendDraft дописывает фрагмент (например, надиктованную фразу) к черновику.
// Чтение и запись черновика идут под одной блокировкой.
func (c *Controller) AppendDraft(fragment string) (textmetrics.LiveMetrics, error) {
	fragment = strings.TrimSpace(fragment)

	c.mu.Lock()
	defer c.mu.Unlock()

	draft := c.draft
	if fragment != "" {
		if strings.TrimSpace(draft) != "" {
			draft = strings.TrimRight(draft, " \t") + " "
		}
		draft += fragment
		c.interim = ""
	}
	return c.updateDraftLocked(draft)
}

// SetInterim запоминает промежуточную гипотезу распознавания. Она уходит
// на сервер как partialTranscript, если ответ отправлен до финальной фразы.
func (c *Controller) SetInterim(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submittable() != nil {
		return
	}
	c.interim = strings.TrimSpace(text)
}

// updateDraftLocked вызывается под c.mu
func (c *Controller) updateDraftLocked(text string) (textmetrics.LiveMetrics, error) {
	if err := c.submittable(); err != nil {
		return c.live, err
	}
	c.draft = text
	c.live = c.analyzer.Analyze(text, c.now().Sub(c.questionShownAt))
	return c.live, nil
}

// Submit отправляет ответ на текущий вопрос. Пустой ответ отклоняется
// без сетевого вызова; одновременно возможна только одна отправка.
// При ошибке черновик сохраняется, повтор делает пользователь.
func (c *Controller) Submit(ctx context.Context, text string) (*api.Evaluation, error) {
	answer := strings.TrimSpace(text)

	c.mu.Lock()
	if err := c.submittable(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if answer == "" {
		c.mu.Unlock()
		c.metrics.IncrementAnswersRejected()
		c.emit(Event{Kind: EventNotify, Level: LevelError, Message: "Please provide an answer", Err: ErrEmptyAnswer})
		return nil, ErrEmptyAnswer
	}
	c.state = StateSubmitting
	c.draft = text
	interviewID := c.interview.ID
	question := c.question
	shownAt := c.questionShownAt
	interim := c.interim
	c.mu.Unlock()

	submittedAt := c.now()
	elapsed := submittedAt.Sub(shownAt)
	if elapsed < 0 {
		elapsed = 0
	}

	resp, err := c.client.SubmitAnswer(ctx, interviewID, api.SubmitAnswerRequest{
		AnswerText:        answer,
		ElapsedMs:         elapsed.Milliseconds(),
		PartialTranscript: interim,
	})
	if err != nil {
		c.mu.Lock()
		if c.state == StateSubmitting {
			c.state = StateAwaitingAnswer
		}
		c.mu.Unlock()

		c.log.Warn(module, "Failed to submit answer", map[string]interface{}{
			"interview_id": interviewID,
			"error":        err,
		})
		c.notifyError("Failed to submit answer", err)
		return nil, fmt.Errorf("ошибка отправки ответа: %w", err)
	}

	qa := api.QuestionAnswer{
		QuestionText: question,
		AnswerText:   answer,
		StartTs:      shownAt.UnixMilli(),
		EndTs:        submittedAt.UnixMilli(),
	}
	var score float64
	if ev := resp.Evaluation; ev != nil {
		score = ev.Score
		qa.AIScore = &score
		qa.AIFeedback = ev.Feedback
		qa.ModelAnswer = ev.ModelAnswer
		c.metrics.ObserveAnswer(score)
	}

	c.mu.Lock()
	c.interview.QA = append(c.interview.QA, qa)
	answered := len(c.interview.QA)
	if c.state != StateSubmitting {
		// Сессию завершили, пока запрос был в полете: ответ записан, перехода нет
		c.mu.Unlock()
		c.log.Info(module, "Answer accepted after interview end", map[string]interface{}{"interview_id": interviewID})
		return resp.Evaluation, nil
	}

	c.draft = ""
	c.interim = ""
	c.live = textmetrics.LiveMetrics{}
	hasNext := resp.HasNextQuestion()
	if hasNext {
		c.question = strings.TrimSpace(*resp.NextQuestion)
		c.questionShownAt = submittedAt
		c.state = StateAwaitingAnswer
	} else {
		c.state = StateFinishing
		c.finishInFlight = true
	}
	nextQuestion := c.question
	cfg := c.interview.Config
	c.mu.Unlock()

	c.log.Info(module, "Answer evaluated", map[string]interface{}{
		"interview_id": interviewID,
		"score":        score,
		"answered":     answered,
	})
	c.emit(Event{
		Kind:        EventEvaluation,
		InterviewID: interviewID,
		Evaluation:  resp.Evaluation,
		Level:       LevelSuccess,
		Message:     Praise(score),
	})

	if hasNext {
		c.emit(Event{Kind: EventQuestion, InterviewID: interviewID, Question: nextQuestion, Answered: answered})
		c.speak(cfg, nextQuestion)
		return resp.Evaluation, nil
	}

	c.emit(Event{Kind: EventNotify, InterviewID: interviewID, Level: LevelSuccess, Message: "Interview completed!"})
	if err := c.completeFinish(ctx, interviewID, true); err != nil {
		// ответ принят; завершение можно повторить через Finish
		c.log.Warn(module, "Automatic finish failed", map[string]interface{}{"error": err})
	}
	return resp.Evaluation, nil
}

// submittable вызывается под c.mu
func (c *Controller) submittable() error {
	switch {
	case c.state.Terminal():
		return ErrSessionFinished
	case c.state == StateSubmitting:
		return ErrSubmissionInFlight
	case c.state != StateAwaitingAnswer:
		return ErrNotReady
	}
	return nil
}

// Finish завершает интервью. Сессия сразу становится терминальной, таймер,
// речь и захват останавливаются до запроса. Неудачный запрос можно повторить
// повторным вызовом Finish.
func (c *Controller) Finish(ctx context.Context) error {
	first, interviewID, err := c.beginFinish()
	if err != nil {
		return err
	}
	return c.completeFinish(ctx, interviewID, first)
}

func (c *Controller) beginFinish() (bool, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := false
	switch c.state {
	case StateNew, StateLoading:
		return false, "", ErrNotReady
	case StateCompleted, StateAborted:
		return false, "", ErrSessionFinished
	case StateFinishing:
		if c.finishInFlight {
			return false, "", ErrSessionFinished
		}
	default:
		first = true
	}

	c.state = StateFinishing
	c.finishInFlight = true
	return first, c.interview.ID, nil
}

func (c *Controller) completeFinish(ctx context.Context, interviewID string, first bool) error {
	if first {
		c.releaseResources()
	}

	resp, err := c.client.FinishInterview(ctx, interviewID)

	c.mu.Lock()
	c.finishInFlight = false
	if err != nil {
		c.mu.Unlock()
		c.log.Error(module, "Failed to finish interview", map[string]interface{}{
			"interview_id": interviewID,
			"error":        err,
		})
		c.notifyError("Failed to end interview", err)
		return fmt.Errorf("ошибка завершения интервью %s: %w", interviewID, err)
	}

	score := resp.OverallScore
	c.state = StateCompleted
	c.interview.Status = api.StatusCompleted
	c.interview.OverallScore = &score
	c.interview.EndedAt = &api.Timestamp{Time: c.now().UTC()}
	snapshot := cloneInterview(c.interview)
	c.mu.Unlock()

	c.metrics.IncrementInterviewsCompleted()
	c.log.Info(module, "Interview finished", map[string]interface{}{
		"interview_id":  interviewID,
		"overall_score": score,
	})

	if c.archive != nil {
		if err := c.archive.Archive(snapshot, nil); err != nil {
			c.log.Warn(module, "Failed to archive interview", map[string]interface{}{"error": err})
		}
	}

	c.emit(Event{
		Kind:         EventCompleted,
		InterviewID:  interviewID,
		Level:        LevelSuccess,
		Message:      "Interview completed! View your results below.",
		OverallScore: &score,
	})
	c.emit(Event{Kind: EventNavigateResults, InterviewID: interviewID})
	return nil
}

func (c *Controller) startTimer(countdown *timer.Countdown) {
	ctx, cancel := context.WithCancel(c.ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return
	}
	c.stopTimer = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		countdown.Run(ctx)
	}()
}

func (c *Controller) onTimerWarning(remaining time.Duration) {
	c.emit(Event{
		Kind:      EventTimerWarning,
		Level:     LevelInfo,
		Remaining: remaining,
		Message:   fmt.Sprintf("%s remaining", FormatClock(remaining)),
	})
}

// onTimerExpired срабатывает ровно один раз; завершение идет отдельной
// горутиной, так как Finish останавливает сам таймер
func (c *Controller) onTimerExpired() {
	c.metrics.IncrementTimerExpirations()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		c.log.Info(module, "Interview time expired", nil)
		c.emit(Event{Kind: EventNotify, Level: LevelInfo, Message: "Time is up! Finishing the interview."})
		if err := c.Finish(c.ctx); err != nil && !errors.Is(err, ErrSessionFinished) {
			c.log.Warn(module, "Automatic finish on timeout failed", map[string]interface{}{"error": err})
		}
	}()
}

// releaseResources останавливает таймер, синтез, распознавание и захват.
// Идемпотентен.
func (c *Controller) releaseResources() {
	c.mu.Lock()
	countdown := c.countdown
	stopTimer := c.stopTimer
	c.mu.Unlock()

	if countdown != nil {
		countdown.Stop()
	}
	if stopTimer != nil {
		stopTimer()
	}
	if c.voice != nil {
		c.voice.StopSpeaking()
		c.voice.StopListening()
	}
	if c.capture != nil {
		c.capture.Release()
	}
}

// RepeatQuestion повторяет текущий вопрос вслух и в интерфейсе
func (c *Controller) RepeatQuestion() error {
	c.mu.Lock()
	if c.state != StateAwaitingAnswer && c.state != StateSubmitting {
		c.mu.Unlock()
		return ErrNotReady
	}
	question := c.question
	interviewID := c.interview.ID
	answered := len(c.interview.QA)
	cfg := c.interview.Config
	c.mu.Unlock()

	c.emit(Event{Kind: EventQuestion, InterviewID: interviewID, Question: question, Answered: answered})
	c.speak(cfg, question)
	return nil
}

// PrepareDevices вызывает prepare (захват устройств, диктовка), только пока
// сессия ждет ответа. Если за время prepare сессия стала терминальной или
// закрылась, захваченное освобождается сразу. Возвращает true, если
// устройства остались за сессией.
func (c *Controller) PrepareDevices(prepare func()) bool {
	if c.State() != StateAwaitingAnswer {
		return false
	}

	prepare()

	c.mu.Lock()
	released := c.state.Terminal() || c.closed
	c.mu.Unlock()

	if released {
		c.log.Debug(module, "Interview ended while devices were prepared", nil)
		c.releaseResources()
		return false
	}
	return true
}

func (c *Controller) StopSpeaking() {
	if c.voice != nil {
		c.voice.StopSpeaking()
	}
}

func (c *Controller) speak(cfg api.InterviewConfig, text string) {
	if c.voice == nil || !cfg.VoiceEnabled {
		return
	}
	c.voice.Speak(text, func(err error) {
		if err != nil {
			c.log.Debug(module, "Question was not spoken", map[string]interface{}{"error": err})
		}
	})
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:    c.state,
		Question: c.question,
		Draft:    c.draft,
		Live:     c.live,
	}
	if c.interview != nil {
		s.InterviewID = c.interview.ID
		s.Config = c.interview.Config
		s.Answered = len(c.interview.QA)
		s.OverallScore = c.interview.OverallScore
	}
	if c.countdown != nil {
		s.Remaining = c.countdown.Remaining(c.now())
	}
	return s
}

// Interview возвращает копию загруженного интервью или nil
func (c *Controller) Interview() *api.Interview {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interview == nil {
		return nil
	}
	return cloneInterview(c.interview)
}

// Close освобождает все ресурсы сессии. Обязателен на любом пути выхода,
// повторные вызовы ничего не делают. Запрос отправки ответа в полете не отменяется.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.releaseResources()
	c.cancel()
	c.wg.Wait()
	c.log.Debug(module, "Session closed", nil)
}

func (c *Controller) emit(ev Event) {
	c.observer(ev)
}

func (c *Controller) notifyError(fallback string, err error) {
	message := fallback
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		message = apiErr.Detail
	}
	c.emit(Event{Kind: EventNotify, Level: LevelError, Message: message, Err: err})
}

// Praise - реакция на оценку ответа
func Praise(score float64) string {
	switch {
	case score >= 85:
		return "Excellent answer!"
	case score >= 70:
		return "Good job!"
	default:
		return "Keep going!"
	}
}

// FormatClock форматирует оставшееся время как MM:SS
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func cloneInterview(src *api.Interview) *api.Interview {
	dst := *src
	dst.QA = append([]api.QuestionAnswer(nil), src.QA...)
	if src.EndedAt != nil {
		endedAt := *src.EndedAt
		dst.EndedAt = &endedAt
	}
	if src.OverallScore != nil {
		score := *src.OverallScore
		dst.OverallScore = &score
	}
	if src.Metrics != nil {
		m := *src.Metrics
		dst.Metrics = &m
	}
	return &dst
}
