package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"interview-coach/internal/api"
	"interview-coach/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeAPI struct {
	mu         sync.Mutex
	interview  *api.Interview
	startErr   error
	getErr     error
	submitErr  error
	answers    []*api.AnswerResponse
	submitGate chan struct{}
	finishErrs []error
	finalScore float64

	getCalls    int
	submitCalls int
	finishCalls int
	requests    []api.SubmitAnswerRequest
	preset      []api.PreviewQuestion
}

func (f *fakeAPI) StartInterview(_ context.Context, cfg api.InterviewConfig) (*api.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.interview.Config = cfg
	return &api.StartResponse{InterviewID: f.interview.ID, FirstQuestion: f.interview.FirstQuestion}, nil
}

func (f *fakeAPI) StartWithQuestions(_ context.Context, cfg api.InterviewConfig, questions []api.PreviewQuestion) (*api.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.preset = append([]api.PreviewQuestion(nil), questions...)
	f.interview.Config = cfg
	f.interview.FirstQuestion = questions[0].Text
	return &api.StartResponse{InterviewID: f.interview.ID, FirstQuestion: questions[0].Text}, nil
}

func (f *fakeAPI) GetInterview(_ context.Context, _ string) (*api.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return cloneInterview(f.interview), nil
}

func (f *fakeAPI) SubmitAnswer(_ context.Context, _ string, req api.SubmitAnswerRequest) (*api.AnswerResponse, error) {
	f.mu.Lock()
	f.submitCalls++
	f.requests = append(f.requests, req)
	gate := f.submitGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if len(f.answers) == 0 {
		return &api.AnswerResponse{Completed: true}, nil
	}
	resp := f.answers[0]
	f.answers = f.answers[1:]
	return resp, nil
}

func (f *fakeAPI) FinishInterview(_ context.Context, _ string) (*api.FinishResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishCalls++
	if len(f.finishErrs) > 0 {
		err := f.finishErrs[0]
		f.finishErrs = f.finishErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &api.FinishResponse{ReportID: f.interview.ID, OverallScore: f.finalScore}, nil
}

func (f *fakeAPI) counts() (get, submit, finish int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls, f.submitCalls, f.finishCalls
}

type fakeVoice struct {
	mu            sync.Mutex
	spoken        []string
	stopSpeaking  int
	stopListening int
}

func (v *fakeVoice) Speak(text string, onDone func(error)) {
	v.mu.Lock()
	v.spoken = append(v.spoken, text)
	v.mu.Unlock()
	onDone(nil)
}

func (v *fakeVoice) StopSpeaking() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopSpeaking++
}

func (v *fakeVoice) StopListening() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopListening++
}

func (v *fakeVoice) snapshot() (spoken []string, stopSpeaking, stopListening int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.spoken...), v.stopSpeaking, v.stopListening
}

type fakeCapture struct {
	mu       sync.Mutex
	releases int
}

func (c *fakeCapture) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases++
}

func (c *fakeCapture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}

type fakeArchive struct {
	mu       sync.Mutex
	archived []*api.Interview
}

func (a *fakeArchive) Archive(interview *api.Interview, _ *api.FeedbackSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, interview)
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) ofKind(kind EventKind) []Event {
	var out []Event
	for _, ev := range l.all() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	api     *fakeAPI
	clock   *fakeClock
	voice   *fakeVoice
	capture *fakeCapture
	archive *fakeArchive
	events  *eventLog
	metrics *metrics.Metrics
	ctrl    *Controller
}

func newInterview() *api.Interview {
	return &api.Interview{
		ID:     "iv-1",
		Status: api.StatusInProgress,
		Config: api.InterviewConfig{
			Type:            "technical",
			Industry:        "Technology",
			Role:            "Backend Engineer",
			Difficulty:      "mid",
			DurationMinutes: 30,
			VoiceEnabled:    true,
		},
		StartedAt:     api.Timestamp{Time: epoch},
		FirstQuestion: "Tell me about yourself",
	}
}

func newFixture(t *testing.T, interview *api.Interview) *fixture {
	t.Helper()
	f := &fixture{
		api:     &fakeAPI{interview: interview, finalScore: 81},
		clock:   &fakeClock{t: epoch},
		voice:   &fakeVoice{},
		capture: &fakeCapture{},
		archive: &fakeArchive{},
		events:  &eventLog{},
		metrics: metrics.NewMetrics(),
	}
	f.ctrl = NewController(f.api,
		WithClock(f.clock.Now),
		WithVoice(f.voice),
		WithCapture(f.capture),
		WithArchive(f.archive),
		WithObserver(f.events.observe),
		WithMetrics(f.metrics),
		WithTickInterval(5*time.Millisecond),
	)
	t.Cleanup(f.ctrl.Close)
	return f
}

func next(q string, score float64) *api.AnswerResponse {
	return &api.AnswerResponse{NextQuestion: &q, Evaluation: &api.Evaluation{Score: score, Feedback: "ok"}}
}

func TestController_FullInterview(t *testing.T) {
	f := newFixture(t, newInterview())
	f.api.answers = []*api.AnswerResponse{
		next("What is a heap?", 90),
		{Completed: true, Evaluation: &api.Evaluation{Score: 72, Feedback: "fine"}},
	}
	ctx := context.Background()

	id, err := f.ctrl.Start(ctx, newInterview().Config)
	require.NoError(t, err)
	assert.Equal(t, "iv-1", id)
	assert.Equal(t, StateAwaitingAnswer, f.ctrl.State())

	questions := f.events.ofKind(EventQuestion)
	require.Len(t, questions, 1)
	assert.Equal(t, "Tell me about yourself", questions[0].Question)

	f.clock.Advance(30 * time.Second)
	live, err := f.ctrl.UpdateDraft("um I like building APIs")
	require.NoError(t, err)
	assert.Equal(t, 5, live.WordCount)
	assert.Equal(t, 2, live.FillerCount)
	assert.Equal(t, 30.0, live.ResponseTimeSeconds)

	f.clock.Advance(12 * time.Second)
	eval, err := f.ctrl.Submit(ctx, "  I build APIs in Go  ")
	require.NoError(t, err)
	assert.Equal(t, 90.0, eval.Score)

	require.Len(t, f.api.requests, 1)
	assert.Equal(t, "I build APIs in Go", f.api.requests[0].AnswerText)
	assert.Equal(t, int64(42000), f.api.requests[0].ElapsedMs)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, "What is a heap?", snap.Question)
	assert.Empty(t, snap.Draft)
	assert.Zero(t, snap.Live)
	assert.Equal(t, 1, snap.Answered)

	evaluations := f.events.ofKind(EventEvaluation)
	require.Len(t, evaluations, 1)
	assert.Equal(t, "Excellent answer!", evaluations[0].Message)

	f.clock.Advance(5 * time.Second)
	_, err = f.ctrl.Submit(ctx, "A tree-based priority queue")
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, f.ctrl.State())
	_, _, finishCalls := f.api.counts()
	assert.Equal(t, 1, finishCalls)

	require.Len(t, f.archive.archived, 1)
	archived := f.archive.archived[0]
	assert.Equal(t, api.StatusCompleted, archived.Status)
	require.Len(t, archived.QA, 2)
	assert.Equal(t, "What is a heap?", archived.QA[1].QuestionText)
	assert.Equal(t, 72.0, *archived.QA[1].AIScore)
	assert.Equal(t, epoch.Add(42*time.Second).UnixMilli(), archived.QA[1].StartTs)
	assert.Equal(t, 81.0, *archived.OverallScore)

	spoken, stopSpeaking, stopListening := f.voice.snapshot()
	assert.Equal(t, []string{"Tell me about yourself", "What is a heap?"}, spoken)
	assert.Equal(t, 1, stopSpeaking)
	assert.Equal(t, 1, stopListening)
	assert.Equal(t, 1, f.capture.count())

	assert.Len(t, f.events.ofKind(EventCompleted), 1)
	assert.Len(t, f.events.ofKind(EventNavigateResults), 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.AnswersSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InterviewsCompleted))
}

func TestController_EmptyAnswerNeverCallsAPI(t *testing.T) {
	f := newFixture(t, newInterview())
	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := f.ctrl.Submit(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyAnswer)
	}

	_, submitCalls, _ := f.api.counts()
	assert.Zero(t, submitCalls)
	assert.Equal(t, StateAwaitingAnswer, f.ctrl.State())
	assert.Len(t, f.events.ofKind(EventNotify), 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.AnswersRejected))
}

func TestController_SubmitFailureKeepsDraft(t *testing.T) {
	f := newFixture(t, newInterview())
	f.api.submitErr = &api.Error{StatusCode: 500, Detail: "Failed to submit answer: model unavailable"}
	f.api.answers = []*api.AnswerResponse{next("Q2", 60)}
	ctx := context.Background()
	require.NoError(t, f.ctrl.Load(ctx, "iv-1"))

	_, err := f.ctrl.Submit(ctx, "my answer")
	require.Error(t, err)
	var apiErr *api.Error
	assert.True(t, errors.As(err, &apiErr))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateAwaitingAnswer, snap.State)
	assert.Equal(t, "my answer", snap.Draft)
	assert.Equal(t, 0, snap.Answered)

	notes := f.events.ofKind(EventNotify)
	require.Len(t, notes, 1)
	assert.Equal(t, "Failed to submit answer: model unavailable", notes[0].Message)
	assert.Equal(t, LevelError, notes[0].Level)

	f.api.mu.Lock()
	f.api.submitErr = nil
	f.api.mu.Unlock()

	eval, err := f.ctrl.Submit(ctx, "my answer")
	require.NoError(t, err)
	assert.Equal(t, 60.0, eval.Score)
	assert.Equal(t, "Keep going!", f.events.ofKind(EventEvaluation)[0].Message)
}

func TestController_SingleSubmissionInFlight(t *testing.T) {
	f := newFixture(t, newInterview())
	gate := make(chan struct{})
	f.api.submitGate = gate
	f.api.answers = []*api.AnswerResponse{next("Q2", 75)}
	ctx := context.Background()
	require.NoError(t, f.ctrl.Load(ctx, "iv-1"))

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Submit(ctx, "first")
		done <- err
	}()
	require.Eventually(t, func() bool { return f.ctrl.State() == StateSubmitting }, time.Second, time.Millisecond)

	_, err := f.ctrl.Submit(ctx, "second")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	_, err = f.ctrl.UpdateDraft("editing")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(gate)
	require.NoError(t, <-done)

	_, submitCalls, _ := f.api.counts()
	assert.Equal(t, 1, submitCalls)
	assert.Equal(t, "Q2", f.ctrl.Snapshot().Question)
}

func TestController_NoSubmitAfterFinish(t *testing.T) {
	f := newFixture(t, newInterview())
	ctx := context.Background()
	require.NoError(t, f.ctrl.Load(ctx, "iv-1"))

	require.NoError(t, f.ctrl.Finish(ctx))
	assert.Equal(t, StateCompleted, f.ctrl.State())

	_, err := f.ctrl.Submit(ctx, "late answer")
	assert.ErrorIs(t, err, ErrSessionFinished)
	_, err = f.ctrl.UpdateDraft("late")
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.ErrorIs(t, f.ctrl.Finish(ctx), ErrSessionFinished)

	_, submitCalls, finishCalls := f.api.counts()
	assert.Zero(t, submitCalls)
	assert.Equal(t, 1, finishCalls)

	nav := f.events.ofKind(EventNavigateResults)
	require.Len(t, nav, 1)
	assert.Equal(t, "iv-1", nav[0].InterviewID)
}

func TestController_FinishRetryAfterFailure(t *testing.T) {
	f := newFixture(t, newInterview())
	f.api.finishErrs = []error{errors.New("connection refused")}
	ctx := context.Background()
	require.NoError(t, f.ctrl.Load(ctx, "iv-1"))

	require.Error(t, f.ctrl.Finish(ctx))
	assert.Equal(t, StateFinishing, f.ctrl.State())
	assert.Equal(t, 1, f.capture.count(), "resources are released before the request")
	assert.Equal(t, "Failed to end interview", f.events.ofKind(EventNotify)[0].Message)

	_, err := f.ctrl.Submit(ctx, "answer")
	assert.ErrorIs(t, err, ErrSessionFinished)

	require.NoError(t, f.ctrl.Finish(ctx))
	assert.Equal(t, StateCompleted, f.ctrl.State())
	assert.Equal(t, 1, f.capture.count())
	assert.ErrorIs(t, f.ctrl.Finish(ctx), ErrSessionFinished)

	_, _, finishCalls := f.api.counts()
	assert.Equal(t, 2, finishCalls)
}

func TestController_SubmissionCompletingAfterFinish(t *testing.T) {
	f := newFixture(t, newInterview())
	gate := make(chan struct{})
	f.api.submitGate = gate
	f.api.answers = []*api.AnswerResponse{next("Q2", 88)}
	ctx := context.Background()
	require.NoError(t, f.ctrl.Load(ctx, "iv-1"))

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Submit(ctx, "slow answer")
		done <- err
	}()
	require.Eventually(t, func() bool { return f.ctrl.State() == StateSubmitting }, time.Second, time.Millisecond)

	require.NoError(t, f.ctrl.Finish(ctx))
	close(gate)
	require.NoError(t, <-done)

	assert.Equal(t, StateCompleted, f.ctrl.State())
	interview := f.ctrl.Interview()
	require.Len(t, interview.QA, 1)
	assert.Equal(t, "slow answer", interview.QA[0].AnswerText)
	assert.Len(t, f.events.ofKind(EventQuestion), 1, "no advance after finish")
}

func TestController_LoadResumesAtLastQuestion(t *testing.T) {
	interview := newInterview()
	interview.QA = []api.QuestionAnswer{
		{QuestionText: "Q1", AnswerText: "A1"},
		{QuestionText: "Q2", AnswerText: "A2"},
	}
	f := newFixture(t, interview)

	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, "Q2", snap.Question)
	assert.Equal(t, 2, snap.Answered)
	assert.Equal(t, 30*time.Minute, snap.Remaining)

	questions := f.events.ofKind(EventQuestion)
	require.Len(t, questions, 1)
	assert.Equal(t, 2, questions[0].Answered)
}

func TestController_LoadFailureAborts(t *testing.T) {
	f := newFixture(t, newInterview())
	f.api.getErr = &api.Error{StatusCode: 404, Detail: "Interview not found"}

	err := f.ctrl.Load(context.Background(), "iv-1")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, StateAborted, f.ctrl.State())

	getCalls, _, _ := f.api.counts()
	assert.Equal(t, 1, getCalls, "single attempt")

	kinds := []EventKind{}
	for _, ev := range f.events.all() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventNotify, EventNavigateDashboard}, kinds)
	assert.Equal(t, "Interview not found", f.events.ofKind(EventNotify)[0].Message)

	_, err = f.ctrl.Submit(context.Background(), "answer")
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.ErrorIs(t, f.ctrl.Load(context.Background(), "iv-1"), ErrAlreadyStarted)
}

func TestController_LoadWithoutQuestionAborts(t *testing.T) {
	interview := newInterview()
	interview.FirstQuestion = "  "
	f := newFixture(t, interview)

	assert.ErrorIs(t, f.ctrl.Load(context.Background(), "iv-1"), ErrNoQuestion)
	assert.Equal(t, StateAborted, f.ctrl.State())
	assert.Len(t, f.events.ofKind(EventNavigateDashboard), 1)
}

func TestController_LoadCompletedNavigatesToResults(t *testing.T) {
	interview := newInterview()
	interview.Status = api.StatusCompleted
	f := newFixture(t, interview)

	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))
	assert.Equal(t, StateCompleted, f.ctrl.State())
	assert.Len(t, f.events.ofKind(EventNavigateResults), 1)
	assert.Empty(t, f.events.ofKind(EventQuestion))
}

func TestController_ExpiredSessionFinishesImmediately(t *testing.T) {
	interview := newInterview()
	interview.Config.DurationMinutes = 15
	interview.StartedAt = api.Timestamp{Time: epoch.Add(-15 * time.Minute)}
	f := newFixture(t, interview)

	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))
	assert.Equal(t, time.Duration(0), f.ctrl.Snapshot().Remaining)

	require.Eventually(t, func() bool { return f.ctrl.State() == StateCompleted }, time.Second, time.Millisecond)

	// таймер продолжает тикать до Close, но завершение уже было
	time.Sleep(30 * time.Millisecond)
	_, _, finishCalls := f.api.counts()
	assert.Equal(t, 1, finishCalls)
	assert.Len(t, f.events.ofKind(EventNavigateResults), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TimerExpirations))
}

func TestController_TimerExpiresDuringInterview(t *testing.T) {
	f := newFixture(t, newInterview())
	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	f.clock.Advance(26 * time.Minute)
	require.Eventually(t, func() bool {
		return len(f.events.ofKind(EventTimerWarning)) == 1
	}, time.Second, time.Millisecond)
	warning := f.events.ofKind(EventTimerWarning)[0]
	assert.Equal(t, 5*time.Minute, warning.Remaining)
	assert.Equal(t, "05:00 remaining", warning.Message)

	f.clock.Advance(4 * time.Minute)
	require.Eventually(t, func() bool { return f.ctrl.State() == StateCompleted }, time.Second, time.Millisecond)

	_, _, finishCalls := f.api.counts()
	assert.Equal(t, 1, finishCalls)
	assert.Len(t, f.events.ofKind(EventTimerWarning), 1, "one-minute warning is skipped once time is up")
}

func TestController_NotReadyBeforeLoad(t *testing.T) {
	f := newFixture(t, newInterview())
	ctx := context.Background()

	_, err := f.ctrl.Submit(ctx, "answer")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, f.ctrl.Finish(ctx), ErrNotReady)
	assert.ErrorIs(t, f.ctrl.RepeatQuestion(), ErrNotReady)
}

func TestController_StartFailureAllowsRetry(t *testing.T) {
	f := newFixture(t, newInterview())
	f.api.startErr = &api.Error{StatusCode: 503, Detail: "Service unavailable"}
	ctx := context.Background()

	_, err := f.ctrl.Start(ctx, newInterview().Config)
	require.Error(t, err)
	assert.Equal(t, StateNew, f.ctrl.State())

	f.api.mu.Lock()
	f.api.startErr = nil
	f.api.mu.Unlock()

	_, err = f.ctrl.Start(ctx, newInterview().Config)
	require.NoError(t, err)
	_, err = f.ctrl.Start(ctx, newInterview().Config)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestController_RepeatQuestionAndDictation(t *testing.T) {
	f := newFixture(t, newInterview())
	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	require.NoError(t, f.ctrl.RepeatQuestion())
	spoken, _, _ := f.voice.snapshot()
	assert.Equal(t, []string{"Tell me about yourself", "Tell me about yourself"}, spoken)

	_, err := f.ctrl.AppendDraft("I am a backend engineer")
	require.NoError(t, err)
	live, err := f.ctrl.AppendDraft(" with six years of Go ")
	require.NoError(t, err)
	assert.Equal(t, "I am a backend engineer with six years of Go", f.ctrl.Snapshot().Draft)
	assert.Equal(t, 10, live.WordCount)
}

func TestController_ConcurrentAppendsKeepEveryFragment(t *testing.T) {
	f := newFixture(t, newInterview())
	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	const writers, perWriter = 20, 200
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_, err := f.ctrl.AppendDraft("word")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	snap := f.ctrl.Snapshot()
	assert.Len(t, strings.Fields(snap.Draft), writers*perWriter)
	assert.Equal(t, writers*perWriter, snap.Live.WordCount)
}

func TestController_InterimTranscriptIsSubmitted(t *testing.T) {
	f := newFixture(t, newInterview())
	f.api.answers = []*api.AnswerResponse{next("What is a heap?", 80), next("Why Go?", 75)}
	ctx := context.Background()
	require.NoError(t, f.ctrl.Load(ctx, "iv-1"))

	_, err := f.ctrl.AppendDraft("I build APIs")
	require.NoError(t, err)
	f.ctrl.SetInterim(" in go and ")
	_, err = f.ctrl.Submit(ctx, f.ctrl.Snapshot().Draft)
	require.NoError(t, err)

	f.ctrl.SetInterim("a binary")
	_, err = f.ctrl.AppendDraft("A binary tree")
	require.NoError(t, err)
	_, err = f.ctrl.Submit(ctx, f.ctrl.Snapshot().Draft)
	require.NoError(t, err)

	require.Len(t, f.api.requests, 2)
	assert.Equal(t, "in go and", f.api.requests[0].PartialTranscript)
	assert.Empty(t, f.api.requests[1].PartialTranscript, "a final phrase replaces the hypothesis")
}

func TestController_PrepareDevicesSkipsFinishedSession(t *testing.T) {
	interview := newInterview()
	interview.Status = api.StatusCompleted
	f := newFixture(t, interview)
	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	called := false
	assert.False(t, f.ctrl.PrepareDevices(func() { called = true }))
	assert.False(t, called)
}

func TestController_PrepareDevicesReleasesWhenSessionEndsMeanwhile(t *testing.T) {
	f := newFixture(t, newInterview())
	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	acquired := f.ctrl.PrepareDevices(func() {
		// завершение началось, но ресурсы еще не освобождены
		_, _, err := f.ctrl.beginFinish()
		require.NoError(t, err)
	})

	assert.False(t, acquired)
	assert.Equal(t, 1, f.capture.count())
	_, _, stopListening := f.voice.snapshot()
	assert.Equal(t, 1, stopListening)
}

func TestController_PrepareDevicesKeepsActiveSession(t *testing.T) {
	f := newFixture(t, newInterview())
	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	called := false
	assert.True(t, f.ctrl.PrepareDevices(func() { called = true }))
	assert.True(t, called)
	assert.Zero(t, f.capture.count())
}

func TestController_StartWithQuestions(t *testing.T) {
	f := newFixture(t, newInterview())
	questions := []api.PreviewQuestion{
		{ID: "q1", Text: "Design a rate limiter", Order: 0},
		{ID: "q2", Text: "Explain consistent hashing", Order: 1},
	}

	id, err := f.ctrl.StartWithQuestions(context.Background(), newInterview().Config, questions)
	require.NoError(t, err)
	assert.Equal(t, "iv-1", id)
	assert.Equal(t, "Design a rate limiter", f.ctrl.Snapshot().Question)
	assert.Equal(t, questions, f.api.preset)

	_, err = f.ctrl.StartWithQuestions(context.Background(), newInterview().Config, questions)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestController_VoiceDisabledDoesNotSpeak(t *testing.T) {
	interview := newInterview()
	interview.Config.VoiceEnabled = false
	f := newFixture(t, interview)

	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))
	spoken, _, _ := f.voice.snapshot()
	assert.Empty(t, spoken)
}

func TestController_CloseReleasesOnce(t *testing.T) {
	f := newFixture(t, newInterview())
	require.NoError(t, f.ctrl.Load(context.Background(), "iv-1"))

	f.ctrl.Close()
	f.ctrl.Close()

	assert.Equal(t, 1, f.capture.count())
	_, stopSpeaking, stopListening := f.voice.snapshot()
	assert.Equal(t, 1, stopSpeaking)
	assert.Equal(t, 1, stopListening)
}

func TestPraise(t *testing.T) {
	assert.Equal(t, "Excellent answer!", Praise(85))
	assert.Equal(t, "Good job!", Praise(70))
	assert.Equal(t, "Good job!", Praise(84.9))
	assert.Equal(t, "Keep going!", Praise(69.9))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "30:00", FormatClock(30*time.Minute))
	assert.Equal(t, "01:05", FormatClock(65*time.Second))
	assert.Equal(t, "00:00", FormatClock(-time.Second))
}
