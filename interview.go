package main

import (
	"context"
	"errors"
	"fmt"

	"interview-coach/internal/api"
	"interview-coach/internal/media"
	"interview-coach/internal/session"
	"interview-coach/internal/speech"
	"interview-coach/internal/terminal"
)

// interviewStart - как начать сессию: новое интервью (Config), новое с
// одобренными вопросами (Config и Questions) или продолжение (InterviewID)
type interviewStart struct {
	Config      *api.InterviewConfig
	Questions   []api.PreviewQuestion
	InterviewID string
}

// runInterview ведет сессию от старта или продолжения до экрана результатов.
// Речь, захват и таймер освобождаются на любом выходе.
func (a *app) runInterview(ctx context.Context, start interviewStart, input *terminal.Input) error {
	interviewID := start.InterviewID
	bridge := a.newBridge()
	defer bridge.Close()
	capture := a.newCapture()
	defer capture.Release()

	handler := terminal.NewHandler(a.out, a.log)
	ctrl := session.NewController(a.client,
		session.WithVoice(bridge),
		session.WithCapture(capture),
		session.WithArchive(a.store),
		session.WithAnalyzer(a.analyzer),
		session.WithLogger(a.log),
		session.WithMetrics(a.metrics),
		session.WithObserver(handler.HandleEvent),
		session.WithWarnings(a.config.Timer.Warnings()),
	)
	defer ctrl.Close()

	if cfg := start.Config; cfg != nil {
		a.out.Info(fmt.Sprintf("Starting a %d-minute %s interview for %s...", cfg.DurationMinutes, cfg.Type, cfg.Role))
		var (
			id  string
			err error
		)
		if len(start.Questions) > 0 {
			id, err = ctrl.StartWithQuestions(ctx, *cfg, start.Questions)
		} else {
			id, err = ctrl.Start(ctx, *cfg)
		}
		if id == "" {
			return fmt.Errorf("failed to start interview: %w", err)
		}
		interviewID = id
		if err != nil {
			return a.afterSession(ctx, handler, interviewID, err)
		}
	} else if err := ctrl.Load(ctx, interviewID); err != nil {
		return a.afterSession(ctx, handler, interviewID, err)
	}
	a.out.Faint("Interview ID: " + interviewID)

	// истекшая при загрузке сессия завершается в фоне; тогда захват сразу освобождается
	ctrl.PrepareDevices(func() {
		a.prepareDevices(ctx, ctrl.Snapshot().Config, capture, bridge, handler, ctrl)
	})

	if _, err := handler.RunInput(ctx, ctrl, input); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return a.afterSession(ctx, handler, interviewID, nil)
}

// prepareDevices захватывает микрофон и камеру и включает диктовку.
// Недоступное устройство не мешает отвечать текстом.
func (a *app) prepareDevices(ctx context.Context, cfg api.InterviewConfig, capture *media.Capture, bridge *speech.Bridge, handler *terminal.Handler, ctrl *session.Controller) {
	constraints := media.Constraints{Audio: cfg.VoiceEnabled, Video: cfg.VideoEnabled}
	if err := capture.Acquire(ctx, constraints); err != nil {
		a.out.Warn("Camera/microphone unavailable: " + err.Error())
		if hint := media.Remediation(err); hint != "" {
			a.out.Faint(hint)
		}
	}

	if !cfg.VoiceEnabled {
		return
	}
	err := bridge.StartListening(handler.Dictation(ctrl), handler.SpeechError)
	switch {
	case err == nil:
		a.out.Faint("🎤 Dictation is on: recognized phrases are added to your answer.")
	case errors.Is(err, speech.ErrUnsupported):
		a.out.Faint("Speech recognition is not configured (STT_TRANSCRIPT_PIPE). Type your answers.")
	default:
		a.out.Warn("Speech recognition unavailable: " + err.Error())
	}
}

// afterSession показывает экран, на который отправил контроллер
func (a *app) afterSession(ctx context.Context, handler *terminal.Handler, interviewID string, sessionErr error) error {
	switch handler.Outcome() {
	case terminal.OutcomeResults:
		a.out.Send("")
		return a.showResults(ctx, interviewID)
	case terminal.OutcomeDashboard:
		a.out.Send("")
		if err := a.showDashboard(ctx); err != nil {
			a.log.Warn(module, "Dashboard unavailable", map[string]interface{}{"error": err})
		}
		return sessionErr
	case terminal.OutcomeInput:
		a.out.Info("Input closed. Continue later with: interview-coach resume " + interviewID)
	}
	return sessionErr
}

func (a *app) showDashboard(ctx context.Context) error {
	interviews, err := a.client.ListInterviews(ctx)
	if err != nil {
		return err
	}
	terminal.RenderInterviewList(a.out, interviews)
	return nil
}

// showResults загружает интервью и отчет; без сети показывает локальную копию
func (a *app) showResults(ctx context.Context, interviewID string) error {
	interview, err := a.client.GetInterview(ctx, interviewID)
	if err != nil {
		local, localErr := a.store.LoadResult(interviewID)
		if localErr != nil {
			return fmt.Errorf("failed to load results: %w", err)
		}
		a.log.Warn(module, "Showing archived results", map[string]interface{}{
			"interview_id": interviewID,
			"error":        err,
		})
		a.out.Warn("API unavailable (" + api.Detail(err) + "), showing the saved copy.")
		interview := local.Interview
		terminal.RenderResults(a.out, &interview, local.Feedback)
		return nil
	}

	feedback, err := a.client.GetFeedback(ctx, interviewID)
	if err != nil {
		a.log.Warn(module, "AI feedback unavailable", map[string]interface{}{
			"interview_id": interviewID,
			"error":        err,
		})
		feedback = nil
	}

	if interview.Completed() {
		if err := a.store.Archive(interview, feedback); err != nil {
			a.log.Warn(module, "Failed to archive results", map[string]interface{}{"error": err})
		}
	}
	terminal.RenderResults(a.out, interview, feedback)
	return nil
}
