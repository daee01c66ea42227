package main

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"interview-coach/internal/api"
	"interview-coach/internal/config"
	"interview-coach/internal/logger"
	"interview-coach/internal/media"
	"interview-coach/internal/metrics"
	"interview-coach/internal/speech"
	"interview-coach/internal/storage"
	"interview-coach/internal/terminal"
	"interview-coach/internal/textmetrics"
)

const module = "main"

// app - общие сервисы всех подкоманд
type app struct {
	env       *config.AppConfig
	config    *config.Config
	log       *logger.ZapLogger
	metrics   *metrics.Metrics
	client    *api.Client
	store     *storage.Store
	analyzer  *textmetrics.Analyzer
	out       *terminal.Output
	stopServe context.CancelFunc
	serveDone chan struct{}
	closeOnce sync.Once
}

func newApp(ctx context.Context, configPath, apiURL string) (*app, error) {
	env := config.LoadAppConfig()
	if configPath != "" {
		env.ConfigPath = configPath
	}
	if apiURL != "" {
		env.API.BaseURL = apiURL
	}

	cfg, err := config.LoadOrDefault(env.ConfigPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewZapLogger(env.Log.FilePath, env.Log.IsProduction())
	m := metrics.NewMetrics()

	a := &app{
		env:      env,
		config:   cfg,
		log:      log,
		metrics:  m,
		store:    storage.NewStore(env.Storage.ResultsDir),
		analyzer: textmetrics.NewAnalyzer(cfg.Metrics.FillerWords, cfg.Metrics.WordCeiling, cfg.Metrics.FillerPenalty),
		out:      terminal.NewOutput(os.Stdout, false),
	}
	a.client = api.NewClient(env.API.BaseURL,
		api.WithHTTPClient(&http.Client{
			Timeout:   env.API.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
		api.WithTokenSource(tokenSource(env.API)),
		api.WithLogger(log),
		api.WithMetrics(m),
		api.WithListCacheTTL(time.Duration(env.API.ListCacheSeconds)*time.Second),
	)

	if env.MetricsAddr != "" {
		a.serveMetrics(ctx)
	}

	log.Info(module, "Client initialized", map[string]interface{}{
		"api_url":     env.API.BaseURL,
		"config":      env.ConfigPath,
		"results_dir": a.store.Dir(),
	})
	return a, nil
}

// tokenSource выбирает источник токена: файл важнее статического токена
func tokenSource(cfg config.APIConfig) api.TokenSource {
	switch {
	case cfg.TokenFile != "":
		return api.NewFileTokenSource(cfg.TokenFile)
	case cfg.Token != "":
		return api.NewStaticTokenSource(cfg.Token)
	default:
		return nil
	}
}

func (a *app) serveMetrics(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, a.stopServe = context.WithCancel(ctx)
	a.serveDone = make(chan struct{})

	go func() {
		defer close(a.serveDone)
		if err := a.metrics.Serve(ctx, a.env.MetricsAddr); err != nil {
			a.log.Warn(module, "Metrics server stopped", map[string]interface{}{
				"addr":  a.env.MetricsAddr,
				"error": err,
			})
		}
	}()
}

// newBridge собирает мост речи из команд окружения. Недоступный движок
// не ошибка: мост сообщит ErrUnsupported при использовании.
func (a *app) newBridge() *speech.Bridge {
	opts := []speech.Option{
		speech.WithRestartDelay(a.env.Speech.RestartDelay),
		speech.WithLogger(a.log),
		speech.WithMetrics(a.metrics),
	}
	if !a.env.Speech.Enabled {
		return speech.NewBridge(nil, nil, opts...)
	}

	var synth speech.Synthesizer
	if s, err := speech.NewCommandSynthesizer(a.env.Speech.TTSCommand); err == nil {
		synth = s
	} else if a.env.Speech.TTSCommand != "" {
		a.log.Warn(module, "Speech synthesis unavailable", map[string]interface{}{"error": err})
	}

	var engine speech.RecognitionEngine
	if a.env.Speech.TranscriptPipe != "" {
		engine = speech.NewLineRecognizer(a.env.Speech.TranscriptPipe)
	}

	return speech.NewBridge(engine, synth, opts...)
}

func (a *app) newCapture() *media.Capture {
	var device media.Device
	if d, err := media.NewCommandDevice(a.env.Media.CaptureCommand); err == nil {
		device = d
	}
	return media.NewCapture(device, a.log)
}

func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.stopServe != nil {
			a.stopServe()
			<-a.serveDone
		}
		// fsync для stderr на части систем возвращает ошибку
		_ = a.log.Sync()
	})
}
