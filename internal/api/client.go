package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"interview-coach/internal/logger"
	"interview-coach/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultListCacheTTL = 30 * time.Second
	listCacheKey        = "interviews"
	userAgent           = "interview-coach/1.0"
	requestIDHeader     = "X-Request-ID"
	maxResponseBytes    = 10 << 20
)

const module = "api"

// Client - HTTP клиент API интервью
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        logger.Logger
	metrics    *metrics.Metrics
	listCache  *cache.Cache
	group      singleflight.Group
	validate   *validator.Validate
}

type Option func(*Client)

// WithHTTPClient заменяет HTTP клиент (например, для тестов)
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithListCacheTTL задает время жизни кеша списка интервью. 0 отключает кеш.
func WithListCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.listCache = nil
			return
		}
		c.listCache = cache.New(ttl, 2*ttl)
	}
}

// NewClient создает клиент API
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:       logger.NewNop(),
		listCache: cache.New(defaultListCacheTTL, 2*defaultListCacheTTL),
		validate:  validator.New(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateConfig проверяет конфигурацию интервью без сетевого вызова
func (c *Client) ValidateConfig(cfg InterviewConfig) error {
	if err := c.validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// StartInterview создает интервью и возвращает его ID и первый вопрос
func (c *Client) StartInterview(ctx context.Context, cfg InterviewConfig) (*StartResponse, error) {
	if err := c.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	var resp StartResponse
	err := c.doJSON(ctx, "start_interview", http.MethodPost, "/api/interviews/start", startRequest{Config: cfg}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка запуска интервью: %w", err)
	}
	if resp.InterviewID == "" {
		return nil, fmt.Errorf("ошибка запуска интервью: сервер не вернул interviewId")
	}

	c.invalidateList()
	return &resp, nil
}

// SubmitAnswer отправляет ответ на текущий вопрос
func (c *Client) SubmitAnswer(ctx context.Context, interviewID string, req SubmitAnswerRequest) (*AnswerResponse, error) {
	var resp AnswerResponse
	err := c.doJSON(ctx, "submit_answer", http.MethodPost, interviewPath(interviewID, "answer"), req, &resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки ответа: %w", err)
	}
	return &resp, nil
}

// FinishInterview закрывает интервью на сервере
func (c *Client) FinishInterview(ctx context.Context, interviewID string) (*FinishResponse, error) {
	var resp FinishResponse
	err := c.doJSON(ctx, "finish_interview", http.MethodPost, interviewPath(interviewID, "finish"), nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка завершения интервью: %w", err)
	}

	c.invalidateList()
	return &resp, nil
}

// GetInterview загружает интервью с историей вопросов.
// Одновременные запросы одного интервью объединяются в один HTTP вызов.
func (c *Client) GetInterview(ctx context.Context, interviewID string) (*Interview, error) {
	v, err, _ := c.group.Do("interview:"+interviewID, func() (interface{}, error) {
		var interview Interview
		if err := c.doJSON(ctx, "get_interview", http.MethodGet, interviewPath(interviewID), nil, &interview); err != nil {
			return nil, err
		}
		if interview.ID == "" {
			interview.ID = interviewID
		}
		return &interview, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки интервью %s: %w", interviewID, err)
	}
	return cloneInterview(v.(*Interview)), nil
}

// ListInterviews возвращает интервью пользователя для дашборда
func (c *Client) ListInterviews(ctx context.Context) ([]Interview, error) {
	if c.listCache != nil {
		if cached, found := c.listCache.Get(listCacheKey); found {
			return cloneInterviews(cached.([]Interview)), nil
		}
	}

	v, err, _ := c.group.Do(listCacheKey, func() (interface{}, error) {
		var resp listResponse
		if err := c.doJSON(ctx, "list_interviews", http.MethodGet, "/api/interviews", nil, &resp); err != nil {
			return nil, err
		}
		if c.listCache != nil {
			c.listCache.SetDefault(listCacheKey, resp.Interviews)
		}
		return resp.Interviews, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки списка интервью: %w", err)
	}
	return cloneInterviews(v.([]Interview)), nil
}

// GetFeedback возвращает итоговый AI отчет по интервью
func (c *Client) GetFeedback(ctx context.Context, interviewID string) (*FeedbackSummary, error) {
	var resp FeedbackSummary
	err := c.doJSON(ctx, "get_feedback", http.MethodGet, interviewPath(interviewID, "ai-feedback"), nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки отчета: %w", err)
	}
	return &resp, nil
}

// AnalyzeResume загружает резюме и возвращает ATS анализ
func (c *Client) AnalyzeResume(ctx context.Context, filename, contentType string, content []byte) (*ResumeAnalysis, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="resume"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка формирования запроса: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/analyze-resume", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp ResumeAnalysis
	if err := c.send(req, "analyze_resume", &resp); err != nil {
		return nil, fmt.Errorf("ошибка анализа резюме: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность API
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, "health", http.MethodGet, "/health", nil, &resp); err != nil {
		return fmt.Errorf("API недоступно: %w", err)
	}
	if resp.Status != "" && resp.Status != "healthy" {
		return fmt.Errorf("API недоступно: статус %s", resp.Status)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, operation, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("ошибка сериализации запроса: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, operation, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(requestIDHeader, uuid.NewString())
	c.authorize(ctx, req)
	return req, nil
}

// authorize добавляет bearer токен. Отсутствие токена не ошибка:
// запрос уходит без авторизации.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Debug(module, "token unavailable, continuing without authentication", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) send(req *http.Request, operation string, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPICall(operation, false, time.Since(start))
		c.log.Warn(module, "request failed", map[string]interface{}{
			"operation":  operation,
			"request_id": req.Header.Get(requestIDHeader),
			"error":      err.Error(),
		})
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.ObserveAPICall(operation, false, time.Since(start))
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.metrics.ObserveAPICall(operation, success, time.Since(start))

	if !success {
		apiErr := newError(req.Method, req.URL.Path, resp.StatusCode, body)
		c.log.Warn(module, "API returned error", map[string]interface{}{
			"operation":  operation,
			"request_id": req.Header.Get(requestIDHeader),
			"status":     resp.StatusCode,
			"detail":     apiErr.Detail,
		})
		return apiErr
	}

	c.log.Debug(module, "request completed", map[string]interface{}{
		"operation":   operation,
		"request_id":  req.Header.Get(requestIDHeader),
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("ошибка парсинга ответа: %w", err)
	}
	return nil
}

func (c *Client) invalidateList() {
	if c.listCache != nil {
		c.listCache.Delete(listCacheKey)
	}
}

func interviewPath(interviewID string, parts ...string) string {
	path := "/api/interviews/" + url.PathEscape(interviewID)
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func cloneInterview(src *Interview) *Interview {
	dst := *src
	dst.QA = append([]QuestionAnswer(nil), src.QA...)
	return &dst
}

func cloneInterviews(src []Interview) []Interview {
	dst := make([]Interview, len(src))
	for i := range src {
		dst[i] = *cloneInterview(&src[i])
	}
	return dst
}
