package terminal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"interview-coach/internal/api"
	"interview-coach/internal/logger"
)

// ErrPreviewCancelled - пользователь отказался от набора вопросов
var ErrPreviewCancelled = errors.New("question preview cancelled")

// QuestionSetClient - операции API для просмотра вопросов до старта (api.Client)
type QuestionSetClient interface {
	GenerateQuestionSet(ctx context.Context, cfg api.InterviewConfig, count int) ([]api.PreviewQuestion, error)
	RegenerateQuestion(ctx context.Context, cfg api.InterviewConfig, question api.PreviewQuestion) (*api.PreviewQuestion, error)
}

// Preview показывает сгенерированный набор вопросов и дает заменить
// отдельные вопросы или весь набор перед стартом интервью
type Preview struct {
	out       *Output
	log       logger.Logger
	client    QuestionSetClient
	cfg       api.InterviewConfig
	count     int
	questions []api.PreviewQuestion
}

func NewPreview(out *Output, log logger.Logger, client QuestionSetClient, cfg api.InterviewConfig, count int) *Preview {
	if log == nil {
		log = logger.NewNop()
	}
	return &Preview{out: out, log: log, client: client, cfg: cfg, count: count}
}

// Run генерирует набор и ждет команды start. Возвращает одобренные вопросы
// или ErrPreviewCancelled, если пользователь вышел или ввод закончился.
func (p *Preview) Run(ctx context.Context, input *Input) ([]api.PreviewQuestion, error) {
	p.out.Faint("Generating questions...")
	questions, err := p.client.GenerateQuestionSet(ctx, p.cfg, p.count)
	if err != nil {
		return nil, err
	}
	p.questions = questions
	p.render()
	p.help()

	for {
		line, ok, err := input.Next(ctx)
		if !ok {
			if err != nil {
				return nil, err
			}
			return nil, ErrPreviewCancelled
		}

		command := strings.ToLower(strings.TrimSpace(line))
		switch command {
		case "":
		case "start", "s":
			p.log.Info(module, "Question set approved", map[string]interface{}{"questions": len(p.questions)})
			return p.Questions(), nil
		case "all", "a":
			p.regenerateAll(ctx)
		case "quit", "q", "exit":
			return nil, ErrPreviewCancelled
		case "help", "?":
			p.help()
		default:
			n, err := strconv.Atoi(command)
			if err != nil || n < 1 || n > len(p.questions) {
				p.out.Warn(fmt.Sprintf("Unknown command %q. Type help for the list.", line))
				continue
			}
			p.regenerate(ctx, n-1)
		}
	}
}

// Questions возвращает текущий набор
func (p *Preview) Questions() []api.PreviewQuestion {
	return append([]api.PreviewQuestion(nil), p.questions...)
}

func (p *Preview) regenerate(ctx context.Context, i int) {
	p.out.Faint(fmt.Sprintf("Regenerating question %d...", i+1))
	q, err := p.client.RegenerateQuestion(ctx, p.cfg, p.questions[i])
	if err != nil {
		p.log.Warn(module, "Failed to regenerate question", map[string]interface{}{"error": err})
		p.out.Error("Failed to regenerate question: " + api.Detail(err))
		return
	}
	p.questions[i] = *q
	p.out.Success("Question regenerated!")
	p.render()
}

func (p *Preview) regenerateAll(ctx context.Context) {
	p.out.Faint("Regenerating all questions...")
	questions, err := p.client.GenerateQuestionSet(ctx, p.cfg, p.count)
	if err != nil {
		p.log.Warn(module, "Failed to regenerate question set", map[string]interface{}{"error": err})
		p.out.Error("Failed to regenerate questions: " + api.Detail(err))
		return
	}
	p.questions = questions
	p.out.Success("All questions regenerated!")
	p.render()
}

func (p *Preview) render() {
	p.out.Title(fmt.Sprintf("Your %d questions", len(p.questions)))
	for i, q := range p.questions {
		p.out.Sendf("%2d. %s", i+1, q.Text)
	}
}

func (p *Preview) help() {
	p.out.Faint("Type a number to regenerate that question, all to regenerate every question, start to begin or quit to cancel.")
}
