package terminal

import (
	"fmt"
	"strings"

	"interview-coach/internal/api"
	"interview-coach/internal/report"
)

const timeLayout = "2006-01-02 15:04"

// RenderInterviewList печатает список интервью (панель пользователя)
func RenderInterviewList(out *Output, interviews []api.Interview) {
	if len(interviews) == 0 {
		out.Info("No interviews yet. Start one with: interview-coach start")
		return
	}

	out.Title(fmt.Sprintf("%-36s  %-16s  %-11s  %-24s  %s", "ID", "STARTED", "STATUS", "ROLE", "SCORE"))
	scores := make([]*float64, 0, len(interviews))
	for _, iv := range interviews {
		started := "-"
		if !iv.StartedAt.IsZero() {
			started = iv.StartedAt.Local().Format(timeLayout)
		}
		out.Sendf("%-36s  %-16s  %-11s  %-24s  %s",
			iv.ID, started, iv.Status, truncate(iv.Config.Role, 24), score(out, iv.OverallScore))
		if iv.Completed() {
			scores = append(scores, iv.OverallScore)
		}
	}

	if avg, n := report.Average(scores); n > 0 {
		rating := report.OverallRating(avg)
		out.Send("")
		out.Sendf("Average over %d completed: %s - %s", n, score(out, &avg), rating.Rating)
		out.Faint(rating.Message)
	}
}

// RenderResults печатает экран результатов. feedback может быть nil.
func RenderResults(out *Output, interview *api.Interview, feedback *api.FeedbackSummary) {
	out.Title("Interview results")
	out.Sendf("ID:    %s", interview.ID)
	out.Sendf("Role:  %s (%s, %s)", interview.Config.Role, interview.Config.Type, interview.Config.Difficulty)
	if interview.Config.Company != "" {
		out.Sendf("Company: %s", interview.Config.Company)
	}
	if !interview.StartedAt.IsZero() {
		out.Sendf("Date:  %s", interview.StartedAt.Local().Format(timeLayout))
	}

	overall := interview.OverallScore
	if overall == nil && feedback != nil {
		overall = &feedback.OverallScore
	}
	out.Sendf("Score: %s", score(out, overall))
	if overall != nil {
		out.Faint(report.Description(*overall))
	}

	if m := interview.Metrics; m != nil {
		out.Send("")
		out.Title("Delivery")
		out.Sendf("Avg response time: %.0fs", m.AvgResponseTime)
		out.Sendf("Words: %d  Fillers: %d  Confidence: %.0f%%", m.WordCount, m.FillerCount, m.ConfidenceScore)
		if m.SpeakingPace != nil {
			out.Sendf("Speaking pace: %.0f wpm", *m.SpeakingPace)
		}
	}

	if feedback != nil {
		renderFeedback(out, feedback)
		return
	}
	renderQA(out, interview.QA)
}

func renderFeedback(out *Output, feedback *api.FeedbackSummary) {
	if feedback.Feedback != "" && len(feedback.DetailedFeedback) == 0 {
		out.Send("")
		out.Send(feedback.Feedback)
		return
	}

	out.Send("")
	out.Sendf("Answered %d of %d questions, average %s",
		feedback.AnsweredQuestions, feedback.TotalQuestions, score(out, &feedback.AverageScore))
	renderList(out, "Strengths:", feedback.Strengths)
	renderList(out, "To improve:", feedback.Improvements)

	for _, q := range feedback.DetailedFeedback {
		s := q.Score
		out.Send("")
		out.Title(fmt.Sprintf("Q%d. %s", q.QuestionNumber, q.Question))
		out.Sendf("Score: %s", score(out, &s))
		if q.Feedback != "" {
			out.Send(q.Feedback)
		}
		if q.ModelAnswer != "" {
			out.Faint("Model answer: " + q.ModelAnswer)
		}
	}
}

func renderQA(out *Output, qa []api.QuestionAnswer) {
	if len(qa) == 0 {
		out.Send("")
		out.Info("No answers were recorded.")
		return
	}
	for i, item := range qa {
		out.Send("")
		out.Title(fmt.Sprintf("Q%d. %s", i+1, item.QuestionText))
		out.Send("Your answer: " + item.AnswerText)
		out.Sendf("Score: %s", score(out, item.AIScore))
		if item.AIFeedback != "" {
			out.Send(item.AIFeedback)
		}
		if item.ModelAnswer != "" {
			out.Faint("Model answer: " + item.ModelAnswer)
		}
	}
}

// RenderResumeAnalysis печатает ATS анализ резюме
func RenderResumeAnalysis(out *Output, analysis *api.ResumeAnalysis) {
	out.Title("Resume analysis")
	out.Sendf("ATS score: %s", score(out, &analysis.Score))
	out.Faint(report.Description(analysis.Score))
	renderList(out, "Strengths:", analysis.Strengths)
	renderList(out, "To improve:", analysis.Improvements)
	renderList(out, "Recommendations:", analysis.Recommendations)
}

func score(out *Output, value *float64) string {
	text := report.FormatScore(value, true)
	if value == nil || out.plain {
		return text
	}
	return report.Colorize(*value, text)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
