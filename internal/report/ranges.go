// Package report переводит баллы в оценки для списков и экрана результатов
package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/fatih/color"
)

// Range - диапазон баллов [Min, Max] с подписью
type Range struct {
	Min         int
	Max         int
	Label       string
	Color       color.Attribute
	Description string
}

var DefaultRanges = []Range{
	{
		Min: 90, Max: 100, Label: "Excellent", Color: color.FgGreen,
		Description: "Outstanding performance! You demonstrated exceptional knowledge and skills.",
	},
	{
		Min: 75, Max: 89, Label: "Good", Color: color.FgBlue,
		Description: "Great job! You have a strong understanding with minor areas for improvement.",
	},
	{
		Min: 60, Max: 74, Label: "Fair", Color: color.FgYellow,
		Description: "Decent effort. Focus on strengthening key concepts and practice more.",
	},
	{
		Min: 0, Max: 59, Label: "Needs Improvement", Color: color.FgRed,
		Description: "More preparation needed. Review fundamentals and practice extensively.",
	},
}

// Rating - итоговая оценка интервью
type Rating struct {
	Rating  string
	Message string
}

// RangeFor возвращает диапазон по нижней границе, так что дробные баллы
// между диапазонами (89.5) попадают в нижний из соседних.
// Баллы ниже всех диапазонов получают самый низкий.
func RangeFor(score float64, ranges []Range) Range {
	if len(ranges) == 0 {
		ranges = DefaultRanges
	}
	sorted := sortedDesc(ranges)
	for _, r := range sorted {
		if score >= float64(r.Min) {
			return r
		}
	}
	return sorted[len(sorted)-1]
}

func Label(score float64) string {
	return RangeFor(score, DefaultRanges).Label
}

func Description(score float64) string {
	return RangeFor(score, DefaultRanges).Description
}

// FormatScore форматирует балл как "82/100"; nil - "N/A"
func FormatScore(score *float64, showLabel bool) string {
	if score == nil || math.IsNaN(*score) {
		return "N/A"
	}
	rounded := math.Round(*score)
	if showLabel {
		return fmt.Sprintf("%d/100 (%s)", int(rounded), Label(rounded))
	}
	return fmt.Sprintf("%d/100", int(rounded))
}

// Colorize окрашивает текст цветом диапазона балла
func Colorize(score float64, text string) string {
	return color.New(RangeFor(score, DefaultRanges).Color).Sprint(text)
}

// OverallRating оценивает средний балл интервью
func OverallRating(averageScore float64) Rating {
	switch {
	case averageScore >= 90:
		return Rating{Rating: "Excellent", Message: "Outstanding! You are well-prepared for your interviews!"}
	case averageScore >= 75:
		return Rating{Rating: "Good", Message: "Great work! A bit more practice and you will be perfect!"}
	case averageScore >= 60:
		return Rating{Rating: "Fair", Message: "Good effort! Keep practicing to improve your performance."}
	default:
		return Rating{Rating: "Needs Improvement", Message: "Keep going! More practice will help you succeed."}
	}
}

// Average возвращает средний балл оцененных ответов и их количество
func Average(scores []*float64) (float64, int) {
	var sum float64
	n := 0
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func sortedDesc(ranges []Range) []Range {
	sorted := append([]Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	return sorted
}
