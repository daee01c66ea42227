// Package textmetrics считает живые метрики ответа: количество слов,
// слов-паразитов, эвристическую уверенность и темп речи.
// Все функции чистые и детерминированные.
package textmetrics

import (
	"math"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultWordCeiling - после этого количества слов объем ответа больше не повышает уверенность
	DefaultWordCeiling = 50
	// DefaultFillerPenalty - во сколько раз доля паразитов снижает уверенность
	DefaultFillerPenalty = 2.0

	maxScore = 100.0
)

// DefaultFillerWords - словарь слов-паразитов по умолчанию
var DefaultFillerWords = []string{
	"um", "umm", "uh", "uhh", "uhm", "er", "erm", "ah", "hmm",
	"like", "basically", "actually", "literally", "totally",
	"you know", "i mean", "sort of", "kind of", "you see",
}

// LiveMetrics - метрики черновика ответа, пересчитываются на каждое изменение
type LiveMetrics struct {
	WordCount           int     `json:"wordCount"`
	FillerCount         int     `json:"fillerCount"`
	ConfidenceScore     float64 `json:"confidenceScore"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
	// WordsPerMinute - темп речи; 0, пока время ответа неизвестно
	WordsPerMinute float64 `json:"wordsPerMinute"`
}

// Analyzer считает метрики по заданному словарю и константам
type Analyzer struct {
	fillers       [][]string
	wordCeiling   int
	fillerPenalty float64
}

// NewAnalyzer создает анализатор. Пустой словарь и неположительные
// константы заменяются значениями по умолчанию.
func NewAnalyzer(fillerWords []string, wordCeiling int, fillerPenalty float64) *Analyzer {
	if len(fillerWords) == 0 {
		fillerWords = DefaultFillerWords
	}
	if wordCeiling <= 0 {
		wordCeiling = DefaultWordCeiling
	}
	if fillerPenalty <= 0 {
		fillerPenalty = DefaultFillerPenalty
	}

	a := &Analyzer{wordCeiling: wordCeiling, fillerPenalty: fillerPenalty}
	for _, phrase := range fillerWords {
		tokens := normalizeTokens(phrase)
		if len(tokens) > 0 {
			a.fillers = append(a.fillers, tokens)
		}
	}
	return a
}

var defaultAnalyzer = NewAnalyzer(DefaultFillerWords, DefaultWordCeiling, DefaultFillerPenalty)

// Default возвращает анализатор со словарем и константами по умолчанию
func Default() *Analyzer {
	return defaultAnalyzer
}

// WordCount считает непустые токены, разделенные пробельными символами
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// FillerCount считает слова-паразиты словаря по умолчанию
func FillerCount(text string) int {
	return defaultAnalyzer.FillerCount(text)
}

// ConfidenceScore считает уверенность с константами по умолчанию
func ConfidenceScore(wordCount, fillerCount int) float64 {
	return defaultAnalyzer.ConfidenceScore(wordCount, fillerCount)
}

// FillerCount считает вхождения слов-паразитов целыми токенами без учета
// регистра и пунктуации. Каждое слово текста засчитывается не более одного
// раза; при пересечении выигрывает более длинная фраза.
func (a *Analyzer) FillerCount(text string) int {
	tokens := normalizeTokens(text)
	count := 0
	for i := 0; i < len(tokens); {
		matched := 0
		for _, phrase := range a.fillers {
			if len(phrase) > matched && hasPhraseAt(tokens, i, phrase) {
				matched = len(phrase)
			}
		}
		if matched > 0 {
			count++
			i += matched
			continue
		}
		i++
	}
	return count
}

// ConfidenceScore - эвристика в диапазоне [0, 100]:
// 100 * min(words, ceiling)/ceiling * max(0, 1 - penalty * fillers/words).
// Растет с числом слов до потолка и падает с долей паразитов.
func (a *Analyzer) ConfidenceScore(wordCount, fillerCount int) float64 {
	if wordCount <= 0 {
		return 0
	}
	if fillerCount < 0 {
		fillerCount = 0
	}

	volume := math.Min(float64(wordCount), float64(a.wordCeiling)) / float64(a.wordCeiling)
	ratio := math.Min(float64(fillerCount)/float64(wordCount), 1)
	fluency := math.Max(0, 1-a.fillerPenalty*ratio)

	score := maxScore * volume * fluency
	return math.Round(clamp(score, 0, maxScore)*10) / 10
}

// Analyze считает все метрики черновика. elapsed - время с показа вопроса.
func (a *Analyzer) Analyze(text string, elapsed time.Duration) LiveMetrics {
	words := WordCount(text)
	fillers := a.FillerCount(text)

	m := LiveMetrics{
		WordCount:       words,
		FillerCount:     fillers,
		ConfidenceScore: a.ConfidenceScore(words, fillers),
	}
	if elapsed > 0 {
		m.ResponseTimeSeconds = elapsed.Seconds()
		m.WordsPerMinute = math.Round(float64(words)/elapsed.Minutes()*10) / 10
	}
	return m
}

func hasPhraseAt(tokens []string, i int, phrase []string) bool {
	if i+len(phrase) > len(tokens) {
		return false
	}
	for j, word := range phrase {
		if tokens[i+j] != word {
			return false
		}
	}
	return true
}

// normalizeTokens разбивает текст по пробелам, приводит к нижнему регистру
// и срезает пунктуацию по краям токена. Токены из одной пунктуации
// сохраняются пустыми, чтобы не склеивать фразы через них.
func normalizeTokens(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = strings.ToLower(strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
	}
	return tokens
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
