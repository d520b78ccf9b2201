package llm

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// EssayWriter produces the AI side of the essay exercise: a flawed first
// draft, revisions following student instructions, and a final evaluation.
type EssayWriter interface {
	Draft(in DraftInput) string
	Revise(in RevisionInput) string
	Evaluate(text string) Evaluation
}

type DraftInput struct {
	GradeLevel   string
	EssayType    string
	Requirements string
	Prompt       string
}

type RevisionInput struct {
	DraftInput
	PreviousText string
	Instructions string
	Iteration    int
}

type Evaluation struct {
	Score       int
	Commentary  string
	ReferenceID string
}

// Sentences with typical student mistakes: run-ons, missing punctuation.
var sampleErrors = []string{
	"我覺得這次活動真的很好玩我也學到了很多東西",
	"因為老師說要幫助別人所以我就決定參加了這個活動可是過程中我有點害怕",
	"我們小組一開始沒有溝通好結果做得一團亂最後才慢慢變好",
	"我學到最大的道理就是只要努力就會有好結果但是有時候也會失敗讓我很沮喪",
	"如果時間可以倒流我會先把功課寫完然後再去玩不然就會被媽媽罵",
}

var commonStructureIssues = []string{
	"開頭沒有點題，直接描述細節，讓讀者難以理解文章主旨。",
	"中段缺少過渡句，情節跳躍。",
	"結尾僅用一句話收尾，沒有總結學到的事情。",
}

var improvementPhrases = []string{
	"我再次想了很久，發現要把事情做好需要先規劃。",
	"後來我和同學溝通，我們分工合作讓事情變得清楚。",
	"經過這次的經驗，我懂得要尊重別人的意見。",
	"最後我希望自己可以把這個好習慣持續下去。",
}

const (
	draftBodySentences = 3
	evaluatedIssues    = 2
	referenceIDLength  = 8

	unplannedPhrase = "不知道要怎麼寫所以就直接把想到的事情全部寫下來"
	plannedPhrase   = "先列出重點再慢慢描述每一段的內容"

	strengthsLine = "優點：用詞真誠，情感表達自然。"
	summaryLine   = "總評：文章有明顯進步，但仍需加強段落間的過渡與結尾的反思。"

	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// HeuristicWriter fills fixed templates with randomly picked fragments.
// The random source is shared between requests and guarded by mu.
type HeuristicWriter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristicWriter seeds from the clock when seed is zero.
func NewHeuristicWriter(seed int64) *HeuristicWriter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewHeuristicWriterWithRand(rand.New(rand.NewSource(seed)))
}

func NewHeuristicWriterWithRand(rng *rand.Rand) *HeuristicWriter {
	return &HeuristicWriter{rng: rng}
}

func (w *HeuristicWriter) Draft(in DraftInput) string {
	intro := fmt.Sprintf("我是%s年級的學生，最近老師要我們寫一篇關於「%s」的%s。其實我一開始%s。",
		in.GradeLevel, in.Prompt, in.EssayType, unplannedPhrase)

	body := make([]string, draftBodySentences)
	w.mu.Lock()
	for i := range body {
		body[i] = sampleErrors[w.rng.Intn(len(sampleErrors))]
	}
	w.mu.Unlock()

	closing := fmt.Sprintf("總的來說這次的事情讓我感覺很複雜我知道老師希望我們%s但我還沒真的做到。", in.Requirements)

	return intro + "\n\n" + strings.Join(body, "\n") + "\n\n" + closing
}

// ImprovementCount is how many improvement phrases a revision at the given
// iteration lists: one on the first pass, all of them from the fourth on.
func ImprovementCount(iteration int) int {
	if iteration < 0 {
		iteration = 0
	}
	return min(len(improvementPhrases), 1+min(3, iteration))
}

func (w *HeuristicWriter) Revise(in RevisionInput) string {
	improvements := improvementPhrases[:ImprovementCount(in.Iteration)]
	commentary := fmt.Sprintf("根據老師的新指示：「%s」，我重新整理了文章。", in.Instructions)
	summary := "我特別記錄了這些重點：" + strings.Join(improvements, "，") + "。"

	return commentary + "\n\n" + CleanParagraphs(in.PreviousText) + "\n\n" + summary
}

// CleanParagraphs trims every line, drops empty ones and rejoins them as
// blank-line separated paragraphs. Only the first paragraph gets the
// planned-writing rewrite, and only if the unplanned phrase is still there.
func CleanParagraphs(text string) string {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(paragraphs) == 0 {
			line = strings.Replace(line, unplannedPhrase, plannedPhrase, 1)
		}
		paragraphs = append(paragraphs, line)
	}
	return strings.Join(paragraphs, "\n\n")
}

// BaseScore is the length heuristic before jitter: 60 plus one point per 30
// characters, clamped to [55, 95].
func BaseScore(text string) float64 {
	base := 60 + float64(utf8.RuneCountInString(text))/30
	return math.Min(95, math.Max(55, base))
}

// Evaluate scores the text. Jitter of [-5, 5) is added after clamping, so
// the score can land up to 5 points outside [55, 95].
func (w *HeuristicWriter) Evaluate(text string) Evaluation {
	w.mu.Lock()
	jitter := w.rng.Float64()*10 - 5
	ref := make([]byte, referenceIDLength)
	for i := range ref {
		ref[i] = referenceAlphabet[w.rng.Intn(len(referenceAlphabet))]
	}
	w.mu.Unlock()

	issues := make([]string, evaluatedIssues)
	for i, issue := range commonStructureIssues[:evaluatedIssues] {
		issues[i] = fmt.Sprintf("%d. %s", i+1, issue)
	}

	return Evaluation{
		// half-up rounding
		Score:       int(math.Floor(BaseScore(text) + jitter + 0.5)),
		Commentary:  strengthsLine + "\n" + strings.Join(issues, "\n") + "\n" + summaryLine,
		ReferenceID: string(ref),
	}
}
