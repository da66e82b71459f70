package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-risk-eval/internal/risk"
)

type fakeCompleter struct {
	mu      sync.Mutex
	enabled bool
	reply   string
	err     error
	delay   time.Duration
	panics  bool
	prompts []string
}

func (f *fakeCompleter) Enabled() bool { return f.enabled }

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		// ignores ctx on purpose
		time.Sleep(f.delay)
	}
	return f.reply, f.err
}

func (f *fakeCompleter) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestExtractor(c Completer, opts ...ExtractorOption) *Extractor {
	opts = append([]ExtractorOption{WithLogger(quietLogger())}, opts...)
	e := NewExtractor(c, opts...)
	e.newID = func() string { return "fixed" }
	return e
}

func TestExtractMapsItems(t *testing.T) {
	reply := "```json\n[{\"title\":\"Clause pénale\",\"description\":\"Montant excessif\",\"severity\":\"HIGH\",\"recommendation\":\"Plafonner\",\"quote\":\"pénalité de 50%\"},{\"description\":\"Sans titre\"}]\n```"
	fake := &fakeCompleter{enabled: true, reply: reply}
	findings := newTestExtractor(fake).Extract(context.Background(), "texte du contrat", "housing")

	require.Len(t, findings, 2)
	first := findings[0]
	assert.Equal(t, "ai-risk-0-fixed", first.ID)
	assert.Equal(t, risk.SeverityHigh, first.Severity)
	assert.Equal(t, "Clause pénale", first.Title)
	assert.Equal(t, "Plafonner", first.Recommendation)
	assert.Equal(t, "pénalité de 50%", first.Clause.Text)
	assert.Equal(t, risk.SourceAI, first.Source)
	assert.Zero(t, first.Clause.Start)
	assert.Zero(t, first.Clause.End)

	second := findings[1]
	assert.Equal(t, "ai-risk-1-fixed", second.ID)
	assert.Equal(t, risk.SeverityMedium, second.Severity)
	assert.Equal(t, defaultTitle, second.Title)
	assert.Equal(t, defaultQuote, second.Clause.Text)
}

func TestExtractPromptTruncatesText(t *testing.T) {
	fake := &fakeCompleter{enabled: true, reply: "[]"}
	text := strings.Repeat("é", 20)
	findings := newTestExtractor(fake, WithMaxChars(10)).Extract(context.Background(), text, "housing")

	assert.Empty(t, findings)
	prompt := fake.lastPrompt()
	assert.Contains(t, prompt, "(Type: housing)")
	assert.Contains(t, prompt, "\"\"\"\n"+strings.Repeat("é", 10)+"\n\"\"\"")
	assert.NotContains(t, prompt, strings.Repeat("é", 11))
}

func TestExtractFailuresYieldNothing(t *testing.T) {
	cases := []struct {
		name string
		fake *fakeCompleter
	}{
		{name: "disabled", fake: &fakeCompleter{enabled: false, reply: `[{"title":"x"}]`}},
		{name: "transport error", fake: &fakeCompleter{enabled: true, err: errors.New("connection refused")}},
		{name: "malformed json", fake: &fakeCompleter{enabled: true, reply: "[{\"title\": "}},
		{name: "prose reply", fake: &fakeCompleter{enabled: true, reply: "Je ne peux pas répondre."}},
		{name: "wrong shape", fake: &fakeCompleter{enabled: true, reply: `[{"title": 12}]`}},
		{name: "panic", fake: &fakeCompleter{enabled: true, panics: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			findings := newTestExtractor(tc.fake).Extract(context.Background(), "texte", "housing")
			assert.Empty(t, findings)
		})
	}
}

func TestExtractTimesOutOnSlowCompleter(t *testing.T) {
	fake := &fakeCompleter{enabled: true, reply: `[{"title":"late"}]`, delay: 2 * time.Second}
	extractor := newTestExtractor(fake, WithTimeout(50*time.Millisecond))

	start := time.Now()
	findings := extractor.Extract(context.Background(), "texte", "housing")
	elapsed := time.Since(start)

	assert.Empty(t, findings)
	assert.Less(t, elapsed, time.Second)
}

func TestExtractNilCompleter(t *testing.T) {
	extractor := NewExtractor(nil)
	assert.False(t, extractor.Enabled())
	assert.Nil(t, extractor.Extract(context.Background(), "texte", "housing"))

	var nilExtractor *Extractor
	assert.False(t, nilExtractor.Enabled())
	assert.Nil(t, nilExtractor.Extract(context.Background(), "texte", "housing"))
}

func TestParseRisks(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{name: "empty reply", content: "  ", want: 0},
		{name: "empty array", content: "[]", want: 0},
		{name: "fenced", content: "```\n[{\"title\":\"a\"}]\n```", want: 1},
		{name: "leading prose", content: "Voici les risques : [{\"title\":\"a\"},{\"title\":\"b\"}] Fin.", want: 2},
		{name: "object", content: `{"title":"a"}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRisks(tc.content)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}
}

func TestBuildPromptDefaultsType(t *testing.T) {
	prompt := BuildPrompt("abc", "")
	assert.Contains(t, prompt, "(Type: auto)")
	assert.Contains(t, prompt, "Si aucun risque n'est trouvé, renvoie [].")
}
