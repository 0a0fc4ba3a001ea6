package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"novel-journey-api/internal/application/gateway"
	"novel-journey-api/internal/application/prompt"
)

// localAdapter 无外部依赖的本地实现，供未配置任何密钥时走通全流程。
// 输出由提示词内容确定性推导，同一提示永远得到同一结果。
type localAdapter struct {
	modelID string
}

func newLocalAdapter(modelID string) *localAdapter {
	return &localAdapter{modelID: modelID}
}

func (a *localAdapter) ModelID() string {
	return a.modelID
}

func (a *localAdapter) ProcessPrompt(ctx context.Context, renderedPrompt string, opts gateway.CallOptions) (*gateway.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := promptSeed(renderedPrompt)
	var content string
	switch prompt.Action(opts.Action) {
	case prompt.ActionAnalyzeSource:
		content = localAnalysis(seed)
	case prompt.ActionGenerateIdeas:
		content = localIdeas(seed)
	case prompt.ActionGenerateBlueprint:
		content = localBlueprint(seed)
	case prompt.ActionFinalReview:
		content = localReview(seed)
	case prompt.ActionGenerateChapter, prompt.ActionEditChapter:
		content = localChapter(seed)
	default:
		content = localChapter(seed)
	}

	result := ParseModelOutput(a.modelID, content)
	result.Usage.PromptTokens = len(strings.Fields(renderedPrompt))
	result.Usage.CompletionTokens = len(strings.Fields(content))
	return result, nil
}

func promptSeed(renderedPrompt string) uint64 {
	sum := sha256.Sum256([]byte(renderedPrompt))
	return binary.BigEndian.Uint64(sum[:8])
}

func pick(seed uint64, options ...string) string {
	return options[seed%uint64(len(options))]
}

func localAnalysis(seed uint64) string {
	return fmt.Sprintf(`{
  "vocabulary": "%s",
  "sentence_structure": "%s",
  "tone_profile": "%s",
  "narrative_perspective": "third person limited",
  "dialogue_style": "naturalistic",
  "descriptive_level": "moderate",
  "cultural_context": ["contemporary"],
  "rhetorical_devices": ["metaphor", "foreshadowing"],
  "pacing": "%s",
  "characterization": "gradual reveal through action",
  "themes": ["identity", "belonging"]
}`,
		pick(seed, "plain and direct", "rich and ornate", "spare and precise"),
		pick(seed>>8, "short declarative sentences", "long flowing periods", "mixed rhythm"),
		pick(seed>>16, "melancholic", "wry", "earnest"),
		pick(seed>>24, "measured", "brisk"))
}

func localIdeas(seed uint64) string {
	return fmt.Sprintf(`[
  {"title": "The %s House", "genre": "mystery", "setting": "coastal town", "timeframe": "present day", "main_character": "a retired cartographer", "conflict": "a map that keeps changing", "theme": "memory", "synopsis": "A cartographer returns home to find the town no longer matches any map, including the ones drawn from memory.", "unique_elements": ["unreliable geography"], "estimated_chapters": 12, "target_audience": "adult"},
  {"title": "%s Season", "genre": "literary", "setting": "mountain village", "timeframe": "1980s", "main_character": "a young schoolteacher", "conflict": "a school slated for closure", "theme": "community", "synopsis": "The last teacher in a shrinking village fights to keep one classroom open through a final winter.", "unique_elements": ["single-location drama"], "estimated_chapters": 10, "target_audience": "adult"},
  {"title": "The %s Ledger", "genre": "historical", "setting": "port city", "timeframe": "1920s", "main_character": "an apprentice bookkeeper", "conflict": "an account that should not exist", "theme": "complicity", "synopsis": "An apprentice finds a ledger entry for a ship that never sailed and follows the money into the harbor's oldest secret.", "unique_elements": ["numbers as clues"], "estimated_chapters": 14, "target_audience": "adult"}
]`,
		pick(seed, "Unmapped", "Silent", "Borrowed"),
		pick(seed>>8, "Thaw", "Harvest", "Ember"),
		pick(seed>>16, "Salt", "Iron", "Paper"))
}

func localBlueprint(seed uint64) string {
	chapters := 3 + int(seed%3)
	var sb strings.Builder
	for i := 1; i <= chapters; i++ {
		if i > 1 {
			sb.WriteString(",\n")
		}
		fmt.Fprintf(&sb, `    {"number": %d, "title": "Chapter %d", "synopsis": "Events of part %d unfold and the stakes tighten.", "key_events": ["a discovery", "a refusal"], "characters_involved": ["c1"], "emotional_tone": "%s", "pacing": "steady", "plot_advancement": "rising action", "word_target": 2000}`,
			i, i, i, pick(seed>>uint(i), "tense", "quiet", "hopeful"))
	}
	return fmt.Sprintf(`{
  "overview": {"title": "Working Title", "genre": "literary", "chapter_count": %d, "estimated_words": %d, "themes": ["perseverance"], "tone": "grounded", "setting": "small town", "description": "A protagonist confronts a long-deferred reckoning over %d chapters."},
  "plot_structure": {"act_structure": "three-act", "plot_points": [{"type": "inciting", "chapter": 1, "description": "The letter arrives"}], "pacing": "steady", "climax_chapter": %d, "resolution": "earned quiet"},
  "characters": [{"id": "c1", "name": "Alden Reyes", "role": "protagonist", "description": "a careful observer", "personality": ["patient", "stubborn"], "development": [{"chapter": 1, "event": "receives the letter", "growth": "resolve forms"}]}],
  "chapters": [
%s
  ],
  "themes": ["perseverance", "homecoming"]
}`, chapters, chapters*2000, chapters, chapters, sb.String())
}

func localChapter(seed uint64) string {
	opening := pick(seed,
		"The morning arrived without ceremony, gray light pooling on the floorboards.",
		"Rain had been falling since before anyone in the house was awake.",
		"The road into town was longer than Alden remembered, or he was slower.")
	middle := pick(seed>>8,
		"He kept the letter folded in his breast pocket where he could feel its corner through the wool.",
		"At the counter the old clerk looked up, recognized him, and said nothing at all.",
		"Every house on the street held someone who had known his family longer than he had.")
	closing := pick(seed>>16,
		"By evening he had decided, although he would not say it aloud for another week.",
		"The lamp burned late that night, and the page in front of him stayed empty.",
		"He slept poorly, which he took, correctly, as a sign.")
	return fmt.Sprintf(`{"chapter_content": "%s %s %s", "synopsis": "The protagonist takes a first irreversible step."}`,
		opening, middle, closing)
}

func localReview(seed uint64) string {
	return fmt.Sprintf(`{
  "overall_quality": %d,
  "strengths": ["consistent narrative voice", "coherent chapter progression"],
  "improvements": ["later chapters could vary pacing more"],
  "recommendations": [{"category": "pacing", "description": "Tighten the middle third", "priority": "medium"}]
}`, 70+int(seed%21))
}
