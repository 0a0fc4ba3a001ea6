package workflow

import (
	"strings"
	"testing"

	"novel-journey-api/internal/domain/entity"
)

func sampleChapter() *entity.GeneratedChapter {
	content := "Mara walked to the harbor at dawn. The fog had not lifted yet. " +
		"She found the old captain waiting by the pier, and he handed her the sealed letter without a word.\n\n" +
		"\"You came after all,\" he said. \"The crossing starts tonight.\""
	c := &entity.GeneratedChapter{ID: "c1", Number: 1, Title: "The Crossing"}
	c.SetContent(content)
	return c
}

func sampleBlueprint() *entity.NovelBlueprint {
	return &entity.NovelBlueprint{
		Characters: []entity.CharacterProfile{
			{ID: "ch-mara", Name: "Mara"},
			{ID: "ch-captain", Name: "captain"},
		},
		Chapters: []entity.ChapterOutline{
			{
				ID:                 "o1",
				Number:             1,
				Title:              "The Crossing",
				KeyEvents:          []string{"receives the sealed letter", "meets at the harbor"},
				CharactersInvolved: []string{"ch-mara", "ch-captain"},
				WordTarget:         entity.CountWords(sampleChapter().Content),
			},
		},
	}
}

func TestEstimateQualityDeterministic(t *testing.T) {
	chapter := sampleChapter()
	blueprint := sampleBlueprint()

	first := EstimateQuality(chapter, blueprint)
	for i := 0; i < 5; i++ {
		if again := EstimateQuality(chapter, blueprint); again != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}

	for name, score := range map[string]int{
		"style":     first.StyleConsistency,
		"character": first.CharacterConsistency,
		"plot":      first.PlotConsistency,
		"cultural":  first.CulturalAuthenticity,
		"overall":   first.Overall,
	} {
		if score < 0 || score > 100 {
			t.Errorf("%s score %d out of range", name, score)
		}
	}
}

func TestEstimateQualityRewardsOutlineCoverage(t *testing.T) {
	blueprint := sampleBlueprint()
	onTopic := sampleChapter()

	offTopic := &entity.GeneratedChapter{ID: "c2", Number: 1}
	offTopic.SetContent("An unrelated essay about tax policy. It mentions nothing from the outline. " +
		"Paragraph after paragraph of procedural prose with no familiar figures.")

	a := EstimateQuality(onTopic, blueprint)
	b := EstimateQuality(offTopic, blueprint)
	if a.CharacterConsistency <= b.CharacterConsistency {
		t.Errorf("character coverage: on-topic %d should beat off-topic %d",
			a.CharacterConsistency, b.CharacterConsistency)
	}
}

func TestEstimateQualityWithoutBlueprint(t *testing.T) {
	q := EstimateQuality(sampleChapter(), nil)
	if q.Overall <= 0 || q.Overall > 100 {
		t.Errorf("overall = %d, want a positive in-range score", q.Overall)
	}
}

func TestEstimateIdeaRating(t *testing.T) {
	full := &entity.GeneratedIdea{
		Title:          "The Silent Archive",
		Genre:          "mystery",
		Setting:        "coastal town",
		Timeframe:      "1980s",
		MainCharacter:  "archivist",
		Conflict:       "a missing ledger",
		Theme:          "memory",
		TargetAudience: "adult",
		Synopsis:       strings.Repeat("a detailed synopsis sentence ", 10),
		UniqueElements: []string{"unreliable records", "dual timeline"},
	}
	sparse := &entity.GeneratedIdea{Title: "Untitled", Synopsis: "short"}

	fullRating := EstimateIdeaRating(full)
	sparseRating := EstimateIdeaRating(sparse)

	if EstimateIdeaRating(full) != fullRating {
		t.Error("rating must be deterministic")
	}
	if fullRating.Feasibility <= sparseRating.Feasibility {
		t.Errorf("complete idea feasibility %d should beat sparse %d",
			fullRating.Feasibility, sparseRating.Feasibility)
	}
	for _, score := range []int{fullRating.Originality, fullRating.Appeal, fullRating.Feasibility, fullRating.CulturalRelevance} {
		if score < 0 || score > 100 {
			t.Errorf("score %d out of range", score)
		}
	}
}

func TestEstimateMetricsEmptyContent(t *testing.T) {
	chapter := &entity.GeneratedChapter{Number: 1}
	if m := EstimateMetrics(chapter); m != (entity.ChapterMetrics{}) {
		t.Errorf("empty chapter metrics = %+v, want zero value", m)
	}
}

func TestAggregateQualityReport(t *testing.T) {
	if report := AggregateQualityReport(nil); report.OverallQuality != 0 {
		t.Errorf("empty input report = %+v", report)
	}

	chapters := []entity.GeneratedChapter{
		{Number: 1, Quality: entity.ChapterQuality{Overall: 80}},
		{Number: 2, Quality: entity.ChapterQuality{Overall: 60}},
		{Number: 3, Quality: entity.ChapterQuality{Overall: 90}},
	}
	report := AggregateQualityReport(chapters)
	if report.OverallQuality != 76 {
		t.Errorf("OverallQuality = %d, want 76", report.OverallQuality)
	}
	if len(report.Improvements) == 0 || !strings.Contains(report.Improvements[0], "Chapter 2") {
		t.Errorf("weakest chapter not flagged: %v", report.Improvements)
	}
	if len(report.Strengths) == 0 || !strings.Contains(report.Strengths[0], "Chapter 3") {
		t.Errorf("strongest chapter not flagged: %v", report.Strengths)
	}
	if len(report.Recommendations) == 0 || report.Recommendations[0].Priority != "high" {
		t.Errorf("recommendation missing: %v", report.Recommendations)
	}
}

func TestClampScore(t *testing.T) {
	if got := clampScore(-10); got != 0 {
		t.Errorf("clampScore(-10) = %d", got)
	}
	if got := clampScore(150); got != 100 {
		t.Errorf("clampScore(150) = %d", got)
	}
	if got := clampScore(42); got != 42 {
		t.Errorf("clampScore(42) = %d", got)
	}
}
