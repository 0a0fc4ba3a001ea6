package workflow

import (
	"strconv"
	"strings"

	"novel-journey-api/internal/domain/entity"
)

// 质量与度量估计。全部基于文本特征确定性计算，
// 同一输入永远得到同一分数，分值范围 0-100。

// EstimateIdeaRating 按创意的信息完整度打分
func EstimateIdeaRating(idea *entity.GeneratedIdea) entity.IdeaRating {
	completeness := 0
	for _, field := range []string{idea.Genre, idea.Setting, idea.Timeframe, idea.MainCharacter, idea.Conflict, idea.Theme, idea.TargetAudience} {
		if strings.TrimSpace(field) != "" {
			completeness++
		}
	}

	synopsisWords := entity.CountWords(idea.Synopsis)
	return entity.IdeaRating{
		Originality:       clampScore(60 + 5*len(idea.UniqueElements)),
		Appeal:            clampScore(55 + synopsisWords/4),
		Feasibility:       clampScore(50 + 6*completeness),
		CulturalRelevance: clampScore(60 + 4*completeness),
	}
}

// EstimateQuality 按章节文本与蓝图大纲的吻合程度打分
func EstimateQuality(chapter *entity.GeneratedChapter, blueprint *entity.NovelBlueprint) entity.ChapterQuality {
	content := strings.ToLower(chapter.Content)

	style := sentenceLengthScore(chapter.Content)
	character := 70
	plot := 70
	cultural := 75

	if blueprint != nil {
		if outline := blueprint.OutlineFor(chapter.Number); outline != nil {
			character = coverageScore(content, characterNames(blueprint, outline.CharactersInvolved))
			plot = coverageScore(content, keyTerms(outline.KeyEvents))
			if outline.WordTarget > 0 {
				style = (style + wordTargetScore(chapter.WordCount, outline.WordTarget)) / 2
			}
		}
	}

	q := entity.ChapterQuality{
		StyleConsistency:     clampScore(style),
		CharacterConsistency: clampScore(character),
		PlotConsistency:      clampScore(plot),
		CulturalAuthenticity: clampScore(cultural),
	}
	q.Overall = clampScore((q.StyleConsistency + q.CharacterConsistency + q.PlotConsistency + q.CulturalAuthenticity) / 4)
	return q
}

// EstimateMetrics 按文本形态特征估计可读性等度量
func EstimateMetrics(chapter *entity.GeneratedChapter) entity.ChapterMetrics {
	content := chapter.Content
	words := strings.Fields(content)
	if len(words) == 0 {
		return entity.ChapterMetrics{}
	}

	// 可读性：句子越短越易读
	avgSentence := float64(len(words)) / float64(max(sentenceCount(content), 1))
	readability := 100 - int(avgSentence*1.5)

	// 吸引力：对白占比越高越强
	dialogueMarks := strings.Count(content, "\"") + strings.Count(content, "“")
	engagement := 50 + dialogueMarks*100/max(len(words), 1)

	// 连贯性：多段落文本更连贯
	paragraphs := strings.Count(strings.TrimSpace(content), "\n\n") + 1
	coherence := 60 + paragraphs*2

	// 新颖性：词汇多样度
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(strings.Trim(w, ".,;:!?\"'"))] = struct{}{}
	}
	innovation := len(unique) * 100 / len(words)

	return entity.ChapterMetrics{
		Readability: clampScore(readability),
		Engagement:  clampScore(engagement),
		Coherence:   clampScore(coherence),
		Innovation:  clampScore(innovation + 30),
	}
}

// AggregateQualityReport 把各章质量汇总为终审报告
func AggregateQualityReport(chapters []entity.GeneratedChapter) entity.QualityReport {
	if len(chapters) == 0 {
		return entity.QualityReport{}
	}

	sum := 0
	weakest := &chapters[0]
	strongest := &chapters[0]
	for i := range chapters {
		sum += chapters[i].Quality.Overall
		if chapters[i].Quality.Overall < weakest.Quality.Overall {
			weakest = &chapters[i]
		}
		if chapters[i].Quality.Overall > strongest.Quality.Overall {
			strongest = &chapters[i]
		}
	}

	report := entity.QualityReport{
		OverallQuality: clampScore(sum / len(chapters)),
	}
	if strongest.Quality.Overall >= 75 {
		report.Strengths = append(report.Strengths,
			"Chapter "+itoa(strongest.Number)+" shows the strongest overall consistency")
	}
	if weakest.Quality.Overall < 70 {
		report.Improvements = append(report.Improvements,
			"Chapter "+itoa(weakest.Number)+" scores lowest and may need another editing pass")
		report.Recommendations = append(report.Recommendations, entity.Recommendation{
			Category:    "consistency",
			Description: "Revise chapter " + itoa(weakest.Number) + " against the blueprint outline",
			Priority:    "high",
		})
	}
	return report
}

func sentenceLengthScore(content string) int {
	words := len(strings.Fields(content))
	sentences := max(sentenceCount(content), 1)
	avg := float64(words) / float64(sentences)
	// 12-25 词的句长落在高分区
	switch {
	case avg >= 12 && avg <= 25:
		return 85
	case avg < 12:
		return 75
	default:
		return int(85 - (avg-25)*2)
	}
}

func sentenceCount(content string) int {
	return strings.Count(content, ".") + strings.Count(content, "!") + strings.Count(content, "?") +
		strings.Count(content, "。") + strings.Count(content, "！") + strings.Count(content, "？")
}

// coverageScore 统计 terms 在文本中的出现比例，映射到 50-95
func coverageScore(lowerContent string, terms []string) int {
	if len(terms) == 0 {
		return 70
	}
	hit := 0
	for _, t := range terms {
		if t != "" && strings.Contains(lowerContent, strings.ToLower(t)) {
			hit++
		}
	}
	return 50 + hit*45/len(terms)
}

func wordTargetScore(actual, target int) int {
	if target <= 0 {
		return 70
	}
	diff := actual - target
	if diff < 0 {
		diff = -diff
	}
	return 95 - diff*100/target
}

func characterNames(blueprint *entity.NovelBlueprint, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, blueprint.CharacterName(id))
	}
	return names
}

// keyTerms 取每个事件描述里最长的词作为检索关键词
func keyTerms(events []string) []string {
	terms := make([]string, 0, len(events))
	for _, ev := range events {
		longest := ""
		for _, w := range strings.Fields(ev) {
			w = strings.Trim(w, ".,;:!?\"'")
			if len(w) > len(longest) {
				longest = w
			}
		}
		if longest != "" {
			terms = append(terms, longest)
		}
	}
	return terms
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
