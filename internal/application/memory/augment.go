package memory

import (
	"fmt"
	"sort"
	"strings"

	"novel-journey-api/internal/domain/entity"
)

// AugmentPrompt 把检索到的摘要格式化为上下文块拼在提示词前面。
// 摘要为空时原样返回。输出对同一输入是确定的（map 按键排序）。
func AugmentPrompt(prompt string, summaries []*entity.ScoredSummary) string {
	if len(summaries) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString("[前文记忆]\n")
	for _, s := range summaries {
		if s == nil {
			continue
		}
		fmt.Fprintf(&b, "第 %d 章：\n", s.ChapterNumber)
		writeList(&b, "人物", s.Summary.Characters)
		writeList(&b, "情节要点", s.Summary.PlotPoints)
		writeMap(&b, "文体特征", s.Summary.StylisticTraits)
		writeMap(&b, "时空细节", s.Summary.SpatialTemporalDetails)
		writeList(&b, "主题", s.Summary.MainThemes)
	}
	b.WriteString("[/前文记忆]\n\n")
	b.WriteString(prompt)
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s：%s\n", label, strings.Join(items, "；"))
}

func writeMap(b *strings.Builder, label string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+m[k])
	}
	fmt.Fprintf(b, "  %s：%s\n", label, strings.Join(pairs, "；"))
}
