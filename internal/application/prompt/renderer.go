// Package prompt 提供提示模板渲染与注册表
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\[([A-Z][A-Z0-9_]*)\]`)

// Render 用变量映射填充模板中的 [VAR] 占位符。纯函数，无状态。
// 未提供值的占位符原样保留，由调用方决定是否视为错误。
func Render(template string, vars map[string]any) string {
	if len(vars) == 0 {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		val, ok := vars[key]
		if !ok {
			return match
		}
		return stringify(val)
	})
}

// UnboundVars 返回模板中未被 vars 覆盖的占位符名（去重、字典序）
func UnboundVars(template string, vars map[string]any) []string {
	seen := make(map[string]struct{})
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		key := m[1]
		if _, ok := vars[key]; !ok {
			seen[key] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
