package prompt

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]any
		want     string
	}{
		{
			name:     "single placeholder",
			template: "Summarize [TITLE].",
			vars:     map[string]any{"TITLE": "The Quiet Sea"},
			want:     "Summarize The Quiet Sea.",
		},
		{
			name:     "repeated placeholder",
			template: "[GENRE] story in a [GENRE] setting",
			vars:     map[string]any{"GENRE": "noir"},
			want:     "noir story in a noir setting",
		},
		{
			name:     "unbound placeholder kept verbatim",
			template: "Chapter [NUM] of [TITLE]",
			vars:     map[string]any{"NUM": 3},
			want:     "Chapter 3 of [TITLE]",
		},
		{
			name:     "string slice joined",
			template: "Themes: [THEMES]",
			vars:     map[string]any{"THEMES": []string{"loss", "memory"}},
			want:     "Themes: loss, memory",
		},
		{
			name:     "empty vars returns template",
			template: "keep [THIS] as is",
			vars:     nil,
			want:     "keep [THIS] as is",
		},
		{
			name:     "lowercase brackets are not placeholders",
			template: "array[i] stays",
			vars:     map[string]any{"I": "x"},
			want:     "array[i] stays",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.template, tt.vars); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnboundVars(t *testing.T) {
	template := "[TITLE] by [AUTHOR], chapter [NUM], again [TITLE]"
	got := UnboundVars(template, map[string]any{"NUM": 1})
	want := []string{"AUTHOR", "TITLE"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnboundVars() = %v, want %v", got, want)
	}

	if got := UnboundVars(template, map[string]any{"TITLE": "t", "AUTHOR": "a", "NUM": 1}); len(got) != 0 {
		t.Errorf("fully bound template should report none, got %v", got)
	}
}
