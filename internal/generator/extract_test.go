package generator

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "prose around object",
			input: "Sure, here is the JSON:\n{\"a\": 1}\nLet me know if you need more.",
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "trailing comma in object",
			input: `{"a": 1,}`,
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "trailing comma in array",
			input: `{"a": [1, 2,]}`,
			want:  `{"a": [1, 2]}`,
			ok:    true,
		},
		{
			name:  "no object",
			input: "I could not produce any questions.",
			ok:    false,
		},
		{
			name:  "unclosed object",
			input: `{"a": 1`,
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Questions []struct {
			QuestionText string `json:"question_text"`
		} `json:"questions"`
	}
	input := `Response below.
{"questions": [{"question_text": "What is osmosis?"},]}`
	if !DecodeJSON(input, &out) {
		t.Fatal("DecodeJSON failed")
	}
	if len(out.Questions) != 1 || out.Questions[0].QuestionText != "What is osmosis?" {
		t.Errorf("decoded %+v", out)
	}
}
