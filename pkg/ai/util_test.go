package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type finding struct {
		Summary    string  `json:"summary"`
		Confidence float64 `json:"confidence,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  finding
	}{
		{
			name:  "valid json object",
			input: `{"summary":"single subject"}`,
			want:  finding{Summary: "single subject"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{summary: 'single subject'}`,
			want:  finding{Summary: "single subject"},
		},
		{
			name:  "trailing comma",
			input: `{"summary":"single subject",}`,
			want:  finding{Summary: "single subject"},
		},
		{
			name:  "missing endbracket",
			input: `{"summary":"single subject`,
			want:  finding{Summary: "single subject"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{summary: 'single subject'}"`,
			want:  finding{Summary: "single subject"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"summary\": \"single subject\"\n}\n",
			want:  finding{Summary: "single subject"},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "summary": "single subject" }`,
			want:  finding{Summary: "single subject"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got finding
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Summary != tc.want.Summary || got.Confidence != tc.want.Confidence {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type finding struct {
		Summary string `json:"summary"`
	}

	input := `[{summary:'A'},{summary:'B',}]`
	var got []finding
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Summary != "A" || got[1].Summary != "B" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two findings A,B", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type finding struct {
		Summary string `json:"summary"`
	}

	var got finding
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_NestedExamples(t *testing.T) {
	type report struct {
		Summary     string   `json:"summary"`
		KeyFindings []string `json:"key_findings"`
	}

	tests := []struct {
		name  string
		input string
		want  report
	}{
		{
			name:  "simple stringified",
			input: `"{ \"summary\": \"two linked subjects\", \"key_findings\": [ \"shared phone\", \"shared address\" ] }"`,
			want:  report{Summary: "two linked subjects", KeyFindings: []string{"shared phone", "shared address"}},
		},
		{
			name:  "stringified with newlines",
			input: `"{\n  \"summary\": \"two linked subjects\",\n  \"key_findings\": [\"shared phone\", \"shared address\", \"same employer (Acme Exports Pvt Ltd)\"]\n  }\n"`,
			want:  report{Summary: "two linked subjects", KeyFindings: []string{"shared phone", "shared address", "same employer (Acme Exports Pvt Ltd)"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got report
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Summary != tc.want.Summary {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
			if len(got.KeyFindings) != len(tc.want.KeyFindings) {
				t.Fatalf("UnmarshalFlexible() findings length got = %d, want %d", len(got.KeyFindings), len(tc.want.KeyFindings))
			}
			for i := range got.KeyFindings {
				if got.KeyFindings[i] != tc.want.KeyFindings[i] {
					t.Fatalf("UnmarshalFlexible() key_findings[%d] = %q, want %q", i, got.KeyFindings[i], tc.want.KeyFindings[i])
				}
			}
		})
	}
}
