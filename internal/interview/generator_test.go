package interview

import (
	"strings"
	"testing"

	"interviewgo/internal/config"
)

func TestDecodeModelJSON(t *testing.T) {
	type payload struct {
		FirstQuestion  string `json:"first_question"`
		ShouldContinue bool   `json:"should_continue"`
	}

	cases := []struct {
		name    string
		content string
		want    payload
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"first_question":"Tell me about yourself.","should_continue":true}`,
			want:    payload{FirstQuestion: "Tell me about yourself.", ShouldContinue: true},
		},
		{
			name: "json fence",
			content: "```json\n" +
				`{"first_question":"Why this role?","should_continue":true}` +
				"\n```",
			want: payload{FirstQuestion: "Why this role?", ShouldContinue: true},
		},
		{
			name: "bare fence",
			content: "```\n" +
				`{"first_question":"Why this role?"}` +
				"\n```",
			want: payload{FirstQuestion: "Why this role?"},
		},
		{
			name:    "surrounding prose",
			content: `Sure, here is the result: {"first_question":"What is a goroutine?"} Hope that helps!`,
			want:    payload{FirstQuestion: "What is a goroutine?"},
		},
		{
			name:    "nested braces",
			content: `{"first_question":"Explain {} literals.","should_continue":false}`,
			want:    payload{FirstQuestion: "Explain {} literals."},
		},
		{
			name:    "no object",
			content: "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "malformed object",
			content: `{"first_question": "unterminated`,
			wantErr: true,
		},
		{
			name:    "empty",
			content: "   ",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got payload
			err := decodeModelJSON(tc.content, &got)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNewGeneratorInvalidProvider(t *testing.T) {
	_, err := NewGenerator("watson", "model-x", "token", config.ProviderConfig{})
	if err == nil || !strings.Contains(err.Error(), "invalid provider") {
		t.Fatalf("expected invalid provider error, got %v", err)
	}
}
