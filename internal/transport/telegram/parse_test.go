package telegram

import (
	"testing"

	"telequiz/internal/domain"
)

func TestParseAddQuiz(t *testing.T) {
	p, err := parseAddQuiz("Capital of France? | Paris | London | Berlin | Rome | 1 | geography")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Text != "Capital of France?" {
		t.Fatalf("unexpected text %q", p.Text)
	}
	if len(p.Options) != 4 || p.Options[0] != "Paris" || p.Options[3] != "Rome" {
		t.Fatalf("unexpected options %v", p.Options)
	}
	if p.CorrectIndex != 0 {
		t.Fatalf("expected zero-based index 0, got %d", p.CorrectIndex)
	}
	if p.Category != "geography" {
		t.Fatalf("unexpected category %q", p.Category)
	}
}

func TestParseAddQuizWithoutCategory(t *testing.T) {
	p, err := parseAddQuiz("2+2? | 3 | 4 | 5 | 6 | 2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.CorrectIndex != 1 || p.Category != "" {
		t.Fatalf("unexpected result %+v", p)
	}
}

func TestParseAddQuizRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"too | few | parts",
		"question | a | b | c | d | 0",
		"question | a | b | c | d | 5",
		"question | a | b | c | d | x",
		"question | a | b | c | d | 1 | cat | extra",
	}
	for _, in := range cases {
		if _, err := parseAddQuiz(in); err != domain.ErrInvalidFormat {
			t.Errorf("parseAddQuiz(%q): expected ErrInvalidFormat, got %v", in, err)
		}
	}
}

func TestParseDeleteArg(t *testing.T) {
	id, _, byPosition, err := parseDeleteArg("42")
	if err != nil || byPosition || id != 42 {
		t.Fatalf("id form: id=%d byPosition=%v err=%v", id, byPosition, err)
	}

	_, pos, byPosition, err := parseDeleteArg("#3")
	if err != nil || !byPosition || pos != 2 {
		t.Fatalf("position form: pos=%d byPosition=%v err=%v", pos, byPosition, err)
	}

	for _, in := range []string{"", "#0", "#x", "abc"} {
		if _, _, _, err := parseDeleteArg(in); err != domain.ErrInvalidFormat {
			t.Errorf("parseDeleteArg(%q): expected ErrInvalidFormat, got %v", in, err)
		}
	}
}
