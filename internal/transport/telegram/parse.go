package telegram

import (
	"strconv"
	"strings"

	"telequiz/internal/domain"
)

// parsedQuestion is the outcome of parsing an /addquiz argument string.
type parsedQuestion struct {
	Text         string
	Options      []string
	CorrectIndex int
	Category     string
}

// parseAddQuiz parses the pipe-separated add format:
//
//	question | option1 | option2 | option3 | option4 | correct(1-4) [| category]
//
// The correct answer is 1-based on the wire and zero-based internally.
func parseAddQuiz(args string) (parsedQuestion, error) {
	parts := strings.Split(args, "|")
	if len(parts) < domain.OptionCount+2 || len(parts) > domain.OptionCount+3 {
		return parsedQuestion{}, domain.ErrInvalidFormat
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	correct, err := strconv.Atoi(parts[domain.OptionCount+1])
	if err != nil || correct < 1 || correct > domain.OptionCount {
		return parsedQuestion{}, domain.ErrInvalidFormat
	}

	p := parsedQuestion{
		Text:         parts[0],
		Options:      parts[1 : domain.OptionCount+1],
		CorrectIndex: correct - 1,
	}
	if len(parts) == domain.OptionCount+3 {
		p.Category = parts[domain.OptionCount+2]
	}
	return p, nil
}

// parseDeleteArg distinguishes id-based deletes from positional ones: a
// leading '#' addresses the 1-based position in /listquiz output, anything
// else is a question id.
func parseDeleteArg(arg string) (id int64, position int, byPosition bool, err error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "#") {
		pos, convErr := strconv.Atoi(strings.TrimPrefix(arg, "#"))
		if convErr != nil || pos < 1 {
			return 0, 0, false, domain.ErrInvalidFormat
		}
		return 0, pos - 1, true, nil
	}
	id, convErr := strconv.ParseInt(arg, 10, 64)
	if convErr != nil {
		return 0, 0, false, domain.ErrInvalidFormat
	}
	return id, 0, false, nil
}
