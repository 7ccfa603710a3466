// Package parser turns pasted exam text into structured questions.
//
// Input is read line by line. A line starting with a 1–4 digit number followed
// by "." or ")" opens a question. A line starting with a letter A–D followed by
// ".", ")" or "-", or written as "(A)", adds an option to the open question.
// Any other line continues the prompt, or the most recently added option once
// the question has options. Lines before the first question are dropped.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/stemsi/exstem-practice/internal/model"
)

var (
	questionLine    = regexp.MustCompile(`^(\d{1,4})[.)]\s*(.+)`)
	optionLine      = regexp.MustCompile(`(?i)^([A-D])[.)\-]\s*(.+)`)
	parenOptionLine = regexp.MustCompile(`(?i)^\(([A-D])\)\s*(.+)`)
)

// Parse converts raw text into questions in source order. It never fails;
// text without numbered questions yields an empty slice.
func Parse(raw string) []model.Question {
	questions := []model.Question{}
	ids := newIDAllocator()

	var current *model.Question
	flush := func() {
		if current == nil {
			return
		}
		current.ID = ids.next(current.Number)
		current.Classify()
		questions = append(questions, *current)
		current = nil
	}

	for _, line := range normalize(raw) {
		if m := questionLine.FindStringSubmatch(line); m != nil {
			flush()
			// At most four digits, so Atoi cannot overflow.
			n, _ := strconv.Atoi(m[1])
			current = &model.Question{Number: n, Text: m[2]}
			continue
		}

		if current == nil {
			continue
		}

		if key, text, ok := matchOption(line); ok {
			current.Options.Set(key, text)
			continue
		}

		if !current.Options.AppendToLast(line) {
			current.Text += " " + line
		}
	}
	flush()

	return questions
}

// normalize strips carriage returns, trims every line and drops blank ones.
func normalize(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r", "")
	parts := strings.Split(raw, "\n")
	lines := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

func matchOption(line string) (key, text string, ok bool) {
	m := optionLine.FindStringSubmatch(line)
	if m == nil {
		m = parenOptionLine.FindStringSubmatch(line)
	}
	if m == nil {
		return "", "", false
	}
	return strings.ToUpper(m[1]), strings.TrimSpace(m[2]), true
}
