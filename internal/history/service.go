package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTitle rejects a manual history entry without a title.
var ErrEmptyTitle = errors.New("history entry title required")

// titleCap bounds the title derived from a colon-less line.
const titleCap = 100

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Import parses a plain-text history document and stores one entry per
// non-empty line. Lines of the form "Title: details" split at the first
// colon; lines without a colon use the whole line for both fields.
func (s *Service) Import(ctx context.Context, patientID, content string) (int, error) {
	entries := Parse(patientID, content)
	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.repo.InsertAll(ctx, entries); err != nil {
		return 0, fmt.Errorf("import history: %w", err)
	}
	return len(entries), nil
}

// Add saves a single history entry. A blank details field repeats the
// title, mirroring how Parse treats colon-less lines.
func (s *Service) Add(ctx context.Context, patientID, title, details string) (*Entry, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	details = strings.TrimSpace(details)
	if details == "" {
		details = title
	}

	e := Entry{PatientID: patientID, Title: title, Details: details}
	if err := s.repo.InsertAll(ctx, []Entry{e}); err != nil {
		return nil, fmt.Errorf("save history entry: %w", err)
	}
	return &e, nil
}

func (s *Service) List(ctx context.Context, patientID string) ([]Entry, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Parse splits a history document into entries without persisting them.
func Parse(patientID, content string) []Entry {
	var entries []Entry
	for _, rawLine := range strings.FieldsFunc(content, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		var title, details string
		if colon := strings.Index(line, ":"); colon >= 0 {
			title = strings.TrimSpace(line[:colon])
			details = strings.TrimSpace(line[colon+1:])
		} else {
			title = line
			if len(title) > titleCap {
				title = title[:titleCap]
			}
			details = line
		}

		entries = append(entries, Entry{
			PatientID: patientID,
			Title:     title,
			Details:   details,
		})
	}
	return entries
}
