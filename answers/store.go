package answers

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Separator joins repeated answers to the same question.
const Separator = "; "

// ErrEmptyQuestion is returned when a question is blank.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Entry is one stored question and its accumulated answer.
type Entry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps question/answer pairs gathered during a conversation.
// Answering a question again appends to its answer.
type Store interface {
	// Append stores answer under question and returns the number of
	// distinct questions stored.
	Append(ctx context.Context, question, answer string) (int, error)
	// All returns entries in the order questions were first stored.
	All(ctx context.Context) ([]Entry, error)
	// Reset removes every entry.
	Reset(ctx context.Context) error
}

func normalize(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", ErrEmptyQuestion
	}
	return q, nil
}

func merge(existing, answer string) string {
	if existing == "" {
		return answer
	}
	return existing + Separator + answer
}
