// Package prompttest provides a scripted Prompter for tests.
package prompttest

import (
	"context"
	"fmt"
	"sync"
)

// Answer is one scripted response. Select answers use Choice, Confirm
// answers use Yes. Cancel answers either kind with a cancellation.
type Answer struct {
	Choice int
	Yes    bool
	Cancel bool
}

// Choose answers a Select with the given index.
func Choose(i int) Answer { return Answer{Choice: i} }

// Yes answers a Confirm with yes.
func Yes() Answer { return Answer{Yes: true} }

// No answers a Confirm with no.
func No() Answer { return Answer{} }

// Cancel cancels the prompt.
func Cancel() Answer { return Answer{Cancel: true} }

// Call records a prompt that was asked.
type Call struct {
	Message string
	Choices []string
}

// Scripted replays answers in order. Running out of answers is an error so
// tests notice unexpected prompts.
type Scripted struct {
	mu      sync.Mutex
	answers []Answer
	Calls   []Call
}

// New creates a prompter that replays answers.
func New(answers ...Answer) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) next(message string, choices []string) (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, Call{Message: message, Choices: choices})
	if len(s.answers) == 0 {
		return Answer{}, fmt.Errorf("unexpected prompt: %s", message)
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *Scripted) Select(ctx context.Context, message string, choices []string) (int, bool, error) {
	a, err := s.next(message, choices)
	if err != nil || a.Cancel {
		return 0, false, err
	}
	return a.Choice, true, nil
}

func (s *Scripted) Confirm(ctx context.Context, message string) (bool, error) {
	a, err := s.next(message, nil)
	if err != nil || a.Cancel {
		return false, err
	}
	return a.Yes, nil
}

// Remaining returns the number of unused answers.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
