package flow

import (
	"OrderFlow/entity"
	"sort"
)

// AnswerStore maps step indices to accepted answers.
// It holds no rules of its own; the controller decides what gets written.
type AnswerStore struct {
	entries map[int]entity.Answer
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{entries: make(map[int]entity.Answer)}
}

func (s *AnswerStore) Set(step int, answer entity.Answer) {
	s.entries[step] = answer
}

func (s *AnswerStore) Get(step int) (entity.Answer, bool) {
	a, ok := s.entries[step]
	return a, ok
}

func (s *AnswerStore) Has(step int) bool {
	_, ok := s.entries[step]
	return ok
}

// DeleteFrom removes every answer with an index >= step.
func (s *AnswerStore) DeleteFrom(step int) {
	kept := make(map[int]entity.Answer, len(s.entries))
	for k, v := range s.entries {
		if k < step {
			kept[k] = v
		}
	}
	s.entries = kept
}

func (s *AnswerStore) Len() int {
	return len(s.entries)
}

// Map returns a copy of the entries.
func (s *AnswerStore) Map() map[int]entity.Answer {
	out := make(map[int]entity.Answer, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Entries returns the answers ordered by step.
func (s *AnswerStore) Entries() []entity.StepAnswer {
	out := make([]entity.StepAnswer, 0, len(s.entries))
	for k, v := range s.entries {
		out = append(out, entity.StepAnswer{Step: k, Answer: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out
}

func answerStoreFrom(entries []entity.StepAnswer) *AnswerStore {
	s := NewAnswerStore()
	for _, e := range entries {
		s.Set(e.Step, e.Answer)
	}
	return s
}
