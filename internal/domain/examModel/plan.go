package examModel

import (
	"sort"
	"strconv"
)

type Exercise struct {
	Topic           string   `json:"topic" validate:"required"`
	Grade           string   `json:"grade" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	GeneralQuestion string   `json:"general_question" validate:"required"`
	Subquestions    []string `json:"subquestions" validate:"required"`
}

// ExamPlan maps ordinal keys ("1", "2", ...) to exercises.
type ExamPlan struct {
	Exercises map[string]Exercise `json:"exercises" validate:"required,min=1,dive"`
}

// OrderedKeys returns numeric keys in numeric order followed by any other keys sorted lexically.
func (p ExamPlan) OrderedKeys() []string {
	keys := make([]string, 0, len(p.Exercises))
	for k := range p.Exercises {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

type Clarification struct {
	Needed bool   `json:"clarification_needed"`
	Text   string `json:"clarification"`
}
