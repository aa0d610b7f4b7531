package exam

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/rag/llm"
	"github.com/go-playground/validator/v10"
)

var ErrEmptyPlan = errors.New("exam plan has no exercises")

var planValidator = validator.New(validator.WithRequiredStructEnabled())

// PlanParseError is returned when the model's plan is not a valid exam plan.
// Raw holds the reply after fence stripping.
type PlanParseError struct {
	Raw string
	Err error
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("invalid exam plan: %v", e.Err)
}

func (e *PlanParseError) Unwrap() error {
	return e.Err
}

// ParsePlan decodes a model reply into an ExamPlan. Unknown fields and trailing data are rejected.
func ParsePlan(reply string) (*examModel.ExamPlan, error) {
	raw := llm.StripCodeFence(reply)

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var plan examModel.ExamPlan
	if err := dec.Decode(&plan); err != nil {
		return nil, &PlanParseError{Raw: raw, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &PlanParseError{Raw: raw, Err: errors.New("trailing data after plan object")}
	}
	if len(plan.Exercises) == 0 {
		return nil, &PlanParseError{Raw: raw, Err: ErrEmptyPlan}
	}
	if err := planValidator.Struct(plan); err != nil {
		return nil, &PlanParseError{Raw: raw, Err: err}
	}
	return &plan, nil
}
