package grading

import (
	"context"
	"errors"
)

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type      string
	Points    float64
	AnswerKey []string
}

// Result is the outcome of grading a single question response.
type Result struct {
	AutoPoints float64 // points awarded
	MaxPoints  float64 // the question's max points
	Correct    bool
	Feedback   []string
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

var ErrNoStrategy = errors.New("grading: no strategy for question type")

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response interface{}) (Result, error) {
	typ := q.Type
	if typ == "" {
		typ = TypeMCQSingle
	}
	s, ok := g.strategies[typ]
	if !ok {
		return Result{MaxPoints: q.Points, Feedback: []string{"no strategy available"}}, ErrNoStrategy
	}
	return s.Grade(ctx, q, response)
}

const (
	TypeMCQSingle = "mcq_single"
	TypeTrueFalse = "true_false"
)

// Engine options

type Option func(*config)

type config struct {
	extra map[string]Strategy
}

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(typ string, s Strategy) Option {
	return func(c *config) { c.extra[typ] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{extra: map[string]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	g := &defaultGrader{
		strategies: map[string]Strategy{
			TypeMCQSingle: tokenStrategy{},
			TypeTrueFalse: tokenStrategy{},
		},
	}
	for k, s := range cfg.extra {
		g.strategies[k] = s
	}
	return g
}

// --- Strategies ---

// tokenStrategy matches a single answer token (a letter or an option key)
// against the key, ignoring case and surrounding whitespace.
type tokenStrategy struct{}

func (tokenStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	var resp string
	switch v := response.(type) {
	case nil:
		return res, nil
	case string:
		resp = v
	case *string:
		if v == nil {
			return res, nil
		}
		resp = *v
	default:
		return res, errors.New("response must be string")
	}
	for _, k := range q.AnswerKey {
		if TokensEqual(resp, k) {
			res.AutoPoints = q.Points
			res.Correct = true
			return res, nil
		}
	}
	return res, nil
}
