package grading

import (
	"context"
	"math"
)

// DefaultScale is the 10-point scale results are normalized to.
const DefaultScale = 10.0

// KeyItem is one entry of an exam's authoritative scoring key.
// Known is false when the exam links a question the question store no
// longer has; such items are always graded incorrect.
type KeyItem struct {
	QuestionID    int64
	Type          string
	CorrectAnswer string
	Points        float64
	Known         bool
}

// Response is one submitted (question id, token) pair. A nil Answer means
// the question was skipped.
type Response struct {
	QuestionID int64
	Answer     *string
}

// Graded is the grading outcome of one accepted response.
type Graded struct {
	QuestionID int64
	Answer     *string
	Correct    bool
	Points     float64
	Earned     float64
}

// Outcome aggregates a graded submission.
type Outcome struct {
	Items    []Graded // one per accepted response, in key order
	Earned   float64
	Possible float64
	Score    float64
	Correct  int
	Total    int // number of questions in the key
}

// Score grades responses against key and normalizes the earned points to
// scale. Responses for question ids outside key are dropped. When a
// question id appears more than once the last response wins. An empty key
// yields a zero score.
func Score(ctx context.Context, g Grader, key []KeyItem, responses []Response, scale float64) Outcome {
	if scale <= 0 {
		scale = DefaultScale
	}
	out := Outcome{Total: len(key)}

	latest := make(map[int64]Response, len(responses))
	for _, r := range responses {
		latest[r.QuestionID] = r
	}

	for _, k := range key {
		pts := pointValue(k.Points)
		out.Possible += pts

		r, ok := latest[k.QuestionID]
		if !ok {
			continue
		}
		item := Graded{QuestionID: k.QuestionID, Answer: r.Answer, Points: pts}
		if k.Known && r.Answer != nil {
			res, err := g.Grade(ctx, Q{Type: k.Type, Points: pts, AnswerKey: []string{k.CorrectAnswer}}, *r.Answer)
			if err == nil && res.Correct {
				item.Correct = true
				item.Earned = res.AutoPoints
			}
		}
		if item.Correct {
			out.Correct++
			out.Earned += item.Earned
		}
		out.Items = append(out.Items, item)
	}

	if out.Possible > 0 {
		out.Score = round2(out.Earned / out.Possible * scale)
	}
	return out
}

// pointValue applies the default weight of 1.0 to unweighted questions.
func pointValue(p float64) float64 {
	if p <= 0 {
		return 1.0
	}
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
