package algorithm

import (
	"errors"

	"github.com/yungbote/banditserve-backend/internal/apierr"
)

const (
	flatProbStep = 0.01
	flatProbMin  = 0.2
	flatProbMax  = 0.8

	// Mean recorded temperature below this nudges the action probability
	// up; at or above it nudges down.
	flatProbTemperaturePivot = 30.0
)

// FlatProb is a flat-probability Bernoulli policy: every user gets action 1
// with the current probability_of_action regardless of state.
type FlatProb struct {
	sampler *Sampler
}

func NewFlatProb(sampler *Sampler) *FlatProb {
	return &FlatProb{sampler: sampler}
}

func (fp *FlatProb) MakeState(context map[string]any) (map[string]any, error) {
	if context == nil {
		return nil, apierr.Validation("context is required.")
	}
	temperature, ok := NumericField(context, "temperature")
	if !ok {
		return nil, apierr.Validation("Invalid context. Temperature is required.")
	}
	return map[string]any{"temperature": temperature}, nil
}

func (fp *FlatProb) GetAction(userID string, state map[string]any, params Parameters) (Decision, error) {
	outcome, snapshot, err := fp.sampler.Draw(params.ProbabilityOfAction)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Action:      outcome,
		ActionProb:  params.ProbabilityOfAction,
		RandomState: snapshot,
	}, nil
}

func (fp *FlatProb) MakeReward(userID string, state map[string]any, action int, outcome map[string]any) (float64, error) {
	if outcome == nil {
		return 0, apierr.Validation("outcome is required.")
	}
	clicks, ok := NumericField(outcome, "clicks")
	if !ok {
		return 0, apierr.Validation("Invalid outcome. Clicks is required.")
	}
	return clicks, nil
}

func (fp *FlatProb) Update(old Parameters, data Dataset) (Parameters, error) {
	if len(data.Temperatures) == 0 {
		return Parameters{}, apierr.Update(errors.New("no study data to update from"))
	}

	var sum float64
	for _, t := range data.Temperatures {
		sum += t
	}
	mean := sum / float64(len(data.Temperatures))

	p := old.ProbabilityOfAction
	if mean < flatProbTemperaturePivot {
		p += flatProbStep
	} else {
		p -= flatProbStep
	}
	if p < flatProbMin {
		p = flatProbMin
	}
	if p > flatProbMax {
		p = flatProbMax
	}
	return Parameters{ProbabilityOfAction: p}, nil
}
