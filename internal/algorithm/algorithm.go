package algorithm

// Parameters is the tunable policy configuration. A snapshot of it is
// appended to the model_parameters table on every successful refit.
type Parameters struct {
	ProbabilityOfAction float64 `json:"probability_of_action" yaml:"probability_of_action"`
}

// Dataset is the full aggregated history handed to Update: one temperature
// and one reward per recorded outcome.
type Dataset struct {
	Temperatures []float64
	Rewards      []float64
}

// Decision is the result of one action selection. RandomState is the
// sampler's serialized internal state captured before the draw.
type Decision struct {
	Action      int
	ActionProb  float64
	RandomState []byte
}

// Algorithm is the pluggable policy contract. Concrete variants are chosen
// at process startup; callers only ever see this interface.
type Algorithm interface {
	// MakeState maps a raw request context into the algorithm's state
	// representation, rejecting missing or mistyped fields.
	MakeState(context map[string]any) (map[string]any, error)
	// GetAction draws an action for the user under the given parameters.
	GetAction(userID string, state map[string]any, params Parameters) (Decision, error)
	// MakeReward maps a raw outcome into a scalar reward.
	MakeReward(userID string, state map[string]any, action int, outcome map[string]any) (float64, error)
	// Update is a pure function from the current parameters and the full
	// aggregated dataset to new parameters.
	Update(old Parameters, data Dataset) (Parameters, error)
}

// NumericField pulls a float out of a decoded JSON object, accepting the
// numeric shapes encoding/json can produce.
func NumericField(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
