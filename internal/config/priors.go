package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/banditserve-backend/internal/algorithm"
)

// DefaultPriors is used when no priors file is configured and the
// model_parameters table is empty at boot.
var DefaultPriors = algorithm.Parameters{ProbabilityOfAction: 0.5}

// LoadPriors reads initial policy parameters from a YAML file. The file is
// consulted only when the parameter history is empty.
func LoadPriors(path string) (algorithm.Parameters, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return algorithm.Parameters{}, fmt.Errorf("failed to read priors file %q: %w", path, err)
	}
	var params algorithm.Parameters
	if err := yaml.Unmarshal(raw, &params); err != nil {
		return algorithm.Parameters{}, fmt.Errorf("failed to parse priors file %q: %w", path, err)
	}
	if params.ProbabilityOfAction <= 0 || params.ProbabilityOfAction >= 1 {
		return algorithm.Parameters{}, fmt.Errorf("priors file %q: probability_of_action must be in (0, 1), got %v", path, params.ProbabilityOfAction)
	}
	return params, nil
}
