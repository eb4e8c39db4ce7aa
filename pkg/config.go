package pkg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ckml/pkg/model"
)

// LoadModelParameters reads decision tree parameters from a YAML file,
// starting from defaults.
func LoadModelParameters(fileName string, defaults model.Parameters) (model.Parameters, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return defaults, fmt.Errorf("error reading model parameters %s: %w", fileName, err)
	}
	p := defaults
	if err := yaml.Unmarshal(data, &p); err != nil {
		return defaults, fmt.Errorf("error decoding model parameters %s: %w", fileName, err)
	}
	return p, nil
}
