package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Departments lists the fixed department folders created under the storage
// root at startup.
type Departments struct {
	Folders []string `yaml:"folders"`
}

// DefaultDepartments returns the built-in department set used when no
// departments file exists.
func DefaultDepartments() *Departments {
	return &Departments{Folders: []string{"Operation", "Research", "Training"}}
}

// LoadDepartments reads the department list from a YAML file. A missing file
// is not an error; the defaults are returned instead.
func LoadDepartments(path string) (*Departments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDepartments(), nil
		}
		return nil, fmt.Errorf("read departments file: %w", err)
	}

	var deps Departments
	if err := yaml.Unmarshal(data, &deps); err != nil {
		return nil, fmt.Errorf("parse departments file: %w", err)
	}
	if len(deps.Folders) == 0 {
		return DefaultDepartments(), nil
	}
	return &deps, nil
}
