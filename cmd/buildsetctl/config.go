package main

import (
	"io/ioutil"

	"gopkg.in/yaml.v3"
)

// builderConfig describes one simulated builder and the prerequisites it
// must wait on, read from the -config YAML file. It is the CLI's stand-in
// for whatever a real master's builder configuration and dependency
// declarations look like.
type builderConfig struct {
	Name      string   `yaml:"name"`
	Workers   int      `yaml:"workers"`
	DependsOn []string `yaml:"depends_on"`
	Fail      bool     `yaml:"fail"` // simulate this builder always failing, for demos
}

type config struct {
	Builders []builderConfig `yaml:"builders"`
}

func loadConfig(path string) (*config, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// dependencyMap returns the config's depends_on relation keyed by builder
// name, suitable for buildset.BuildSet.StartOrdered.
func (c *config) dependencyMap() map[string][]string {
	dep := make(map[string][]string, len(c.Builders))
	for _, b := range c.Builders {
		dep[b.Name] = append([]string(nil), b.DependsOn...)
	}
	return dep
}

// ordered reports whether any builder declares a prerequisite, i.e. whether
// the set should run in StartOrdered rather than StartSimultaneous mode.
func (c *config) ordered() bool {
	for _, b := range c.Builders {
		if len(b.DependsOn) > 0 {
			return true
		}
	}
	return false
}
