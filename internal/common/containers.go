package common

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type ContainerConfig struct {
	ID         string `yaml:"id"`
	Location   string `yaml:"location"`
	CapacityKG uint64 `yaml:"capacity_kg"`
}

type FleetConfig struct {
	Containers []ContainerConfig `yaml:"containers"`
}

func LoadFleetConfig(containersFile string) ([]ContainerConfig, error) {
	var containersPath string
	if filepath.IsAbs(containersFile) {
		containersPath = containersFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		containersPath = filepath.Join(wd, containersFile)
	}

	data, err := os.ReadFile(containersPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", containersFile, err)
	}

	var config FleetConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", containersFile, err)
	}

	for i, container := range config.Containers {
		if container.ID == "" {
			return nil, fmt.Errorf("container at index %d missing id", i)
		}
		if container.Location == "" {
			return nil, fmt.Errorf("container at index %d missing location", i)
		}
		if container.CapacityKG == 0 {
			return nil, fmt.Errorf("container %s has zero capacity", container.ID)
		}
	}

	return config.Containers, nil
}
