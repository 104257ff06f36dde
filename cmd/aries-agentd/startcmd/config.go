/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// settings resolves a parameter from its flag, then its environment variable, then the config file.
type settings struct {
	cmd  *cobra.Command
	file map[string]interface{}
}

func newSettings(cmd *cobra.Command) (*settings, error) {
	s := &settings{cmd: cmd}

	path, err := s.get(configFileFlagName, configFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return s, nil
	}

	s.file, err = readConfigFile(path)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// readConfigFile reads a YAML document whose keys are flag names.
func readConfigFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	values := map[string]interface{}{}

	if err = yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return values, nil
}

func (s *settings) get(flagName, envKey string, isOptional bool) (string, error) {
	if s.cmd.Flags().Changed(flagName) {
		value, err := s.cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	if value, isSet := os.LookupEnv(envKey); isSet {
		return value, nil
	}

	if value, ok := s.file[flagName]; ok {
		if _, isList := value.([]interface{}); isList {
			return "", fmt.Errorf("config file value of %s must not be a list", flagName)
		}

		return fmt.Sprint(value), nil
	}

	if isOptional {
		return "", nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func (s *settings) getAll(flagName, envKey string, isOptional bool) ([]string, error) {
	if s.cmd.Flags().Changed(flagName) {
		value, err := s.cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	if value, isSet := os.LookupEnv(envKey); isSet {
		if value == "" {
			return nil, nil
		}

		return strings.Split(value, ","), nil
	}

	if value, ok := s.file[flagName]; ok {
		return configValues(value), nil
	}

	if isOptional {
		return nil, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func configValues(value interface{}) []string {
	list, ok := value.([]interface{})
	if !ok {
		return strings.Split(fmt.Sprint(value), ",")
	}

	values := make([]string, 0, len(list))

	for _, v := range list {
		values = append(values, fmt.Sprint(v))
	}

	return values
}
