// internal/config/env.go - Environment overrides
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment variables recognised on top of the YAML file.
const (
	EnvSonarEndpoint        = "SONAR_ENDPOINT"
	EnvSonarToken           = "SONAR_TOKEN"
	EnvSonarCompanyID       = "SONAR_COMPANY_ID"
	EnvSonarAccountStatusID = "SONAR_ACCOUNT_STATUS_ID"
	EnvPort                 = "PORT"
	EnvSuppressionsPath     = "SUPPRESSIONS_PATH"
	EnvLogLevel             = "LOG_LEVEL"
)

// loadEnvFiles loads dotenv files into the process environment. Variables
// already set are left alone and missing files are skipped.
func loadEnvFiles(files ...string) error {
	for _, file := range files {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			logrus.WithField("file", file).Debug("Env file not found, skipping")
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
		logrus.WithField("file", file).Debug("Loaded env file")
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	if v, ok := nonEmpty(lookup, EnvSonarEndpoint); ok {
		cfg.Sonar.Endpoint = v
	}
	if v, ok := nonEmpty(lookup, EnvSonarToken); ok {
		cfg.Sonar.Token = v
	}

	if v, ok := nonEmpty(lookup, EnvSonarCompanyID); ok {
		id, err := parseID(EnvSonarCompanyID, v)
		if err != nil {
			return err
		}
		cfg.Sonar.CompanyID = &id
	}
	if v, ok := nonEmpty(lookup, EnvSonarAccountStatusID); ok {
		id, err := parseID(EnvSonarAccountStatusID, v)
		if err != nil {
			return err
		}
		cfg.Sonar.AccountStatusID = &id
	}

	if v, ok := nonEmpty(lookup, EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: EnvPort, Msg: fmt.Sprintf("must be an integer, got %q", v)}
		}
		cfg.Server.Port = port
	}

	if v, ok := nonEmpty(lookup, EnvSuppressionsPath); ok {
		cfg.Database.Path = v
	}
	if v, ok := nonEmpty(lookup, EnvLogLevel); ok {
		cfg.Logging.Level = v
	}

	return nil
}

func nonEmpty(lookup lookupFunc, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func parseID(field, v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &ConfigError{Field: field, Msg: fmt.Sprintf("must be an integer, got %q", v)}
	}
	return id, nil
}
