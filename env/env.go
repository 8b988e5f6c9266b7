// Package env resolves command settings from cobra flags, the process
// environment and optional .env files.
package env

import (
	"bytes"
	"io"
	"log"
	"os"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type EnvLine struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// ParseEnvFile parses a .env file into lines sorted by key. A missing file
// yields no lines.
func ParseEnvFile(filename string) ([]EnvLine, error) {
	of, err := os.Open(filename)
	if os.IsNotExist(err) {
		return []EnvLine{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open env file %s", filename)
	}
	defer of.Close()
	envs, err := parse(of)
	if err != nil {
		return nil, errors.Wrapf(err, "parse env file %s", filename)
	}
	return envs, nil
}

// ParseEnvBuffer parses .env formatted bytes into lines sorted by key.
func ParseEnvBuffer(buf []byte) ([]EnvLine, error) {
	return parse(bytes.NewReader(buf))
}

func parse(r io.Reader) ([]EnvLine, error) {
	kv, err := godotenv.Parse(r)
	if err != nil {
		return nil, err
	}
	envs := make([]EnvLine, 0, len(kv))
	for k, v := range kv {
		envs = append(envs, EnvLine{Key: k, Val: v})
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Key < envs[j].Key })
	return envs, nil
}

// Apply sets each line in the process environment unless the variable is
// already set, so real environment values win over the file.
func Apply(envs []EnvLine) error {
	for _, el := range envs {
		if _, ok := os.LookupEnv(el.Key); ok {
			continue
		}
		if err := os.Setenv(el.Key, el.Val); err != nil {
			return errors.Wrapf(err, "set %s", el.Key)
		}
	}
	return nil
}

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok && val != "" {
		return val
	}
	return defaultValue
}

func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.EnvLogLevel, "info"), logger.LevelInfo)
}

// NewLogger returns a console logger by first checking the cobra.Command log-level flag, then use the
// CACHEKIT_LOG_LEVEL environment value and falling back to the info logger level
func NewLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	return logger.NewConsoleLogger(LogLevel(cmd))
}
