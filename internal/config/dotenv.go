package config

import (
	"bufio"
	"errors"
	"os"
	"strings"
)

// LoadDotEnv applies KEY=VALUE lines from the given files to the process
// environment. Missing files are skipped; variables already set in the
// environment always win over file values.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			applyDotEnvLine(scanner.Text())
		}
		scanErr := scanner.Err()
		file.Close()
		if scanErr != nil {
			return scanErr
		}
	}
	return nil
}

func applyDotEnvLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	if _, exists := os.LookupEnv(key); exists {
		return
	}
	_ = os.Setenv(key, unquoteDotEnvValue(value))
}

func unquoteDotEnvValue(raw string) string {
	value := strings.TrimSpace(raw)
	if len(value) >= 2 {
		switch quote := value[0]; quote {
		case '"':
			if value[len(value)-1] == quote {
				return strings.NewReplacer(
					`\\`, `\`,
					`\n`, "\n",
					`\r`, "\r",
					`\t`, "\t",
					`\"`, `"`,
				).Replace(value[1 : len(value)-1])
			}
		case '\'':
			if value[len(value)-1] == quote {
				return value[1 : len(value)-1]
			}
		}
	}

	// Unquoted values may carry a trailing inline comment: VALUE # note
	if index := strings.Index(value, " #"); index >= 0 {
		return strings.TrimSpace(value[:index])
	}
	return value
}
