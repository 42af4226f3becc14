package repo

import (
	"bufio"
	"os"
	"strings"
)

// ParseEnvFile reads KEY=VALUE lines from an env-style file. Blank lines
// and # comments are skipped; malformed lines are ignored rather than
// treated as errors, matching how lenient the graded repos' templates are.
func ParseEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

// MissingVars returns the required variables absent from vars, preserving
// the required order.
func MissingVars(required []string, vars map[string]string) []string {
	missing := make([]string, 0)
	for _, name := range required {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
