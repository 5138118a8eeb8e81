package secrets

import (
	"fmt"
	"os"
	"strings"
)

// EnvLoader reads each key from the environment. When KEY is unset and
// KEY_FILE names a file, the trimmed file contents are used instead, so a
// rotated mounted secret is picked up on Reload. Unset keys are omitted.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
				continue
			}
			path := os.Getenv(k + "_FILE")
			if path == "" {
				continue
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s_FILE: %w", k, err)
			}
			if v := strings.TrimSpace(string(b)); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}
