package shell

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// DotenvFile is read from the working directory when dotenv loading is on.
const DotenvFile = ".env"

func readDotenv(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, nil
	}
	values, err := godotenv.Read(filepath.Join(dir, DotenvFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return values, nil
}

// mergeEnv layers base, the dotenv values, then each KEY=VALUE override list
// in order. Later layers win. Entries without "=" are ignored.
func mergeEnv(base []string, dotenv map[string]string, overrides ...[]string) []string {
	values := make(map[string]string, len(base)+len(dotenv))
	set := func(entries []string) {
		for _, entry := range entries {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || key == "" {
				continue
			}
			values[key] = value
		}
	}
	set(base)
	for key, value := range dotenv {
		values[key] = value
	}
	for _, layer := range overrides {
		set(layer)
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+values[key])
	}
	return out
}
