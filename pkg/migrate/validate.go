package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upAnnotation   = "-- +goose Up"
	downAnnotation = "-- +goose Down"
)

// ValidateDir lints a migrations directory: file names, unique versions and
// goose annotations in Up-then-Down order. Every problem is reported, not
// just the first. DefaultDir validates the copy compiled into the binary.
func ValidateDir(dir string) error {
	fsys, err := migrationsFS(dir)
	if err != nil {
		return err
	}
	return validateFS(fsys)
}

func validateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var problems error
	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if first, dup := versions[m[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, m[1], first))
		} else {
			versions[m[1]] = name
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		problems = multierr.Append(problems, checkAnnotations(name, body))
	}
	return problems
}

func checkAnnotations(name string, body []byte) error {
	upLine, downLine := 0, 0
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for line := 1; scanner.Scan(); line++ {
		switch strings.TrimSpace(scanner.Text()) {
		case upAnnotation:
			if upLine == 0 {
				upLine = line
			}
		case downAnnotation:
			if downLine == 0 {
				downLine = line
			}
		}
	}
	switch {
	case upLine == 0:
		return fmt.Errorf("%s: missing %q", name, upAnnotation)
	case downLine == 0:
		return fmt.Errorf("%s: missing %q", name, downAnnotation)
	case downLine < upLine:
		return fmt.Errorf("%s: %q must come before %q", name, upAnnotation, downAnnotation)
	}
	return nil
}
