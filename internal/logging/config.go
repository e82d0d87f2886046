package logging

import (
	"fmt"
	"os"
	"strings"
)

const envVar = "LOGLEVEL"

func init() {
	if err := Configure(os.Getenv(envVar)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid %s: %v\n", envVar, err)
	}
}

// Configure applies comma-separated "tag=level" directives to the shared
// logger state. A directive without "tag=" sets the default level. Valid
// directives preceding an invalid one are still applied.
func Configure(directives string) error {
	for _, d := range strings.Split(directives, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		level, err := ParseLevel(v[len(v)-1])
		if err != nil {
			return fmt.Errorf("directive '%s': %v", d, err)
		}
		if len(v) == 1 {
			root.setDefault(level)
		} else {
			root.setTag(v[0], level)
		}
	}
	return nil
}

// SetLevel changes the default level for every logger without a tag override.
func SetLevel(level Level) {
	root.setDefault(level)
}
