package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"modpanel/cli/panel"
)

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseArgs turns repeated key=value flags into a map. Later keys win.
func parseArgs(pairs []string) (map[string]string, error) {
	args := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		args[strings.TrimSpace(k)] = v
	}
	return args, nil
}

func parseTab(s string) (panel.Tab, error) {
	for t := panel.TabExecute; t <= panel.TabLogin; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tab %q", s)
}
