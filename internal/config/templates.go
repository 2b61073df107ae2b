package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Tradefolio Configuration

[journal]
# Path to the SQLite journal database
# db_path = "~/.config/tradefolio/journal.db"
# Accounting method: "accrual" attributes P/L to entry dates (unrealized
# included), "cash" attributes realized P/L to exit dates
accounting_method = "accrual"
# Fallback portfolio size when no starting capital is configured
default_capital = 100000.0
# Window for batching rapid edits into one recalculation pass (ms)
debounce_millis = 250
# Reassign chronological trade numbers on every recalculation
renumber_on_recalc = true

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
# Currency symbol for money columns
currency = "$"

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
`

// WriteTemplate writes a commented starter config to the directory if no
// config file exists yet. It never overwrites an existing file.
func WriteTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
