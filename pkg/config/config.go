// Package config holds compiler-wide options: a flat struct of resolved
// settings plus a name-keyed toggle table for -W/-Wno- flags, keyed on
// this compiler's own diagnostic categories (pkg/diag.Kind).
package config

import (
	"fmt"
	"strings"

	"github.com/decafc/decafc/pkg/cli"
	"github.com/decafc/decafc/pkg/diag"
)

// DefaultRegisters is the general-purpose register pool size
// pkg/regalloc uses absent a -registers override: 4 colors, of which
// color 0 is reserved for memory-resident values, leaving 3 usable.
const DefaultRegisters = 4

// WordSize is the target machine word size in bytes; fixed at 4
// regardless of -target, since every supported target is 32-bit-word
// addressed at the TAC level.
const WordSize = 4

type WarningInfo struct {
	Name    string
	Enabled bool
}

// Config is threaded from pkg/cli's flag parsing into cmd/decafc.
type Config struct {
	Registers int
	QbeTarget string
	DumpAST   bool
	DumpTAC   bool
	Verbose   bool

	Warnings   map[diag.Kind]*WarningInfo
	warningMap map[string]diag.Kind
}

func New() *Config {
	c := &Config{
		Registers:  DefaultRegisters,
		Warnings:   make(map[diag.Kind]*WarningInfo),
		warningMap: make(map[string]diag.Kind),
	}
	for kind, name := range diag.KindNames {
		c.Warnings[kind] = &WarningInfo{Name: name, Enabled: true}
		c.warningMap[name] = kind
	}
	return c
}

// ApplyFlag implements one -W<name>/-Wno-<name>/-Wall/-Wno-all toggle,
// in the Config.applyFlag style.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-W")
	if trimmed == flag {
		return fmt.Errorf("config: not a -W flag: %q", flag)
	}
	enable := true
	if strings.HasPrefix(trimmed, "no-") {
		enable = false
		trimmed = strings.TrimPrefix(trimmed, "no-")
	}
	if trimmed == "all" {
		for _, w := range c.Warnings {
			w.Enabled = enable
		}
		return nil
	}
	kind, ok := c.warningMap[trimmed]
	if !ok {
		return fmt.Errorf("config: unrecognized diagnostic category %q", trimmed)
	}
	c.Warnings[kind].Enabled = enable
	return nil
}

// IsEnabled reports whether kind should still be reported, consulted by
// the diag.FilteringReporter cmd/decafc installs around its StreamReporter.
func (c *Config) IsEnabled(kind diag.Kind) bool {
	if w, ok := c.Warnings[kind]; ok {
		return w.Enabled
	}
	return true
}

// SetupFlagGroups registers one -W<name>/-Wno-<name> pair per diagnostic
// category on fs and returns the entries so the caller can read back
// which ones fired after fs.Parse and route them through ApplyFlag.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) []cli.FlagGroupEntry {
	names := c.SortedWarningNames()
	entries := make([]cli.FlagGroupEntry, len(names))
	for i, name := range names {
		enabled := false
		disabled := false
		entries[i] = cli.FlagGroupEntry{
			Name:     name,
			Prefix:   "W",
			Usage:    "Report the '" + name + "' diagnostic category",
			Enabled:  &enabled,
			Disabled: &disabled,
		}
	}
	fs.AddFlagGroup("Diagnostics", "Toggle individual diagnostic categories", "diagnostic", "Available diagnostics", entries)
	return entries
}

// ApplyFlagGroups reads back the -W<name>/-Wno-<name> booleans
// SetupFlagGroups bound and applies whichever ones the user actually
// passed. Bare -Wall/-Wno-all are not among the entries and are left to
// the caller.
func (c *Config) ApplyFlagGroups(entries []cli.FlagGroupEntry) {
	for _, e := range entries {
		if e.Enabled != nil && *e.Enabled {
			c.ApplyFlag("-W" + e.Name)
		}
		if e.Disabled != nil && *e.Disabled {
			c.ApplyFlag("-Wno-" + e.Name)
		}
	}
}

// SortedWarningNames returns every diagnostic category name in a fixed
// order, for -Wno-<name> tab-complete/help text.
func (c *Config) SortedWarningNames() []string {
	names := make([]string, 0, len(c.warningMap))
	for name := range c.warningMap {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
