// Package schedule holds the static Joyland schedule table: the event
// alphabet, which events are special, and the four 13-step schedules.
// Tables are configuration, so renaming an event never touches the engine.
package schedule

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// NumSchedules is the number of schedule variants in one cycle.
	NumSchedules = 4
	// Length is the number of events in every schedule.
	Length = 13
	// NumSpecials is the number of symbols that trigger alerts.
	NumSpecials = 2
)

// ErrInvalidTable is returned when a schedule table has the wrong shape.
var ErrInvalidTable = errors.New("invalid schedule table")

//go:embed default.yaml
var defaultYAML []byte

// Symbol identifies one observable event, e.g. "T".
type Symbol string

// Alert is the warning shown when a special symbol is next.
type Alert struct {
	Kind    string `yaml:"kind"`
	Message string `yaml:"message"`
}

// SymbolDef describes one symbol of the alphabet.
type SymbolDef struct {
	ID      Symbol `yaml:"id"`
	Name    string `yaml:"name"`
	Special bool   `yaml:"special,omitempty"`
	Alert   *Alert `yaml:"alert,omitempty"`
}

type rawTable struct {
	Version   string      `yaml:"version"`
	Filler    Symbol      `yaml:"filler"`
	Banner    string      `yaml:"banner"`
	Symbols   []SymbolDef `yaml:"symbols"`
	Schedules [][]Symbol  `yaml:"schedules"`
}

// Table is an immutable, validated schedule table.
type Table struct {
	version   string
	filler    Symbol
	banner    string
	symbols   []SymbolDef
	index     map[Symbol]int
	schedules [NumSchedules][Length]Symbol
}

// Default returns the built-in Joyland table.
func Default() *Table {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in schedule table: %v", err))
	}
	return t
}

// Load reads a table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read schedule table at %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a YAML table. Only the shape is checked:
// the content of the schedules is taken as given.
func Parse(data []byte) (*Table, error) {
	var raw rawTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return build(raw)
}

// New builds a table from Go values. Used for alternate tables in tests and
// for tables assembled by callers.
func New(symbols []SymbolDef, filler Symbol, schedules [NumSchedules][Length]Symbol) (*Table, error) {
	raw := rawTable{Version: "custom", Filler: filler, Symbols: symbols}
	for _, s := range schedules {
		raw.Schedules = append(raw.Schedules, append([]Symbol(nil), s[:]...))
	}
	return build(raw)
}

func build(raw rawTable) (*Table, error) {
	t := &Table{
		version: raw.Version,
		filler:  raw.Filler,
		banner:  raw.Banner,
		index:   make(map[Symbol]int, len(raw.Symbols)),
	}
	specials := 0
	for i, def := range raw.Symbols {
		if def.ID == "" {
			return nil, fmt.Errorf("%w: symbol %d has no id", ErrInvalidTable, i+1)
		}
		if _, dup := t.index[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidTable, def.ID)
		}
		if def.Name == "" {
			def.Name = string(def.ID)
		}
		if def.Special {
			specials++
			if def.Alert == nil {
				def.Alert = &Alert{Kind: strings.ToLower(string(def.ID)), Message: def.Name + " is next"}
			}
		}
		t.index[def.ID] = i
		t.symbols = append(t.symbols, def)
	}
	if specials != NumSpecials {
		return nil, fmt.Errorf("%w: want %d special symbols, got %d", ErrInvalidTable, NumSpecials, specials)
	}
	if _, ok := t.index[t.filler]; !ok {
		return nil, fmt.Errorf("%w: filler %q is not a declared symbol", ErrInvalidTable, t.filler)
	}
	if len(raw.Schedules) != NumSchedules {
		return nil, fmt.Errorf("%w: want %d schedules, got %d", ErrInvalidTable, NumSchedules, len(raw.Schedules))
	}
	for i, moves := range raw.Schedules {
		if len(moves) != Length {
			return nil, fmt.Errorf("%w: schedule %d has %d moves, want %d", ErrInvalidTable, i+1, len(moves), Length)
		}
		for j, sym := range moves {
			if _, ok := t.index[sym]; !ok {
				return nil, fmt.Errorf("%w: schedule %d move %d: unknown symbol %q", ErrInvalidTable, i+1, j+1, sym)
			}
			t.schedules[i][j] = sym
		}
	}
	return t, nil
}

// Version returns the table's declared version string.
func (t *Table) Version() string { return t.version }

// Filler returns the designated filler symbol.
func (t *Table) Filler() Symbol { return t.filler }

// Banner returns the branch-warning banner text.
func (t *Table) Banner() string { return t.banner }

// Symbols returns the alphabet in declaration order.
func (t *Table) Symbols() []SymbolDef {
	return append([]SymbolDef(nil), t.symbols...)
}

// Specials returns the special symbols in declaration order.
func (t *Table) Specials() []Symbol {
	var out []Symbol
	for _, def := range t.symbols {
		if def.Special {
			out = append(out, def.ID)
		}
	}
	return out
}

// Has reports whether sym is part of the alphabet.
func (t *Table) Has(sym Symbol) bool {
	_, ok := t.index[sym]
	return ok
}

// Def returns the definition of sym.
func (t *Table) Def(sym Symbol) (SymbolDef, bool) {
	i, ok := t.index[sym]
	if !ok {
		return SymbolDef{}, false
	}
	return t.symbols[i], true
}

// Name returns the display name of sym, or sym itself when unknown.
func (t *Table) Name(sym Symbol) string {
	if def, ok := t.Def(sym); ok {
		return def.Name
	}
	return string(sym)
}

// IsSpecial reports whether sym triggers an alert.
func (t *Table) IsSpecial(sym Symbol) bool {
	def, ok := t.Def(sym)
	return ok && def.Special
}

// Alert returns the alert for a special symbol.
func (t *Table) Alert(sym Symbol) (Alert, bool) {
	def, ok := t.Def(sym)
	if !ok || !def.Special {
		return Alert{}, false
	}
	return *def.Alert, true
}

// Lookup resolves user input to a symbol by id or name, ignoring case.
func (t *Table) Lookup(token string) (Symbol, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	for _, def := range t.symbols {
		if strings.EqualFold(string(def.ID), token) || strings.EqualFold(def.Name, token) {
			return def.ID, true
		}
	}
	return "", false
}

// At returns the symbol at a 1-based position of a 1-based schedule id.
func (t *Table) At(schedule, position int) Symbol {
	return t.schedules[schedule-1][position-1]
}

// First returns the opening symbol of a schedule.
func (t *Table) First(schedule int) Symbol {
	return t.At(schedule, 1)
}

// Moves returns a copy of a schedule's symbols.
func (t *Table) Moves(schedule int) [Length]Symbol {
	return t.schedules[schedule-1]
}
