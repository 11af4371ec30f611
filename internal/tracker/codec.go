package tracker

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kokistudios/joyland/internal/schedule"
)

// FormatVersion is the save-code document version.
const FormatVersion = 1

// ErrInvalidSaveCode is returned for any save code or blob that cannot be
// restored.
var ErrInvalidSaveCode = errors.New("invalid save code")

type frameDoc struct {
	Hypotheses Set  `json:"hypotheses"`
	Locked     bool `json:"locked"`
}

type document struct {
	Version    int        `json:"v"`
	Timestamp  int64      `json:"t,omitempty"`
	Hypotheses Set        `json:"hypotheses"`
	History    []string   `json:"history"`
	Locked     bool       `json:"locked"`
	Stack      []frameDoc `json:"stack"`
	Base       frameDoc   `json:"base"`
	Started    bool       `json:"started"`
}

// MarshalState serializes s to the JSON document used both for save codes
// and for persisted state. ts is recorded as milliseconds since the epoch;
// pass the zero time to omit it.
func MarshalState(s State, ts time.Time) ([]byte, error) {
	doc := document{
		Version:    FormatVersion,
		Hypotheses: nonNil(s.hyps),
		History:    make([]string, len(s.history)),
		Locked:     s.locked,
		Stack:      make([]frameDoc, len(s.stack)),
		Base:       frameDoc{Hypotheses: nonNil(s.base.Hypotheses), Locked: s.base.Locked},
		Started:    s.started,
	}
	if !ts.IsZero() {
		doc.Timestamp = ts.UnixMilli()
	}
	for i, sym := range s.history {
		doc.History[i] = string(sym)
	}
	for i, f := range s.stack {
		doc.Stack[i] = frameDoc{Hypotheses: nonNil(f.Hypotheses), Locked: f.Locked}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// UnmarshalState parses and validates a JSON document against tbl. Nothing
// is returned but an error when any part is malformed.
func UnmarshalState(tbl *schedule.Table, data []byte) (State, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidSaveCode, err)
	}
	if doc.Version != FormatVersion {
		return State{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidSaveCode, doc.Version)
	}
	if len(doc.Stack) != len(doc.History) {
		return State{}, fmt.Errorf("%w: %d undo frames for %d events", ErrInvalidSaveCode, len(doc.Stack), len(doc.History))
	}

	s := State{locked: doc.Locked, started: doc.Started}
	var err error
	if s.hyps, err = validSet(doc.Hypotheses); err != nil {
		return State{}, err
	}
	if s.base.Hypotheses, err = validSet(doc.Base.Hypotheses); err != nil {
		return State{}, err
	}
	s.base.Locked = doc.Base.Locked

	if len(doc.History) > 0 {
		s.history = make([]schedule.Symbol, len(doc.History))
		s.stack = make([]Frame, len(doc.Stack))
	}
	for i, token := range doc.History {
		sym, ok := tbl.Lookup(token)
		if !ok {
			return State{}, fmt.Errorf("%w: history entry %d: %w %q", ErrInvalidSaveCode, i+1, ErrUnknownSymbol, token)
		}
		s.history[i] = sym
	}
	for i, f := range doc.Stack {
		hyps, err := validSet(f.Hypotheses)
		if err != nil {
			return State{}, err
		}
		s.stack[i] = Frame{Hypotheses: hyps, Locked: f.Locked}
	}

	// The current frame is always the top of the undo stack, or the base
	// frame when nothing has been tapped since the last start.
	top := s.base
	if n := len(s.stack); n > 0 {
		top = s.stack[n-1]
	}
	if !s.hyps.Equal(top.Hypotheses) || s.locked != top.Locked {
		return State{}, fmt.Errorf("%w: current state does not match the undo stack", ErrInvalidSaveCode)
	}
	return s, nil
}

// EncodeSaveCode turns s into a copy-pasteable token.
func EncodeSaveCode(s State, ts time.Time) (string, error) {
	data, err := MarshalState(s, ts)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSaveCode restores a State from a token. A restored state always
// counts as started.
func DecodeSaveCode(tbl *schedule.Table, code string) (State, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(code))
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidSaveCode, err)
	}
	s, err := UnmarshalState(tbl, data)
	if err != nil {
		return State{}, err
	}
	s.started = true
	return s, nil
}

func validSet(in Set) (Set, error) {
	if len(in) == 0 {
		return nil, nil
	}
	for _, h := range in {
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("%w: hypothesis %s: %v", ErrInvalidSaveCode, h, err)
		}
	}
	if len(Dedupe(in)) != len(in) {
		return nil, fmt.Errorf("%w: duplicate hypotheses", ErrInvalidSaveCode)
	}
	return in.Clone(), nil
}

func nonNil(s Set) Set {
	if s == nil {
		return Set{}
	}
	return s
}
