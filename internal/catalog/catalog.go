// Package catalog holds the read-only lookup data the chat router matches against:
// the ordered city list and the canned conversation table. Both are loaded once at
// startup and never mutated.
package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyCatalog = errors.New("city catalog is empty")
	ErrInvalidEntry = errors.New("invalid conversation entry")
)

var validate = validator.New()

// Cities is the ordered list of known city identifiers (underscores for spaces).
type Cities struct {
	ids     []string
	needles []string
}

// NewCities builds a catalog from identifiers in priority order. Blank identifiers
// are dropped because an empty needle would match every query.
func NewCities(ids []string) *Cities {
	c := &Cities{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		c.ids = append(c.ids, id)
		c.needles = append(c.needles, Fold(strings.ReplaceAll(id, "_", " ")))
	}
	return c
}

// LoadCities reads a newline-delimited UTF-8 city list.
func LoadCities(path string) (*Cities, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read city list: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		ids = append(ids, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan city list: %w", err)
	}

	c := NewCities(ids)
	if c.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCatalog)
	}
	return c, nil
}

// Match returns the first city, in catalog order, whose space-substituted lowercase
// form is contained in lowered. lowered must already be passed through Fold.
func (c *Cities) Match(lowered string) (string, bool) {
	if c == nil {
		return "", false
	}
	for i, needle := range c.needles {
		if strings.Contains(lowered, needle) {
			return c.ids[i], true
		}
	}
	return "", false
}

// Len returns the number of identifiers.
func (c *Cities) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// IDs returns a copy of the identifiers in catalog order.
func (c *Cities) IDs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Entry is one canned exchange.
type Entry struct {
	User string `json:"user" validate:"required"`
	Bot  string `json:"bot"`
}

// Conversations is the ordered canned conversation table.
type Conversations struct {
	entries  []Entry
	triggers []string
}

type conversationFile struct {
	Conversations []Entry `json:"conversations"`
}

// NewConversations validates entries and builds the table in the given order.
func NewConversations(entries []Entry) (*Conversations, error) {
	t := &Conversations{
		entries:  make([]Entry, 0, len(entries)),
		triggers: make([]string, 0, len(entries)),
	}
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidEntry, i, err)
		}
		t.entries = append(t.entries, e)
		t.triggers = append(t.triggers, Fold(e.User))
	}
	return t, nil
}

// LoadConversations reads {"conversations":[{"user":...,"bot":...}]}.
func LoadConversations(path string) (*Conversations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read conversations: %w", err)
	}
	var f conversationFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse conversations: %w", err)
	}
	return NewConversations(f.Conversations)
}

// Lookup returns the reply of the first entry whose lowercased trigger equals lowered.
// The comparison is whole-string; lowered must already be passed through Fold.
func (t *Conversations) Lookup(lowered string) (string, bool) {
	if t == nil {
		return "", false
	}
	for i, trigger := range t.triggers {
		if trigger == lowered {
			return t.entries[i].Bot, true
		}
	}
	return "", false
}

// Len returns the number of entries.
func (t *Conversations) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Fold lowercases s in NFC form so precomposed and decomposed diacritics compare equal.
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
