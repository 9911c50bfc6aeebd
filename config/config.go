package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSection names the section whose channel key selects the active channel.
	DefaultSection = "Default"

	DefaultTextField = "message"
	DefaultType      = "webhook"
	DefaultTimeout   = 30 * time.Second
)

var (
	ErrConfigNotFound = errors.New("config not found")
	ErrConfigParse    = errors.New("config parse error")
)

type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("section [%s] not found", e.Section)
}

type MissingKeyError struct {
	Section string
	Key     string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("key %q not found in section [%s]", e.Key, e.Section)
}

// Store is a sectioned key/value configuration, read-only once loaded.
type Store struct {
	sections map[string]map[string]string
}

func NewStore(sections map[string]map[string]string) *Store {
	s := Store{
		sections: make(map[string]map[string]string, len(sections)),
	}
	for name, kv := range sections {
		sec := make(map[string]string, len(kv))
		for k, v := range kv {
			sec[k] = v
		}
		s.sections[name] = sec
	}
	return &s
}

func (s *Store) Section(name string) (map[string]string, bool) {
	sec, ok := s.sections[name]
	return sec, ok
}

func (s *Store) Get(section, key string) (string, error) {
	sec, ok := s.sections[section]
	if !ok {
		return "", &MissingSectionError{Section: section}
	}
	v, ok := lookup(sec, key)
	if !ok {
		return "", &MissingKeyError{Section: section, Key: key}
	}
	return v, nil
}

// lookup prefers an exact key match and falls back to a case-insensitive
// one, since INI parsers disagree on whether option names are folded.
func lookup(sec map[string]string, key string) (string, bool) {
	if v, ok := sec[key]; ok {
		return v, true
	}
	for k, v := range sec {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Channel is the destination selected by Default.channel.
type Channel struct {
	Name string
	// Type picks the destination loader, "webhook" unless set.
	Type      string
	Webhook   string
	TextField string

	// Data is the raw JSON fragment of extra payload fields. HasData
	// distinguishes an absent key from an empty value.
	Data    string
	HasData bool

	// Filter is an optional jq program applied to the payload before sending.
	Filter  string
	Timeout time.Duration
}

// Resolve follows Default.channel to the active channel section.
func (s *Store) Resolve() (*Channel, error) {
	name, err := s.Get(DefaultSection, "channel")
	if err != nil {
		return nil, err
	}

	sec, ok := s.Section(name)
	if !ok {
		return nil, &MissingSectionError{Section: name}
	}

	webhook, ok := lookup(sec, "webhook")
	if !ok {
		return nil, &MissingKeyError{Section: name, Key: "webhook"}
	}

	ch := Channel{
		Name:      name,
		Type:      DefaultType,
		Webhook:   webhook,
		TextField: DefaultTextField,
		Timeout:   DefaultTimeout,
	}

	if v, ok := lookup(sec, "textField"); ok {
		ch.TextField = v
	}
	if v, ok := lookup(sec, "type"); ok && v != "" {
		ch.Type = v
	}
	ch.Data, ch.HasData = lookup(sec, "data")
	ch.Filter, _ = lookup(sec, "filter")

	if v, ok := lookup(sec, "timeout"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q in section [%s]: %w", v, name, err)
		}
		if d > 0 {
			ch.Timeout = d
		}
	}

	return &ch, nil
}
