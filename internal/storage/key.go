package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidKey is returned for keys outside the report layout.
var ErrInvalidKey = errors.New("invalid report key")

const (
	rootDir    = "reports"
	metaSuffix = ".meta"
	timeLayout = "20060102T150405Z"
)

// Key addresses one report: reports/<store>/<source>/<name>.
type Key struct {
	Store  string
	Source string
	Name   string
}

// NewKey builds the key of a run report. Names sort by start time.
func NewKey(store, source string, startedAt time.Time, runID, ext string) Key {
	return Key{
		Store:  store,
		Source: source,
		Name:   fmt.Sprintf("%s-%s.%s", startedAt.UTC().Format(timeLayout), runID, ext),
	}
}

// ParseKey parses the string form of a key.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 4 || parts[0] != rootDir {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	k := Key{Store: parts[1], Source: parts[2], Name: parts[3]}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Validate rejects empty or path-like segments and metadata sidecar names.
func (k Key) Validate() error {
	for _, seg := range []string{k.Store, k.Source, k.Name} {
		if !validSegment(seg) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k.String())
		}
	}
	if strings.HasSuffix(k.Name, metaSuffix) || strings.HasPrefix(k.Name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, k.String())
	}
	return nil
}

func (k Key) String() string {
	return strings.Join([]string{rootDir, k.Store, k.Source, k.Name}, "/")
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Store  string
	Source string
}

func (f Filter) validate() error {
	for _, seg := range []string{f.Store, f.Source} {
		if seg != "" && !validSegment(seg) {
			return fmt.Errorf("%w: filter %q", ErrInvalidKey, seg)
		}
	}
	return nil
}

func (f Filter) matches(k Key) bool {
	return (f.Store == "" || f.Store == k.Store) && (f.Source == "" || f.Source == k.Source)
}
