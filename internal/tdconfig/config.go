// Package tdconfig loads the repo-level tendrils.json and the user's global
// global-config.json (spec §4.10, §6), and exposes a lazily-cached accessor
// for the latter since several operations each consult it at most once.
package tdconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/reedmace/tendril/internal/tendril"
)

// Type identifies which configuration file an error concerns.
type Type int

const (
	Repo Type = iota
	Global
)

func (t Type) String() string {
	if t == Global {
		return "global"
	}
	return "repo"
}

// IOErrorKind mirrors the action package's small OS-error taxonomy, kept
// separate since config errors never carry a Location.
type IOErrorKind int

const (
	NotFound IOErrorKind = iota
	PermissionDenied
	OtherIOError
)

// Error is the config-loading error taxonomy from spec §7: IoError{cfg_type,
// kind} or ParseError{cfg_type, msg}.
type Error struct {
	CfgType  Type
	IsParse  bool
	IOKind   IOErrorKind
	ParseMsg string
}

func (e *Error) Error() string {
	if e.IsParse {
		return fmt.Sprintf("%s config: %s", e.CfgType, e.ParseMsg)
	}
	switch e.IOKind {
	case NotFound:
		return fmt.Sprintf("%s config: not found", e.CfgType)
	case PermissionDenied:
		return fmt.Sprintf("%s config: permission denied", e.CfgType)
	default:
		return fmt.Sprintf("%s config: IO error", e.CfgType)
	}
}

func ioError(cfgType Type, err error) *Error {
	kind := OtherIOError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = NotFound
	case errors.Is(err, fs.ErrPermission):
		kind = PermissionDenied
	}
	return &Error{CfgType: cfgType, IOKind: kind}
}

func parseError(cfgType Type, err error) *Error {
	return &Error{CfgType: cfgType, IsParse: true, ParseMsg: err.Error()}
}

// isJSONNull reports whether the raw JSON token is the literal null.
// encoding/json silently no-ops null into a string/slice/map field instead
// of erroring, so every recognized field that rejects null per spec §4.10
// must check its raw token explicitly before delegating to Unmarshal.
func isJSONNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// stringOrSlice unmarshals either a single JSON string or an array of
// strings, matching tendrils.json's "remotes"/"profiles" field flexibility.
// Neither the field itself nor any element of an array form may be null.
type stringOrSlice []string

func (s *stringOrSlice) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return errors.New("null is not a valid value")
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var rawMany []json.RawMessage
	if err := json.Unmarshal(data, &rawMany); err != nil {
		return err
	}
	many := make([]string, len(rawMany))
	for i, raw := range rawMany {
		if isJSONNull(raw) {
			return fmt.Errorf("element %d: null is not a valid value", i)
		}
		if err := json.Unmarshal(raw, &many[i]); err != nil {
			return err
		}
	}
	*s = many
	return nil
}

type rawEntry struct {
	Remotes  stringOrSlice
	DirMerge *bool
	Link     *bool
	Profiles stringOrSlice
}

// UnmarshalJSON decodes each recognized field through a json.RawMessage
// shadow so an explicit null can be distinguished from an absent field and
// rejected as a parse error, rather than silently defaulting (spec §4.10).
func (e *rawEntry) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Remotes  json.RawMessage `json:"remotes"`
		DirMerge json.RawMessage `json:"dir-merge"`
		Link     json.RawMessage `json:"link"`
		Profiles json.RawMessage `json:"profiles"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}

	if len(shadow.Remotes) > 0 {
		if err := json.Unmarshal(shadow.Remotes, &e.Remotes); err != nil {
			return fmt.Errorf("remotes: %w", err)
		}
	}
	if len(shadow.DirMerge) > 0 {
		if isJSONNull(shadow.DirMerge) {
			return errors.New("dir-merge: null is not a valid value")
		}
		if err := json.Unmarshal(shadow.DirMerge, &e.DirMerge); err != nil {
			return fmt.Errorf("dir-merge: %w", err)
		}
	}
	if len(shadow.Link) > 0 {
		if isJSONNull(shadow.Link) {
			return errors.New("link: null is not a valid value")
		}
		if err := json.Unmarshal(shadow.Link, &e.Link); err != nil {
			return fmt.Errorf("link: %w", err)
		}
	}
	if len(shadow.Profiles) > 0 {
		if err := json.Unmarshal(shadow.Profiles, &e.Profiles); err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
	}
	return nil
}

// entryOrList unmarshals either a single entry object or an array of them,
// matching tendrils.json's per-local expansion rule.
type entryOrList []rawEntry

func (e *entryOrList) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return errors.New("null is not a valid value")
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		var single rawEntry
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*e = []rawEntry{single}
		return nil
	}
	var many []rawEntry
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*e = many
	return nil
}

type repoDoc struct {
	Tendrils map[string]entryOrList
}

// UnmarshalJSON rejects an explicit "tendrils": null the same way the
// per-entry fields do, rather than silently yielding an empty repo.
func (d *repoDoc) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Tendrils json.RawMessage `json:"tendrils"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	if isJSONNull(shadow.Tendrils) {
		return errors.New("tendrils: null is not a valid value")
	}
	if len(shadow.Tendrils) == 0 {
		return nil
	}
	return json.Unmarshal(shadow.Tendrils, &d.Tendrils)
}

// LoadRepo reads and parses <repoRoot>/.tendrils/tendrils.json, expanding
// each entry into its ordered RawTendril list per spec §4.10: outer entries
// in iteration order, then each entry's list, then each object's remotes in
// array order.
func LoadRepo(repoRoot string) ([]tendril.RawTendril, error) {
	path := filepath.Join(repoRoot, ".tendrils", "tendrils.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(Repo, err)
	}

	order, err := topLevelKeyOrder(data, "tendrils")
	if err != nil {
		return nil, parseError(Repo, err)
	}

	var doc repoDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, parseError(Repo, err)
	}

	var raws []tendril.RawTendril
	for _, local := range order {
		for _, entry := range doc.Tendrils[local] {
			dirMerge := entry.DirMerge != nil && *entry.DirMerge
			link := entry.Link != nil && *entry.Link
			mode := tendril.DirOverwrite
			switch {
			case link:
				mode = tendril.Link
			case dirMerge:
				mode = tendril.DirMerge
			}
			for _, remote := range entry.Remotes {
				raws = append(raws, tendril.RawTendril{
					Local:    local,
					Remote:   remote,
					Mode:     mode,
					Profiles: append([]string(nil), entry.Profiles...),
				})
			}
		}
	}
	return raws, nil
}

// topLevelKeyOrder recovers the original key order of the named top-level
// object, since encoding/json's map decoding loses insertion order and
// spec §4.10 requires expansion in authoring order.
func topLevelKeyOrder(data []byte, field string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected top-level object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		if key != field {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		return objectKeyOrder(dec)
	}
	return nil, nil
}

func objectKeyOrder(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object")
	}
	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		order = append(order, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// GlobalConfig is the parsed contents of ~/.tendrils/global-config.json.
type GlobalConfig struct {
	DefaultRepoPath string   `json:"default-repo-path"`
	DefaultProfiles []string `json:"default-profiles"`
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tendrils", "global-config.json"), nil
}

// LoadGlobal reads and parses the user's global-config.json. A missing file
// is not an error: it yields a zero-value GlobalConfig (no default repo, no
// default profiles).
func LoadGlobal() (GlobalConfig, error) {
	path, err := globalConfigPath()
	if err != nil {
		return GlobalConfig{}, ioError(Global, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return GlobalConfig{}, nil
		}
		return GlobalConfig{}, ioError(Global, err)
	}

	var g GlobalConfig
	if err := json.Unmarshal(data, &g); err != nil {
		return GlobalConfig{}, parseError(Global, err)
	}
	return g, nil
}

// LazyGlobal caches the result of LoadGlobal across the accesses a single
// batch invocation makes, so the file is read at most once per run. Repo
// discovery is its only consumer; DefaultProfiles is loaded but not applied
// to filtering.
type LazyGlobal struct {
	loaded bool
	cfg    GlobalConfig
	err    error
}

// Get returns the cached GlobalConfig, loading it on first call.
func (l *LazyGlobal) Get() (GlobalConfig, error) {
	if !l.loaded {
		l.cfg, l.err = LoadGlobal()
		l.loaded = true
	}
	return l.cfg, l.err
}
