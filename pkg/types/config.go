package types

import (
	"encoding/json"
	"strings"
)

// Version represents the Cypher dialect version a query targets
type Version int32

const (
	Version_VERSION_UNSPECIFIED Version = 0
	Version_V4                  Version = 4
	Version_V5                  Version = 5
)

func (v Version) String() string {
	switch v {
	case Version_VERSION_UNSPECIFIED:
		return "VERSION_UNSPECIFIED"
	case Version_V4:
		return "V4"
	case Version_V5:
		return "V5"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether v names a supported dialect version.
func (v Version) IsValid() bool {
	return v == Version_V4 || v == Version_V5
}

// ParseVersion maps "4", "V4", "5", "V5" (any case) to a Version.
// Unknown input yields Version_VERSION_UNSPECIFIED.
func ParseVersion(s string) Version {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "4", "V4":
		return Version_V4
	case "5", "V5":
		return Version_V5
	default:
		return Version_VERSION_UNSPECIFIED
	}
}

// UnmarshalYAML implements yaml.Unmarshaler for Version
func (v *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*v = ParseVersion(s)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Version
func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Version(n)
		if !v.IsValid() {
			*v = Version_VERSION_UNSPECIFIED
		}
		return nil
	}
	*v = ParseVersion(s)
	return nil
}

// MarshalJSON implements json.Marshaler for Version
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// MarshalYAML implements yaml.Marshaler for Version
func (v Version) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// Config is the rewrite configuration supplied by the caller.
// It is read-only for the lifetime of a rewriter.
type Config struct {
	Version   Version `json:"version"   yaml:"version"`
	AllowApoc bool    `json:"allowApoc" yaml:"allowApoc"`

	// Strict rejects every CALLed procedure outside the read-only allow list.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`

	// ApocAllowList overrides the built-in read-only APOC subset. Entries are
	// procedure names or prefixes ending in ".", matched case-insensitively.
	ApocAllowList []string `json:"apocAllowList,omitempty" yaml:"apocAllowList,omitempty"`
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	if c.ApocAllowList != nil {
		out.ApocAllowList = append([]string(nil), c.ApocAllowList...)
	}
	return out
}
