package medipix

import (
	"encoding/json"
	"fmt"
)

// Mode selects the counting policy of a sensor.
type Mode int

const (
	SinglePixelMode Mode = iota
	ChargeSummingMode
)

var modeStrings = []string{
	"spm",
	"csm",
}

func (m Mode) String() string {
	if m < SinglePixelMode || m > ChargeSummingMode {
		return "UNKNOWN"
	}
	return modeStrings[m]
}

func ParseMode(s string) (Mode, error) {
	for i, v := range modeStrings {
		if v == s {
			return Mode(i), nil
		}
	}
	return SinglePixelMode, argumentError("mode", s, "unknown counting mode")
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return fmt.Errorf("invalid mode %q: %w", s, err)
	}
	*m = parsed
	return nil
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText is used by yaml.v3 for scalar nodes.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
