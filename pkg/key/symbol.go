package key

import "fmt"

// Symbol is the character emitted when a key actuates.
// It is stored as a one character string in configuration files.
type Symbol byte

// String returns the symbol as a one character string.
func (s Symbol) String() string {
	return string(rune(s))
}

// MarshalYAML implements the yaml marshaler without importing a yaml package.
func (s Symbol) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML accepts either a numeric code or a one character string. Digits must be quoted
// to be read as characters.
func (s *Symbol) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var code uint8
	if err := unmarshal(&code); err == nil {
		*s = Symbol(code)
		return nil
	}

	var str string
	if err := unmarshal(&str); err != nil {
		return fmt.Errorf("invalid symbol: %w", err)
	}
	if len(str) != 1 {
		return fmt.Errorf("symbol %q must be a single ASCII character", str)
	}
	*s = Symbol(str[0])
	return nil
}
