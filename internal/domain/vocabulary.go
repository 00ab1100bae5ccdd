package domain

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed variables.yaml
var defaultVariables []byte

// Variable is one controlled-vocabulary entry.
type Variable struct {
	Code        string   `yaml:"code"`
	Description string   `yaml:"description"`
	Units       string   `yaml:"units"`
	Derived     bool     `yaml:"derived"`
	Aliases     []string `yaml:"aliases"`
}

type vocabularyFile struct {
	Primary  []Variable `yaml:"primary"`
	Metadata []Variable `yaml:"metadata"`
	Ignore   []string   `yaml:"ignore"`
}

// Vocabulary resolves raw column names to canonical variable codes.
type Vocabulary struct {
	primary  map[string]Variable
	metadata map[string]Variable
	ignore   map[string]bool
	aliases  map[string]string
}

// Column kinds returned by Vocabulary.Resolve.
type ColumnKind int

const (
	ColumnUnknown ColumnKind = iota
	ColumnPrimary
	ColumnMetadata
	ColumnIgnored
)

// sampleSuffix matches a single-letter sample suffix, e.g. "density_a" or
// "dielectric_constant_sample_b".
var sampleSuffix = regexp.MustCompile(`^(.+?)(?:_sample)?_([a-z])$`)

// defaultVocabulary is parsed once from the embedded file.
var defaultVocabulary = mustParseVocabulary(defaultVariables)

func mustParseVocabulary(data []byte) *Vocabulary {
	v := &Vocabulary{
		primary:  map[string]Variable{},
		metadata: map[string]Variable{},
		ignore:   map[string]bool{},
		aliases:  map[string]string{},
	}
	if err := v.merge(data); err != nil {
		panic(fmt.Sprintf("embedded vocabulary: %v", err))
	}
	return v
}

// DefaultVocabulary returns the built-in vocabulary. Callers must not mutate it.
func DefaultVocabulary() *Vocabulary {
	return defaultVocabulary
}

// LoadVocabulary starts from the built-in vocabulary and merges each YAML
// override file in order. Entries with an existing code replace it.
func LoadVocabulary(paths ...string) (*Vocabulary, error) {
	v := defaultVocabulary.clone()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, Errorf(KindConfig, "read vocabulary %s: %w", p, err)
		}
		if err := v.merge(data); err != nil {
			return nil, Errorf(KindConfig, "vocabulary %s: %w", p, err)
		}
	}
	return v, nil
}

func (v *Vocabulary) clone() *Vocabulary {
	c := &Vocabulary{
		primary:  make(map[string]Variable, len(v.primary)),
		metadata: make(map[string]Variable, len(v.metadata)),
		ignore:   make(map[string]bool, len(v.ignore)),
		aliases:  make(map[string]string, len(v.aliases)),
	}
	for k, x := range v.primary {
		c.primary[k] = x
	}
	for k, x := range v.metadata {
		c.metadata[k] = x
	}
	for k, x := range v.ignore {
		c.ignore[k] = x
	}
	for k, x := range v.aliases {
		c.aliases[k] = x
	}
	return c
}

func (v *Vocabulary) merge(data []byte) error {
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	add := func(dst map[string]Variable, other map[string]Variable, x Variable) error {
		x.Code = StandardizeKey(x.Code)
		if x.Code == "" {
			return fmt.Errorf("variable without code")
		}
		delete(other, x.Code)
		dst[x.Code] = x
		v.aliases[x.Code] = x.Code
		for _, a := range x.Aliases {
			v.aliases[a] = x.Code
		}
		return nil
	}
	for _, x := range f.Primary {
		if err := add(v.primary, v.metadata, x); err != nil {
			return err
		}
	}
	for _, x := range f.Metadata {
		if err := add(v.metadata, v.primary, x); err != nil {
			return err
		}
	}
	for _, name := range f.Ignore {
		v.ignore[StandardizeKey(name)] = true
	}
	return nil
}

// Resolve maps a standardized column name to its canonical code. Sample
// columns keep their suffix ("dielectric_constant_a" → "permittivity_a").
func (v *Vocabulary) Resolve(column string) (string, ColumnKind) {
	if v.ignore[column] {
		return column, ColumnIgnored
	}
	if code, ok := v.aliases[column]; ok {
		return code, v.kindOf(code)
	}
	if m := sampleSuffix.FindStringSubmatch(column); m != nil {
		if code, ok := v.aliases[m[1]]; ok {
			if _, primary := v.primary[code]; primary {
				return code + "_" + m[2], ColumnPrimary
			}
		}
	}
	return column, ColumnUnknown
}

func (v *Vocabulary) kindOf(code string) ColumnKind {
	if _, ok := v.primary[code]; ok {
		return ColumnPrimary
	}
	return ColumnMetadata
}

// Variable returns the entry for a code.
func (v *Vocabulary) Variable(code string) (Variable, bool) {
	if x, ok := v.primary[code]; ok {
		return x, true
	}
	x, ok := v.metadata[code]
	return x, ok
}

// PrimaryCodes lists the measured variable codes in sorted order.
func (v *Vocabulary) PrimaryCodes() []string {
	codes := make([]string, 0, len(v.primary))
	for c := range v.primary {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// Units returns the default unit string of a code, empty when unitless.
func (v *Vocabulary) Units(code string) string {
	x, _ := v.Variable(code)
	return x.Units
}
