package rubric

import (
	"bytes"
	"errors"
	"io"
	"os"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML rubric from path. Keys present in the file replace the
// corresponding defaults wholesale; absent keys keep the default values.
// An empty path returns Default().
func Load(path string) (*Rubric, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("cannot read rubric file "+path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML rubric layered over the defaults and compiles it.
func Parse(data []byte) (*Rubric, error) {
	r := defaultRubric()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(r); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.NewConfigurationError("invalid rubric yaml", err)
	}

	if err := r.Compile(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid rubric: "+err.Error(), err)
	}

	return r, nil
}
