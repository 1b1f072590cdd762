// Package challenge provides challenge definitions: fixed, ordered track
// sequences played in order instead of the random free mode.
package challenge

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/osa030/guessbox/internal/domain/history"
	"github.com/osa030/guessbox/internal/domain/track"
)

// ErrEmptyPayload is returned when no challenge payload was supplied.
var ErrEmptyPayload = errors.New("challenge payload is empty")

// Entry is a single challenge step.
type Entry struct {
	TrackID string `mapstructure:"trackId" yaml:"trackId" validate:"required"`
}

// Definition is a validated, ordered challenge.
// Track IDs may repeat; order is fixed by the definition.
type Definition struct {
	Name   string  `mapstructure:"name" yaml:"name,omitempty"`
	Tracks []Entry `mapstructure:"tracks" yaml:"tracks" validate:"required,min=1,dive"`
}

// Len returns the number of entries in the challenge.
func (d *Definition) Len() int {
	return len(d.Tracks)
}

// FromPayload converts a loosely typed payload into a validated Definition.
// Accepted shapes are a list of {trackId} maps, or a map with "name" and
// "tracks" keys. Track IDs given as Spotify URLs or URIs are reduced to IDs.
func FromPayload(payload any) (*Definition, error) {
	var def Definition

	switch p := payload.(type) {
	case nil:
		return nil, ErrEmptyPayload
	case []Entry:
		def.Tracks = append([]Entry(nil), p...)
	case []any, []map[string]any:
		if err := decode(p, &def.Tracks); err != nil {
			return nil, err
		}
	case map[string]any:
		if err := decode(p, &def); err != nil {
			return nil, err
		}
	case Definition:
		def = p
		def.Tracks = append([]Entry(nil), p.Tracks...)
	default:
		return nil, errors.Newf("unsupported challenge payload type %T", payload)
	}

	for i := range def.Tracks {
		def.Tracks[i].TrackID = track.ExtractID(def.Tracks[i].TrackID)
	}

	if err := validator.New().Struct(def); err != nil {
		return nil, errors.Wrap(err, "challenge validation failed")
	}

	return &def, nil
}

// Parse parses a YAML (or JSON) challenge document.
func Parse(data []byte) (*Definition, error) {
	var payload any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to parse challenge")
	}
	return FromPayload(payload)
}

// Load loads a challenge document from a file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read challenge file")
	}
	return Parse(data)
}

// FromHistory builds a challenge replaying the tracks of the given history,
// in completion order.
func FromHistory(name string, entries []history.Entry) Definition {
	def := Definition{
		Name:   name,
		Tracks: make([]Entry, len(entries)),
	}
	for i, e := range entries {
		def.Tracks[i] = Entry{TrackID: e.TrackID}
	}
	return def
}

// Marshal encodes a challenge as YAML, readable back with Parse.
func Marshal(def Definition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode challenge")
	}
	return data, nil
}

func decode(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(input); err != nil {
		return errors.Wrap(err, "failed to decode challenge payload")
	}
	return nil
}
