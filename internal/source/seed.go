package source

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedEntry is one source definition in the seed catalog file.
type SeedEntry struct {
	Shortname string `yaml:"shortname"`
	Name      string `yaml:"name"`
	Authority string `yaml:"authority"`
	Adapter   string `yaml:"adapter"`
}

// SeedFile is the top-level shape of sources.yaml.
type SeedFile struct {
	Sources []SeedEntry `yaml:"sources"`
}

// ParseSeed decodes a seed catalog and validates every entry.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, eris.Wrap(err, "source: decode seed file")
	}

	for i, e := range f.Sources {
		if e.Shortname == "" {
			return nil, eris.Errorf("source: seed entry %d has no shortname", i)
		}
		if e.Adapter == "" {
			return nil, eris.Errorf("source: seed entry %q has no adapter", e.Shortname)
		}
		if _, err := ParseAuthorityLevel(e.Authority); err != nil {
			return nil, eris.Wrapf(err, "source: seed entry %q", e.Shortname)
		}
	}

	return &f, nil
}

// Seed loads a YAML catalog and inserts any sources that do not yet exist.
// Returns the number of sources created.
func (s *Store) Seed(ctx context.Context, path string) (int, error) {
	log := zap.L().With(zap.String("component", "source.seed"))

	fh, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "source: open seed file %s", path)
	}
	defer fh.Close()

	f, err := ParseSeed(fh)
	if err != nil {
		return 0, err
	}

	var created int
	for _, e := range f.Sources {
		level, _ := ParseAuthorityLevel(e.Authority)
		inserted, err := s.Create(ctx, Source{
			Shortname: e.Shortname,
			Name:      e.Name,
			Authority: level,
			Adapter:   e.Adapter,
		})
		if err != nil {
			return created, err
		}
		if inserted {
			log.Info("source created",
				zap.String("shortname", e.Shortname),
				zap.String("adapter", e.Adapter),
			)
			created++
		}
	}

	return created, nil
}
