// Package catalog loads the reference character templates that attempts are
// graded against. The catalog is immutable once loaded.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/pkg/logger"
	"github.com/okian/umwero/pkg/metrics"
)

//go:embed seed/templates.yaml
var seedTemplates []byte

// document is the YAML layout of a catalog file.
type document struct {
	Templates []templateDoc `koanf:"templates"`
}

type templateDoc struct {
	ID        string        `koanf:"id"`
	Character string        `koanf:"character"`
	Name      string        `koanf:"name"`
	Strokes   [][][]float64 `koanf:"strokes"`
}

// Catalog is a read-only set of templates keyed by id.
type Catalog struct {
	byID    map[string]stroke.CharacterTemplate
	ordered []stroke.CharacterTemplate
}

// Load reads templates from the configured path or the embedded seed.
func Load(ctx context.Context, opts ...Option) (*Catalog, error) {
	l := &loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("catalog")
	}

	var provider koanf.Provider = bytesProvider(seedTemplates)
	source := "embedded seed"
	if l.path != "" {
		provider = file.Provider(l.path)
		source = l.path
	}

	k := koanf.New(".")
	if err := k.Load(provider, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCatalog, source, err)
	}

	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCatalog, source, err)
	}

	templates := make([]stroke.CharacterTemplate, 0, len(doc.Templates))
	for i, td := range doc.Templates {
		tpl, err := td.toTemplate()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: template %d: %w", ErrLoadCatalog, source, i, err)
		}
		templates = append(templates, tpl)
	}

	c, err := New(templates...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCatalog, source, err)
	}

	metrics.UpdateTemplatesLoaded(c.Len())
	l.logger.Info(ctx, "template catalog loaded",
		logger.String("source", source),
		logger.Int("templates", c.Len()),
	)
	return c, nil
}

// New builds a catalog from already validated templates.
func New(templates ...stroke.CharacterTemplate) (*Catalog, error) {
	c := &Catalog{
		byID:    make(map[string]stroke.CharacterTemplate, len(templates)),
		ordered: make([]stroke.CharacterTemplate, 0, len(templates)),
	}
	for _, tpl := range templates {
		if _, ok := c.byID[tpl.ID]; ok {
			return nil, fmt.Errorf("%q: %w", tpl.ID, ErrDuplicateTemplate)
		}
		c.byID[tpl.ID] = tpl
		c.ordered = append(c.ordered, tpl)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })
	return c, nil
}

// Get returns the template with the given id.
func (c *Catalog) Get(_ context.Context, id string) (stroke.CharacterTemplate, error) {
	tpl, ok := c.byID[id]
	if !ok {
		return stroke.CharacterTemplate{}, fmt.Errorf("%q: %w", id, ErrTemplateNotFound)
	}
	return tpl, nil
}

// List returns every template sorted by id. The slice is a copy.
func (c *Catalog) List(_ context.Context) []stroke.CharacterTemplate {
	out := make([]stroke.CharacterTemplate, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.ordered) }

func (td templateDoc) toTemplate() (stroke.CharacterTemplate, error) {
	strokes := make([][]stroke.Point, len(td.Strokes))
	for i, raw := range td.Strokes {
		pts := make([]stroke.Point, len(raw))
		for j, xy := range raw {
			if len(xy) != 2 {
				return stroke.CharacterTemplate{}, fmt.Errorf("stroke %d point %d has %d coordinates: %w",
					i, j, len(xy), stroke.ErrInvalidTemplate)
			}
			pts[j] = stroke.Point{X: xy[0], Y: xy[1]}
		}
		strokes[i] = pts
	}
	return stroke.NewTemplate(td.ID, td.Character, td.Name, strokes)
}

// bytesProvider feeds an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("catalog: bytesProvider does not support Read()")
}
