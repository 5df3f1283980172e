// Package catalog holds the optional element-type catalog: the set of
// component types a renderer knows how to draw, with an optional JSON Schema
// per type constraining its props. The engine core never requires a catalog;
// consumers use it as a predicate to skip unknown types and, when schemas
// are present, to reject malformed props before rendering.
package catalog

import (
	"fmt"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaSuffix = ".schema.json"

// Catalog maps element type names to optional compiled props schemas.
type Catalog struct {
	schemas map[string]*jsonschema.Schema
}

// Load reads a catalog from a directory on fs. Every <Type>.schema.json file
// registers the type <Type>; other files are ignored.
func Load(fs billy.Filesystem, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir %q: %w", dir, err)
	}

	c := &Catalog{schemas: map[string]*jsonschema.Schema{}}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, schemaSuffix) {
			continue
		}
		typeName := strings.TrimSuffix(name, schemaSuffix)

		raw, err := util.ReadFile(fs, fs.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read schema for %q: %w", typeName, err)
		}
		schema, err := compile(typeName, string(raw))
		if err != nil {
			return nil, err
		}
		c.schemas[typeName] = schema
	}
	return c, nil
}

// New builds a catalog from in-memory schema sources keyed by type name. An
// empty source registers the type without props constraints.
func New(sources map[string]string) (*Catalog, error) {
	c := &Catalog{schemas: map[string]*jsonschema.Schema{}}
	for typeName, src := range sources {
		if src == "" {
			c.schemas[typeName] = nil
			continue
		}
		schema, err := compile(typeName, src)
		if err != nil {
			return nil, err
		}
		c.schemas[typeName] = schema
	}
	return c, nil
}

func compile(typeName, src string) (*jsonschema.Schema, error) {
	comp := jsonschema.NewCompiler()
	comp.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://genui.schemas.local/catalog/%s.schema.json", typeName)
	if err := comp.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("catalog schema load failed for %q: %w", typeName, err)
	}
	schema, err := comp.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("catalog schema compile failed for %q: %w", typeName, err)
	}
	return schema, nil
}

// IsKnownType reports whether the renderer declared this element type. A nil
// catalog knows every type; unknown-type filtering is strictly opt-in.
func (c *Catalog) IsKnownType(name string) bool {
	if c == nil {
		return true
	}
	_, ok := c.schemas[name]
	return ok
}

// ValidateProps checks props against the type's schema. Types registered
// without a schema accept any props. Unknown types are an error.
func (c *Catalog) ValidateProps(name string, props map[string]any) error {
	if c == nil {
		return nil
	}
	schema, ok := c.schemas[name]
	if !ok {
		return fmt.Errorf("unknown element type %q", name)
	}
	if schema == nil {
		return nil
	}
	if props == nil {
		props = map[string]any{}
	}
	var doc any = props
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("props for %q: %w", name, err)
	}
	return nil
}

// Types lists the registered type names. Order is unspecified.
func (c *Catalog) Types() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		out = append(out, name)
	}
	return out
}
