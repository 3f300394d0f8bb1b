// Package spec models the declarative generation specification handed to a
// synthesis engine and the pure period-over-period mutations applied to it.
package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Spec is a generation specification. The zero value is not usable; build
// one with New or Decode.
type Spec struct {
	Metadata Metadata
	Columns  *Columns
	fields   fields
}

func New() *Spec {
	s := &Spec{Columns: NewColumns()}
	s.fields.touch("metadata")
	s.fields.touch("columns")
	return s
}

// Clone returns a deep copy sharing nothing with s.
func (s *Spec) Clone() *Spec {
	return &Spec{
		Metadata: s.Metadata.clone(),
		Columns:  s.Columns.Clone(),
		fields:   s.fields.clone(),
	}
}

func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	*s = Spec{Columns: NewColumns()}
	return s.fields.decodeMapping(node, func(key string, value *yaml.Node) (bool, error) {
		switch key {
		case "metadata":
			return true, value.Decode(&s.Metadata)
		case "columns":
			return true, value.Decode(s.Columns)
		}
		return false, nil
	})
}

func (s *Spec) MarshalYAML() (interface{}, error) {
	return s.fields.encodeMapping(func(key string) (interface{}, bool) {
		switch key {
		case "metadata":
			return &s.Metadata, true
		case "columns":
			return s.Columns, true
		}
		return nil, false
	})
}

// Metadata is the metadata block of a specification.
type Metadata struct {
	NumberOfRows       int
	RandomSeed         int
	ID                 string
	UUIDColumns        []string
	CategoricalColumns []string
	fields             fields
}

// Has reports whether key was present in the loaded file or has been set.
func (m *Metadata) Has(key string) bool {
	return m.fields.has(key)
}

func (m *Metadata) SetNumberOfRows(n int) {
	m.NumberOfRows = n
	m.fields.touch("number_of_rows")
}

func (m *Metadata) SetRandomSeed(seed int) {
	m.RandomSeed = seed
	m.fields.touch("random_seed")
}

func (m *Metadata) SetID(id string) {
	m.ID = id
	m.fields.touch("id")
}

func (m *Metadata) SetUUIDColumns(cols []string) {
	m.UUIDColumns = cols
	m.fields.touch("uuid_columns")
}

// RemoveUUIDColumn is a no-op when the column is not listed.
func (m *Metadata) RemoveUUIDColumn(name string) {
	for i, c := range m.UUIDColumns {
		if c == name {
			m.UUIDColumns = append(m.UUIDColumns[:i:i], m.UUIDColumns[i+1:]...)
			return
		}
	}
}

// AddCategoricalColumn creates the list when absent and never duplicates.
func (m *Metadata) AddCategoricalColumn(name string) {
	m.fields.touch("categorical_columns")
	for _, c := range m.CategoricalColumns {
		if c == name {
			return
		}
	}
	m.CategoricalColumns = append(m.CategoricalColumns, name)
}

func (m Metadata) clone() Metadata {
	cp := m
	cp.UUIDColumns = cloneStrings(m.UUIDColumns)
	cp.CategoricalColumns = cloneStrings(m.CategoricalColumns)
	cp.fields = m.fields.clone()
	return cp
}

func (m *Metadata) UnmarshalYAML(node *yaml.Node) error {
	*m = Metadata{}
	return m.fields.decodeMapping(node, func(key string, value *yaml.Node) (bool, error) {
		switch key {
		case "number_of_rows":
			return true, value.Decode(&m.NumberOfRows)
		case "random_seed":
			return true, value.Decode(&m.RandomSeed)
		case "id":
			return true, value.Decode(&m.ID)
		case "uuid_columns":
			return true, value.Decode(&m.UUIDColumns)
		case "categorical_columns":
			return true, value.Decode(&m.CategoricalColumns)
		}
		return false, nil
	})
}

func (m *Metadata) MarshalYAML() (interface{}, error) {
	return m.fields.encodeMapping(func(key string) (interface{}, bool) {
		switch key {
		case "number_of_rows":
			return m.NumberOfRows, true
		case "random_seed":
			return m.RandomSeed, true
		case "id":
			return m.ID, true
		case "uuid_columns":
			return nonNil(m.UUIDColumns), true
		case "categorical_columns":
			return nonNil(m.CategoricalColumns), true
		}
		return nil, false
	})
}

// Columns is the ordered column mapping of a specification.
type Columns struct {
	names  []string
	byName map[string]*ColumnDescriptor
}

func NewColumns() *Columns {
	return &Columns{byName: make(map[string]*ColumnDescriptor)}
}

func (c *Columns) Names() []string {
	return cloneStrings(c.names)
}

func (c *Columns) Len() int {
	return len(c.names)
}

func (c *Columns) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Get returns the stored descriptor; callers that mutate it must own the Spec.
func (c *Columns) Get(name string) (*ColumnDescriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Set replaces a descriptor in place or appends a new column.
func (c *Columns) Set(name string, d *ColumnDescriptor) {
	if _, ok := c.byName[name]; !ok {
		c.names = append(c.names, name)
	}
	c.byName[name] = d
}

func (c *Columns) Clone() *Columns {
	cp := &Columns{
		names:  cloneStrings(c.names),
		byName: make(map[string]*ColumnDescriptor, len(c.byName)),
	}
	for k, d := range c.byName {
		cp.byName[k] = d.Clone()
	}
	return cp
}

func (c *Columns) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: columns must be a mapping", node.Line)
	}
	c.names = nil
	c.byName = make(map[string]*ColumnDescriptor)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		d := &ColumnDescriptor{}
		if err := node.Content[i+1].Decode(d); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		c.Set(name, d)
	}
	return nil
}

func (c *Columns) MarshalYAML() (interface{}, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range c.names {
		value := &yaml.Node{}
		if err := value.Encode(c.byName[name]); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			value,
		)
	}
	return out, nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
