package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// fields remembers the key order of a YAML mapping and keeps the raw value
// of every key the typed model does not own, so a load/save cycle is lossless.
type fields struct {
	order []string
	extra map[string]*yaml.Node
}

func (f *fields) has(key string) bool {
	for _, k := range f.order {
		if k == key {
			return true
		}
	}
	return false
}

func (f *fields) touch(key string) {
	if !f.has(key) {
		f.order = append(f.order, key)
	}
}

func (f *fields) drop(key string) {
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i:i], f.order[i+1:]...)
			break
		}
	}
	delete(f.extra, key)
}

func (f *fields) setExtra(key string, value *yaml.Node) {
	if f.extra == nil {
		f.extra = make(map[string]*yaml.Node)
	}
	f.extra[key] = value
	f.touch(key)
}

func (f fields) clone() fields {
	cp := fields{order: append([]string(nil), f.order...)}
	if f.extra != nil {
		cp.extra = make(map[string]*yaml.Node, len(f.extra))
		for k, v := range f.extra {
			cp.extra[k] = cloneNode(v)
		}
	}
	return cp
}

// decodeMapping walks a mapping node and hands every pair to fn. Pairs fn
// declines are kept as extras.
func (f *fields) decodeMapping(node *yaml.Node, fn func(key string, value *yaml.Node) (bool, error)) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		handled, err := fn(key, value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if handled {
			f.touch(key)
		} else {
			f.setExtra(key, value)
		}
	}
	return nil
}

// encodeMapping emits keys in remembered order. known returns the typed value
// for a key the model owns; a nil value with ok=true skips the key.
func (f *fields) encodeMapping(known func(key string) (interface{}, bool)) (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range f.order {
		var value *yaml.Node
		if v, ok := known(key); ok {
			if v == nil {
				continue
			}
			if n, isNode := v.(*yaml.Node); isNode {
				value = n
			} else {
				value = &yaml.Node{}
				if err := value.Encode(v); err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
			}
		} else if n, exists := f.extra[key]; exists {
			value = n
		} else {
			continue
		}
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			value,
		)
	}
	return out, nil
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Alias != nil {
		cp.Alias = cloneNode(n.Alias)
	}
	if len(n.Content) > 0 {
		cp.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			cp.Content[i] = cloneNode(c)
		}
	}
	return &cp
}
