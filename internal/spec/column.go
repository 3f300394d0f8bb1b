package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindDate        Kind = "date"
	KindCategorical Kind = "categorical"
	KindContinuous  Kind = "continuous"
	KindUUID        Kind = "uuid"
)

// State records how a column takes part in entity pairing.
type State int

const (
	// Fresh columns are drawn independently.
	Fresh State = iota
	// PairedDriving is the driving key: one entity is drawn from the
	// anonymising set and every paired column follows it.
	PairedDriving
	// PairedDerived columns copy the value of the driving key's entity.
	PairedDerived
)

func (s State) String() string {
	switch s {
	case PairedDriving:
		return "paired-driving"
	case PairedDerived:
		return "paired-derived"
	default:
		return "fresh"
	}
}

const (
	OriginalValuesRandom = "random"
	OriginalValuesPaired = "See paired column"

	// referencePrefix matches the tables a run draws existing entities from.
	referencePrefix = "temp_"
)

// ColumnDescriptor describes one column. Only the parameters the series
// pipeline reads or writes are typed; anything else is preserved verbatim.
type ColumnDescriptor struct {
	Kind  Kind
	State State

	// date
	From string
	To   string

	// uuid
	UUIDSeed *int

	// categorical
	PairedColumns  []string
	Uniques        *int
	OriginalValues *yaml.Node
	CrossJoin      *bool
	AnonymisingSet string

	MissProbability *float64

	fields fields
}

// NewPairedCategorical builds the descriptor of an identity column drawn
// from a reference table.
func NewPairedCategorical(state State, paired []string, uniques int, referenceTable string) *ColumnDescriptor {
	original := OriginalValuesRandom
	if state == PairedDerived {
		original = OriginalValuesPaired
	}
	d := &ColumnDescriptor{State: state}
	d.setKind(KindCategorical)
	d.SetPairedColumns(paired)
	d.SetUniques(uniques)
	d.SetOriginalValuesLabel(original)
	d.SetCrossJoin(false)
	d.SetMissProbability(0)
	d.SetAnonymisingSet(referenceTable)
	return d
}

func (d *ColumnDescriptor) Has(key string) bool {
	return d.fields.has(key)
}

func (d *ColumnDescriptor) setKind(k Kind) {
	d.Kind = k
	d.fields.touch("type")
}

func (d *ColumnDescriptor) SetWindow(from, to string) {
	d.From, d.To = from, to
	d.fields.touch("from")
	d.fields.touch("to")
}

func (d *ColumnDescriptor) SetUUIDSeed(seed int) {
	d.UUIDSeed = &seed
	d.fields.touch("uuid_seed")
}

func (d *ColumnDescriptor) SetPairedColumns(cols []string) {
	d.PairedColumns = cloneStrings(cols)
	d.fields.touch("paired_columns")
}

func (d *ColumnDescriptor) SetUniques(n int) {
	d.Uniques = &n
	d.fields.touch("uniques")
}

func (d *ColumnDescriptor) SetOriginalValuesLabel(label string) {
	d.OriginalValues = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: label}
	d.fields.touch("original_values")
}

func (d *ColumnDescriptor) SetCrossJoin(v bool) {
	d.CrossJoin = &v
	d.fields.touch("cross_join_all_unique_values")
}

func (d *ColumnDescriptor) SetMissProbability(p float64) {
	d.MissProbability = &p
	d.fields.touch("miss_probability")
}

func (d *ColumnDescriptor) SetAnonymisingSet(table string) {
	d.AnonymisingSet = table
	d.fields.touch("anonymising_set")
}

// OriginalValuesLabel returns original_values when it is a plain string
// such as "random" or "See paired column".
func (d *ColumnDescriptor) OriginalValuesLabel() string {
	if d.OriginalValues == nil || d.OriginalValues.Kind != yaml.ScalarNode {
		return ""
	}
	return d.OriginalValues.Value
}

// OriginalValueList returns original_values when it is a sequence of values.
func (d *ColumnDescriptor) OriginalValueList() []string {
	if d.OriginalValues == nil || d.OriginalValues.Kind != yaml.SequenceNode {
		return nil
	}
	var values []string
	for _, n := range d.OriginalValues.Content {
		if n.Kind == yaml.ScalarNode {
			values = append(values, n.Value)
		}
	}
	return values
}

// Extra decodes a parameter the typed model does not own.
func (d *ColumnDescriptor) Extra(key string, out interface{}) (bool, error) {
	n, ok := d.fields.extra[key]
	if !ok {
		return false, nil
	}
	return true, n.Decode(out)
}

func (d *ColumnDescriptor) Clone() *ColumnDescriptor {
	cp := *d
	if d.UUIDSeed != nil {
		v := *d.UUIDSeed
		cp.UUIDSeed = &v
	}
	if d.Uniques != nil {
		v := *d.Uniques
		cp.Uniques = &v
	}
	if d.CrossJoin != nil {
		v := *d.CrossJoin
		cp.CrossJoin = &v
	}
	if d.MissProbability != nil {
		v := *d.MissProbability
		cp.MissProbability = &v
	}
	cp.PairedColumns = cloneStrings(d.PairedColumns)
	cp.OriginalValues = cloneNode(d.OriginalValues)
	cp.fields = d.fields.clone()
	return &cp
}

func (d *ColumnDescriptor) UnmarshalYAML(node *yaml.Node) error {
	*d = ColumnDescriptor{}
	err := d.fields.decodeMapping(node, func(key string, value *yaml.Node) (bool, error) {
		switch key {
		case "type":
			return true, value.Decode(&d.Kind)
		case "from":
			return true, value.Decode(&d.From)
		case "to":
			return true, value.Decode(&d.To)
		case "uuid_seed":
			return true, value.Decode(&d.UUIDSeed)
		case "paired_columns":
			return true, value.Decode(&d.PairedColumns)
		case "uniques":
			return true, value.Decode(&d.Uniques)
		case "original_values":
			d.OriginalValues = value
			return true, nil
		case "cross_join_all_unique_values":
			return true, value.Decode(&d.CrossJoin)
		case "miss_probability":
			return true, value.Decode(&d.MissProbability)
		case "anonymising_set":
			return true, value.Decode(&d.AnonymisingSet)
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	d.State = inferState(d)
	return nil
}

// inferState recovers the pairing tag of a descriptor read back from disk.
func inferState(d *ColumnDescriptor) State {
	if d.Kind != KindCategorical || d.AnonymisingSet == "" {
		return Fresh
	}
	if d.OriginalValuesLabel() == OriginalValuesPaired {
		return PairedDerived
	}
	if len(d.PairedColumns) > 0 {
		return PairedDriving
	}
	if d.OriginalValuesLabel() == OriginalValuesRandom && strings.HasPrefix(d.AnonymisingSet, referencePrefix) {
		return PairedDriving
	}
	return Fresh
}

func (d *ColumnDescriptor) MarshalYAML() (interface{}, error) {
	return d.fields.encodeMapping(func(key string) (interface{}, bool) {
		switch key {
		case "type":
			return string(d.Kind), true
		case "from":
			return d.From, true
		case "to":
			return d.To, true
		case "uuid_seed":
			if d.UUIDSeed == nil {
				return nil, true
			}
			return *d.UUIDSeed, true
		case "paired_columns":
			return nonNil(d.PairedColumns), true
		case "uniques":
			if d.Uniques == nil {
				return nil, true
			}
			return *d.Uniques, true
		case "original_values":
			if d.OriginalValues == nil {
				return nil, true
			}
			return d.OriginalValues, true
		case "cross_join_all_unique_values":
			if d.CrossJoin == nil {
				return nil, true
			}
			return *d.CrossJoin, true
		case "miss_probability":
			if d.MissProbability == nil {
				return nil, true
			}
			return *d.MissProbability, true
		case "anonymising_set":
			return d.AnonymisingSet, true
		}
		return nil, false
	})
}
