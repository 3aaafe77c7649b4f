package javaobj

import (
	"encoding/json"
	"fmt"
)

// FieldDesc describes one field of a ClassDesc: its type tag (one of
// B C D F I J S Z L [) and name; L and [ fields additionally carry the
// Java type signature string read from the stream.
type FieldDesc struct {
	Tag       byte
	Name      string
	ClassName string // only set for Tag == 'L' or Tag == '['
}

func (f FieldDesc) isObjectOrArray() bool { return f.Tag == 'L' || f.Tag == '[' }

// ClassDesc is a parsed class description entity: name, stable UID, flag
// bitset, ordered field list, annotations, and a super-class link. Class
// descriptors are immutable once fully parsed and are registered in the
// handle table right after their name and UID, before the field list is
// read, so a recursive self-reference inside the field list resolves
// correctly.
type ClassDesc struct {
	Name             string
	SerialVersionUID uint64
	Flags            uint8
	Fields           []FieldDesc
	Annotations      []interface{}
	Super            *ClassDesc

	IsProxy    bool
	Interfaces []string // only set when IsProxy
}

func (c *ClassDesc) IsEnum() bool           { return c != nil && c.Flags&scEnum != 0 }
func (c *ClassDesc) IsSerializable() bool   { return c != nil && c.Flags&scSerializable != 0 }
func (c *ClassDesc) IsExternalizable() bool { return c != nil && c.Flags&scExternalizable != 0 }
func (c *ClassDesc) HasWriteMethod() bool   { return c != nil && c.Flags&scWriteMethod != 0 }
func (c *ClassDesc) HasBlockData() bool     { return c != nil && c.Flags&scBlockData != 0 }

// chain returns the super-class chain from most-ancestral to this
// descriptor, the order fields must be read in.
func (c *ClassDesc) chain() []*ClassDesc {
	var rev []*ClassDesc
	for cur := c; cur != nil; cur = cur.Super {
		rev = append(rev, cur)
	}
	chain := make([]*ClassDesc, len(rev))
	for i, cd := range rev {
		chain[len(rev)-1-i] = cd
	}
	return chain
}

// Record is the default, generic representation for a class the
// TransformerRegistry's default transformer does not specially recognize:
// a flat field map plus a per-ancestor breakdown.
type Record struct {
	Class              *ClassDesc
	Fields             map[string]interface{}
	FieldsByClass      map[*ClassDesc]map[string]interface{}
	AnnotationsByClass map[*ClassDesc][]interface{}

	// Value is set by a transformer's LoadFromInstance when the class is
	// recognized as collapsing to a simpler Go shape (a Mapping, a
	// Sequence, a time.Time, an unwrapped scalar...). The graph parser
	// substitutes Value in place of the Record wherever this instance is
	// read from a field, an array slot, or the top level, the moment the
	// substitution becomes available. A back-reference resolved while
	// Value is still nil (i.e. while this instance is mid-construction)
	// correctly sees the Record itself, preserving self-reference identity.
	Value interface{}
}

// SetField implements FieldSink.
func (r *Record) SetField(cd *ClassDesc, name string, value interface{}) {
	if r.FieldsByClass[cd] == nil {
		r.FieldsByClass[cd] = map[string]interface{}{}
	}
	r.FieldsByClass[cd][name] = value
	r.Fields[name] = value
}

// AppendAnnotation implements FieldSink.
func (r *Record) AppendAnnotation(cd *ClassDesc, value interface{}) {
	r.AnnotationsByClass[cd] = append(r.AnnotationsByClass[cd], value)
}

// UnwrappedValue implements ValueUnwrapper.
func (r *Record) UnwrappedValue() (interface{}, bool) {
	return r.Value, r.Value != nil
}

func newRecord(cd *ClassDesc) *Record {
	return &Record{
		Class:              cd,
		Fields:             map[string]interface{}{},
		FieldsByClass:      map[*ClassDesc]map[string]interface{}{},
		AnnotationsByClass: map[*ClassDesc][]interface{}{},
	}
}

func (r *Record) String() string {
	name := "<nil>"
	if r.Class != nil {
		name = r.Class.Name
	}
	return fmt.Sprintf("Record(%s)", name)
}

// MarshalJSON renders the collapsed Value when a transformer has set one,
// otherwise the flattened field map (excluding the ClassDesc chain, which
// is not itself JSON-meaningful).
func (r *Record) MarshalJSON() ([]byte, error) {
	if r.Value != nil {
		return json.Marshal(r.Value)
	}
	return json.Marshal(r.Fields)
}

// MapEntry is one key/value pair of a Mapping. Java map keys need not be
// strings (and are not comparable in the general case, e.g. a key that is
// itself an object graph), so Mapping keeps pairs in an ordered slice
// rather than a Go map.
type MapEntry struct {
	Key   interface{}
	Value interface{}
}

// Mapping is the representation DefaultTransformer produces for
// HashMap/Hashtable/LinkedHashMap/TreeMap/EnumMap.
type Mapping []MapEntry

func (m Mapping) Get(key interface{}) (interface{}, bool) {
	for _, e := range m {
		if fmt.Sprint(e.Key) == fmt.Sprint(key) {
			return e.Value, true
		}
	}
	return nil, false
}

// MarshalJSON renders a Mapping the way a JSON object would, stringifying
// keys with fmt.Sprint since JSON objects require string keys and Java
// map keys do not.
func (m Mapping) MarshalJSON() ([]byte, error) {
	asMap := make(map[string]interface{}, len(m))
	for _, e := range m {
		asMap[fmt.Sprint(e.Key)] = e.Value
	}
	return json.Marshal(asMap)
}

// Sequence is the representation for ArrayList/LinkedList/Vector/
// ConcurrentLinkedQueue/ArrayDeque/Arrays$ArrayList/CopyOnWriteArrayList.
type Sequence []interface{}

// Set is the representation for HashSet/LinkedHashSet/TreeSet.
type Set []interface{}

// EnumConstant is the value produced for any class descriptor carrying
// SC_ENUM: the descriptor plus the constant's name.
type EnumConstant struct {
	Class *ClassDesc
	Name  string
}

func (e EnumConstant) String() string { return e.Name }

// JavaArray is the representation for TC_ARRAY. Byte arrays keep their
// element tag so callers can recover the raw byte sequence without walking
// Elements; every other primitive/object array uses Elements.
type JavaArray struct {
	Class    *ClassDesc
	ElemTag  byte
	Length   int32
	Bytes    []byte        // populated only when ElemTag == 'B'
	Elements []interface{} // populated for every other element tag
}

// MarshalJSON renders a byte array as its Bytes (a base64 string, as
// encoding/json does for []byte) and every other array as the JSON list
// of its Elements.
func (a *JavaArray) MarshalJSON() ([]byte, error) {
	if a.ElemTag == 'B' {
		return json.Marshal(a.Bytes)
	}
	return json.Marshal(a.Elements)
}
