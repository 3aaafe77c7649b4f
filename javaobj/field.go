package javaobj

import "github.com/pkg/errors"

// primitiveTags is the set of one-byte field type tags that decode to a
// fixed-width primitive rather than dispatching back into content().
var primitiveTags = map[byte]bool{
	'B': true, 'C': true, 'D': true, 'F': true,
	'I': true, 'J': true, 'S': true, 'Z': true,
}

// decodeField reads one field's value, dispatching object and array
// fields back into the shared content grammar.
func (p *Parser) decodeField(f FieldDesc) (interface{}, error) {
	switch f.Tag {
	case 'B':
		v, err := p.reader.ReadI8()
		return v, errors.Wrap(err, "reading byte field")
	case 'C':
		v, err := p.reader.ReadU16()
		if err != nil {
			return nil, errors.Wrap(err, "reading char field")
		}
		return string(rune(v)), nil
	case 'D':
		v, err := p.reader.ReadF64()
		return v, errors.Wrap(err, "reading double field")
	case 'F':
		v, err := p.reader.ReadF32()
		return v, errors.Wrap(err, "reading float field")
	case 'I':
		v, err := p.reader.ReadI32()
		return v, errors.Wrap(err, "reading int field")
	case 'J':
		v, err := p.reader.ReadI64()
		return v, errors.Wrap(err, "reading long field")
	case 'S':
		v, err := p.reader.ReadI16()
		return v, errors.Wrap(err, "reading short field")
	case 'Z':
		v, err := p.reader.ReadI8()
		if err != nil {
			return nil, errors.Wrap(err, "reading boolean field")
		}
		return v != 0, nil
	case 'L', '[':
		v, err := p.content(nil)
		return v, errors.Wrap(err, "reading object/array field")
	default:
		return nil, errors.Wrapf(ErrMalformedStream, "unknown field type tag %q", string(f.Tag))
	}
}

// readFieldValues reads cd's own declared fields (not its ancestors') in
// declaration order.
func (p *Parser) readFieldValues(cd *ClassDesc) (map[string]interface{}, error) {
	vals := make(map[string]interface{}, len(cd.Fields))
	for _, f := range cd.Fields {
		v, err := p.decodeField(f)
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %q of class %s", f.Name, cd.Name)
		}
		vals[f.Name] = v
	}
	return vals, nil
}
