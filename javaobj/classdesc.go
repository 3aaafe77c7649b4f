package javaobj

import "github.com/pkg/errors"

// classDesc reads a class-description reference: TC_NULL, TC_REFERENCE, or
// an actual TC_CLASSDESC/TC_PROXYCLASSDESC record, expressed as a
// restricted call into the shared content dispatcher.
func (p *Parser) classDesc() (*ClassDesc, error) {
	v, err := p.content(allowedClassDescTags)
	if err != nil {
		return nil, errors.Wrap(err, "reading class description")
	}
	if v == nil {
		return nil, nil
	}
	cd, ok := v.(*ClassDesc)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedStream, "expected class description, got %T", v)
	}
	return cd, nil
}

// parseClassDesc reads a TC_CLASSDESC record: name, UID, flags, field
// table, annotations, and the super-class chain. The handle is assigned
// before fields are read so a field's type signature (or, in principle, a
// self-referential class hierarchy) can resolve back to this descriptor.
func (p *Parser) parseClassDesc() (interface{}, error) {
	cd := &ClassDesc{}

	name, err := p.reader.ReadUTF()
	if err != nil {
		return nil, errors.Wrap(err, "reading class name")
	}
	if len(name) < 2 {
		return nil, errors.Wrapf(ErrMalformedStream, "invalid class name %q", name)
	}
	cd.Name = name

	uidBytes, err := p.reader.ReadBytes(8)
	if err != nil {
		return nil, errors.Wrap(err, "reading serialVersionUID")
	}
	var uid uint64
	for _, b := range uidBytes {
		uid = uid<<8 | uint64(b)
	}
	cd.SerialVersionUID = uid

	if _, err := p.handles.Assign(cd); err != nil {
		return nil, errors.Wrap(err, "assigning class descriptor handle")
	}

	flags, err := p.reader.ReadU8()
	if err != nil {
		return nil, errors.Wrap(err, "reading class flags")
	}
	cd.Flags = flags

	fieldCount, err := p.reader.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading field count")
	}

	for i := 0; i < int(fieldCount); i++ {
		f, err := p.fieldDesc()
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d of class %s", i, cd.Name)
		}
		cd.Fields = append(cd.Fields, f)
	}

	anns, err := p.annotations(nil)
	if err != nil {
		return nil, errors.Wrapf(err, "reading annotations of class %s", cd.Name)
	}
	cd.Annotations = anns

	super, err := p.classDesc()
	if err != nil {
		return nil, errors.Wrapf(err, "reading super class of %s", cd.Name)
	}
	cd.Super = super

	return cd, nil
}

// parseProxyClassDesc reads a TC_PROXYCLASSDESC record: an interface count
// followed by that many interface names, then annotations and super-class,
// exactly like a normal class description minus the name/UID/field table.
func (p *Parser) parseProxyClassDesc() (interface{}, error) {
	cd := &ClassDesc{IsProxy: true}

	if _, err := p.handles.Assign(cd); err != nil {
		return nil, errors.Wrap(err, "assigning proxy class descriptor handle")
	}

	count, err := p.reader.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading proxy interface count")
	}

	for i := 0; i < int(count); i++ {
		name, err := p.reader.ReadUTF()
		if err != nil {
			return nil, errors.Wrapf(err, "reading proxy interface %d", i)
		}
		cd.Interfaces = append(cd.Interfaces, name)
	}
	if len(cd.Interfaces) > 0 {
		cd.Name = cd.Interfaces[0]
	}

	anns, err := p.annotations(nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading proxy annotations")
	}
	cd.Annotations = anns

	super, err := p.classDesc()
	if err != nil {
		return nil, errors.Wrap(err, "reading proxy super class")
	}
	cd.Super = super

	return cd, nil
}

// fieldDesc reads a single field descriptor: a one-byte type tag, a
// short-UTF name, and (for object/array fields) a type-signature string
// read through the string sub-parser so a signature that is itself a
// back-reference resolves correctly.
func (p *Parser) fieldDesc() (FieldDesc, error) {
	tag, err := p.reader.ReadU8()
	if err != nil {
		return FieldDesc{}, errors.Wrap(err, "reading field type tag")
	}

	name, err := p.reader.ReadUTF()
	if err != nil {
		return FieldDesc{}, errors.Wrap(err, "reading field name")
	}

	f := FieldDesc{Tag: tag, Name: name}
	if !f.isObjectOrArray() {
		if _, ok := primitiveTags[tag]; !ok {
			return FieldDesc{}, errors.Wrapf(ErrMalformedStream, "unknown field type tag %q", string(tag))
		}
		return f, nil
	}

	sig, err := p.content(nil)
	if err != nil {
		return FieldDesc{}, errors.Wrap(err, "reading field type signature")
	}
	className, ok := sig.(string)
	if !ok {
		return FieldDesc{}, errors.Wrap(ErrMalformedStream, "field type signature is not a string")
	}
	f.ClassName = className
	return f, nil
}

// annotations reads content values until TC_ENDBLOCKDATA, the sequence a
// Java writeObject override (or an Externalizable's block-data payload)
// produces between a class's declared fields and the next class in the
// chain.
func (p *Parser) annotations(allowed map[byte]bool) ([]interface{}, error) {
	var anns []interface{}
	for {
		v, err := p.content(allowed)
		if err != nil {
			return nil, errors.Wrap(err, "reading annotation")
		}
		if _, isEnd := v.(endBlockMarker); isEnd {
			return anns, nil
		}
		anns = append(anns, v)
	}
}
