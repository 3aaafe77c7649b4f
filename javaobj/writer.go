package javaobj

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Serialized versions of java.util.ArrayList, HashMap, HashSet and Date,
// with the same serialVersionUIDs recognized on the read side. All four
// have zero declared fields; their writeObject methods write everything
// through block data, which Writer reproduces directly instead of
// reconstructing a field table.
var (
	arrayListClassDesc = &ClassDesc{Name: "java.util.ArrayList", SerialVersionUID: 0x7881d21d99c7619d, Flags: scSerializable | scWriteMethod}
	hashMapClassDesc   = &ClassDesc{Name: "java.util.HashMap", SerialVersionUID: 0x0507dac1c31660d1, Flags: scSerializable | scWriteMethod}
	hashSetClassDesc   = &ClassDesc{Name: "java.util.HashSet", SerialVersionUID: 0xba44859596b8b734, Flags: scSerializable | scWriteMethod}
	dateClassDesc      = &ClassDesc{Name: "java.util.Date", SerialVersionUID: 0x686a81014b597419, Flags: scSerializable | scWriteMethod}
)

// Writer emits a subset of the Java Object Serialization Stream protocol:
// strings, boxed scalars, Sequence (as an ArrayList), Mapping (as a
// HashMap), Set (as a HashSet), time.Time (as a java.util.Date), []byte
// (as block data), and verbatim re-emission of a *JavaArray,
// *EnumConstant or *Record previously produced by a Parser (reusing its
// preserved *ClassDesc). It does not support writing an Externalizable
// class's block data, since it has no writeObject/writeExternal logic of
// its own to replay.
//
// A symmetric handle table tracks already-written entities so repeated
// field values (or, for a parsed *Record, its own self-reference) become
// TC_REFERENCE instead of being written twice. Composite values are keyed
// by pointer identity; strings are keyed by content, since Go strings
// carry no object identity of their own — two equal strings written to
// the same Writer collapse onto a single handle even if the original JVM
// object graph held them as distinct instances.
type Writer struct {
	w        *bufio.Writer
	byIdentity map[interface{}]Handle
	byString   map[string]Handle
	nextHandle Handle
	wrotePreamble bool
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:          bufio.NewWriter(w),
		byIdentity: map[interface{}]Handle{},
		byString:   map[string]Handle{},
		nextHandle: baseWireHandle,
	}
}

// WriteValue writes the stream preamble (on the first call only) and one
// top-level content value.
func (w *Writer) WriteValue(v interface{}) error {
	if !w.wrotePreamble {
		if err := w.writeU16(streamMagic); err != nil {
			return err
		}
		if err := w.writeU16(streamVersion); err != nil {
			return err
		}
		w.wrotePreamble = true
	}
	return w.writeContentValue(v)
}

// Flush pushes any buffered bytes to the underlying io.Writer.
func (w *Writer) Flush() error { return w.w.Flush() }

func (w *Writer) assignHandle(key interface{}) Handle {
	h := w.nextHandle
	w.nextHandle++
	if s, ok := key.(string); ok {
		w.byString[s] = h
	} else {
		w.byIdentity[key] = h
	}
	return h
}

func (w *Writer) writeReference(h Handle) error {
	if err := w.writeU8(tcReference); err != nil {
		return err
	}
	return w.writeU32(uint32(h))
}

func (w *Writer) writeU8(v byte) error  { return w.w.WriteByte(v) }
func (w *Writer) writeI8(v int8) error  { return w.writeU8(byte(v)) }
func (w *Writer) writeRaw(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

func (w *Writer) writeU16(v uint16) error {
	return w.writeRaw([]byte{byte(v >> 8), byte(v)})
}
func (w *Writer) writeI16(v int16) error { return w.writeU16(uint16(v)) }

func (w *Writer) writeU32(v uint32) error {
	return w.writeRaw([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}
func (w *Writer) writeI32(v int32) error { return w.writeU32(uint32(v)) }

func (w *Writer) writeU64(v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return w.writeRaw(buf)
}
func (w *Writer) writeI64(v int64) error { return w.writeU64(uint64(v)) }

func (w *Writer) writeF32(v float32) error { return w.writeU32(math.Float32bits(v)) }
func (w *Writer) writeF64(v float64) error { return w.writeU64(math.Float64bits(v)) }

// writeUTFRaw writes a length-prefixed modified-UTF-8 string directly,
// with no handle or back-reference, matching how class names, field
// names, and proxy interface names are encoded (ReadUTF on the read side,
// never routed through content()).
func (w *Writer) writeUTFRaw(s string) error {
	raw := encodeModifiedUTF8(s)
	if err := w.writeU16(uint16(len(raw))); err != nil {
		return err
	}
	return w.writeRaw(raw)
}

// writeStringValue writes a TC_STRING content value, deduplicating
// against any identical string already written in this session.
func (w *Writer) writeStringValue(s string) error {
	if h, ok := w.byString[s]; ok {
		return w.writeReference(h)
	}
	if err := w.writeU8(tcString); err != nil {
		return err
	}
	if err := w.writeUTFRaw(s); err != nil {
		return err
	}
	w.assignHandle(s)
	return nil
}

func (w *Writer) writeClassDesc(cd *ClassDesc) error {
	if cd == nil {
		return w.writeU8(tcNull)
	}
	if h, ok := w.byIdentity[cd]; ok {
		return w.writeReference(h)
	}

	if cd.IsProxy {
		if err := w.writeU8(tcProxyClassDesc); err != nil {
			return err
		}
		if err := w.writeU32(uint32(len(cd.Interfaces))); err != nil {
			return err
		}
		for _, iface := range cd.Interfaces {
			if err := w.writeUTFRaw(iface); err != nil {
				return err
			}
		}
		w.assignHandle(cd)
	} else {
		if err := w.writeU8(tcClassDesc); err != nil {
			return err
		}
		if err := w.writeUTFRaw(cd.Name); err != nil {
			return err
		}
		if err := w.writeU64(cd.SerialVersionUID); err != nil {
			return err
		}
		w.assignHandle(cd)
		if err := w.writeU8(cd.Flags); err != nil {
			return err
		}
		if err := w.writeU16(uint16(len(cd.Fields))); err != nil {
			return err
		}
		for _, f := range cd.Fields {
			if err := w.writeFieldDesc(f); err != nil {
				return err
			}
		}
	}

	for _, a := range cd.Annotations {
		if err := w.writeContentValue(a); err != nil {
			return err
		}
	}
	if err := w.writeU8(tcEndBlockData); err != nil {
		return err
	}
	return w.writeClassDesc(cd.Super)
}

func (w *Writer) writeFieldDesc(f FieldDesc) error {
	if err := w.writeU8(f.Tag); err != nil {
		return err
	}
	if err := w.writeUTFRaw(f.Name); err != nil {
		return err
	}
	if f.isObjectOrArray() {
		return w.writeStringValue(f.ClassName)
	}
	return nil
}

func (w *Writer) writeFieldValue(f FieldDesc, v interface{}) error {
	switch f.Tag {
	case 'B':
		i, _ := v.(int8)
		return w.writeI8(i)
	case 'C':
		var r rune
		if s, ok := v.(string); ok {
			for _, rr := range s {
				r = rr
				break
			}
		}
		return w.writeU16(uint16(r))
	case 'D':
		d, _ := v.(float64)
		return w.writeF64(d)
	case 'F':
		fv, _ := v.(float32)
		return w.writeF32(fv)
	case 'I':
		i, _ := v.(int32)
		return w.writeI32(i)
	case 'J':
		i, _ := v.(int64)
		return w.writeI64(i)
	case 'S':
		i, _ := v.(int16)
		return w.writeI16(i)
	case 'Z':
		b, _ := v.(bool)
		if b {
			return w.writeI8(1)
		}
		return w.writeI8(0)
	case 'L', '[':
		return w.writeContentValue(v)
	default:
		return errors.Errorf("javaobj: writer cannot encode field tag %q", string(f.Tag))
	}
}

// writeObjectValue emits rec as TC_OBJECT, replaying its preserved
// per-ancestor field values and writeObject annotations in order.
// Externalizable ancestors are rejected: Writer has no writeExternal
// logic to call, so it cannot know what their block data should contain.
func (w *Writer) writeObjectValue(rec *Record) error {
	if h, ok := w.byIdentity[rec]; ok {
		return w.writeReference(h)
	}
	if err := w.writeU8(tcObject); err != nil {
		return err
	}
	if err := w.writeClassDesc(rec.Class); err != nil {
		return err
	}
	w.assignHandle(rec)

	for _, ancestor := range rec.Class.chain() {
		if ancestor.IsExternalizable() {
			return errors.Wrapf(ErrUnsupported, "writer cannot re-emit Externalizable class %s", ancestor.Name)
		}
		fields := rec.FieldsByClass[ancestor]
		for _, f := range ancestor.Fields {
			if err := w.writeFieldValue(f, fields[f.Name]); err != nil {
				return errors.Wrapf(err, "writing field %q of %s", f.Name, ancestor.Name)
			}
		}
		if ancestor.HasWriteMethod() {
			for _, a := range rec.AnnotationsByClass[ancestor] {
				if err := w.writeContentValue(a); err != nil {
					return err
				}
			}
			if err := w.writeU8(tcEndBlockData); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeEnumValue(ec *EnumConstant) error {
	if h, ok := w.byIdentity[ec]; ok {
		return w.writeReference(h)
	}
	if err := w.writeU8(tcEnum); err != nil {
		return err
	}
	if err := w.writeClassDesc(ec.Class); err != nil {
		return err
	}
	w.assignHandle(ec)
	return w.writeStringValue(ec.Name)
}

func (w *Writer) writeClassValue(cd *ClassDesc) error {
	if err := w.writeU8(tcClass); err != nil {
		return err
	}
	if err := w.writeClassDesc(cd); err != nil {
		return err
	}
	w.assignHandle(cd)
	return nil
}

// writeArrayValue re-emits a *JavaArray exactly as parsed, which is why it
// requires arr.Class to be set: Writer has no way to recover an array's
// element type signature (or a trustworthy serialVersionUID) for an array
// value a caller built by hand instead of one a Parser produced.
func (w *Writer) writeArrayValue(arr *JavaArray) error {
	if h, ok := w.byIdentity[arr]; ok {
		return w.writeReference(h)
	}
	if arr.Class == nil {
		return errors.Wrap(ErrUnsupported, "writer cannot emit a JavaArray with no preserved class descriptor")
	}
	if err := w.writeU8(tcArray); err != nil {
		return err
	}
	if err := w.writeClassDesc(arr.Class); err != nil {
		return err
	}
	w.assignHandle(arr)
	if err := w.writeI32(arr.Length); err != nil {
		return err
	}
	if arr.ElemTag == 'B' {
		return w.writeRaw(arr.Bytes)
	}
	for i, el := range arr.Elements {
		if err := w.writeFieldValue(FieldDesc{Tag: arr.ElemTag}, el); err != nil {
			return errors.Wrapf(err, "writing array element %d", i)
		}
	}
	return nil
}

// defaultCollectionCapacityBlockSize is a placeholder capacity a fresh
// (not reparsed) HashMap/HashSet writes ahead of its size field: the
// decoder only reads the size word at a fixed offset and ignores the
// rest, so any capacity/load-factor placeholder satisfies it.
const defaultCollectionCapacityBlockSize = 16

func (w *Writer) writeSequenceValue(seq Sequence) error {
	block := make([]byte, 4)
	binary.BigEndian.PutUint32(block, uint32(len(seq)))
	data := make([]interface{}, 0, len(seq)+1)
	data = append(data, block)
	for _, el := range seq {
		data = append(data, el)
	}
	rec := newRecord(arrayListClassDesc)
	rec.AnnotationsByClass[arrayListClassDesc] = data
	return w.writeObjectValue(rec)
}

func (w *Writer) writeMappingValue(m Mapping) error {
	block := make([]byte, 8)
	binary.BigEndian.PutUint32(block[0:4], defaultCollectionCapacityBlockSize)
	binary.BigEndian.PutUint32(block[4:8], uint32(len(m)))
	data := make([]interface{}, 0, len(m)*2+1)
	data = append(data, block)
	for _, e := range m {
		data = append(data, e.Key, e.Value)
	}
	rec := newRecord(hashMapClassDesc)
	rec.AnnotationsByClass[hashMapClassDesc] = data
	return w.writeObjectValue(rec)
}

func (w *Writer) writeSetValue(s Set) error {
	block := make([]byte, 12)
	binary.BigEndian.PutUint32(block[0:4], defaultCollectionCapacityBlockSize)
	binary.BigEndian.PutUint32(block[4:8], math.Float32bits(0.75))
	binary.BigEndian.PutUint32(block[8:12], uint32(len(s)))
	data := make([]interface{}, 0, len(s)+1)
	data = append(data, block)
	for _, el := range s {
		data = append(data, el)
	}
	rec := newRecord(hashSetClassDesc)
	rec.AnnotationsByClass[hashSetClassDesc] = data
	return w.writeObjectValue(rec)
}

// boxedClassDesc returns the preallocated class descriptor used to wrap a
// bare Go scalar into its Java boxed-primitive equivalent, so a Sequence
// or Mapping element that came from decodeField (an int32, a bool, ...)
// round-trips as a real object rather than a protocol-invalid bare value.
func boxedClassDesc(fieldTag byte, name string, uid uint64) *ClassDesc {
	return &ClassDesc{
		Name:             name,
		SerialVersionUID: uid,
		Flags:            scSerializable,
		Fields:           []FieldDesc{{Tag: fieldTag, Name: "value"}},
	}
}

var (
	byteClassDesc      = boxedClassDesc('B', "java.lang.Byte", 0x9c4e6084ee50f51c)
	charClassDesc      = boxedClassDesc('C', "java.lang.Character", 0x348b47d96b1a2678)
	doubleClassDesc    = boxedClassDesc('D', "java.lang.Double", 0x80b3c24a296bfb04)
	floatClassDesc     = boxedClassDesc('F', "java.lang.Float", 0xdaedc9a2db3cf0ec)
	integerClassDesc   = boxedClassDesc('I', "java.lang.Integer", 0x12e2a0a4f7818738)
	longClassDesc      = boxedClassDesc('J', "java.lang.Long", 0x3b8be490cc8f23df)
	shortClassDesc     = boxedClassDesc('S', "java.lang.Short", 0x684d37133460da52)
	booleanClassDesc   = boxedClassDesc('Z', "java.lang.Boolean", 0xcd207280d59cfaee)
)

func boxedRecord(cd *ClassDesc, value interface{}) *Record {
	rec := newRecord(cd)
	rec.SetField(cd, "value", value)
	return rec
}

func (w *Writer) writeContentValue(v interface{}) error {
	switch val := v.(type) {
	case nil:
		return w.writeU8(tcNull)
	case string:
		return w.writeStringValue(val)
	case *Record:
		return w.writeObjectValue(val)
	case Sequence:
		return w.writeSequenceValue(val)
	case Mapping:
		return w.writeMappingValue(val)
	case Set:
		return w.writeSetValue(val)
	case *JavaArray:
		return w.writeArrayValue(val)
	case *EnumConstant:
		return w.writeEnumValue(val)
	case *ClassDesc:
		return w.writeClassValue(val)
	case []byte:
		if len(val) <= 0xFF {
			if err := w.writeU8(tcBlockData); err != nil {
				return err
			}
			if err := w.writeU8(byte(len(val))); err != nil {
				return err
			}
		} else {
			if err := w.writeU8(tcBlockDataLong); err != nil {
				return err
			}
			if err := w.writeU32(uint32(len(val))); err != nil {
				return err
			}
		}
		return w.writeRaw(val)
	case time.Time:
		block := make([]byte, 8)
		binary.BigEndian.PutUint64(block, uint64(val.UnixMilli()))
		rec := newRecord(dateClassDesc)
		rec.AnnotationsByClass[dateClassDesc] = []interface{}{block}
		return w.writeObjectValue(rec)
	case bool:
		return w.writeObjectValue(boxedRecord(booleanClassDesc, val))
	case int8:
		return w.writeObjectValue(boxedRecord(byteClassDesc, val))
	case int16:
		return w.writeObjectValue(boxedRecord(shortClassDesc, val))
	case int32:
		return w.writeObjectValue(boxedRecord(integerClassDesc, val))
	case int64:
		return w.writeObjectValue(boxedRecord(longClassDesc, val))
	case float32:
		return w.writeObjectValue(boxedRecord(floatClassDesc, val))
	case float64:
		return w.writeObjectValue(boxedRecord(doubleClassDesc, val))
	default:
		return errors.Errorf("javaobj: writer cannot encode value of type %T", v)
	}
}
