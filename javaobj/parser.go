package javaobj

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// defaultBufferSize is the bufio.Reader size a Parser uses absent an
// explicit WithBufferSize option.
const defaultBufferSize = 4096

// Options configures a Parser. Zero value is usable; NewParser applies
// defaults for anything left unset.
type Options struct {
	BufferSize                  int
	MaxHandles                  int
	MaxDataBlockSize            int
	UseNumericArrayAcceleration bool
	NumericArrayDecoder         NumericArrayDecoder
	Logger                      *logrus.Logger
	Transformers                []Transformer
}

// Option mutates Options; applied in order by NewParser.
type Option func(*Options)

// WithBufferSize sets the internal read buffer size.
func WithBufferSize(n int) Option {
	return func(o *Options) { o.BufferSize = n }
}

// WithMaxHandles caps the number of entities the handle table may hold,
// bounding memory use against a maliciously long stream. Zero means
// unbounded.
func WithMaxHandles(n int) Option {
	return func(o *Options) { o.MaxHandles = n }
}

// WithMaxDataBlockSize caps the size of any single length-prefixed byte
// payload (a string, a byte array, a block-data segment) a Parser will
// allocate for. Zero means unbounded.
func WithMaxDataBlockSize(n int) Option {
	return func(o *Options) { o.MaxDataBlockSize = n }
}

// WithNumericArrayAcceleration opts a Parser into using dec to decode
// fixed-width primitive array payloads in bulk instead of one element at a
// time.
func WithNumericArrayAcceleration(dec NumericArrayDecoder) Option {
	return func(o *Options) {
		o.UseNumericArrayAcceleration = true
		o.NumericArrayDecoder = dec
	}
}

// WithLogger attaches a logger a Parser uses to trace its tag-by-tag
// progress through the stream. Nil (the default) disables tracing.
func WithLogger(l *logrus.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithTransformers registers user transformers, tried in order before the
// built-in default.
func WithTransformers(ts ...Transformer) Option {
	return func(o *Options) { o.Transformers = append(o.Transformers, ts...) }
}

func defaultOptions() Options {
	return Options{BufferSize: defaultBufferSize}
}

// Parser decodes a single object graph stream: the shared magic/version
// preamble followed by a sequence of top-level content values. It is not
// safe for concurrent use; give each goroutine reading a stream its own
// Parser.
type Parser struct {
	reader       *bitReader
	handles      *handleTable
	registry     *TransformerRegistry
	opts         Options
	logger       *logrus.Logger
	preambleRead bool
}

// NewParser builds a Parser reading from r.
func NewParser(r io.Reader, opts ...Option) *Parser {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Parser{
		reader:   newBitReader(r, o.BufferSize, o.MaxDataBlockSize),
		handles:  newHandleTable(o.MaxHandles),
		registry: NewTransformerRegistry(o.Transformers...),
		opts:     o,
		logger:   o.Logger,
	}
}

func (p *Parser) readPreamble() error {
	magic, err := p.reader.ReadU16()
	if err != nil {
		return errors.Wrap(err, "reading stream magic")
	}
	if magic != streamMagic {
		return errors.Wrapf(ErrMalformedStream, "bad stream magic %#04x", magic)
	}
	version, err := p.reader.ReadU16()
	if err != nil {
		return errors.Wrap(err, "reading stream version")
	}
	if version != streamVersion {
		return errors.Wrapf(ErrMalformedStream, "unsupported stream version %d", version)
	}
	return nil
}

// ParseOne reads the preamble (on the first call only) and one top-level
// content value.
func (p *Parser) ParseOne() (interface{}, error) {
	if !p.preambleRead {
		if err := p.readPreamble(); err != nil {
			return nil, err
		}
		p.preambleRead = true
	}
	return p.content(nil)
}

// ParseAll reads the preamble and every top-level content value up to the
// end of the stream.
func (p *Parser) ParseAll() ([]interface{}, error) {
	var out []interface{}
	for {
		if p.preambleRead && p.reader.atEOF() {
			return out, nil
		}
		v, err := p.ParseOne()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

func (p *Parser) logTag(name string) {
	if p.logger == nil {
		return
	}
	p.logger.WithFields(logrus.Fields{"tag": name, "offset": p.reader.Position()}).Trace("content tag")
}

// content is the central grammar dispatcher: every value in the stream,
// whether a top-level entry, a field, an array element, or an annotation,
// is read through this one switch. allowed, when non-nil, restricts which
// tags are acceptable at this call site (e.g. only class-description tags
// when resolving a super class).
func (p *Parser) content(allowed map[byte]bool) (interface{}, error) {
	tag, err := p.reader.ReadU8()
	if err != nil {
		return nil, errors.Wrap(err, "reading content tag")
	}

	name, known := tagNames[tag]
	if !known {
		_ = p.reader.UnreadU8()
		return nil, errors.Wrapf(ErrMalformedStream, "unknown content tag %#02x at offset %d", tag, p.reader.Position())
	}
	if allowed != nil && !allowed[tag] {
		return nil, errors.Wrapf(ErrMalformedStream, "tag %s not allowed here", name)
	}
	p.logTag(name)

	var value interface{}
	switch tag {
	case tcNull:
		value = nil
	case tcReference:
		value, err = p.reference()
	case tcClassDesc:
		value, err = p.parseClassDesc()
	case tcProxyClassDesc:
		value, err = p.parseProxyClassDesc()
	case tcString:
		value, err = p.parseString()
	case tcLongString:
		value, err = p.parseLongString()
	case tcArray:
		value, err = p.parseArray()
	case tcClass:
		value, err = p.parseClass()
	case tcEnum:
		value, err = p.parseEnum()
	case tcObject:
		value, err = p.parseObject()
	case tcException:
		value, err = p.parseException()
	case tcReset:
		p.handles.Reset()
		return p.content(allowed)
	case tcBlockData:
		value, err = p.parseBlockData()
	case tcBlockDataLong:
		value, err = p.parseBlockDataLong()
	case tcEndBlockData:
		value = endBlockMarker{}
	}
	if err != nil {
		return nil, err
	}

	if uw, ok := value.(ValueUnwrapper); ok {
		if inner, has := uw.UnwrappedValue(); has {
			value = inner
		}
	}
	return value, nil
}

func (p *Parser) reference() (interface{}, error) {
	raw, err := p.reader.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading reference handle")
	}
	v, err := p.handles.Get(Handle(raw))
	if err != nil {
		return nil, errors.Wrap(err, "resolving reference")
	}
	return v, nil
}

func (p *Parser) parseString() (interface{}, error) {
	s, err := p.reader.ReadUTF()
	if err != nil {
		return nil, errors.Wrap(err, "reading string")
	}
	if _, err := p.handles.Assign(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) parseLongString() (interface{}, error) {
	s, err := p.reader.ReadUTFLong()
	if err != nil {
		return nil, errors.Wrap(err, "reading long string")
	}
	if _, err := p.handles.Assign(s); err != nil {
		return nil, err
	}
	return s, nil
}

// parseClass reads a TC_CLASS value: a class description followed by a
// second handle for the java.lang.Class value itself, which resolves to
// the same descriptor. A descriptor carrying SC_ENUM is returned the same
// way as any other, so a back-reference to either handle sees the
// identical *ClassDesc regardless of the enum flag.
func (p *Parser) parseClass() (interface{}, error) {
	cd, err := p.classDesc()
	if err != nil {
		return nil, errors.Wrap(err, "reading class value")
	}
	if _, err := p.handles.Assign(cd); err != nil {
		return nil, errors.Wrap(err, "assigning class value handle")
	}
	return cd, nil
}

func (p *Parser) parseEnum() (interface{}, error) {
	cd, err := p.classDesc()
	if err != nil {
		return nil, errors.Wrap(err, "reading enum class")
	}
	ec := &EnumConstant{Class: cd}
	_, setHandle, err := p.handles.Reserve()
	if err != nil {
		return nil, err
	}
	setHandle(ec)

	nameVal, err := p.content(nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading enum constant name")
	}
	name, ok := nameVal.(string)
	if !ok {
		return nil, errors.Wrap(ErrMalformedStream, "enum constant name is not a string")
	}
	ec.Name = name
	return ec, nil
}

func (p *Parser) parseBlockData() (interface{}, error) {
	n, err := p.reader.ReadU8()
	if err != nil {
		return nil, errors.Wrap(err, "reading block data length")
	}
	data, err := p.reader.ReadBytes(int(n))
	if err != nil {
		return nil, errors.Wrap(err, "reading block data")
	}
	return data, nil
}

func (p *Parser) parseBlockDataLong() (interface{}, error) {
	n, err := p.reader.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading long block data length")
	}
	data, err := p.reader.ReadBytes(int(n))
	if err != nil {
		return nil, errors.Wrap(err, "reading long block data")
	}
	return data, nil
}

// parseException reads a TC_EXCEPTION sub-stream: a single content value
// (the exception instance), after which the handle table is discarded, so
// handles assigned before the exception are no longer resolvable.
func (p *Parser) parseException() (interface{}, error) {
	v, err := p.content(nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading exception object")
	}
	p.handles.Reset()
	return v, nil
}

// parseArray reads a TC_ARRAY value: an array's class description (whose
// name is "[" followed by the element type descriptor), a handle, a
// length, and then that many elements. Byte arrays read their payload as
// one opaque run; every other element tag is decoded one at a time unless
// numeric acceleration is configured and applicable.
func (p *Parser) parseArray() (interface{}, error) {
	cd, err := p.classDesc()
	if err != nil {
		return nil, errors.Wrap(err, "reading array class")
	}
	if cd == nil {
		return nil, errors.Wrap(ErrMalformedStream, "array with null class description")
	}
	if len(cd.Name) < 2 || cd.Name[0] != '[' {
		return nil, errors.Wrapf(ErrMalformedStream, "array with invalid class name %q", cd.Name)
	}
	elemTag := cd.Name[1]

	arr := &JavaArray{Class: cd, ElemTag: elemTag}
	_, setHandle, err := p.handles.Reserve()
	if err != nil {
		return nil, err
	}
	setHandle(arr)

	length, err := p.reader.ReadI32()
	if err != nil {
		return nil, errors.Wrap(err, "reading array length")
	}
	arr.Length = length

	if elemTag == 'B' {
		raw, err := p.reader.ReadBytes(int(length))
		if err != nil {
			return nil, errors.Wrap(err, "reading byte array payload")
		}
		arr.Bytes = raw
		return arr, nil
	}

	if p.opts.UseNumericArrayAcceleration && isAccelerableTag(elemTag) {
		vals, err := p.decodeNumericArray(elemTag, length)
		if err != nil {
			return nil, err
		}
		arr.Elements = vals
		return arr, nil
	}

	elements := make([]interface{}, length)
	for i := range elements {
		v, err := p.decodeField(FieldDesc{Tag: elemTag})
		if err != nil {
			return nil, errors.Wrapf(err, "reading array element %d", i)
		}
		elements[i] = v
	}
	arr.Elements = elements
	return arr, nil
}

// parseObject reads a TC_OBJECT value: a class description, a handle
// reserved before any field is read (so a self-reference mid-construction
// resolves to this same instance), then each ancestor's field/annotation
// data from the most ancestral class down to cd itself, and finally any
// finishing pass the transformer's representation requires.
func (p *Parser) parseObject() (interface{}, error) {
	cd, err := p.classDesc()
	if err != nil {
		return nil, errors.Wrap(err, "reading object class")
	}
	if cd == nil {
		return nil, errors.Wrap(ErrMalformedStream, "object with null class description")
	}

	sink, transformer := p.registry.Create(cd)
	_, setHandle, err := p.handles.Reserve()
	if err != nil {
		return nil, err
	}
	setHandle(sink)

	for _, ancestor := range cd.chain() {
		if err := p.readClassData(ancestor, sink, transformer); err != nil {
			return nil, wrapAt(err, p.reader.Position(), ancestor.Name)
		}
	}

	if finalizer, ok := transformer.(InstanceFinalizer); ok {
		if err := finalizer.LoadFromInstance(sink); err != nil {
			return nil, errors.Wrapf(ErrTransformerFailed, "finalizing instance of %s: %v", cd.Name, err)
		}
	}

	return sink, nil
}

// readClassData reads one ancestor's contribution to an object: its
// declared fields (plus writeObject annotations, for SC_WRITE_METHOD
// classes), or, for Externalizable classes, whatever the registered
// transformer hook consumes.
func (p *Parser) readClassData(cd *ClassDesc, sink FieldSink, transformer Transformer) error {
	switch {
	case cd.IsExternalizable() && cd.HasBlockData():
		loader, ok := transformer.(BlockDataLoader)
		if !ok {
			return errors.Wrapf(ErrUnsupported, "class %s is Externalizable but its transformer has no BlockDataLoader", cd.Name)
		}
		accepted, err := loader.LoadFromBlockData(sink, p)
		if err != nil {
			return errors.Wrap(err, "loading block data")
		}
		if !accepted {
			return errors.Wrapf(ErrTransformerFailed, "transformer rejected block data for %s", cd.Name)
		}
		return p.expectEndBlockData()

	case cd.IsExternalizable():
		loader, ok := transformer.(CustomWriteObjectLoader)
		if !ok {
			return errors.Wrapf(ErrUnsupported, "class %s uses protocol-v1 external content with no registered writeObject hook", cd.Name)
		}
		_, err := loader.LoadCustomWriteObject(p, cd.Name)
		return err

	case cd.IsSerializable():
		vals, err := p.readFieldValues(cd)
		if err != nil {
			return err
		}
		for name, v := range vals {
			sink.SetField(cd, name, v)
		}
		if cd.HasWriteMethod() {
			anns, err := p.annotations(nil)
			if err != nil {
				return errors.Wrap(err, "reading writeObject annotations")
			}
			for _, a := range anns {
				sink.AppendAnnotation(cd, a)
			}
		}
		return nil

	default:
		return errors.Wrapf(ErrUnsupported, "class %s has unsupported flag combination %#02x", cd.Name, cd.Flags)
	}
}

func (p *Parser) expectEndBlockData() error {
	_, err := p.content(map[byte]bool{tcEndBlockData: true})
	return errors.Wrap(err, "expecting end of block data")
}
