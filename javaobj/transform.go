package javaobj

// Transformer is a caller-supplied policy that converts a recognized class
// descriptor into a caller-preferred representation. CreateInstance is the
// only required capability; the rest are optional interfaces a Transformer
// may additionally implement, discovered via type assertion the way
// io.ReaderFrom or http.Hijacker are.
type Transformer interface {
	// CreateInstance returns the field sink to use for cd, and true if this
	// transformer claims the class. Returning false lets the registry fall
	// through to the next transformer (and ultimately the default).
	CreateInstance(cd *ClassDesc) (sink FieldSink, ok bool)
}

// FieldSink receives field values and writeObject annotations as the
// parser walks an object's super-class chain. *Record is the built-in
// sink; a custom Transformer may return its own type as long as it
// implements FieldSink, so the parser always has somewhere to put the
// per-ancestor data even when the final representation is caller-defined.
type FieldSink interface {
	SetField(cd *ClassDesc, name string, value interface{})
	AppendAnnotation(cd *ClassDesc, value interface{})
}

// ValueUnwrapper lets a FieldSink collapse itself into a simpler value
// once fully loaded (e.g. *Record collapsing into a Mapping). The graph
// parser checks every value it produces against this interface and
// substitutes the unwrapped value the moment one is available.
type ValueUnwrapper interface {
	UnwrappedValue() (value interface{}, ok bool)
}

// BlockDataLoader is implemented by a Transformer whose instances need to
// consume an Externalizable's opaque block-data payload themselves
// (SC_EXTERNALIZABLE | SC_BLOCK_DATA). Returning false (with a nil error)
// signals a structural rejection, surfaced to the caller as
// ErrTransformerFailed.
type BlockDataLoader interface {
	LoadFromBlockData(representation interface{}, p *Parser) (bool, error)
}

// InstanceFinalizer is implemented by a Transformer whose representation
// needs a finishing pass once every ancestor's fields and annotations have
// been read (e.g. DefaultTransformer copying HashMap key/value pairs out of
// its annotation list into a Mapping).
type InstanceFinalizer interface {
	LoadFromInstance(representation interface{}) error
}

// CustomWriteObjectLoader is implemented by a Transformer that knows how to
// decode protocol-version-1 external content (a legacy Externalizable
// without SC_BLOCK_DATA) for a specific class name. Absent a registered
// loader, such streams fail with ErrUnsupported.
type CustomWriteObjectLoader interface {
	LoadCustomWriteObject(p *Parser, className string) (*ClassDesc, error)
}

// TransformerRegistry holds the ordered list of user transformers plus the
// default transformer, which always succeeds so CreateInstance never runs
// out of candidates for a well-formed class descriptor.
type TransformerRegistry struct {
	transformers []Transformer
	def          Transformer
}

// NewTransformerRegistry builds a registry trying user transformers, in
// order, before falling back to DefaultTransformer.
func NewTransformerRegistry(user ...Transformer) *TransformerRegistry {
	return &TransformerRegistry{
		transformers: user,
		def:          &DefaultTransformer{},
	}
}

// Create tries each user transformer in order, then the default, returning
// the field sink and the transformer that produced it (so the parser can
// later look for its optional capabilities).
func (r *TransformerRegistry) Create(cd *ClassDesc) (FieldSink, Transformer) {
	for _, t := range r.transformers {
		if sink, ok := t.CreateInstance(cd); ok {
			return sink, t
		}
	}
	sink, _ := r.def.CreateInstance(cd)
	return sink, r.def
}
