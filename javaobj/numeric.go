package javaobj

import "github.com/pkg/errors"

// NumericArrayDecoder is an optional, caller-supplied facility for decoding
// fixed-width primitive array payloads in bulk, e.g. with a vectorized
// numeric library instead of this package's element-at-a-time loop. A
// Parser configured with WithNumericArrayAcceleration but no decoder fails
// any numeric array it encounters with ErrNumericArrayUnavailable rather
// than silently falling back, so callers opting into acceleration notice
// immediately when it is not wired up.
type NumericArrayDecoder interface {
	// DecodeNumericArray decodes length elements of the primitive type
	// identified by elemTag ('I', 'J', 'S', 'F', or 'D') from raw, which
	// holds exactly length*primitiveWidth(elemTag) big-endian bytes.
	DecodeNumericArray(elemTag byte, raw []byte, length int) ([]interface{}, error)
}

func isAccelerableTag(tag byte) bool {
	switch tag {
	case 'I', 'J', 'S', 'F', 'D':
		return true
	default:
		return false
	}
}

func primitiveWidth(tag byte) int {
	switch tag {
	case 'B', 'Z':
		return 1
	case 'C', 'S':
		return 2
	case 'F', 'I':
		return 4
	case 'D', 'J':
		return 8
	default:
		return 0
	}
}

func (p *Parser) decodeNumericArray(elemTag byte, length int32) ([]interface{}, error) {
	if p.opts.NumericArrayDecoder == nil {
		return nil, errors.Wrapf(ErrNumericArrayUnavailable,
			"no decoder configured for %q array of length %d", string(elemTag), length)
	}
	width := primitiveWidth(elemTag)
	raw, err := p.reader.ReadBytes(int(length) * width)
	if err != nil {
		return nil, errors.Wrap(err, "reading numeric array payload")
	}
	vals, err := p.opts.NumericArrayDecoder.DecodeNumericArray(elemTag, raw, int(length))
	if err != nil {
		return nil, errors.Wrap(err, "numeric array decoder")
	}
	return vals, nil
}
