package javaobj

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseErrorIncludesClassNameContext(t *testing.T) {
	// An Externalizable class with SC_BLOCK_DATA but no registered
	// BlockDataLoader: readClassData rejects it with ErrUnsupported, and
	// parseObject should annotate the failure with the offending class name.
	cd := &ClassDesc{
		Name:             "com.example.NoLoader",
		SerialVersionUID: 1,
		Flags:            scExternalizable | scBlockData,
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.writeU8(tcObject))
	require.NoError(t, w.writeClassDesc(cd))
	require.NoError(t, w.Flush())

	full := append([]byte{0xAC, 0xED, 0x00, 0x05}, buf.Bytes()...)
	_, err := ParseBytes(full)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupported))
	require.True(t, strings.Contains(err.Error(), "com.example.NoLoader"),
		"expected class name in error, got: %v", err)
}

func TestMalformedMagicRejected(t *testing.T) {
	_, err := ParseBytes([]byte{0x00, 0x00, 0x00, 0x05})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedStream))
}

func TestUnsupportedVersionRejected(t *testing.T) {
	_, err := ParseBytes([]byte{0xAC, 0xED, 0x00, 0x06})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedStream))
}
