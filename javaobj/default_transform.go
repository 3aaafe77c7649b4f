package javaobj

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// recordDataMinLength is the smallest raw block-data prefix a collapsing
// postProc ever needs (room for one big-endian int32 size field).
const recordDataMinLength = 4

// postProc collapses a fully-read Record into a plain Go value, given the
// record's flattened field map and the annotation list recorded against
// its own class (not its ancestors').
type postProc func(rec *Record, data []interface{}) (interface{}, error)

// knownPostProcs maps "ClassName@hexSerialVersionUID" to the collapsing
// function for that exact class version. Keying on the UID means a
// same-named class from an incompatible JVM version safely falls through
// to the raw Record instead of being misinterpreted.
var knownPostProcs = map[string]postProc{
	"java.lang.Byte@9c4e6084ee50f51c":                            primitivePostProc,
	"java.lang.Character@348b47d96b1a2678":                       primitivePostProc,
	"java.lang.Double@80b3c24a296bfb04":                          primitivePostProc,
	"java.lang.Float@daedc9a2db3cf0ec":                           primitivePostProc,
	"java.lang.Integer@12e2a0a4f7818738":                         primitivePostProc,
	"java.lang.Long@3b8be490cc8f23df":                            primitivePostProc,
	"java.lang.Short@684d37133460da52":                           primitivePostProc,
	"java.lang.Boolean@cd207280d59cfaee":                         primitivePostProc,
	"java.util.ArrayList@7881d21d99c7619d":                       listPostProc,
	"java.util.ArrayDeque@207cda2e240da08b":                      listPostProc,
	"java.util.Hashtable@13bb0f25214ae4b8":                       mapPostProc,
	"java.util.HashMap@0507dac1c31660d1":                         mapPostProc,
	"java.util.EnumMap@065d7df7be907ca1":                         enumMapPostProc,
	"java.util.HashSet@ba44859596b8b734":                         hashSetPostProc,
	"java.util.Date@686a81014b597419":                            datePostProc,
	"java.util.Calendar@e6ea4d1ec8dc5b8e":                        calendarPostProc,
	"java.util.Arrays$ArrayList@d9a43cbecd8806d2":                arraysArrayListPostProc,
	"java.util.concurrent.CopyOnWriteArrayList@785d9fd546ab90c3": listPostProc,
	"java.util.CollSer@578eabb63a1ba811":                         listPostProc,
}

// classNamePostProcs handles classes whose wire layout follows one of the
// same shapes above but whose serialVersionUID is not pinned in
// knownPostProcs. Matching on the bare name instead of
// name+UID is a looser check than knownPostProcs; a future JVM revision
// that changes one of these layouts would misparse rather than fall back,
// which is why only classes with a stable, long-unchanged java.util wire
// format are listed here.
var classNamePostProcs = map[string]postProc{
	"java.util.LinkedHashMap":               mapPostProc,
	"java.util.TreeMap":                     mapPostProcNoCapacity,
	"java.util.Vector":                      listPostProc,
	"java.util.LinkedList":                  listPostProc,
	"java.util.concurrent.ConcurrentLinkedQueue": listPostProc,
	"java.util.LinkedHashSet":               hashSetPostProc,
	"java.util.TreeSet":                     setPostProcNoCapacity,
	"java.util.GregorianCalendar":           calendarPostProc,
}

func postProcSize(data []interface{}, offset int) (int, error) {
	if len(data) < 1 {
		return 0, errors.New("invalid annotation data: at least one element required")
	}
	b, ok := data[0].([]byte)
	if !ok {
		return 0, errors.Errorf("unexpected annotation data at position 0: %T", data[0])
	}
	if len(b) < offset+recordDataMinLength {
		return 0, errors.Errorf("annotation data too short: wanted at least %d bytes, got %d", offset+recordDataMinLength, len(b))
	}
	return int(int32(binary.BigEndian.Uint32(b[offset : offset+4]))), nil
}

func primitivePostProc(rec *Record, data []interface{}) (interface{}, error) {
	return rec.Fields["value"], nil
}

func listPostProc(rec *Record, data []interface{}) (interface{}, error) {
	size, err := postProcSize(data, 0)
	if err != nil {
		return nil, err
	}
	if len(data) != size+1 {
		return nil, errors.Errorf("incorrect number of list elements: want %d got %d", size, len(data)-1)
	}
	return Sequence(append([]interface{}{}, data[1:size+1]...)), nil
}

func mapPostProc(rec *Record, data []interface{}) (interface{}, error) {
	return buildMapping(data, 4)
}

func mapPostProcNoCapacity(rec *Record, data []interface{}) (interface{}, error) {
	return buildMapping(data, 0)
}

func enumMapPostProc(rec *Record, data []interface{}) (interface{}, error) {
	return buildMapping(data, 0)
}

func buildMapping(data []interface{}, offset int) (interface{}, error) {
	size, err := postProcSize(data, offset)
	if err != nil {
		return nil, err
	}
	if size*2+1 > len(data) {
		return nil, errors.Errorf("incorrect number of map entries: want %d got %d", size, (len(data)-1)/2)
	}
	m := make(Mapping, size)
	for i := 0; i < size; i++ {
		m[i] = MapEntry{Key: data[2*i+1], Value: data[2*i+2]}
	}
	return m, nil
}

func hashSetPostProc(rec *Record, data []interface{}) (interface{}, error) {
	return buildSet(data, 8)
}

func setPostProcNoCapacity(rec *Record, data []interface{}) (interface{}, error) {
	return buildSet(data, 0)
}

func buildSet(data []interface{}, offset int) (interface{}, error) {
	size, err := postProcSize(data, offset)
	if err != nil {
		return nil, err
	}
	if len(data) != size+1 {
		return nil, errors.Errorf("incorrect number of set elements: want %d got %d", size, len(data)-1)
	}
	return Set(append([]interface{}{}, data[1:size+1]...)), nil
}

const timestampBlockSize = 8

func datePostProc(rec *Record, data []interface{}) (interface{}, error) {
	if len(data) < 1 {
		return nil, errors.New("invalid date data: at least one element required")
	}
	b, ok := data[0].([]byte)
	if !ok {
		return nil, errors.Errorf("unexpected date data: %T", data[0])
	}
	if len(b) < timestampBlockSize {
		return nil, errors.Errorf("incorrect date data: wanted %d bytes, got %d", timestampBlockSize, len(b))
	}
	millis := int64(binary.BigEndian.Uint64(b[:timestampBlockSize]))
	return time.UnixMilli(millis).UTC(), nil
}

func calendarPostProc(rec *Record, data []interface{}) (interface{}, error) {
	millis, ok := rec.Fields["time"].(int64)
	if !ok {
		return nil, errors.New("calendar record has no int64 \"time\" field")
	}
	return time.UnixMilli(millis).UTC(), nil
}

func arraysArrayListPostProc(rec *Record, data []interface{}) (interface{}, error) {
	arr, ok := rec.Fields["a"].(*JavaArray)
	if !ok {
		return nil, errors.New("Arrays$ArrayList record has no array field \"a\"")
	}
	return Sequence(append([]interface{}{}, arr.Elements...)), nil
}

// DefaultTransformer is the fallback Transformer every Parser uses for any
// class a caller-supplied Transformer did not claim. It always creates a
// *Record, and on LoadFromInstance collapses the handful of java.util
// collection and wrapper classes above into Sequence/Mapping/Set/
// time.Time/bare scalar values, leaving every other class as a raw
// *Record (its per-ancestor field data still fully populated).
type DefaultTransformer struct{}

func (DefaultTransformer) CreateInstance(cd *ClassDesc) (FieldSink, bool) {
	return newRecord(cd), true
}

func (DefaultTransformer) LoadFromInstance(sink FieldSink) error {
	rec, ok := sink.(*Record)
	if !ok {
		return nil
	}
	cd := rec.Class
	if cd == nil {
		return nil
	}

	key := fmt.Sprintf("%s@%016x", cd.Name, cd.SerialVersionUID)
	proc, found := knownPostProcs[key]
	if !found {
		proc, found = classNamePostProcs[cd.Name]
	}
	if !found {
		return nil
	}

	data := rec.AnnotationsByClass[cd]
	value, err := proc(rec, data)
	if err != nil {
		return errors.Wrapf(err, "collapsing %s", cd.Name)
	}
	rec.Value = value
	return nil
}
