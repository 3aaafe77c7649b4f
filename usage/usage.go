package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-javaobj/javaobj/javaobj"
)

func main() {
	javaObjectBase64 := "rO0ABXQADEhlbGxvLCBXb3JsZA=="
	javaObjectBytes, err := base64.StdEncoding.DecodeString(javaObjectBase64)
	if err != nil {
		fmt.Printf("error decoding base64: %s\n", err.Error())
		return
	}

	var obj interface{}

	// Usage with []byte. ParseBytes transparently sniffs and decompresses a
	// gzip-wrapped stream, so this works for either form.
	obj, err = javaobj.ParseBytes(javaObjectBytes)
	if err != nil {
		fmt.Printf("error parsing java object: %s\n", err.Error())
		return
	}
	printJSON(obj)

	// Usage with io.Reader and a configured Parser.
	reader := bytes.NewReader(javaObjectBytes)
	p := javaobj.NewParser(reader,
		javaobj.WithMaxDataBlockSize(2048), // cap any single length-prefixed payload
		javaobj.WithMaxHandles(4096),       // bound the back-reference table
	)
	obj, err = p.ParseOne()
	if err != nil {
		fmt.Printf("error parsing java object: %s\n", err.Error())
		return
	}
	printJSON(obj)

	// Writing a value back out: round-trip a Sequence through the wire
	// format and reparse it.
	seq := javaobj.Sequence{"one", "two", "three"}
	var buf bytes.Buffer
	w := javaobj.NewWriter(&buf)
	if err := w.WriteValue(seq); err != nil {
		fmt.Printf("error writing value: %s\n", err.Error())
		return
	}
	if err := w.Flush(); err != nil {
		fmt.Printf("error flushing writer: %s\n", err.Error())
		return
	}
	roundTripped, err := javaobj.ParseBytes(buf.Bytes())
	if err != nil {
		fmt.Printf("error reparsing written value: %s\n", err.Error())
		return
	}
	printJSON(roundTripped)
}

func printJSON(obj interface{}) {
	data, err := json.Marshal(obj)
	if err != nil {
		fmt.Printf("error marshalling JSON: %s\n", err.Error())
		return
	}
	fmt.Println(string(data))
}
