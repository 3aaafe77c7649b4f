package main

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-javaobj/javaobj/javaobj"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	gzipMode   string
	prettyJSON bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode a serialized object stream and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecode(args[0])
	},
}

func init() {
	decodeCmd.Flags().StringVar(&gzipMode, "gzip", "auto", "gzip handling: auto, always, or never")
	decodeCmd.Flags().BoolVar(&prettyJSON, "pretty", false, "indent the JSON output")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	values, err := decodeValues(raw)
	if err != nil {
		return errors.Wrap(err, "decoding object stream")
	}

	enc := json.NewEncoder(os.Stdout)
	if prettyJSON {
		enc.SetIndent("", "  ")
	}
	var out interface{} = values
	if len(values) == 1 {
		out = values[0]
	}
	return enc.Encode(out)
}

func decodeValues(raw []byte) ([]interface{}, error) {
	switch gzipMode {
	case "always":
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrap(err, "opening gzip stream")
		}
		return javaobj.NewParser(gz).ParseAll()
	case "never":
		return javaobj.NewParser(bytes.NewReader(raw)).ParseAll()
	case "auto":
		return javaobj.ParseAllBytes(raw)
	default:
		return nil, fmt.Errorf("unknown --gzip mode %q, want auto, always, or never", gzipMode)
	}
}
