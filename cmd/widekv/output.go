package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aalhour/widekv"
)

type columnOut struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type entityOut struct {
	Key     string      `json:"key" yaml:"key"`
	Columns []columnOut `json:"columns" yaml:"columns"`
}

func newEntityOut(key []byte, cols widekv.WideColumns) entityOut {
	e := entityOut{Key: formatOutput(key), Columns: make([]columnOut, len(cols))}
	for i, c := range cols {
		e.Columns[i] = columnOut{Name: formatOutput(c.Name), Value: formatOutput(c.Value)}
	}
	return e
}

func (e entityOut) text() string {
	parts := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		parts[i] = c.Name + "=" + c.Value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func writeColumnsText(w *bytes.Buffer, cols widekv.WideColumns) {
	for _, c := range cols {
		fmt.Fprintf(w, "%s => %s\n", formatOutput(c.Name), formatOutput(c.Value))
	}
}

// render writes v in the configured output format; text is produced by
// the command's own writer.
func (a *app) render(cmd *cobra.Command, v any, text func(w *bytes.Buffer)) error {
	var buf bytes.Buffer
	switch a.cfg.Output {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
	default:
		text(&buf)
	}
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// formatOutput prints data as a string if printable, else as 0x-prefixed
// hex.
func formatOutput(data []byte) string {
	for _, b := range data {
		if b < 32 || b > 126 {
			return "0x" + hex.EncodeToString(data)
		}
	}
	return string(data)
}

// parseInput decodes a 0x-prefixed hex string, falling back to the raw
// bytes.
func parseInput(s string) []byte {
	if strings.HasPrefix(s, "0x") {
		decoded, err := hex.DecodeString(s[2:])
		if err == nil {
			return decoded
		}
	}
	return []byte(s)
}
