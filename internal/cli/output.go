package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs a response in the configured format
func (o *Output) Print(resp map[string]any) {
	if o.format == "json" {
		o.printJSON(resp)
		return
	}
	o.printText(resp)
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
		return
	}
	_, _ = fmt.Fprintln(o.w, msg)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

// printText prints the status line, then every other field as indented JSON
func (o *Output) printText(resp map[string]any) {
	status := "OK"
	if failed(resp) {
		status = "FAILED"
	}
	code, _ := resp["code"].(string)
	line := fmt.Sprintf("%s %s", status, code)
	if msg, ok := resp["msg"].(string); ok && msg != "" {
		line += ": " + msg
	}
	_, _ = fmt.Fprintln(o.w, line)

	keys := make([]string, 0, len(resp))
	for k := range resp {
		if k != "ok" && k != "code" && k != "msg" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		data, err := json.MarshalIndent(resp[k], "  ", "  ")
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(o.w, "  %s: %s\n", k, data)
	}
}
