package formatter

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
