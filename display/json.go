// Package display formats command results for humans or for scripts.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// EnvJSON forces JSON output for every command that supports it
const EnvJSON = "TOPICMAP_JSON"

// ShouldOutputJSON reports whether cmd should print JSON instead of tables
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Lookup("json") != nil && cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}
	switch os.Getenv(EnvJSON) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// MarshalJSON marshals v indented
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// OutputJSON writes v as JSON followed by a newline
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
