package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/boron/funnel-service/internal/funnel"
	"github.com/boron/funnel-service/internal/funnel/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// readInput returns the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, args []string) (data []byte, name string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		return data, "<stdin>", err
	}
	data, err = os.ReadFile(args[0])
	return data, args[0], err
}

func isYAML(format, name string) (bool, error) {
	switch strings.ToLower(format) {
	case "json":
		return false, nil
	case "yaml", "yml":
		return true, nil
	case "", "auto":
		ext := strings.ToLower(filepath.Ext(name))
		return ext == ".yaml" || ext == ".yml", nil
	}
	return false, fmt.Errorf("unknown format %q (want auto, json or yaml)", format)
}

// decode turns the input into a value the schema validator accepts.
func decode(data []byte, format, name string) (any, error) {
	useYAML, err := isYAML(format, name)
	if err != nil {
		return nil, err
	}
	if !useYAML {
		return json.RawMessage(data), nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("malformed YAML: %w", err)
	}
	return v, nil
}

// load reads and validates a document, printing the issues when it fails.
func load(cmd *cobra.Command, args []string, opts *options) (*funnel.Document, string, error) {
	data, name, err := readInput(cmd, args)
	if err != nil {
		return nil, name, fail(cmd.ErrOrStderr(), "cannot read input", err.Error())
	}
	v, err := decode(data, opts.format, name)
	if err != nil {
		return nil, name, fail(cmd.ErrOrStderr(), name+": "+err.Error())
	}
	res := schema.Validate(v)
	if !res.OK() {
		return nil, name, fail(cmd.ErrOrStderr(), fmt.Sprintf("%s: %d schema issue(s)", name, len(res.Issues)), issueLines(res.Issues)...)
	}
	return res.Document, name, nil
}

func issueLines(issues []schema.Issue) []string {
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	return lines
}
