package ipynb

import (
	"strings"

	"github.com/goccy/go-json"
)

// multiline is notebook text stored either as one string or as a list of
// lines; it is always written as a list.
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var lines []string
		if err := json.Unmarshal(data, &lines); err != nil {
			return err
		}
		*m = multiline(strings.Join(lines, ""))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = multiline(s)
	return nil
}

func (m multiline) MarshalJSON() ([]byte, error) {
	return json.Marshal(splitLines(string(m)))
}

// splitLines splits s after every newline, the way notebooks store sources.
func splitLines(s string) []string {
	lines := []string{}
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

type notebook struct {
	NBFormat      int              `json:"nbformat"`
	NBFormatMinor int              `json:"nbformat_minor"`
	Metadata      notebookMetadata `json:"metadata"`
	Cells         []cell           `json:"cells"`
}

type notebookMetadata struct {
	KernelSpec   *kernelSpec   `json:"kernelspec,omitempty"`
	LanguageInfo *languageInfo `json:"language_info,omitempty"`
}

type kernelSpec struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language,omitempty"`
}

type languageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type cell struct {
	ID             string          `json:"id,omitempty"`
	CellType       string          `json:"cell_type"`
	Metadata       json.RawMessage `json:"metadata"`
	Source         multiline       `json:"source"`
	// Outputs and ExecutionCount are present on code cells only; a nil
	// value omits the key.
	Outputs        *[]output       `json:"outputs,omitempty"`
	ExecutionCount json.RawMessage `json:"execution_count,omitempty"`
}

// executionCount returns the cell's execution count, if it has one.
func (c cell) executionCount() (int, bool) {
	if len(c.ExecutionCount) == 0 {
		return 0, false
	}
	var n *int
	if err := json.Unmarshal(c.ExecutionCount, &n); err != nil || n == nil {
		return 0, false
	}
	return *n, true
}

func (c cell) outputs() []output {
	if c.Outputs == nil {
		return nil
	}
	return *c.Outputs
}

type output struct {
	OutputType     string                     `json:"output_type"`
	Name           string                     `json:"name,omitempty"`
	Text           *multiline                 `json:"text,omitempty"`
	Data           map[string]json.RawMessage `json:"data,omitempty"`
	Metadata       json.RawMessage            `json:"metadata,omitempty"`
	ExecutionCount *int                       `json:"execution_count,omitempty"`
	EName          string                     `json:"ename,omitempty"`
	EValue         string                     `json:"evalue,omitempty"`
	Traceback      []string                   `json:"traceback,omitempty"`
}

// dataText decodes a MIME bundle entry stored as a string or line list.
func (o output) dataText(mime string) (string, bool) {
	raw, ok := o.Data[mime]
	if !ok {
		return "", false
	}
	var m multiline
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", false
	}
	return string(m), true
}

var emptyObject = json.RawMessage("{}")
