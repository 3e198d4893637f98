package analyzer

import "encoding/json"

// Anonymous stands in for names a definition does not spell out.
const Anonymous = "<anonymous>"

// MethodKind distinguishes instance methods from singleton (class) methods.
type MethodKind string

const (
	InstanceMethod MethodKind = "instance"
	ClassMethod    MethodKind = "class"
)

// CallRecord is one distinct constant receiver referenced inside a method.
type CallRecord struct {
	Name       string
	Resolution Resolution
}

type callRecordJSON struct {
	Name     string `json:"name"`
	FilePath string `json:"file_path,omitempty"`
}

// MarshalJSON writes {"name", "file_path"} and omits file_path when the
// receiver did not resolve.
func (c CallRecord) MarshalJSON() ([]byte, error) {
	out := callRecordJSON{Name: c.Name}
	if c.Resolution.Resolved() {
		out.FilePath = c.Resolution.Path
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a record written by MarshalJSON.
func (c *CallRecord) UnmarshalJSON(data []byte) error {
	var in callRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.Name = in.Name
	c.Resolution = Resolution{}
	if in.FilePath != "" {
		c.Resolution = Resolution{Path: in.FilePath, Via: MatchRestored}
	}
	return nil
}

// MethodSummary describes one method definition.
type MethodSummary struct {
	Name  string       `json:"name"`
	Calls []CallRecord `json:"calls"`
	Kind  MethodKind   `json:"method_type"`
	// Visibility is always "public"; modifiers are not tracked.
	Visibility string `json:"visibility"`
}

// ClassSummary is what the extractors recover for one class definition.
type ClassSummary struct {
	Name       string
	Superclass string
	Namespaces []string
	Includes   []string
	Methods    []MethodSummary
}

// NamespaceRef is an enclosing namespace with its 1-based depth.
type NamespaceRef struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ClassRecord is the externally consumed shape of a class.
type ClassRecord struct {
	Label          string          `json:"label"`
	ClassType      string          `json:"class_type"`
	FilePath       string          `json:"file_path"`
	Inheritance    *string         `json:"inheritance"`
	Includes       []string        `json:"includes"`
	Namespaces     []NamespaceRef  `json:"namespaces"`
	NamespaceChain []string        `json:"namespace_chain"`
	Methods        []MethodSummary `json:"methods"`
}

// Record assembles the external record for a class found in filePath.
func (s ClassSummary) Record(filePath string) ClassRecord {
	namespaces := make([]NamespaceRef, len(s.Namespaces))
	for i, name := range s.Namespaces {
		namespaces[i] = NamespaceRef{Name: name, Order: i + 1}
	}

	chain := make([]string, 0, len(s.Namespaces)+1)
	chain = append(chain, s.Namespaces...)
	chain = append(chain, s.Name)

	var inheritance *string
	if s.Superclass != "" {
		superclass := s.Superclass
		inheritance = &superclass
	}

	includes := s.Includes
	if includes == nil {
		includes = []string{}
	}
	methods := s.Methods
	if methods == nil {
		methods = []MethodSummary{}
	}

	return ClassRecord{
		Label:          QualifiedName(s.Namespaces, s.Name),
		ClassType:      "class",
		FilePath:       filePath,
		Inheritance:    inheritance,
		Includes:       includes,
		Namespaces:     namespaces,
		NamespaceChain: chain,
		Methods:        methods,
	}
}

// Position places a graph node on a canvas.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DefaultNodeColor is the fill color given to every graph node.
const DefaultNodeColor = "#6ede87"

// GraphNode is a ClassRecord decorated for graph rendering.
type GraphNode struct {
	ClassRecord
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Color    string   `json:"color"`
}
