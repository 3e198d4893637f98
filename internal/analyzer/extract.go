package analyzer

import (
	"slices"
	"strings"

	"github.com/imyousuf/rubyagent/internal/syntax"
)

// Node types of the Ruby grammar the extractors recognize.
var (
	namespaceTypes = []string{"module", "class"}
	methodTypes    = []string{"method", "singleton_method"}
	callTypes      = []string{"call", "command", "command_call"}
	includeTypes   = []string{"call", "command"}
)

const includeKeyword = "include"

func text(n syntax.Node, src []byte) string {
	s, _ := syntax.Text(n, src)
	return s
}

// Namespaces returns the names of the modules and classes lexically
// enclosing class, outermost first. Ancestors without a name are skipped.
func Namespaces(class syntax.Node, src []byte) []string {
	var names []string
	for p := class.Parent(); !p.IsZero(); p = p.Parent() {
		if !slices.Contains(namespaceTypes, p.Type()) {
			continue
		}
		if name := text(p.Field("name"), src); name != "" {
			names = append(names, name)
		}
	}
	slices.Reverse(names)
	return names
}

// Includes returns the sorted, deduplicated module names passed to include
// anywhere in class except inside method bodies.
func Includes(class syntax.Node, src []byte) []string {
	set := make(map[string]struct{})
	for n := range syntax.WalkTypes(class, includeTypes...) {
		if syntax.Within(n, methodTypes...) {
			continue
		}
		if text(n.Field("method"), src) != includeKeyword {
			continue
		}
		for _, arg := range arguments(n).NamedChildren() {
			if value := text(arg, src); value != "" {
				set[value] = struct{}{}
			}
		}
	}
	includes := make([]string, 0, len(set))
	for name := range set {
		includes = append(includes, name)
	}
	slices.Sort(includes)
	return includes
}

// arguments returns the argument list of a call-like node under either of
// the field names the grammar has used for it.
func arguments(call syntax.Node) syntax.Node {
	if args := call.Field("arguments"); !args.IsZero() {
		return args
	}
	if args := call.Field("argument_list"); !args.IsZero() {
		return args
	}
	for _, child := range call.NamedChildren() {
		if child.Type() == "argument_list" {
			return child
		}
	}
	return syntax.Node{}
}

// Superclass returns the raw text of class's superclass clause, including
// the leading "<", or "" when there is none. The name is not resolved.
func Superclass(class syntax.Node, src []byte) string {
	return text(class.Field("superclass"), src)
}

// Methods returns one summary per method or singleton method found anywhere
// under class, in breadth-first order. Calls are resolved against reg.
func Methods(class syntax.Node, src []byte, reg *Registry) []MethodSummary {
	var methods []MethodSummary
	for n := range syntax.WalkTypes(class, methodTypes...) {
		name := text(n.Field("name"), src)
		if name == "" {
			name = Anonymous
		}
		kind := InstanceMethod
		if n.Type() == "singleton_method" {
			kind = ClassMethod
		}
		methods = append(methods, MethodSummary{
			Name:       name,
			Calls:      CallSites(n, src, reg),
			Kind:       kind,
			Visibility: "public",
		})
	}
	return methods
}

// CallSites returns one record per distinct constant receiver called inside
// method, sorted by name. The first occurrence of a receiver wins.
func CallSites(method syntax.Node, src []byte, reg *Registry) []CallRecord {
	calls := []CallRecord{}
	seen := make(map[string]struct{})
	for n := range syntax.WalkTypes(method, callTypes...) {
		receiver := ReceiverRoot(n)
		if receiver.IsZero() {
			continue
		}
		name := text(receiver, src)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		calls = append(calls, CallRecord{Name: name, Resolution: reg.Resolve(name)})
	}
	slices.SortStableFunc(calls, func(a, b CallRecord) int {
		return strings.Compare(a.Name, b.Name)
	})
	return calls
}

// ReceiverRoot finds the constant at the root of a call chain. For
// Logger.instance.warn it returns the Logger node. Receivers that are not a
// constant or a scoped constant path (locals, self, literals) yield the
// zero Node.
func ReceiverRoot(call syntax.Node) syntax.Node {
	receiver := call.Field("receiver")
	if receiver.IsZero() && (call.Type() == "command" || call.Type() == "command_call") {
		receiver = call.Field("method")
	}
	for receiver.Type() == "call" {
		receiver = receiver.Field("receiver")
	}
	switch receiver.Type() {
	case "constant", "scope_resolution":
		return receiver
	}
	return syntax.Node{}
}

// Summarize builds the summary of one class definition node.
func Summarize(class syntax.Node, src []byte, reg *Registry) ClassSummary {
	name := text(class.Field("name"), src)
	if name == "" {
		name = Anonymous
	}
	return ClassSummary{
		Name:       name,
		Superclass: Superclass(class, src),
		Namespaces: Namespaces(class, src),
		Includes:   Includes(class, src),
		Methods:    Methods(class, src, reg),
	}
}
