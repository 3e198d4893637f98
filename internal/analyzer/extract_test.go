package analyzer

import (
	"context"
	"slices"
	"testing"

	"github.com/imyousuf/rubyagent/internal/syntax"
)

func parseRuby(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.NewParser().Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

// classNamed returns the class node whose name field reads name.
func classNamed(t *testing.T, tree *syntax.Tree, name string) syntax.Node {
	t.Helper()
	for n := range syntax.WalkTypes(tree.Root(), "class") {
		if got, _ := syntax.Text(n.Field("name"), tree.Source()); got == name {
			return n
		}
	}
	t.Fatalf("class %q not found", name)
	return syntax.Node{}
}

func TestNamespaces(t *testing.T) {
	tree := parseRuby(t, `
module Api
  module V1
    class UsersController
      class Helper
      end
    end
  end
end

class TopLevel
end
`)
	tests := []struct {
		class string
		want  []string
	}{
		{"UsersController", []string{"Api", "V1"}},
		{"Helper", []string{"Api", "V1", "UsersController"}},
		{"TopLevel", nil},
	}
	for _, tt := range tests {
		got := Namespaces(classNamed(t, tree, tt.class), tree.Source())
		if !slices.Equal(got, tt.want) {
			t.Errorf("Namespaces(%s) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestIncludesScoping(t *testing.T) {
	tree := parseRuby(t, `
class Widget
  include Zeta
  include Alpha, Beta
  include Alpha

  def configure
    include Hidden
  end

  def self.setup
    include AlsoHidden
  end
end
`)
	got := Includes(classNamed(t, tree, "Widget"), tree.Source())
	want := []string{"Alpha", "Beta", "Zeta"}
	if !slices.Equal(got, want) {
		t.Errorf("Includes = %v, want %v", got, want)
	}
}

func TestIncludesReceiverForm(t *testing.T) {
	// The grammar reports "self.include X" as a call node.
	tree := parseRuby(t, "class Widget\n  self.include Extra\n  include(Core)\nend\n")
	got := Includes(classNamed(t, tree, "Widget"), tree.Source())
	if want := []string{"Core", "Extra"}; !slices.Equal(got, want) {
		t.Errorf("Includes = %v, want %v", got, want)
	}
	if slices.Contains(includeTypes, "command_call") {
		t.Errorf("includeTypes = %v, want only call and command", includeTypes)
	}
}

func TestIncludesEmpty(t *testing.T) {
	tree := parseRuby(t, "class Plain\n  def x; end\nend\n")
	got := Includes(classNamed(t, tree, "Plain"), tree.Source())
	if got == nil || len(got) != 0 {
		t.Errorf("Includes = %#v, want empty non-nil slice", got)
	}
}

func TestSuperclass(t *testing.T) {
	tree := parseRuby(t, `
class Base; end
class Child < Base; end
class Deep < Api::Controller; end
`)
	tests := map[string]string{
		"Base":  "",
		"Child": "< Base",
		"Deep":  "< Api::Controller",
	}
	for class, want := range tests {
		if got := Superclass(classNamed(t, tree, class), tree.Source()); got != want {
			t.Errorf("Superclass(%s) = %q, want %q", class, got, want)
		}
	}
}

func TestReceiverRoot(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`Logger.instance.warn("x")`, "Logger"},
		{`Foo::Bar.baz(1)`, "Foo::Bar"},
		{`::Auth.check`, "::Auth"},
		{`Foo.bar`, "Foo"},
		{`self.run`, ""},
		{`user.save`, ""},
		{`helper(1)`, ""},
		{`"str".upcase`, ""},
	}
	for _, tt := range tests {
		tree := parseRuby(t, tt.src)
		var got []string
		for call := range syntax.WalkTypes(tree.Root(), callTypes...) {
			if root := ReceiverRoot(call); !root.IsZero() {
				text, _ := syntax.Text(root, tree.Source())
				got = append(got, text)
			}
		}
		if tt.want == "" {
			if len(got) != 0 {
				t.Errorf("%s: receivers = %v, want none", tt.src, got)
			}
			continue
		}
		if len(got) == 0 {
			t.Errorf("%s: no receiver found, want %q", tt.src, tt.want)
			continue
		}
		for _, g := range got {
			if g != tt.want {
				t.Errorf("%s: receiver = %q, want %q", tt.src, g, tt.want)
			}
		}
	}
}

func TestCallSitesDedupAndSort(t *testing.T) {
	tree := parseRuby(t, `
class Runner
  def go
    Foo.a
    Foo.b
    Foo.c
    Bar.instance.run
    local.thing
  end
end
`)
	reg := NewRegistry()
	reg.bind("Bar", "/src/bar.rb")

	methods := Methods(classNamed(t, tree, "Runner"), tree.Source(), reg)
	if len(methods) != 1 {
		t.Fatalf("len(methods) = %d, want 1", len(methods))
	}
	calls := methods[0].Calls
	if len(calls) != 2 {
		t.Fatalf("calls = %+v, want 2 records", calls)
	}
	if calls[0].Name != "Bar" || calls[1].Name != "Foo" {
		t.Errorf("call order = %q, %q, want Bar, Foo", calls[0].Name, calls[1].Name)
	}
	if !calls[0].Resolution.Resolved() || calls[0].Resolution.Path != "/src/bar.rb" {
		t.Errorf("Bar resolution = %+v, want /src/bar.rb", calls[0].Resolution)
	}
	if calls[1].Resolution.Resolved() {
		t.Errorf("Foo resolution = %+v, want unresolved", calls[1].Resolution)
	}
}

func TestMethodsKinds(t *testing.T) {
	tree := parseRuby(t, `
class Service
  def self.call(x)
  end

  def perform
  end
end
`)
	methods := Methods(classNamed(t, tree, "Service"), tree.Source(), NewRegistry())
	if len(methods) != 2 {
		t.Fatalf("len(methods) = %d, want 2", len(methods))
	}
	byName := map[string]MethodSummary{}
	for _, m := range methods {
		byName[m.Name] = m
		if m.Visibility != "public" {
			t.Errorf("%s visibility = %q, want public", m.Name, m.Visibility)
		}
		if m.Calls == nil {
			t.Errorf("%s calls is nil, want empty slice", m.Name)
		}
	}
	if byName["call"].Kind != ClassMethod {
		t.Errorf("call kind = %q, want %q", byName["call"].Kind, ClassMethod)
	}
	if byName["perform"].Kind != InstanceMethod {
		t.Errorf("perform kind = %q, want %q", byName["perform"].Kind, InstanceMethod)
	}
}

func TestSummarizeMalformedSource(t *testing.T) {
	tree := parseRuby(t, `
class Survivor
  def ok
    Known.call
  end

  def broken(
end
`)
	reg := NewRegistry()
	reg.bind("Known", "/src/known.rb")

	for class := range syntax.WalkTypes(tree.Root(), "class") {
		summary := Summarize(class, tree.Source(), reg)
		if summary.Name == "" {
			t.Error("summary name is empty, want a name or placeholder")
		}
	}
}

func TestSummarizeAnonymousPlaceholder(t *testing.T) {
	s := ClassSummary{Name: Anonymous}
	rec := s.Record("/src/x.rb")
	if rec.Label != Anonymous {
		t.Errorf("Label = %q, want %q", rec.Label, Anonymous)
	}
}
