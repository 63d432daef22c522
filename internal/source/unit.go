package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// ErrParse is returned when a unit's text fails to parse. The pipeline
// treats it as recoverable: the driver falls back to the last text that
// parsed cleanly.
var ErrParse = errors.New("source does not parse")

// FileKind distinguishes the flavors of unit the rule set can see.
type FileKind int

const (
	KindSource FileKind = iota
	KindStub
	KindNotebook
)

func (k FileKind) String() string {
	switch k {
	case KindStub:
		return "stub"
	case KindNotebook:
		return "notebook"
	default:
		return "source"
	}
}

// KindForPath classifies a path by extension.
func KindForPath(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pyi":
		return KindStub
	case ".ipynb":
		return KindNotebook
	default:
		return KindSource
	}
}

var pyLanguage = sitter.NewLanguage(python.Language())

// Unit is one file under analysis: immutable text, its parsed tree, and
// a line index. A fresh Unit is derived whenever edits are applied.
type Unit struct {
	Path  string
	Kind  FileKind
	Text  []byte
	Lines *LineIndex

	tree *sitter.Tree
}

// NewUnit parses text and builds the line index. The returned unit owns
// the tree; callers release it with Close. A tree containing syntax
// errors yields ErrParse.
func NewUnit(path string, text []byte) (*Unit, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(pyLanguage)

	tree := parser.Parse(text, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrParse)
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrParse)
	}

	return &Unit{
		Path:  path,
		Kind:  KindForPath(path),
		Text:  text,
		Lines: NewLineIndex(text),
		tree:  tree,
	}, nil
}

// Root returns the root node of the parsed tree.
func (u *Unit) Root() *sitter.Node {
	return u.tree.RootNode()
}

// Close releases the parse tree.
func (u *Unit) Close() {
	if u.tree != nil {
		u.tree.Close()
		u.tree = nil
	}
}

// NodeText extracts the text a node covers.
func (u *Unit) NodeText(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(u.Text[n.StartByte():n.EndByte()])
}

// NodeSpan returns the byte span a node covers.
func NodeSpan(n *sitter.Node) Span {
	return Span{Start: uint(n.StartByte()), End: uint(n.EndByte())}
}

// Walk visits nodes depth-first; returning false from the visitor skips
// the node's children.
func Walk(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		Walk(node.Child(i), visitor)
	}
}
