// Package parser implements the bibliography filter expression
// language: a small boolean grammar used by bibliography directives to
// select which entries of a .bib file apply to them, eg:
//
//	cited and year >= "2015"
//	author % "Smith" or "survey" in keywords
//	not type == "misc"
//
// Expressions are parsed once at directive-registration time into a
// plain-data AST and evaluated lazily against each candidate entry at
// render time.
package parser

import (
	"encoding/gob"
	"fmt"
	"strconv"
	"strings"
)

type (
	// Expr a parsed filter expression node. All node types are plain
	// exported structs so a cached AST survives snapshot round-trips.
	Expr interface {
		// Eval produce the node value for one entry; results are
		// string, bool or []string
		Eval(ctx *Context) (interface{}, error)

		String() string
	}

	// Context the per-entry evaluation scope. Identifiers resolve
	// against Fields plus the virtual names key, type, docname, cited,
	// author and keywords.
	Context struct {
		Key       string
		EntryType string
		Docname   string
		Cited     bool
		Fields    map[string]string
		Authors   []string
		Keywords  []string
	}

	OrExpr struct {
		L, R Expr
	}

	AndExpr struct {
		L, R Expr
	}

	NotExpr struct {
		X Expr
	}

	// CmpExpr a binary comparison; Op is one of
	// == != < <= > >= in %
	CmpExpr struct {
		Op   string
		L, R Expr
	}

	// StrLit a quoted string literal
	StrLit struct {
		V string
	}

	BoolLit struct {
		V bool
	}

	// Ident a field or virtual-name reference
	Ident struct {
		Name string
	}
)

func init() {
	// filter ASTs live inside snapshotted directive state
	gob.Register(&OrExpr{})
	gob.Register(&AndExpr{})
	gob.Register(&NotExpr{})
	gob.Register(&CmpExpr{})
	gob.Register(&StrLit{})
	gob.Register(&BoolLit{})
	gob.Register(&Ident{})
}

// Lookup resolve an identifier within the entry scope
func (ctx *Context) Lookup(name string) (interface{}, bool) {
	switch name {
	case "key":
		return ctx.Key, true
	case "type":
		return ctx.EntryType, true
	case "docname":
		return ctx.Docname, true
	case "cited":
		return ctx.Cited, true
	case "author":
		return strings.Join(ctx.Authors, " and "), true
	case "keywords":
		return ctx.Keywords, true
	}
	if ctx.Fields == nil {
		return nil, false
	}
	v, ok := ctx.Fields[name]
	return v, ok
}

// Truthy coerce an evaluation result to bool: bools as-is, strings and
// lists by non-emptiness
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	}
	return false
}

// Match evaluate e against one entry scope and coerce to bool.
// A nil expression selects everything.
func Match(e Expr, ctx *Context) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := e.Eval(ctx)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// compareStrings numeric compare when both sides are integers (year
// fields), lexicographic otherwise
func compareStrings(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func evalString(e Expr, ctx *Context) (string, error) {
	v, err := e.Eval(ctx)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("filter: %s is not a string value", e.String())
	}
	return s, nil
}
