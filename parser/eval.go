package parser

import (
	"fmt"
	"regexp"
	"strings"
)

func (e *OrExpr) Eval(ctx *Context) (interface{}, error) {
	lv, err := e.L.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if Truthy(lv) {
		return true, nil
	}
	rv, err := e.R.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return Truthy(rv), nil
}

func (e *AndExpr) Eval(ctx *Context) (interface{}, error) {
	lv, err := e.L.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if !Truthy(lv) {
		return false, nil
	}
	rv, err := e.R.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return Truthy(rv), nil
}

func (e *NotExpr) Eval(ctx *Context) (interface{}, error) {
	v, err := e.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return !Truthy(v), nil
}

func (e *CmpExpr) Eval(ctx *Context) (interface{}, error) {
	switch e.Op {
	case "in":
		return e.evalIn(ctx)
	case "%":
		return e.evalRegex(ctx)
	}

	ls, err := evalString(e.L, ctx)
	if err != nil {
		return nil, err
	}
	rs, err := evalString(e.R, ctx)
	if err != nil {
		return nil, err
	}
	c := compareStrings(ls, rs)
	switch e.Op {
	case "==":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return nil, fmt.Errorf("filter: unknown operator %q", e.Op)
}

// evalIn membership on list values, substring on string values
func (e *CmpExpr) evalIn(ctx *Context) (interface{}, error) {
	needle, err := evalString(e.L, ctx)
	if err != nil {
		return nil, err
	}
	hay, err := e.R.Eval(ctx)
	if err != nil {
		return nil, err
	}
	switch h := hay.(type) {
	case []string:
		for _, v := range h {
			if v == needle {
				return true, nil
			}
		}
		return false, nil
	case string:
		return strings.Contains(h, needle), nil
	}
	return nil, fmt.Errorf("filter: %s is not searchable", e.R.String())
}

func (e *CmpExpr) evalRegex(ctx *Context) (interface{}, error) {
	subject, err := evalString(e.L, ctx)
	if err != nil {
		return nil, err
	}
	pattern, err := evalString(e.R, ctx)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("filter: bad pattern %q: %w", pattern, err)
	}
	return re.MatchString(subject), nil
}

func (e *StrLit) Eval(_ *Context) (interface{}, error) {
	return e.V, nil
}

func (e *BoolLit) Eval(_ *Context) (interface{}, error) {
	return e.V, nil
}

func (e *Ident) Eval(ctx *Context) (interface{}, error) {
	v, ok := ctx.Lookup(e.Name)
	if !ok {
		return nil, fmt.Errorf("filter: unknown field %q", e.Name)
	}
	return v, nil
}

func (e *OrExpr) String() string  { return fmt.Sprintf("(%s or %s)", e.L, e.R) }
func (e *AndExpr) String() string { return fmt.Sprintf("(%s and %s)", e.L, e.R) }
func (e *NotExpr) String() string { return fmt.Sprintf("(not %s)", e.X) }
func (e *CmpExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.L, e.Op, e.R) }
func (e *StrLit) String() string  { return fmt.Sprintf("%q", e.V) }
func (e *BoolLit) String() string { return fmt.Sprintf("%v", e.V) }
func (e *Ident) String() string   { return e.Name }
