package evalctx

import (
	"strconv"
	"strings"

	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// Select projects a path over a category's structured content and returns
// the matching leaves as a bag of the requested datatype. The path is a
// dotted sequence of keys; list nodes fan out. A category without content
// yields the empty bag.
func (c *Context) Select(category, path, datatype string) (*value.Bag, error) {
	content, ok := c.content[category]
	if !ok || content == nil {
		return value.EmptyBag(datatype), nil
	}

	nodes := []any{content}
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return nil, status.NewSyntaxError("invalid selector path %q", path)
		}
		nodes = step(nodes, segment)
	}

	values := make([]value.AttributeValue, 0, len(nodes))
	for _, node := range nodes {
		lexical, ok := lexicalForm(node)
		if !ok {
			continue
		}

		av, err := value.Parse(datatype, lexical)
		if err != nil {
			return nil, status.Wrap(err, status.CodeSyntaxError,
				"selector %s over %s produced an invalid %s value", path, category, datatype)
		}
		values = append(values, av)
	}

	bag, err := value.NewBag(datatype, values...)
	if err != nil {
		return nil, status.From(err)
	}
	return bag, nil
}

// step advances every current node by one path segment, fanning out over
// lists.
func step(nodes []any, segment string) []any {
	var next []any
	for _, node := range nodes {
		switch n := node.(type) {
		case map[string]any:
			if child, ok := n[segment]; ok {
				next = append(next, flatten(child)...)
			}
		case []any:
			for _, item := range n {
				if m, ok := item.(map[string]any); ok {
					if child, ok := m[segment]; ok {
						next = append(next, flatten(child)...)
					}
				}
			}
		}
	}
	return next
}

func flatten(node any) []any {
	if list, ok := node.([]any); ok {
		return list
	}
	return []any{node}
}

func lexicalForm(node any) (string, bool) {
	switch v := node.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}
