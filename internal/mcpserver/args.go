package mcpserver

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/feattree/internal/apperr"
	"github.com/starford/feattree/internal/models"
)

// args reads optional tool arguments, keeping "absent" distinct from
// "empty" so partial updates only touch what the caller sent.
type args struct {
	raw map[string]any
	err error
}

func argsOf(req mcp.CallToolRequest) *args {
	return &args{raw: req.GetArguments()}
}

func (a *args) fail(key, want string, got any) {
	if a.err == nil {
		a.err = fmt.Errorf("%w: %s must be %s, got %T", apperr.ErrInvalidInput, key, want, got)
	}
}

func (a *args) optString(key string) *string {
	v, ok := a.raw[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		a.fail(key, "a string", v)
		return nil
	}
	return &s
}

func (a *args) str(key string) string {
	if p := a.optString(key); p != nil {
		return *p
	}
	return ""
}

func (a *args) optStatus(key string) *models.Status {
	p := a.optString(key)
	if p == nil {
		return nil
	}
	st := models.Status(*p)
	return &st
}

// list returns nil when key is absent and a non-nil slice otherwise.
func (a *args) list(key string) []string {
	v, ok := a.raw[key]
	if !ok || v == nil {
		return nil
	}
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				a.fail(key, "a list of strings", item)
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		a.fail(key, "a list of strings", v)
		return nil
	}
}
