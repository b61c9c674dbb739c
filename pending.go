package rewire

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// PendingInjection is a deferred request to populate the members of an
// already constructed instance once the whole graph is stable.
type PendingInjection struct {
	Instance any
	Type     reflect.Type
}

// pendingKey collapses repeat requests for the same instance to one.
type pendingKey struct {
	typ      reflect.Type
	instance any
}

// MemberInjector applies one pending member injection. Executing an
// injection may resolve further bindings through res, which keeps the same
// chain root open and may enqueue more pending injections on it.
type MemberInjector interface {
	Apply(ctx context.Context, res *Resolution, p *PendingInjection) error
}

// tagInjector is the default MemberInjector: it populates exported struct
// fields carrying an `inject` tag. The tag value is the qualifier, with an
// optional ",optional" suffix for dependencies that may be absent.
type tagInjector struct{}

var _ MemberInjector = tagInjector{}

func (tagInjector) Apply(ctx context.Context, res *Resolution, p *PendingInjection) error {
	v := reflect.ValueOf(p.Instance)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("member injection target must be a pointer to struct, got %s", p.Type)
	}
	elem := v.Elem()
	structType := elem.Type()

	for i := 0; i < structType.NumField(); i++ {
		tag, ok := structType.Field(i).Tag.Lookup("inject")
		if !ok {
			continue
		}
		field := elem.Field(i)
		if !field.CanSet() {
			return fmt.Errorf("inject tag on unsettable field %s.%s", structType, structType.Field(i).Name)
		}

		parts := strings.Split(tag, ",")
		qualifier := strings.TrimSpace(parts[0])
		var optional bool
		for _, option := range parts[1:] {
			if strings.TrimSpace(option) == "optional" {
				optional = true
			}
		}

		value, err := res.Resolve(ctx, Key{Type: field.Type(), Qualifier: qualifier})
		if err != nil {
			if optional && errors.Is(err, ErrBindingNotFound) {
				continue
			}
			return fmt.Errorf("failed to inject field %s.%s: %w", structType, structType.Field(i).Name, err)
		}
		if value == nil {
			continue
		}
		field.Set(reflect.ValueOf(value))
	}
	return nil
}
