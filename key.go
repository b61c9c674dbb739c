package rewire

import (
	"fmt"
	"reflect"

	typetostring "github.com/samber/go-type-to-string"
)

// Key identifies what is being resolved: a declared type plus an optional
// qualifier. Keys are value objects, compared by equality and never mutated.
type Key struct {
	Type      reflect.Type
	Qualifier string
}

// KeyOf builds the Key for type T, optionally qualified.
func KeyOf[T any](qualifier ...string) Key {
	k := Key{Type: reflect.TypeOf((*T)(nil)).Elem()}
	if len(qualifier) > 0 {
		k.Qualifier = qualifier[0]
	}
	return k
}

// id is the registry hash of the key. Qualifier first so that differently
// qualified bindings of the same type never collide.
func (k Key) id() string {
	return k.Qualifier + "\x00" + typetostring.GetReflectType(k.Type)
}

func (k Key) String() string {
	name := typetostring.GetReflectType(k.Type)
	if k.Qualifier == "" {
		return name
	}
	return fmt.Sprintf("%s (qualifier %q)", name, k.Qualifier)
}
