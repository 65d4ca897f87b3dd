package enum

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	enumMutex   sync.RWMutex
	enumManager = map[reflect.Type]any{}
)

type enum[T comparable] struct {
	toEnum map[string]T
	values []T
}

// New registers value as a member of its type and returns it unchanged, so it
// can be used directly in a var block.
func New[T comparable](value T) T {
	enumMutex.Lock()
	defer enumMutex.Unlock()

	t := reflect.TypeOf(value)
	if _, ok := enumManager[t]; !ok {
		enumManager[t] = &enum[T]{toEnum: make(map[string]T)}
	}

	e := enumManager[t].(*enum[T])
	e.toEnum[fmt.Sprint(value)] = value
	e.values = append(e.values, value)
	return value
}

func ToEnum[T comparable](s string) (T, error) {
	enumMutex.RLock()
	defer enumMutex.RUnlock()

	var defaultT T
	e, ok := enumManager[reflect.TypeOf(defaultT)]
	if !ok {
		return defaultT, fmt.Errorf("not found enum type %T", defaultT)
	}

	t, ok := e.(*enum[T]).toEnum[s]
	if !ok {
		return defaultT, fmt.Errorf("not found value %s in enum %T", s, defaultT)
	}

	return t, nil
}

// Values returns all registered members of T in registration order.
func Values[T comparable]() []T {
	enumMutex.RLock()
	defer enumMutex.RUnlock()

	var defaultT T
	e, ok := enumManager[reflect.TypeOf(defaultT)]
	if !ok {
		return nil
	}

	values := e.(*enum[T]).values
	result := make([]T, len(values))
	copy(result, values)
	return result
}
