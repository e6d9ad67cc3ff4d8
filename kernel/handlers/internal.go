package handlers

import (
	"fmt"
	"reflect"
)

func newValue(t reflect.Type) any {
	if t == nil {
		return nil
	}

	if t.Kind() != reflect.Pointer {
		t = reflect.PointerTo(t)
	}

	return reflect.New(t.Elem()).Interface()
}

func handlerTypeOf[T any]() reflect.Type {
	var zero T

	return reflect.TypeOf(zero)
}

// typedPayload converts a decoded body into the handler's type T.
// An interface T (handlerType nil) is satisfied by plain assertion.
func typedPayload[T any](instance any, handlerType, registryType reflect.Type) (T, error) {
	var zero T

	if instance == nil {
		return zero, fmt.Errorf("%w: nil instance", errHandlerTypeMismatch)
	}

	if handlerType == nil {
		payload, ok := instance.(T)
		if !ok {
			return zero, fmt.Errorf("%w: registry=%v handler=%T", errHandlerTypeMismatch, registryType, zero)
		}

		return payload, nil
	}

	if registryType == nil {
		return zero, fmt.Errorf("%w: registry type unknown for handler %s", errHandlerTypeMismatch, handlerType)
	}

	// value handlers receive a copy of the decoded pointer
	if handlerType.Kind() != reflect.Pointer && registryType.Kind() == reflect.Pointer &&
		registryType.Elem() == handlerType {
		payload, ok := reflect.ValueOf(instance).Elem().Interface().(T)
		if ok {
			return payload, nil
		}
	}

	payload, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: registry=%s handler=%s", errHandlerTypeMismatch, registryType, handlerType)
	}

	return payload, nil
}
