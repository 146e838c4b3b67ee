package safe

import (
	"fmt"
	"reflect"

	"DreamsChat/logger"
	"DreamsChat/tools/errs"

	"go.uber.org/zap"
)

// IsNil reports whether v is nil, including a typed nil stored in an interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// MustNotNil panics if the given value is nil.
// Useful for enforcing required collaborators during construction.
func MustNotNil(v any, name string) {
	if IsNil(v) {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
}

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(name string, f func()) {
	go func() {
		defer Recover(name, nil)
		f()
	}()
}

// Recover must be deferred directly. The recovered value is converted to
// errs.ErrPanic and handed to onPanic when set.
func Recover(name string, onPanic func(err error)) {
	r := recover()
	if r == nil {
		return
	}
	err := errs.ErrPanic(r)
	logger.Error("[SafeGo] panic recovered", zap.String("goroutine", name), zap.Error(err), zap.Stack("stack"))
	if onPanic != nil {
		onPanic(err)
	}
}
