package kernel

import "reflect"

// ID is a message id.
type ID int16

// NoMessage is the reserved null message id. It is never valid for Post or Subscribe.
const NoMessage ID = -1

// Receiver can receive dispatched events.
type Receiver interface {
	EventHandler(id ID, payload any)
}

// Func is a function message handler. Its identity is the *Func pointer, so the same
// *Func must be used to subscribe and unsubscribe.
type Func struct {
	fn func(payload any)
}

// NewFunc wraps fn as a subscribable handler.
func NewFunc(fn func(payload any)) *Func {
	return &Func{fn: fn}
}

type handlerKind uint8

const (
	handlerNone handlerKind = iota
	handlerFunc
	handlerReceiver
)

// Handler is a message queue subscription target: either a *Func or a Receiver.
type Handler struct {
	kind handlerKind
	fn   *Func
	rcv  Receiver
}

// FuncHandler returns a Handler that calls f.
func FuncHandler(f *Func) Handler {
	if f == nil || f.fn == nil {
		return Handler{}
	}
	return Handler{kind: handlerFunc, fn: f}
}

// ReceiverHandler returns a Handler that calls r.EventHandler.
//
// r is identified with ==. A value that is not comparable yields the zero Handler, which
// Subscribe rejects with ErrInvalidHandler. Use pointer receivers: a value receiver whose
// interface fields change to hold a slice or map after subscribing makes later comparisons
// panic.
func ReceiverHandler(r Receiver) Handler {
	if !identifiable(r) {
		return Handler{}
	}
	return Handler{kind: handlerReceiver, rcv: r}
}

func (h Handler) valid() bool {
	return h.kind != handlerNone
}

func (h Handler) same(o Handler) bool {
	if h.kind != o.kind {
		return false
	}
	switch h.kind {
	case handlerFunc:
		return h.fn == o.fn
	case handlerReceiver:
		return h.rcv == o.rcv
	default:
		return false
	}
}

func (h Handler) call(id ID, payload any) {
	switch h.kind {
	case handlerFunc:
		h.fn.fn(payload)
	case handlerReceiver:
		h.rcv.EventHandler(id, payload)
	}
}

// identifiable reports whether v can be compared with == and is not a nil pointer. Interface
// fields are checked by their current dynamic value, so a struct holding a slice behind an
// interface is rejected here rather than panicking later in a comparison.
func identifiable(v any) bool {
	t := reflect.TypeOf(v)
	if t == nil || !t.Comparable() {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return false
	}
	return comparableValue(rv)
}

func comparableValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		e := v.Elem()
		return e.Type().Comparable() && comparableValue(e)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !comparableValue(v.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !comparableValue(v.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Map, reflect.Func:
		return false
	default:
		return true
	}
}
