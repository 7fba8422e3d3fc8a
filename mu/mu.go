// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

/*
Package mu implements the marshalling and unmarshalling of types to and from
the TPM wire format.

Go types are mapped to the TPM wire format with the following conventions:
  - Unsigned integer and bool types are written big-endian with their natural
    width.
  - Byte slices correspond to TPM2B types and are prefixed with a 16-bit size
    field. The RawBytes type and the Raw wrapper bypass the size field.
  - Slices of any other type correspond to TPML types and are prefixed with a
    32-bit count field, unless wrapped with Raw.
  - Structs are written field by field in declaration order. The Sized wrapper
    turns a value into a TPM2B with a 16-bit size field and an inner payload.
  - Types may take over their own representation by implementing the
    CustomMarshaller and CustomUnmarshaller interfaces.

Unmarshalling reads through a cursor that tracks the number of bytes remaining
in the current buffer where this is known, and fails immediately on any read
that would exceed it rather than consuming the remainder first.
*/
package mu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"

	"golang.org/x/xerrors"
)

var (
	customMarshallerType   = reflect.TypeOf((*CustomMarshaller)(nil)).Elem()
	customUnmarshallerType = reflect.TypeOf((*CustomUnmarshaller)(nil)).Elem()
	rawBytesType           = reflect.TypeOf(RawBytes(nil))
)

// InvalidSelectorError is returned as a wrapped error from UnmarshalFromBytes
// or UnmarshalFromReader when a value with a selector field (eg, a signature
// or capability union) indicates content that the decoder does not recognize.
// It permits callers to distinguish malformed content from truncation, which
// is indicated by io.EOF or io.ErrUnexpectedEOF instead.
type InvalidSelectorError struct {
	Selector interface{}
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector value: %v", e.Selector)
}

// CustomMarshaller is implemented by types that require custom marshalling
// behaviour. Implementations must also implement CustomUnmarshaller.
type CustomMarshaller interface {
	Marshal(w io.Writer) error
}

// Reader is the interface supplied to implementations of CustomUnmarshaller.
// Len returns the number of bytes remaining in the buffer being decoded, or
// -1 where this is not known.
type Reader interface {
	io.Reader
	Len() int
}

// CustomUnmarshaller is implemented by types that require custom
// unmarshalling behaviour. The interface must be implemented with a pointer
// receiver.
type CustomUnmarshaller interface {
	Unmarshal(r Reader) error
}

// RawBytes is a byte slice that is marshalled and unmarshalled without a
// size field. The slice must be pre-allocated to the correct length by the
// caller during unmarshalling.
type RawBytes []byte

type wrappedValue struct {
	value interface{}
	raw   bool
	sized bool
}

// Raw converts the supplied slice value to one that is marshalled and
// unmarshalled without a size or count field. During unmarshalling the slice
// must be pre-allocated to the correct length.
func Raw(value interface{}) interface{} {
	return &wrappedValue{value: value, raw: true}
}

// Sized converts the supplied value, which must be a pointer, to one that is
// marshalled as a TPM2B structure - a 16-bit size field followed by the
// marshalled inner value. A nil pointer marshals to a zero size field, and a
// zero size field unmarshals to a nil pointer.
func Sized(value interface{}) interface{} {
	return &wrappedValue{value: value, sized: true}
}

// Error is returned from marshalling and unmarshalling functions to provide
// context about which argument could not be processed.
type Error struct {
	Index int          // index of the argument that could not be processed
	Type  reflect.Type // type of the value that could not be processed
	err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot process argument %d of type %s: %v", e.Index, e.Type, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// IsInsufficientData indicates whether the supplied error was caused by
// truncation of the buffer being unmarshalled, as opposed to malformed
// content.
func IsInsufficientData(err error) bool {
	return xerrors.Is(err, io.EOF) || xerrors.Is(err, io.ErrUnexpectedEOF)
}

type countingWriter struct {
	w io.Writer
	n int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += n
	return n, err
}

// readCursor tracks the number of bytes remaining in the source where this
// is known, so that oversized reads fail before consuming anything.
type readCursor struct {
	r         io.Reader
	remaining int // -1 if unknown
	n         int // bytes consumed
}

func (c *readCursor) Read(p []byte) (int, error) {
	if c.remaining == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	if c.remaining > 0 && len(p) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.n += n
	if c.remaining > 0 {
		c.remaining -= n
	}
	return n, err
}

func (c *readCursor) Len() int {
	return c.remaining
}

// checkAvailable fails fast when a size or count field declares more bytes
// than the cursor has left.
func (c *readCursor) checkAvailable(n int64) error {
	if c.remaining >= 0 && n > int64(c.remaining) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func isCustom(t reflect.Type) bool {
	return t.Implements(customMarshallerType) || reflect.PtrTo(t).Implements(customMarshallerType)
}

func marshalSized(w *countingWriter, v reflect.Value) error {
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("sized value of kind %s is not a pointer", v.Kind())
	}
	if v.IsNil() {
		return binary.Write(w, binary.BigEndian, uint16(0))
	}

	tmp := new(bytes.Buffer)
	tw := &countingWriter{w: tmp}
	if err := marshalValue(tw, v.Elem(), false); err != nil {
		return err
	}
	if tmp.Len() > math.MaxUint16 {
		return fmt.Errorf("sized value size of %d is larger than 2^16-1", tmp.Len())
	}
	if err := binary.Write(w, binary.BigEndian, uint16(tmp.Len())); err != nil {
		return err
	}
	_, err := w.Write(tmp.Bytes())
	return err
}

func marshalValue(w *countingWriter, v reflect.Value, raw bool) error {
	if isCustom(v.Type()) {
		var c CustomMarshaller
		if v.Type().Implements(customMarshallerType) {
			c = v.Interface().(CustomMarshaller)
		} else {
			if !v.CanAddr() {
				tmp := reflect.New(v.Type()).Elem()
				tmp.Set(v)
				v = tmp
			}
			c = v.Addr().Interface().(CustomMarshaller)
		}
		return c.Marshal(w)
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return marshalValue(w, reflect.New(v.Type().Elem()).Elem(), raw)
		}
		return marshalValue(w, v.Elem(), raw)
	case reflect.Bool:
		var b uint8
		if v.Bool() {
			b = 1
		}
		return binary.Write(w, binary.BigEndian, b)
	case reflect.Uint8:
		return binary.Write(w, binary.BigEndian, uint8(v.Uint()))
	case reflect.Uint16:
		return binary.Write(w, binary.BigEndian, uint16(v.Uint()))
	case reflect.Uint32:
		return binary.Write(w, binary.BigEndian, uint32(v.Uint()))
	case reflect.Uint64:
		return binary.Write(w, binary.BigEndian, uint64(v.Uint()))
	case reflect.Int32:
		return binary.Write(w, binary.BigEndian, int32(v.Int()))
	case reflect.Slice:
		return marshalSlice(w, v, raw)
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := marshalValue(w, v.Index(i), false); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			fieldRaw := v.Type().Field(i).Tag.Get("tpm") == "raw"
			if err := marshalValue(w, v.Field(i), fieldRaw); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported kind: %s", v.Kind())
	}
}

func marshalSlice(w *countingWriter, v reflect.Value, raw bool) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		b := v.Convert(reflect.TypeOf([]byte(nil))).Interface().([]byte)
		if !raw && v.Type() != rawBytesType {
			if len(b) > math.MaxUint16 {
				return fmt.Errorf("byte slice length of %d is larger than 2^16-1", len(b))
			}
			if err := binary.Write(w, binary.BigEndian, uint16(len(b))); err != nil {
				return err
			}
		}
		_, err := w.Write(b)
		return err
	}

	if !raw {
		if err := binary.Write(w, binary.BigEndian, uint32(v.Len())); err != nil {
			return err
		}
	}
	for i := 0; i < v.Len(); i++ {
		if err := marshalValue(w, v.Index(i), false); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalSized(r *readCursor, v reflect.Value) error {
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("sized value of kind %s is not a pointer", v.Kind())
	}

	var size uint16
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return err
	}
	if size == 0 {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	if err := r.checkAvailable(int64(size)); err != nil {
		return err
	}
	if v.IsNil() {
		v.Set(reflect.New(v.Type().Elem()))
	}

	inner := &readCursor{r: io.LimitReader(r, int64(size)), remaining: int(size)}
	if err := unmarshalValue(inner, v.Elem(), false); err != nil {
		return err
	}
	if inner.n != int(size) {
		return fmt.Errorf("sized value contains %d trailing bytes", int(size)-inner.n)
	}
	return nil
}

func unmarshalValue(r *readCursor, v reflect.Value, raw bool) error {
	if reflect.PtrTo(v.Type()).Implements(customUnmarshallerType) {
		if !v.CanAddr() {
			return fmt.Errorf("cannot unmarshal unaddressable custom value of type %s", v.Type())
		}
		return v.Addr().Interface().(CustomUnmarshaller).Unmarshal(r)
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return unmarshalValue(r, v.Elem(), raw)
	case reflect.Bool:
		var b uint8
		if err := binary.Read(r, binary.BigEndian, &b); err != nil {
			return err
		}
		v.SetBool(b != 0)
		return nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b := make([]byte, v.Type().Size())
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		var x uint64
		for _, o := range b {
			x = x<<8 | uint64(o)
		}
		v.SetUint(x)
		return nil
	case reflect.Int32:
		var x int32
		if err := binary.Read(r, binary.BigEndian, &x); err != nil {
			return err
		}
		v.SetInt(int64(x))
		return nil
	case reflect.Slice:
		return unmarshalSlice(r, v, raw)
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := unmarshalValue(r, v.Index(i), false); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			fieldRaw := v.Type().Field(i).Tag.Get("tpm") == "raw"
			if err := unmarshalValue(r, v.Field(i), fieldRaw); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported kind: %s", v.Kind())
	}
}

func unmarshalSlice(r *readCursor, v reflect.Value, raw bool) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		if raw || v.Type() == rawBytesType {
			// Raw byte slices must be pre-allocated to the expected length.
			b := v.Convert(reflect.TypeOf([]byte(nil))).Interface().([]byte)
			_, err := io.ReadFull(r, b)
			return err
		}

		var size uint16
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return err
		}
		if err := r.checkAvailable(int64(size)); err != nil {
			return err
		}
		b := make([]byte, size)
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(b).Convert(v.Type()))
		return nil
	}

	n := v.Len()
	if !raw {
		var count uint32
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return err
		}
		// Every element occupies at least one byte on the wire.
		if err := r.checkAvailable(int64(count)); err != nil {
			return err
		}
		v.Set(reflect.MakeSlice(v.Type(), int(count), int(count)))
		n = int(count)
	}
	for i := 0; i < n; i++ {
		if err := unmarshalValue(r, v.Index(i), false); err != nil {
			return err
		}
	}
	return nil
}

func marshalArg(w *countingWriter, i int, val interface{}) error {
	if wrapped, isWrapped := val.(*wrappedValue); isWrapped {
		v := reflect.ValueOf(wrapped.value)
		var err error
		switch {
		case wrapped.sized:
			err = marshalSized(w, v)
		default:
			if v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Kind() == reflect.Slice {
				v = v.Elem()
			}
			err = marshalValue(w, v, wrapped.raw)
		}
		if err != nil {
			return &Error{Index: i, Type: reflect.TypeOf(wrapped.value), err: err}
		}
		return nil
	}

	if err := marshalValue(w, reflect.ValueOf(val), false); err != nil {
		return &Error{Index: i, Type: reflect.TypeOf(val), err: err}
	}
	return nil
}

// MarshalToWriter marshals vals to w in the TPM wire format, and returns the
// number of bytes written.
func MarshalToWriter(w io.Writer, vals ...interface{}) (int, error) {
	cw := &countingWriter{w: w}
	for i, val := range vals {
		if err := marshalArg(cw, i, val); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// MustMarshalToWriter is the same as MarshalToWriter, except that it panics
// if it encounters an error.
func MustMarshalToWriter(w io.Writer, vals ...interface{}) int {
	n, err := MarshalToWriter(w, vals...)
	if err != nil {
		panic(err)
	}
	return n
}

// MarshalToBytes marshals vals to the TPM wire format and returns the
// serialized bytes.
func MarshalToBytes(vals ...interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := MarshalToWriter(buf, vals...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalToBytes is the same as MarshalToBytes, except that it panics if
// it encounters an error.
func MustMarshalToBytes(vals ...interface{}) []byte {
	b, err := MarshalToBytes(vals...)
	if err != nil {
		panic(err)
	}
	return b
}

func unmarshalArg(r *readCursor, i int, val interface{}) error {
	if wrapped, isWrapped := val.(*wrappedValue); isWrapped {
		v := reflect.ValueOf(wrapped.value)
		if v.Kind() != reflect.Ptr || v.IsNil() {
			return &Error{Index: i, Type: reflect.TypeOf(wrapped.value),
				err: fmt.Errorf("cannot unmarshal to non-pointer value of kind %s", v.Kind())}
		}
		var err error
		switch {
		case wrapped.sized:
			err = unmarshalSized(r, v)
		default:
			err = unmarshalValue(r, v.Elem(), wrapped.raw)
		}
		if err != nil {
			return &Error{Index: i, Type: reflect.TypeOf(wrapped.value), err: err}
		}
		return nil
	}

	v := reflect.ValueOf(val)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return &Error{Index: i, Type: reflect.TypeOf(val),
			err: fmt.Errorf("cannot unmarshal to non-pointer value of kind %s", v.Kind())}
	}
	if err := unmarshalValue(r, v.Elem(), false); err != nil {
		return &Error{Index: i, Type: reflect.TypeOf(val), err: err}
	}
	return nil
}

// UnmarshalFromReader unmarshals data in the TPM wire format from r to vals,
// which must all be pointers, and returns the number of bytes consumed.
func UnmarshalFromReader(r io.Reader, vals ...interface{}) (int, error) {
	cursor, isCursor := r.(*readCursor)
	if !isCursor {
		remaining := -1
		if l, isLen := r.(interface{ Len() int }); isLen {
			remaining = l.Len()
		}
		cursor = &readCursor{r: r, remaining: remaining}
	}
	start := cursor.n
	for i, val := range vals {
		if err := unmarshalArg(cursor, i, val); err != nil {
			return cursor.n - start, err
		}
	}
	return cursor.n - start, nil
}

// UnmarshalFromBytes unmarshals data in the TPM wire format from b to vals,
// which must all be pointers, and returns the number of bytes consumed.
func UnmarshalFromBytes(b []byte, vals ...interface{}) (int, error) {
	return UnmarshalFromReader(bytes.NewReader(b), vals...)
}
