// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package rlp

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"reflect"

	"github.com/holiman/uint256"
)

// Kind identifies whether a decoded RLP item is a byte string or a list.
type Kind int

const (
	Byte Kind = iota
	String
	List
)

// Stream reads successive RLP values from an input stream, mirroring
// go-ethereum's rlp.Stream API used pervasively by the teacher's decoders.
type Stream struct {
	r    io.ByteReader
	data []byte
	pos  int
}

// NewStream wraps b for RLP decoding.
func NewStream(b []byte) *Stream { return &Stream{data: b} }

// DecodeBytes parses data as RLP into val, which must be a non-nil pointer.
func DecodeBytes(data []byte, val interface{}) error {
	s := NewStream(data)
	if err := s.Decode(val); err != nil {
		return err
	}
	if s.pos != len(s.data) {
		return ErrMoreThanOneValue
	}
	return nil
}

// Decode reads one RLP value from s into val.
func (s *Stream) Decode(val interface{}) error {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("rlp: Decode requires non-nil pointer")
	}
	if dec, ok := val.(Decoder); ok {
		return dec.DecodeRLP(s)
	}
	return s.decodeValue(rv.Elem())
}

func (s *Stream) decodeValue(v reflect.Value) error {
	if v.CanAddr() {
		if dec, ok := v.Addr().Interface().(Decoder); ok {
			return dec.DecodeRLP(s)
		}
	}
	switch v.Kind() {
	case reflect.Ptr:
		switch v.Type() {
		case reflect.TypeOf((*big.Int)(nil)):
			b, err := s.readString()
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(new(big.Int).SetBytes(b)))
			return nil
		case reflect.TypeOf((*uint256.Int)(nil)):
			b, err := s.readString()
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(new(uint256.Int).SetBytes(b)))
			return nil
		}
		elem := reflect.New(v.Type().Elem())
		if err := s.decodeValue(elem.Elem()); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	case reflect.String:
		b, err := s.readString()
		if err != nil {
			return err
		}
		v.SetString(string(b))
		return nil
	case reflect.Bool:
		b, err := s.readString()
		if err != nil {
			return err
		}
		v.SetBool(len(b) == 1 && b[0] == 1)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := s.readUint()
		if err != nil {
			return err
		}
		v.SetUint(u)
		return nil
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, err := s.readString()
			if err != nil {
				return err
			}
			if v.Kind() == reflect.Array {
				reflect.Copy(v, reflect.ValueOf(b))
				return nil
			}
			v.SetBytes(b)
			return nil
		}
		return s.decodeList(v)
	case reflect.Struct:
		return s.decodeStruct(v)
	case reflect.Interface:
		if v.NumMethod() == 0 {
			raw, err := s.Raw()
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(raw))
			return nil
		}
	}
	if _, ok := v.Interface().(big.Int); ok {
		b, err := s.readString()
		if err != nil {
			return err
		}
		bi := new(big.Int).SetBytes(b)
		v.Set(reflect.ValueOf(*bi))
		return nil
	}
	return fmt.Errorf("rlp: unsupported decode kind %s", v.Kind())
}

func (s *Stream) decodeList(v reflect.Value) error {
	kind, size, err := s.readHeader()
	if err != nil {
		return err
	}
	if kind != List {
		return ErrExpectedList
	}
	end := s.pos + size
	var items []reflect.Value
	for s.pos < end {
		elem := reflect.New(v.Type().Elem()).Elem()
		if err := s.decodeValue(elem); err != nil {
			return err
		}
		items = append(items, elem)
	}
	if v.Kind() == reflect.Array {
		for i, it := range items {
			if i < v.Len() {
				v.Index(i).Set(it)
			}
		}
		return nil
	}
	out := reflect.MakeSlice(v.Type(), len(items), len(items))
	for i, it := range items {
		out.Index(i).Set(it)
	}
	v.Set(out)
	return nil
}

func (s *Stream) decodeStruct(v reflect.Value) error {
	kind, size, err := s.readHeader()
	if err != nil {
		return err
	}
	if kind != List {
		return ErrExpectedList
	}
	end := s.pos + size
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" || f.Tag.Get("rlp") == "-" {
			continue
		}
		if s.pos >= end {
			return io.ErrUnexpectedEOF
		}
		if err := s.decodeValue(v.Field(i)); err != nil {
			return err
		}
	}
	s.pos = end
	return nil
}

// Raw returns the raw encoded bytes of the next value, consuming it.
func (s *Stream) Raw() ([]byte, error) {
	start := s.pos
	_, size, err := s.readHeader()
	if err != nil {
		return nil, err
	}
	end := s.pos + size
	if end > len(s.data) {
		return nil, ErrValueTooLarge
	}
	raw := s.data[start:end]
	s.pos = end
	return raw, nil
}

func (s *Stream) readUint() (uint64, error) {
	b, err := s.readString()
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, ErrValueTooLarge
	}
	if len(b) > 0 && b[0] == 0 {
		return 0, ErrCanonInt
	}
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (s *Stream) readString() ([]byte, error) {
	kind, size, err := s.readHeader()
	if err != nil {
		return nil, err
	}
	if kind == List {
		return nil, ErrExpectedString
	}
	b := s.data[s.pos : s.pos+size]
	s.pos += size
	return b, nil
}

// peekHeader reports the kind/size of the next item without consuming it.
func (s *Stream) peekHeader() (Kind, int, error) {
	save := s.pos
	k, n, err := s.readHeader()
	s.pos = save
	return k, n, err
}

func (s *Stream) readHeader() (Kind, int, error) {
	if s.pos >= len(s.data) {
		return 0, 0, io.EOF
	}
	b := s.data[s.pos]
	switch {
	case b < 0x80:
		// A single byte below 0x80 is its own content: leave pos on it so
		// the caller reads it as a one-byte string.
		return Byte, 1, nil
	case b < 0xb8:
		size := int(b - 0x80)
		s.pos++
		if s.pos+size > len(s.data) {
			return 0, 0, ErrValueTooLarge
		}
		return String, size, nil
	case b < 0xc0:
		lensize := int(b - 0xb7)
		s.pos++
		size, err := s.readSize(lensize)
		if err != nil {
			return 0, 0, err
		}
		if s.pos+size > len(s.data) {
			return 0, 0, ErrValueTooLarge
		}
		return String, size, nil
	case b < 0xf8:
		size := int(b - 0xc0)
		s.pos++
		return List, size, nil
	default:
		lensize := int(b - 0xf7)
		s.pos++
		size, err := s.readSize(lensize)
		if err != nil {
			return 0, 0, err
		}
		return List, size, nil
	}
}

func (s *Stream) readSize(n int) (int, error) {
	if s.pos+n > len(s.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	if b[0] == 0 {
		return 0, ErrCanonSize
	}
	var buf [8]byte
	copy(buf[8-n:], b)
	return int(binary.BigEndian.Uint64(buf[:])), nil
}

// SplitString reports the byte-string content of the first encoded item in b
// and the remaining tail, used by callers that want to avoid a full Stream
// (matching go-ethereum's rlp.SplitString helper surface used by receipts).
func SplitString(b []byte) (content, rest []byte, err error) {
	s := NewStream(b)
	kind, size, err := s.readHeader()
	if err != nil {
		return nil, nil, err
	}
	if kind == List {
		return nil, nil, ErrExpectedString
	}
	content = s.data[s.pos : s.pos+size]
	rest = s.data[s.pos+size:]
	return content, rest, nil
}

// SplitList reports the raw payload of the first encoded list item in b (the
// concatenated encodings of its elements, header stripped) and the remaining
// tail. Used by the trie package to decode nodes without reflection.
func SplitList(b []byte) (content, rest []byte, err error) {
	s := NewStream(b)
	kind, size, err := s.readHeader()
	if err != nil {
		return nil, nil, err
	}
	if kind != List {
		return nil, nil, ErrExpectedList
	}
	content = s.data[s.pos : s.pos+size]
	rest = s.data[s.pos+size:]
	return content, rest, nil
}

// ListLength reports the length of the RLP list starting at the head of b,
// including its header bytes.
func ListLength(b []byte) (int, error) {
	s := NewStream(b)
	kind, size, err := s.readHeader()
	if err != nil {
		return 0, err
	}
	if kind != List {
		return 0, ErrExpectedList
	}
	return s.pos + size, nil
}

// CountListItems reports how many top-level items content (as returned by
// SplitList) encodes.
func CountListItems(content []byte) (int, error) {
	count := 0
	for len(content) > 0 {
		_, rest, err := splitAny(content)
		if err != nil {
			return 0, err
		}
		content = rest
		count++
	}
	return count, nil
}

// splitAny consumes one encoded item of either kind from b and returns its
// full encoding (header included) plus the remaining tail.
func splitAny(b []byte) (item, rest []byte, err error) {
	s := NewStream(b)
	start := s.pos
	_, size, err := s.readHeader()
	if err != nil {
		return nil, nil, err
	}
	end := s.pos + size
	return s.data[start:end], s.data[end:], nil
}

// SplitAny is the exported form of splitAny: it consumes one full encoded
// item (string or list, header included) from b.
func SplitAny(b []byte) (item, rest []byte, err error) {
	return splitAny(b)
}
