// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package rlp implements the Recursive Length Prefix encoding used as the
// wire and storage serialization throughout the module (spec §6).
//
// The encoding rules: a single byte in [0x00, 0x7f] encodes itself; a byte
// string of length L<56 is [0x80+L, string...]; longer byte strings are
// [0xb7+len(len), len, string...]; lists follow the same length-prefix
// scheme with base 0xc0/0xf7 instead of 0x80/0xb7.
package rlp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"reflect"

	"github.com/holiman/uint256"
)

var (
	ErrExpectedString = errors.New("rlp: expected string or byte")
	ErrExpectedList   = errors.New("rlp: expected list")
	ErrCanonInt       = errors.New("rlp: non-canonical integer format")
	ErrCanonSize      = errors.New("rlp: non-canonical size information")
	ErrElemTooLarge   = errors.New("rlp: element is larger than containing list")
	ErrValueTooLarge  = errors.New("rlp: value size exceeds available input")
	ErrMoreThanOneValue = errors.New("rlp: input contains more than one value")
)

// Encoder is implemented by types that know how to encode themselves.
type Encoder interface {
	EncodeRLP(io.Writer) error
}

// Decoder is implemented by types that know how to decode themselves from a
// Stream.
type Decoder interface {
	DecodeRLP(*Stream) error
}

// EncodeToBytes returns the RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	if enc, ok := val.(Encoder); ok {
		return enc.EncodeRLP(w)
	}
	v := reflect.ValueOf(val)
	b, err := encodeValue(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func encodeValue(v reflect.Value) ([]byte, error) {
	if !v.IsValid() {
		return encodeString(nil), nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return encodeString(nil), nil
		}
		switch x := v.Interface().(type) {
		case *big.Int:
			return encodeBigInt(x), nil
		case *uint256.Int:
			return encodeString(x.Bytes()), nil
		case Encoder:
			var buf bytes.Buffer
			if err := x.EncodeRLP(&buf); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}
		return encodeValue(v.Elem())
	}
	if enc, ok := v.Interface().(Encoder); ok {
		var buf bytes.Buffer
		if err := enc.EncodeRLP(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	switch v.Kind() {
	case reflect.String:
		return encodeString([]byte(v.String())), nil
	case reflect.Bool:
		if v.Bool() {
			return []byte{0x01}, nil
		}
		return []byte{0x80}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUint(v.Uint()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Int() < 0 {
			return nil, fmt.Errorf("rlp: cannot encode negative integer")
		}
		return encodeUint(uint64(v.Int())), nil
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return encodeString(toBytes(v)), nil
		}
		return encodeList(v)
	case reflect.Struct:
		return encodeStruct(v)
	case reflect.Interface:
		return encodeValue(v.Elem())
	default:
		if bi, ok := v.Interface().(*big.Int); ok {
			return encodeBigInt(bi), nil
		}
		return nil, fmt.Errorf("rlp: unsupported kind %s", v.Kind())
	}
}

func toBytes(v reflect.Value) []byte {
	if v.Kind() == reflect.Slice {
		return v.Bytes()
	}
	out := make([]byte, v.Len())
	reflect.Copy(reflect.ValueOf(out), v)
	return out
}

func encodeBigInt(bi *big.Int) []byte {
	if bi == nil || bi.Sign() == 0 {
		return []byte{0x80}
	}
	return encodeString(bi.Bytes())
}

func encodeUint(i uint64) []byte {
	if i == 0 {
		return []byte{0x80}
	}
	if i < 0x80 {
		return []byte{byte(i)}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], i)
	b := bytes.TrimLeft(buf[:], "\x00")
	return encodeString(b)
}

func encodeString(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	return append(header(0x80, 0xb7, len(b)), b...)
}

func encodeList(v reflect.Value) ([]byte, error) {
	var payload []byte
	for i := 0; i < v.Len(); i++ {
		item, err := encodeValue(v.Index(i))
		if err != nil {
			return nil, err
		}
		payload = append(payload, item...)
	}
	return append(header(0xc0, 0xf7, len(payload)), payload...), nil
}

func encodeStruct(v reflect.Value) ([]byte, error) {
	t := v.Type()
	var payload []byte
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" || f.Tag.Get("rlp") == "-" {
			continue
		}
		item, err := encodeValue(v.Field(i))
		if err != nil {
			return nil, fmt.Errorf("rlp: field %s: %w", f.Name, err)
		}
		payload = append(payload, item...)
	}
	return append(header(0xc0, 0xf7, len(payload)), payload...), nil
}

func header(short, longBase byte, size int) []byte {
	if size < 56 {
		return []byte{short + byte(size)}
	}
	lb := big.NewInt(int64(size)).Bytes()
	return append([]byte{longBase + byte(len(lb))}, lb...)
}
