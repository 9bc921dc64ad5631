package rlp

import "testing"

func TestEncodeDecodeUint(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 256, 1 << 32}
	for _, c := range cases {
		b, err := EncodeToBytes(c)
		if err != nil {
			t.Fatalf("encode %d: %v", c, err)
		}
		var out uint64
		if err := DecodeBytes(b, &out); err != nil {
			t.Fatalf("decode %d: %v", c, err)
		}
		if out != c {
			t.Fatalf("roundtrip mismatch: got %d want %d", out, c)
		}
	}
}

func TestEncodeDecodeList(t *testing.T) {
	in := []uint64{1, 2, 3, 4096}
	b, err := EncodeToBytes(in)
	if err != nil {
		t.Fatal(err)
	}
	var out []uint64
	if err := DecodeBytes(b, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: got %d want %d", i, out[i], in[i])
		}
	}
}
