package encoding

import "testing"

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10)

	out, err := DecodeRLE(AppendRLE(nil, in), len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_RejectsLengthMismatch(t *testing.T) {
	raw := AppendRLE(nil, []uint16{4, 4, 4})
	if _, err := DecodeRLE(raw, 2); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := DecodeRLE(raw, 4); err == nil {
		t.Fatalf("expected short error")
	}
}
