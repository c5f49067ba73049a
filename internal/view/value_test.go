package view

import "testing"

func TestResolve(t *testing.T) {
	root := Record(map[string]Value{
		"target_system": Scalar(int64(5)),
		"base_mode":     Flags(128),
		"header": Record(map[string]Value{
			"system_id": Scalar(int64(1)),
		}),
		"items": List([]Value{
			Record(map[string]Value{"price": Scalar(int64(10))}),
			Record(map[string]Value{"price": Scalar(int64(20))}),
		}),
	})

	tests := []struct {
		name string
		path string
		want int64
	}{
		{"scalar", "target_system", 5},
		{"header extension", "header.system_id", 1},
		{"list index", "items.0.price", 10},
		{"list index second", "items.1.price", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(root, tt.path)
			if !ok {
				t.Fatalf("Resolve(%q): not found", tt.path)
			}
			n, ok := got.Int()
			if !ok || n != tt.want {
				t.Fatalf("Resolve(%q) = %v, want %d", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveMissing(t *testing.T) {
	root := Record(map[string]Value{"a": Scalar(int64(1))})
	if _, ok := Resolve(root, "b"); ok {
		t.Fatalf("expected missing path to fail")
	}
	if _, ok := Resolve(root, "a.b"); ok {
		t.Fatalf("expected descending into a scalar to fail")
	}
}

func TestFlagsBits(t *testing.T) {
	asRecord := Flags(128)
	bits, ok := asRecord.FlagsBits()
	if !ok || bits != 128 {
		t.Fatalf("FlagsBits() on record = %v, %v", bits, ok)
	}

	asBare := Scalar(int64(128))
	bits, ok = asBare.FlagsBits()
	if !ok || bits != 128 {
		t.Fatalf("FlagsBits() on bare scalar = %v, %v", bits, ok)
	}
}

func TestSetAutoVivifies(t *testing.T) {
	root := Value{}
	root = Set(root, "result", Scalar(int64(0)))
	root = Set(root, "header.system_id", Scalar(int64(42)))

	got, ok := Resolve(root, "header.system_id")
	if !ok {
		t.Fatalf("Resolve after Set: not found")
	}
	if n, _ := got.Int(); n != 42 {
		t.Fatalf("Resolve after Set = %d, want 42", n)
	}

	got, ok = Resolve(root, "result")
	if !ok {
		t.Fatalf("Resolve(result): not found")
	}
	if n, _ := got.Int(); n != 0 {
		t.Fatalf("Resolve(result) = %d, want 0", n)
	}
}
