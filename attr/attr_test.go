package attr

import "testing"

func TestTagSelectsActiveMember(t *testing.T) {
	v := Uint(1500)

	if v.Kind() != KindUint {
		t.Fatalf("wrong kind: %v", v.Kind())
	}
	if u, ok := v.AsUint(); !ok || u != 1500 {
		t.Fatalf("AsUint = %d, %v", u, ok)
	}
	if _, ok := v.AsBool(); ok {
		t.Fatal("AsBool should fail on uint value")
	}
	if _, ok := v.AsString(); ok {
		t.Fatal("AsString should fail on uint value")
	}
}

func TestZeroValueIsFalseBool(t *testing.T) {
	var v Value
	b, ok := v.AsBool()
	if !ok || b {
		t.Fatalf("zero value = %v, %v; want false bool", b, ok)
	}
}

func TestText(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Bool(true), "true"},
		{Uint(42), "42"},
		{Double(0.5), "0.5"},
		{String("5Mbps"), "5Mbps"},
	}
	for _, c := range cases {
		if got := c.v.Text(); got != c.want {
			t.Fatalf("Text(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}
