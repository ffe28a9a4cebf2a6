package utils

import "testing"

func TestToSnakeCase(t *testing.T) {
	for _, test := range []struct{ input, want string }{
		{"Reshape", "reshape"},
		{"DynamicBroadcastInDim", "dynamic_broadcast_in_dim"},
		{"ReinterpretCast", "reinterpret_cast"},
		{"Dim", "dim"},
		{"MLIRName", "mlir_name"},
		{"already_snake", "already_snake"},
		{"", ""},
	} {
		if got := ToSnakeCase(test.input); got != test.want {
			t.Errorf("ToSnakeCase(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	for _, test := range []struct{ input, want string }{
		{"main", "main"},
		{"output dims", "output_dims"},
		{"x.y/z", "x_y_z"},
		{"0arg", "_0arg"},
		{"", ""},
	} {
		if got := NormalizeIdentifier(test.input); got != test.want {
			t.Errorf("NormalizeIdentifier(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}
