package typemap

import "testing"

func TestMap(t *testing.T) {
	m := New(map[string]string{
		"App\\Model\\Page": "page",
		"App\\Model\\File": "file",
	})

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"class to type", m.ClassToType("App\\Model\\Page"), "page"},
		{"type to class", m.TypeToClass("file"), "App\\Model\\File"},
		{"unknown class", m.ClassToType("Other"), "Other"},
		{"unknown type", m.TypeToClass("other"), "other"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestMap_Nil(t *testing.T) {
	var m *Map
	if got := m.ClassToType("Page"); got != "Page" {
		t.Errorf("got %q", got)
	}
	if got := m.TypeToClass("page"); got != "page" {
		t.Errorf("got %q", got)
	}
}
