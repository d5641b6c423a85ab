// Package typemap translates record class names to the short type tokens exposed in URLs.
package typemap

// Map is a bidirectional class <-> type lookup. Unmapped names pass through unchanged.
type Map struct {
	toType  map[string]string
	toClass map[string]string
}

// New builds a Map from class -> type pairs.
func New(classToType map[string]string) *Map {
	m := &Map{
		toType:  make(map[string]string, len(classToType)),
		toClass: make(map[string]string, len(classToType)),
	}
	for class, typ := range classToType {
		m.toType[class] = typ
		m.toClass[typ] = class
	}
	return m
}

// ClassToType returns the short token for class.
func (m *Map) ClassToType(class string) string {
	if m == nil {
		return class
	}
	if typ, ok := m.toType[class]; ok {
		return typ
	}
	return class
}

// TypeToClass returns the class name for a short token.
func (m *Map) TypeToClass(typ string) string {
	if m == nil {
		return typ
	}
	if class, ok := m.toClass[typ]; ok {
		return class
	}
	return typ
}
