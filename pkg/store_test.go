package relay

import "testing"

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if v, ok := store.Get("a").(int); ok {
		t.Errorf("Expected 'a' to be nil, got %v", v)
	}

	store.Set("a", 123)

	if v := store.Get("a").(int); v != 123 {
		t.Errorf("Expected 'a' to be 123, got %v", v)
	}

	store.Delete("a")

	if _, ok := store.Get("a").(int); ok {
		t.Errorf("Expected 'a' to be nil after delete")
	}

	type Foo struct {
		Value int
		Name  string
	}

	store.Set("foo", &Foo{Value: 42, Name: "bar"})

	if foo, ok := store.Get("foo").(*Foo); !ok {
		t.Errorf("Expected 'foo' to be type *Foo, but typecast failed")
	} else if foo.Value != 42 {
		t.Errorf("Expected 'foo' to have value 42, got %d", foo.Value)
	}
}
