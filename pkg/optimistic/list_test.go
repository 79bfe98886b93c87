package optimistic

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type item struct {
	ID   int
	Name string
}

func (i item) EntityID() int { return i.ID }

type namePatch struct{ Name *string }

func (p namePatch) Apply(i item) item {
	if p.Name != nil {
		i.Name = *p.Name
	}
	return i
}

func echo[T any](_ context.Context, v T) (T, error) { return v, nil }

func TestListUpdate(t *testing.T) {
	l := NewList[int]([]item{{1, "x"}, {2, "y"}}, echo[[]item])

	z := "z"
	waitDone(t, l.Update(1, namePatch{Name: &z}))

	want := []item{{1, "z"}, {2, "y"}}
	if got := l.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items = %v, want %v", got, want)
	}
}

func TestListAddAppends(t *testing.T) {
	l := NewList[int]([]item{{1, "a"}, {2, "b"}}, echo[[]item])

	m := l.Add(item{3, "c"})
	want := []item{{1, "a"}, {2, "b"}, {3, "c"}}
	if got := l.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items right after Add = %v, want %v", got, want)
	}
	waitDone(t, m)

	// Duplicates are the caller's problem.
	waitDone(t, l.Add(item{3, "again"}))
	if l.Len() != 4 {
		t.Errorf("Len = %d, want 4", l.Len())
	}
}

func TestListRemovePreservesOrder(t *testing.T) {
	l := NewList[int]([]item{{1, "a"}, {2, "b"}, {3, "c"}, {4, "d"}}, echo[[]item])

	waitDone(t, l.Remove(2))

	want := []item{{1, "a"}, {3, "c"}, {4, "d"}}
	if got := l.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items = %v, want %v", got, want)
	}
	if _, ok := l.Find(2); ok {
		t.Error("Find(2) should fail after Remove")
	}
}

func TestListMissingIDStillMutates(t *testing.T) {
	initial := []item{{1, "a"}}
	l := NewList[int](initial, echo[[]item])

	name := "nobody"
	m1 := l.Update(99, namePatch{Name: &name})
	m2 := l.Remove(99)
	waitDone(t, m1)
	waitDone(t, m2)

	if got := l.Store().Sequence(); got != 2 {
		t.Errorf("Sequence = %d, want 2", got)
	}
	if got := l.Items(); !reflect.DeepEqual(got, initial) {
		t.Errorf("Items = %v, want %v", got, initial)
	}
}

func TestListBackToBackCalls(t *testing.T) {
	g := newGated(func(v []item) string {
		if len(v) == 2 {
			return "remove"
		}
		return "update"
	})
	l := NewList[int]([]item{{1, "a"}, {2, "b"}, {3, "c"}}, g.confirm)

	renamed := "A"
	mu := l.Update(1, namePatch{Name: &renamed})
	mr := l.Remove(3)

	want := []item{{1, "A"}, {2, "b"}}
	if got := l.Items(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Items = %v, want %v", got, want)
	}

	g.succeed("update", []item{{1, "A"}, {2, "b"}, {3, "c"}})
	waitDone(t, mu)
	g.succeed("remove", want)
	waitDone(t, mr)

	if got := l.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items = %v, want %v", got, want)
	}
}

func TestListRollbackRestoresSnapshot(t *testing.T) {
	initial := []item{{1, "a"}, {2, "b"}}
	l := NewList[int](initial, func(context.Context, []item) ([]item, error) {
		return nil, errors.New("offline")
	})

	waitDone(t, l.Add(item{3, "c"}))

	if got := l.Items(); !reflect.DeepEqual(got, initial) {
		t.Errorf("Items = %v, want %v", got, initial)
	}
	if l.Store().Err() == nil {
		t.Error("expected error after failed add")
	}
}

func TestListDoesNotAliasInitial(t *testing.T) {
	initial := []item{{1, "a"}}
	l := NewList[int](initial, echo[[]item])
	initial[0].Name = "changed"

	if got, _ := l.Find(1); got.Name != "a" {
		t.Errorf("Find(1).Name = %q, want %q", got.Name, "a")
	}

	items := l.Items()
	items[0].Name = "mutated"
	if got, _ := l.Find(1); got.Name != "a" {
		t.Errorf("Items must return a copy; Find(1).Name = %q", got.Name)
	}
}

func TestPatchFunc(t *testing.T) {
	l := NewList[int]([]item{{1, "a"}}, echo[[]item])

	waitDone(t, l.Update(1, PatchFunc[item](func(i item) item {
		i.Name += "!"
		return i
	})))

	if got, _ := l.Find(1); got.Name != "a!" {
		t.Errorf("Name = %q, want %q", got.Name, "a!")
	}
}
