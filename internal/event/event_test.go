package event

import "testing"

type fake Kind

func (f fake) Kind() Kind { return Kind(f) }

func TestQueueDrainOrder(t *testing.T) {
	var q Queue
	q.Push(fake(LinkBreak))
	q.Push(fake(CollisionEnter))
	q.Push(fake(LinkBreak))

	var got []Kind
	q.Drain(func(e Event) { got = append(got, e.Kind()) })

	want := []Kind{LinkBreak, CollisionEnter, LinkBreak}
	if len(got) != len(want) {
		t.Fatalf("drained %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after drain, want 0", q.Len())
	}
	if q.Total(LinkBreak) != 2 {
		t.Errorf("Total(LinkBreak) = %d, want 2", q.Total(LinkBreak))
	}
}

func TestQueueDrainReentrant(t *testing.T) {
	var q Queue
	q.Push(fake(ChainBreak))

	n := 0
	q.Drain(func(e Event) {
		n++
		if e.Kind() == ChainBreak {
			q.Push(fake(MeshDamage))
		}
	})
	if n != 2 {
		t.Errorf("handled %d events, want 2", n)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{CollisionEnter, "collision_enter"},
		{MeshDamage, "mesh_damage"},
		{Kind(99), "kind(99)"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if len(Kinds()) != int(numKinds) {
		t.Errorf("Kinds() has %d entries, want %d", len(Kinds()), numKinds)
	}
}
