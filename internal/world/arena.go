package world

import "github.com/san-kum/rigidsim/internal/body"

const (
	indexBits = 24
	indexMask = 1<<indexBits - 1
)

type slot struct {
	body *body.RigidBody
	gen  int
}

// arena stores bodies in reusable slots. A handle packs the slot index in
// the low bits and the slot generation above them.
type arena struct {
	slots []slot
	free  []int
	live  int
}

func handle(index, gen int) body.EntityID {
	return body.EntityID(gen<<indexBits | index)
}

func (a *arena) insert(b *body.RigidBody) body.EntityID {
	var i int
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		i = len(a.slots)
		a.slots = append(a.slots, slot{})
	}
	a.slots[i].body = b
	a.live++
	return handle(i, a.slots[i].gen)
}

func (a *arena) get(id body.EntityID) (*body.RigidBody, bool) {
	if id < 0 {
		return nil, false
	}
	i, gen := int(id)&indexMask, int(id)>>indexBits
	if i >= len(a.slots) || a.slots[i].gen != gen || a.slots[i].body == nil {
		return nil, false
	}
	return a.slots[i].body, true
}

func (a *arena) remove(id body.EntityID) bool {
	if _, ok := a.get(id); !ok {
		return false
	}
	i := int(id) & indexMask
	a.slots[i].body = nil
	a.slots[i].gen++
	a.free = append(a.free, i)
	a.live--
	return true
}

// each visits live bodies in slot order.
func (a *arena) each(fn func(*body.RigidBody)) {
	for _, s := range a.slots {
		if s.body != nil {
			fn(s.body)
		}
	}
}
