package sim

import "sort"

// observers is a small keyed callback registry. Delivery is synchronous
// and in subscription order, so factories observe clock ticks
// deterministically; unsubscription on disposal is immediate.
type observers struct {
	subs map[int]func()
	next int
}

func newObservers() *observers {
	return &observers{subs: make(map[int]func())}
}

func (o *observers) subscribe(fn func()) int {
	id := o.next
	o.next++
	o.subs[id] = fn
	return id
}

func (o *observers) unsubscribe(id int) {
	delete(o.subs, id)
}

func (o *observers) notify() {
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		o.subs[id]()
	}
}
