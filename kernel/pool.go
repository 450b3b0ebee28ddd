package kernel

// pool is the fixed descriptor arena. The last slot belongs to the idle task
// and never enters the dead pool.
type pool struct {
	desc []descriptor
	dead queue
}

func newPool(n int) *pool {
	p := &pool{desc: make([]descriptor, n+1), dead: newQueue()}
	for i := range p.desc {
		p.desc[i] = descriptor{id: TaskID(i), next: NoTask}
	}
	for i := 0; i < n; i++ {
		p.push(&p.dead, &p.desc[i])
	}
	return p
}

func (p *pool) at(id TaskID) *descriptor { return &p.desc[id] }
func (p *pool) idle() *descriptor        { return &p.desc[len(p.desc)-1] }
func (p *pool) capacity() int            { return len(p.desc) - 1 }

// live counts descriptors that are not in the dead pool, idle excluded.
func (p *pool) live() int { return p.capacity() - p.dead.len() }

// allocate takes a descriptor from the dead pool, or returns nil when every
// slot is in use.
func (p *pool) allocate() *descriptor {
	return p.pop(&p.dead)
}

// free resets d and returns it to the tail of the dead pool.
func (p *pool) free(d *descriptor) {
	*d = descriptor{id: d.id, state: Dead, next: NoTask}
	p.push(&p.dead, d)
}
