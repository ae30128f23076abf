package search

import "container/heap"

type node[S any] struct {
	state S
	key   Key
	dist  float64
	seq   uint64
}

// frontier is a min-heap on distance to the target. Ties go to the node
// pushed first so runs are reproducible.
type frontier[S any] []*node[S]

func (f frontier[S]) Len() int { return len(f) }

func (f frontier[S]) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].seq < f[j].seq
}

func (f frontier[S]) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier[S]) Push(x any) { *f = append(*f, x.(*node[S])) }

func (f *frontier[S]) Pop() any {
	old := *f
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*f = old[:len(old)-1]
	return n
}

func (f *frontier[S]) push(n *node[S]) { heap.Push(f, n) }

func (f *frontier[S]) pop() *node[S] { return heap.Pop(f).(*node[S]) }
