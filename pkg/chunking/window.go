package chunking

import "container/list"

// overlapWindow is a FIFO of parts with a running size total. It holds the
// candidates for the next chunk's overlap.
type overlapWindow struct {
	parts  *list.List
	size   int
	budget int
}

func newOverlapWindow(budget int) *overlapWindow {
	return &overlapWindow{parts: list.New(), budget: budget}
}

func (w *overlapWindow) enabled() bool {
	return w.budget > 0
}

func (w *overlapWindow) fits(p TextPart) bool {
	return p.Size <= w.budget
}

func (w *overlapWindow) push(p TextPart) {
	w.parts.PushBack(p)
	w.size += p.Size
}

func (w *overlapWindow) popFront() {
	front := w.parts.Front()
	w.size -= front.Value.(TextPart).Size
	w.parts.Remove(front)
}

// makeRoom evicts whole parts from the front until incoming more units fit.
func (w *overlapWindow) makeRoom(incoming int) {
	for w.parts.Len() > 0 && w.size+incoming > w.budget {
		w.popFront()
	}
}

func (w *overlapWindow) snapshot() []TextPart {
	if w.parts.Len() == 0 {
		return nil
	}
	out := make([]TextPart, 0, w.parts.Len())
	for e := w.parts.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(TextPart))
	}
	return out
}

func (w *overlapWindow) reset() {
	w.parts.Init()
	w.size = 0
}
