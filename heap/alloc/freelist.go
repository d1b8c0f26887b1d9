package alloc

import (
	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/format"
)

// insert pushes free block h onto the head of its bucket, writes its footer
// and clears the successor's prev-allocated bit. h's header must already
// carry its final size with the allocated bit clear.
func (a *Allocator) insert(h Handle) {
	t := block.Header(a.data, h)
	i := block.Bucket(t.Size())
	head := block.BucketHead(a.data, i)

	a.setPrevFree(h, Nil)
	a.setNextFree(h, head)
	if head != Nil {
		a.setPrevFree(head, h)
	}
	a.setBucketHead(i, h)
	a.setFooter(h, t)

	next := block.Next(a.data, h)
	a.setHeader(next, block.Header(a.data, next).WithPrevAllocated(false))
}

// remove unlinks free block h from its bucket in O(1) and sets the
// successor's prev-allocated bit. h's header is left untouched.
func (a *Allocator) remove(h Handle) {
	prev := block.PrevFree(a.data, h)
	next := block.NextFree(a.data, h)

	if prev == Nil {
		a.setBucketHead(block.Bucket(block.Size(a.data, h)), next)
	} else {
		a.setNextFree(prev, next)
	}
	if next != Nil {
		a.setPrevFree(next, prev)
	}

	succ := block.Next(a.data, h)
	a.setHeader(succ, block.Header(a.data, succ).WithPrevAllocated(true))
}

// The setters below write through the block codec and report the touched
// word to the dirty tracker.

func (a *Allocator) setHeader(h Handle, t block.Tag) {
	block.SetHeader(a.data, h, t)
	a.markDirty(block.HeaderOffset(h), format.WordSize)
}

func (a *Allocator) setFooter(h Handle, t block.Tag) {
	block.SetFooter(a.data, h, t)
	a.markDirty(block.FooterOffset(h, t.Size()), format.WordSize)
}

func (a *Allocator) setPrevFree(h, prev Handle) {
	block.SetPrevFree(a.data, h, prev)
	a.markDirty(int(h)+format.PrevFreeOffset, format.WordSize)
}

func (a *Allocator) setNextFree(h, next Handle) {
	block.SetNextFree(a.data, h, next)
	a.markDirty(int(h)+format.NextFreeOffset, format.WordSize)
}

func (a *Allocator) setBucketHead(i int, h Handle) {
	block.SetBucketHead(a.data, i, h)
	a.markDirty(block.BucketHeadOffset(i), format.WordSize)
}

func (a *Allocator) markDirty(off, n int) {
	if a.dt != nil {
		a.dt.Add(off, n)
	}
}
