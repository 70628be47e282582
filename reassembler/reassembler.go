// Package reassembler merges out-of-order, overlapping byte fragments into
// a single ordered byte stream bounded by a fixed capacity.
//
// The pending-fragment index is kept in a github.com/google/btree ordered
// map rather than a hand-rolled sorted slice: reassembly needs both floor
// (nearest key <= index) and ceiling (nearest key >= index) lookups, which
// is exactly what an ordered tree gives for free.
package reassembler

import (
	"github.com/google/btree"

	"github.com/kpchow/mintcp/buffer"
	"github.com/kpchow/mintcp/bytestream"
)

// fragment is a pending, not-yet-contiguous run of bytes at an absolute
// stream index.
type fragment struct {
	index uint64
	data  []byte
}

// Less implements btree.Item, ordering fragments by their stream index.
func (f *fragment) Less(than btree.Item) bool {
	return f.index < than.(*fragment).index
}

// Reassembler merges pushed fragments into an output ByteStream in order,
// discarding anything already delivered or beyond the configured capacity.
type Reassembler struct {
	capacity int
	out      *bytestream.ByteStream

	nextAssembledIndex uint64
	pending            *btree.BTree
	unassembledBytes   int

	eofSet   bool
	eofIndex uint64
}

// New returns a Reassembler that writes assembled bytes into out, which
// must have the given capacity.
func New(capacity int, out *bytestream.ByteStream) *Reassembler {
	return &Reassembler{
		capacity: capacity,
		out:      out,
		pending:  btree.New(8),
	}
}

// UnassembledBytes is the sum of the lengths of the currently pending,
// non-overlapping fragments.
func (r *Reassembler) UnassembledBytes() int {
	return r.unassembledBytes
}

// Empty reports whether there are no pending fragments.
func (r *Reassembler) Empty() bool {
	return r.unassembledBytes == 0
}

// firstUnacceptableIndex is the first stream index the reassembler will
// refuse to buffer: accepting it would grow pending+output past capacity.
func (r *Reassembler) firstUnacceptableIndex() uint64 {
	return r.nextAssembledIndex + uint64(r.capacity) - uint64(r.out.BufferSize())
}

// floor returns the pending fragment with the largest index <= at, if any.
func (r *Reassembler) floor(at uint64) (*fragment, bool) {
	var found *fragment
	r.pending.DescendLessOrEqual(&fragment{index: at}, func(item btree.Item) bool {
		found = item.(*fragment)
		return false
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

// Push accepts a substring of bytes claimed to occupy [index, index+len(data))
// in the logical stream, plus an eof flag indicating this is the last byte
// of the stream. It writes every newly contiguous prefix into the output
// stream and retains the rest as pending fragments.
func (r *Reassembler) Push(data []byte, index uint64, eof bool) {
	newIndex := index

	// Left truncation: trim the new fragment's prefix if it overlaps the
	// nearest prior pending fragment, or precedes next_assembled_index.
	if f, ok := r.floor(index); ok {
		if index < f.index+uint64(len(f.data)) {
			newIndex = f.index + uint64(len(f.data))
		}
	} else if index < r.nextAssembledIndex {
		newIndex = r.nextAssembledIndex
	}

	dataStart := int(newIndex - index)
	dataSize := len(data) - dataStart

	// Right merge: walk later pending fragments in order, dropping fully
	// covered ones and trimming the new fragment's tail on partial overlap.
	var toDelete []btree.Item
	r.pending.AscendGreaterOrEqual(&fragment{index: newIndex}, func(item btree.Item) bool {
		f := item.(*fragment)
		if newIndex > f.index {
			return false
		}
		dataEnd := newIndex + uint64(dataSize)
		if f.index >= dataEnd {
			return false
		}
		// There is overlap.
		if dataEnd < f.index+uint64(len(f.data)) {
			// Partial overlap: trim our tail and stop.
			dataSize = int(f.index - newIndex)
			return false
		}
		// Fully covered by the new fragment: drop it and keep scanning.
		toDelete = append(toDelete, item)
		return true
	})
	for _, item := range toDelete {
		f := r.pending.Delete(item).(*fragment)
		r.unassembledBytes -= len(f.data)
	}

	if r.firstUnacceptableIndex() <= newIndex {
		// Entirely beyond capacity: discard. A retransmitting sender will
		// redeliver it once the output stream has drained.
		r.recordEOF(index, data, eof)
		return
	}

	if dataSize > 0 {
		if firstUnacceptable := r.firstUnacceptableIndex(); newIndex+uint64(dataSize) > firstUnacceptable {
			dataSize = int(firstUnacceptable - newIndex)
		}
		view := buffer.View(data)
		view.TrimFront(dataStart)
		retained := view[:dataSize]
		if newIndex == r.nextAssembledIndex {
			written := r.out.Write(retained)
			r.nextAssembledIndex += uint64(written)
			if written < len(retained) {
				r.insertPending(r.nextAssembledIndex, retained[written:])
			}
		} else {
			r.insertPending(newIndex, retained)
		}
	}

	r.drain()
	r.recordEOF(index, data, eof)
}

// insertPending adds a pending fragment, assumed disjoint from all others
// by construction of the caller.
func (r *Reassembler) insertPending(index uint64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.pending.ReplaceOrInsert(&fragment{index: index, data: cp})
	r.unassembledBytes += len(cp)
}

// drain writes every pending fragment that has become contiguous with
// next_assembled_index, stopping at the first gap.
func (r *Reassembler) drain() {
	for {
		item := r.pending.Min()
		if item == nil {
			return
		}
		f := item.(*fragment)
		if f.index != r.nextAssembledIndex {
			return
		}
		written := r.out.Write(f.data)
		r.nextAssembledIndex += uint64(written)
		r.pending.Delete(item)
		r.unassembledBytes -= len(f.data)
		if written < len(f.data) {
			r.insertPending(r.nextAssembledIndex, f.data[written:])
			return
		}
	}
}

// recordEOF latches the stream's end index from the original push (before
// any truncation) and closes the output stream once every byte up to it
// has been assembled.
func (r *Reassembler) recordEOF(index uint64, data []byte, eof bool) {
	if eof {
		r.eofSet = true
		r.eofIndex = index + uint64(len(data))
	}
	if r.eofSet && r.eofIndex <= r.nextAssembledIndex {
		r.out.EndInput()
	}
}
