package main

//
// The DIM heap and the off-heap allocator.  Both hand out byte
// ranges of the workspace.  The DIM heap is a bump allocator above
// the tokenized program, released wholesale by CLEAR or RUN.  The
// off-heap allocator serves DIM HIMEM: blocks survive CLEAR and
// leak unless released explicitly with DIM var -1 or CLEAR HIMEM
//

const heapAlign = 8

func alignUp(n int32) int32 {

	return (n + heapAlign - 1) &^ (heapAlign - 1)
}

// resetHeap re-bases the DIM heap just past the end of the program.
// Called when a program is (re)loaded and by CLEAR

func (ip *interp) resetHeap() {

	ip.lomem = alignUp(ip.top)
	ip.freeTop = ip.lomem
}

//
// allocBlock carves size bytes out of the DIM heap.  A request for
// zero bytes still yields a valid, distinct address
//

func (ip *interp) allocBlock(size int32) int32 {

	ip.runtimeCheck(size >= 0, errBadDim)

	base := ip.freeTop

	ip.runtimeCheck(base+alignUp(size) <= ip.himem, errNoRoom)

	ip.freeTop += alignUp(size)

	for i := base; i < ip.freeTop; i++ {
		ip.window[i] = 0
	}

	return base
}

//
// Off-heap blocks are allocated downward from the top of the
// workspace (below the scratch area) on a first-fit free list
//

func (ip *interp) allocOffheap(size int32) int32 {

	ip.runtimeCheck(size >= 0, errBadDim)

	size = alignUp(size)

	for i := range ip.offheap {
		if ip.offheap[i].free && ip.offheap[i].size >= size {
			ip.offheap[i].free = false
			return ip.offheap[i].base
		}
	}

	var floor int32

	if n := len(ip.offheap); n > 0 {
		floor = ip.offheap[n-1].base
	} else {
		floor = int32(len(ip.window)) - scratchSize
	}

	base := floor - size

	if base < ip.freeTop {
		ip.raiseError(errNoRoom)
	}

	ip.offheap = append(ip.offheap, offheapBlock{base: base, size: size})

	for i := base; i < base+size; i++ {
		ip.window[i] = 0
	}

	return base
}

// freeOffheap releases the block starting at base.  Releasing an
// address that was never handed out is an error

func (ip *interp) freeOffheap(base int32) {

	for i := range ip.offheap {
		if ip.offheap[i].base == base && !ip.offheap[i].free {
			ip.offheap[i].free = true
			return
		}
	}

	ip.raiseError(errBadDim)
}

// clearOffheap releases every off-heap block.  CLEAR HIMEM

func (ip *interp) clearOffheap() {

	ip.offheap = ip.offheap[:0]
}

// scratchBase returns the base of the retokenization scratch area

func (ip *interp) scratchBase() int32 {

	return int32(len(ip.window)) - scratchSize
}
