package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/danswartzendruber/avl"
)

//
// The editor's line store: an AVL tree of source lines keyed by
// line number.  The engine never executes from here; RUN flattens
// the tree into the tokenized program in the byte window
//

func initAvl() {

	g.lines = nil
}

func cmpLinenoKey(key any, node any) int {

	return cmpLineno(key.(int32), node.(*sourceLine).lineno)
}

func cmpLinenoNodes(node1, node2 any) int {

	return cmpLineno(node1.(*sourceLine).lineno, node2.(*sourceLine).lineno)
}

func cmpLineno(a, b int32) int {

	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

func lineTreeFirst() *sourceLine {

	p := avl.AvlTreeFirstInOrder(g.lines)
	if p != nil {
		return p.(*sourceLine)
	}

	return nil
}

func lineTreeNext(line *sourceLine) *sourceLine {

	p := avl.AvlTreeNextInOrder(&line.avl)
	if p != nil {
		return p.(*sourceLine)
	}

	return nil
}

func lineTreeLookup(lineno int32) *sourceLine {

	p := avl.AvlTreeLookup(g.lines, lineno, cmpLinenoKey)
	if p != nil {
		return p.(*sourceLine)
	}

	return nil
}

func lineTreeInsert(line *sourceLine) {

	if avl.AvlTreeInsert(&g.lines, &line.avl, line, cmpLinenoNodes) != nil {
		brokenError("line %d already in tree", line.lineno)
	}

	g.modified = true
}

func lineTreeRemove(line *sourceLine) {

	avl.AvlTreeRemove(&g.lines, &line.avl)

	g.modified = true
}

// enterLine adds, replaces or (with empty text) deletes one
// numbered line

func enterLine(lineno int32, text string) {

	if old := lineTreeLookup(lineno); old != nil {
		lineTreeRemove(old)
	}

	if strings.TrimSpace(text) == "" {
		return
	}

	lineTreeInsert(&sourceLine{lineno: lineno, text: text})
}

//
// buildProgram tokenizes the stored lines, in line number order,
// into the byte window starting at PAGE, and resets the engine
// state that hangs off the program image
//

func (ip *interp) buildProgram() int32 {

	addr := ip.page

	for line := lineTreeFirst(); line != nil; line = lineTreeNext(line) {
		rec, errcode := lineRecord(line.lineno, line.text)
		if errcode != errNone {
			return errcode
		}

		if addr+int32(len(rec))+2 > int32(len(ip.window))-scratchSize {
			return errNoRoom
		}

		copy(ip.window[addr:], rec)
		addr += int32(len(rec))
	}

	// end-of-program marker: a zero line length
	binary.LittleEndian.PutUint16(ip.window[addr:], 0)

	ip.top = addr + 2

	ip.resetProgramState()

	return errNone
}

// resetProgramState forgets everything derived from a previous
// program image: variables, resolver caches, the heap, the stack
// and the handler chain

func (ip *interp) resetProgramState() {

	ip.clearVariables()
	ip.procArena = ip.procArena[:0]
	ip.caseArena = ip.caseArena[:0]
	ip.libraries = nil

	ip.resetHeap()

	ip.clearStack()
	ip.pushFrame(stackFrame{itemType: stackOpstack,
		opstack: make([]operand, 0, opstackSize)})

	ip.hasHandler = false
	ip.lasterror = errorDetails{}
	ip.datacur = 0
	ip.fnLevel = 0
	ip.count = 0
	ip.stmtCount = 0
	ip.escape = false
}

//
// LIST / SAVE / LOAD
//

func listProgram(out lineWriter) {

	for line := lineTreeFirst(); line != nil; line = lineTreeNext(line) {
		fmt.Fprintf(out, "%5d %s\n", line.lineno, line.text)
	}
}

func saveProgram(filename string) error {

	var sb strings.Builder

	for line := lineTreeFirst(); line != nil; line = lineTreeNext(line) {
		fmt.Fprintf(&sb, "%d %s\n", line.lineno, line.text)
	}

	err := os.WriteFile(filename, []byte(sb.String()), 0644)
	if err == nil {
		g.modified = false
	}

	return err
}

// loadProgram replaces the editor contents with the named file.
// Unnumbered lines are numbered on from the previous line the way
// an auto-number editor would

func loadProgram(filename string) error {

	text, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	initAvl()

	auto := int32(0)

	for _, raw := range strings.Split(string(text), "\n") {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		lineno, rest := splitLineno(raw)

		if lineno == 0 {
			auto += 10
			lineno = auto
		} else {
			auto = lineno
		}

		enterLine(lineno, rest)
	}

	g.modified = false

	return nil
}
