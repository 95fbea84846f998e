package main

import (
	"encoding/binary"
	"math"
)

//
// The byte window: the flat workspace everything addressable lives
// in.  All multi-byte accesses are little-endian and unaligned.
// The indirection operators translate directly to these calls
//

func (ip *interp) checkAddr(addr int32, size int32) {

	ip.runtimeCheck(addr >= 0 && addr+size <= int32(len(ip.window)),
		errAddrRange)
}

func (ip *interp) readU8(addr int32) uint8 {

	ip.checkAddr(addr, 1)

	return ip.window[addr]
}

func (ip *interp) writeU8(addr int32, val uint8) {

	ip.checkAddr(addr, 1)

	ip.window[addr] = val
}

func (ip *interp) readI32(addr int32) int32 {

	ip.checkAddr(addr, 4)

	return int32(binary.LittleEndian.Uint32(ip.window[addr:]))
}

func (ip *interp) writeI32(addr int32, val int32) {

	ip.checkAddr(addr, 4)

	binary.LittleEndian.PutUint32(ip.window[addr:], uint32(val))
}

func (ip *interp) readI64(addr int32) int64 {

	ip.checkAddr(addr, 8)

	return int64(binary.LittleEndian.Uint64(ip.window[addr:]))
}

func (ip *interp) writeI64(addr int32, val int64) {

	ip.checkAddr(addr, 8)

	binary.LittleEndian.PutUint64(ip.window[addr:], uint64(val))
}

func (ip *interp) readF64(addr int32) float64 {

	ip.checkAddr(addr, 8)

	return math.Float64frombits(binary.LittleEndian.Uint64(ip.window[addr:]))
}

func (ip *interp) writeF64(addr int32, val float64) {

	ip.checkAddr(addr, 8)

	binary.LittleEndian.PutUint64(ip.window[addr:], math.Float64bits(val))
}

//
// Strings stored in the byte window use a carriage-return
// terminator.  cstringLen counts the bytes before it
//

func (ip *interp) cstringLen(addr int32) int32 {

	ip.checkAddr(addr, 1)

	var n int32

	for addr+n < int32(len(ip.window)) && ip.window[addr+n] != '\r' {
		n++
	}

	return n
}

func (ip *interp) readCstring(addr int32) string {

	n := ip.cstringLen(addr)

	return string(ip.window[addr : addr+n])
}

func (ip *interp) writeCstring(addr int32, s string) {

	ip.checkAddr(addr, int32(len(s))+1)

	copy(ip.window[addr:], s)
	ip.window[addr+int32(len(s))] = '\r'
}

//
// Tokenized program layout helpers.  Each line is
//
//	u16 length | u16 line number | source bytes | 0x00 | tokens | 0x00
//
// and a length of zero marks the end of the program.  These helpers
// are shared by the dispatcher, the resolver and the editor
//

func (ip *interp) lineLength(lineStart int32) int32 {

	return int32(binary.LittleEndian.Uint16(ip.window[lineStart:]))
}

func (ip *interp) lineNumber(lineStart int32) int32 {

	return int32(binary.LittleEndian.Uint16(ip.window[lineStart+2:]))
}

func (ip *interp) atProgEnd(lineStart int32) bool {

	return ip.lineLength(lineStart) == 0
}

func (ip *interp) nextLine(lineStart int32) int32 {

	return lineStart + ip.lineLength(lineStart)
}

// findExec returns the address of the first executable token of a
// line: just past the 0x00 that terminates the source bytes

func (ip *interp) findExec(lineStart int32) int32 {

	addr := lineStart + 4

	for ip.window[addr] != tokEol {
		addr++
	}

	return addr + 1
}

//
// findLineStart walks the program (or the library holding the
// address) to the line containing addr.  Returns -1 when the
// address lies outside any program line
//

func (ip *interp) findLineStart(addr int32) int32 {

	base, limit := ip.page, ip.top

	for _, lib := range ip.libraries {
		if addr >= lib.start && addr < lib.end {
			base, limit = lib.start, lib.end
			break
		}
	}

	if addr < base || addr >= limit {
		return -1
	}

	for line := base; !ip.atProgEnd(line); line = ip.nextLine(line) {
		if addr < ip.nextLine(line) {
			return line
		}
	}

	return -1
}

func (ip *interp) findLineno(addr int32) int32 {

	line := ip.findLineStart(addr)
	if line < 0 {
		return 0
	}

	return ip.lineNumber(line)
}

// libraryFor returns the library whose token stream contains addr,
// or nil for the main program

func (ip *interp) libraryFor(addr int32) *library {

	for _, lib := range ip.libraries {
		if addr >= lib.start && addr < lib.end {
			return lib
		}
	}

	return nil
}

//
// skipToken advances over one executable token and its inline
// operand.  DATA and REM carry raw text to the end of the line, so
// the skip runs to the terminator for those
//

func (ip *interp) skipToken(addr int32) int32 {

	switch b := ip.window[addr]; b {
	case tokEol:
		return addr

	case tokXLinenum, tokLinenum, tokIntCon:
		return addr + 5

	case tokXVar:
		return addr + 3

	case tokInt64Con, tokFloatCon:
		return addr + 9

	case tokStringCon:
		return addr + 3 + int32(binary.LittleEndian.Uint16(ip.window[addr+1:]))

	case tokStatic:
		return addr + 2

	case tokXIf, tokSinglif, tokBlockif:
		return addr + 9

	case tokXElse, tokElse, tokXCase, tokCase, tokXWhen, tokWhen,
		tokXOtherwise, tokOtherwise, tokXWhile, tokWhile,
		tokXProc, tokProc, tokXFn, tokFn:
		return addr + 5

	case tokData, tokRem:
		for ip.window[addr] != tokEol {
			addr++
		}
		return addr

	default:
		return addr + 1
	}
}

// endOfStatement reports whether the token at addr terminates the
// current statement.  ELSE, WHEN and OTHERWISE count as terminators
// for the "at end of line" predicate

func (ip *interp) endOfStatement(addr int32) bool {

	switch ip.window[addr] {
	case tokEol, ':', tokLelse, tokXElse, tokElse, tokXWhen, tokWhen,
		tokXOtherwise, tokOtherwise:
		return true
	}

	return false
}

// skipStatement advances to the start of the next statement on the
// same line, or to the line terminator

func (ip *interp) skipStatement(addr int32) int32 {

	for !ip.endOfStatement(addr) {
		addr = ip.skipToken(addr)
	}

	return addr
}
