package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/goforj/godump"
	"github.com/tklauser/go-sysconf"
)

type lineWriter = io.Writer

//
// Output.  Everything the interpreter prints goes through
// printString so the column counter (COUNT, comma zones, TAB)
// stays honest
//

func (ip *interp) printString(s string) {

	io.WriteString(ip.out, s)

	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		ip.count = int32(len(s) - idx - 1)
	} else {
		ip.count += int32(len(s))
	}
}

//
// Numeric formatting.  Integers print in decimal; floats print in
// general format with nine significant digits, the exponent marker
// uppercased in the Basic style.  The low byte of @% gives a field
// width that right-justifies when nonzero
//

func basicFormat(val operand) string {

	switch val.kind {
	case stackUint8, stackInt32, stackInt64:
		return strconv.FormatInt(val.intVal, 10)

	case stackFloat:
		s := strconv.FormatFloat(val.fltVal, 'g', 9, 64)

		if idx := strings.IndexByte(s, 'e'); idx >= 0 {
			s = strings.ToUpper(s)
			s = strings.Replace(s, "E+", "E", 1)
		}

		return s
	}

	return val.strVal
}

func (ip *interp) formatPrintItem(val operand, hex bool) string {

	if val.kind == stackString || val.kind == stackStrtemp {
		return val.strVal
	}

	var s string

	if hex {
		s = strings.ToUpper(strconv.FormatInt(ip.operandToInt64(val), 16))
	} else {
		s = basicFormat(val)
	}

	width := int(ip.staticVars[atPercentSlot] & 0xFF)

	for len(s) < width {
		s = " " + s
	}

	return s
}

//
// PRINT.  Items are printed with no separation; ';' continues on
// the same line, ',' tabs to the next output zone, the apostrophe
// forces a newline, TAB( positions the cursor and '~' switches the
// next item to hexadecimal.  A trailing separator suppresses the
// final newline
//

func (ip *interp) executePrint() {

	ip.current++

	newline := true
	hex := false

	for !ip.endOfStatement(ip.current) {
		switch ip.window[ip.current] {
		case ';':
			ip.current++
			newline = false
			continue

		case ',':
			ip.current++
			pad := zoneWidth - ip.count%zoneWidth
			ip.printString(strings.Repeat(" ", int(pad)))
			newline = false
			continue

		case '\'':
			ip.current++
			ip.printString("\n")
			newline = true
			continue

		case '~':
			ip.current++
			hex = true
			continue

		case tokTab:
			ip.current++
			ip.printTab()
			newline = false
			continue
		}

		ip.expression()
		ip.printString(ip.formatPrintItem(ip.popValue(), hex))

		hex = false
		newline = true
	}

	if newline {
		ip.printString("\n")
	}
}

// printTab handles TAB(n) and TAB(x,y).  The single-argument form
// spaces out to column n, starting a new line when the cursor is
// already past it; the two-argument form is only meaningful on a
// real display and degrades to the column form

func (ip *interp) printTab() {

	ip.expression()
	col := ip.popAnyInt32()

	if ip.window[ip.current] == ',' {
		ip.current++
		ip.expression()
		ip.popAnyInt32()
	}

	if ip.window[ip.current] != ')' {
		ip.raiseError(errSyntax)
	}
	ip.current++

	if col < 0 {
		return
	}

	if ip.count > col {
		ip.printString("\n")
	}

	if ip.count < col {
		ip.printString(strings.Repeat(" ", int(col-ip.count)))
	}
}

//
// INPUT.  Reads one line per variable; numeric targets take the
// leading number of the response (zero when absent), string
// targets take the raw text.  A leading string constant is the
// prompt
//

func (ip *interp) executeInput() {

	ip.current++

	prompt := ""

	if ip.window[ip.current] == tokStringCon {
		n := ip.readOperandU16(ip.current)
		prompt = string(ip.window[ip.current+3 : ip.current+3+n])
		ip.current += 3 + n

		switch ip.window[ip.current] {
		case ';', ',':
			ip.current++
		}
	}

	for {
		lv := ip.parseLvalueRef(true)

		text, ok := ip.readInputLine(prompt + "?")
		if !ok {
			ip.raiseError(errEscape)
		}

		prompt = ""

		if isStringTarget(lv) {
			ip.storeOperand(lv, operand{kind: stackStrtemp, strVal: text,
				temp: true})
		} else {
			ip.pushValNumber(text)
			ip.storeOperand(lv, ip.popValue())
		}

		if ip.window[ip.current] != ',' {
			return
		}

		ip.current++
	}
}

func isStringTarget(lv lvalue) bool {

	switch lv.kind {
	case lvString, lvIndString:
		return true

	case lvArrayElem:
		return lv.sym.descr.elemKind == varString
	}

	return false
}

func (ip *interp) readInputLine(prompt string) (string, bool) {

	if ip.inLine != nil {
		return ip.inLine(prompt)
	}

	return "", false
}

// readKey services GET and GET$: one keypress, approximated by the
// first character of an input line when no raw keyboard layer is
// available

func (ip *interp) readKey() byte {

	text, ok := ip.readInputLine("")
	if !ok || len(text) == 0 {
		return 13
	}

	return text[0]
}

//
// OSCLI hands a command line to the host shell, with its output on
// the interpreter's output stream
//

func (ip *interp) hostCommand(cmdline string) {

	cmdline = strings.TrimSpace(cmdline)

	if cmdline == "" {
		return
	}

	cmd := exec.Command("sh", "-c", cmdline)
	cmd.Stdout = ip.out
	cmd.Stderr = ip.out

	_ = cmd.Run()
}

//
// Libraries.  LIBRARY tokenizes the named file into the byte
// window above the program and gives it a private variable table.
// Library code is scanned for definitions lazily, like the main
// program
//

func (ip *interp) loadLibrary(filename string) {

	text, err := os.ReadFile(defaultSuffix(filename))
	if err != nil {
		ip.raiseErrorParm(errFileNotFound, filename)
	}

	var rec []byte

	for _, line := range strings.Split(string(text), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		lineno, rest := splitLineno(line)

		one, errcode := lineRecord(lineno, rest)
		if errcode != errNone {
			ip.raiseErrorParm(errBadLibrary, filename)
		}

		rec = append(rec, one...)
	}

	rec = append(rec, 0, 0) // end-of-program marker

	base := ip.allocBlock(int32(len(rec)))
	copy(ip.window[base:], rec)

	lib := &library{name: filename, start: base,
		end: base + int32(len(rec)), searched: base}

	ip.libraries = append(ip.libraries, lib)

	// the library must survive CLEAR, which trims the DIM heap back
	// to LOMEM
	ip.lomem = ip.freeTop
}

func defaultSuffix(filename string) string {

	if strings.ContainsRune(filename, '.') {
		return filename
	}

	return filename + basFileSuffix
}

// splitLineno peels a leading line number off a source line

func splitLineno(line string) (int32, string) {

	trimmed := strings.TrimLeft(line, " ")

	idx := 0
	for idx < len(trimmed) && isDigit(trimmed[idx]) {
		idx++
	}

	if idx == 0 {
		return 0, line
	}

	n, err := strconv.ParseInt(trimmed[:idx], 10, 32)
	if err != nil || n > maxLineno {
		return 0, line
	}

	return int32(n), strings.TrimPrefix(trimmed[idx:], " ")
}

//
// Tracing and statistics
//

func (ip *interp) traceLine(lineno int32) {

	if lineno != ip.lastTraced {
		ip.lastTraced = lineno
		ip.printString(fmt.Sprintf("[%d]", lineno))
	}
}

func (ip *interp) elapsedCentiseconds() int64 {

	return int64(time.Since(ip.startTime) / (10 * time.Millisecond))
}

// dumpState pretty-prints the interpreter control state for
// TRACE DUMP

func (ip *interp) dumpState() {

	type stackSummary struct {
		Depth int
		Top   stackItem
	}

	type interpState struct {
		Cursor    int32
		Page      int32
		Top       int32
		Lomem     int32
		FreeTop   int32
		Himem     int32
		DataCur   int32
		FnLevel   int
		Stack     stackSummary
		Libraries int
		HasTrap   bool
		Stmts     int64
	}

	godump.Dump(interpState{
		Cursor:    ip.current,
		Page:      ip.page,
		Top:       ip.top,
		Lomem:     ip.lomem,
		FreeTop:   ip.freeTop,
		Himem:     ip.himem,
		DataCur:   ip.datacur,
		FnLevel:   ip.fnLevel,
		Stack:     stackSummary{Depth: len(ip.stack), Top: ip.topItem()},
		Libraries: len(ip.libraries),
		HasTrap:   ip.hasHandler,
		Stmts:     ip.stmtCount,
	})
}

// printStatistics reports statement count and CPU usage after a
// run.  The times system call reports in clock ticks, scaled by
// the tick rate from sysconf

func (ip *interp) printStatistics() {

	clktck, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || clktck == 0 {
		clktck = 100
	}

	var tms syscall.Tms

	_, terr := syscall.Times(&tms)

	elapsed := float64(ip.elapsedCentiseconds()) / 100

	ip.printString(fmt.Sprintf("%d statements in %.2f seconds",
		ip.stmtCount, elapsed))

	if terr == nil {
		ip.printString(fmt.Sprintf(" (cpu %.2fu %.2fs)",
			float64(tms.Utime)/float64(clktck),
			float64(tms.Stime)/float64(clktck)))
	}

	ip.printString("\n")
}
