package main

import (
	"fmt"
	"runtime"
	"strings"
)

//
// Error kinds.  Each carries a numeric code (visible to Basic
// programs through ERR) and a message template.  A handful of the
// messages take a parameter, spliced in by raiseErrorParm
//

const (
	errNone int32 = iota
	errSyntax
	errSilly
	errEscape
	errStopped
	errDivZero
	errNumberTooBig
	errNegRoot
	errLogRange
	errStringTooLong
	errTypeNum
	errTypeStr
	errVarNumStr
	errNoSuchVar
	errNoSuchProc
	errNoSuchFn
	errNotEnoughParms
	errTooManyParms
	errBadParm
	errLineMissing
	errBadDim
	errDimTwice
	errDimRange
	errUndimmed
	errSubscript
	errNoRoom
	errStackFull
	errOfMissing
	errEndifMissing
	errEndcaseMissing
	errEndwhileMissing
	errWhenCount
	errNotRepeat
	errNotFor
	errNotWhile
	errNoProc
	errNoFn
	errNoGosub
	errNotLocal
	errOutOfData
	errOnRange
	errBadLibrary
	errFileNotFound
	errAddrRange
	errUnsupported
	errBadConstant
	errUserError // ERROR statement with no standard kind
	errBroken
)

var errorMessages = map[int32]string{
	errSyntax:          "Syntax error",
	errSilly:           "Silly",
	errEscape:          "Escape",
	errStopped:         "Stopped",
	errDivZero:         "Division by zero",
	errNumberTooBig:    "Number too big",
	errNegRoot:         "Negative root",
	errLogRange:        "Logarithm range",
	errStringTooLong:   "String too long",
	errTypeNum:         "Type mismatch: number needed",
	errTypeStr:         "Type mismatch: string needed",
	errVarNumStr:       "Type mismatch: number or string needed",
	errNoSuchVar:       "No such variable",
	errNoSuchProc:      "No such procedure",
	errNoSuchFn:        "No such function",
	errNotEnoughParms:  "Not enough parameters",
	errTooManyParms:    "Too many parameters",
	errBadParm:         "Bad parameter",
	errLineMissing:     "Line not found",
	errBadDim:          "Bad DIM",
	errDimTwice:        "Array already dimensioned",
	errDimRange:        "DIM out of range",
	errUndimmed:        "Array not dimensioned",
	errSubscript:       "Subscript out of range",
	errNoRoom:          "No room",
	errStackFull:       "Stack full",
	errOfMissing:       "OF missing",
	errEndifMissing:    "ENDIF missing",
	errEndcaseMissing:  "ENDCASE missing",
	errEndwhileMissing: "ENDWHILE missing",
	errWhenCount:       "Too many WHENs",
	errNotRepeat:       "Not in a REPEAT loop",
	errNotFor:          "Not in a FOR loop",
	errNotWhile:        "Not in a WHILE loop",
	errNoProc:          "Not in a procedure",
	errNoFn:            "Not in a function",
	errNoGosub:         "No GOSUB",
	errNotLocal:        "Not LOCAL",
	errOutOfData:       "Out of DATA",
	errOnRange:         "ON range",
	errBadLibrary:      "Bad library",
	errFileNotFound:    "File not found",
	errAddrRange:       "Address out of range",
	errUnsupported:     "Unsupported feature",
	errBadConstant:     "Bad constant",
	errBroken:          "Interpreter is broken",
}

//
// raiseError throws a runtime fault.  The fault unwinds the Go call
// stack (through the evaluator and any nested subprogram loops) to
// the run loop, which routes it to the active ON ERROR handler or
// reports it.  The line number is filled in at the raise site while
// the cursor is still trustworthy
//

func (ip *interp) raiseError(code int32) {

	ip.raiseErrorMsg(code, errorMessages[code])
}

func (ip *interp) raiseErrorParm(code int32, parm string) {

	ip.raiseErrorMsg(code, errorMessages[code]+" "+parm)
}

func (ip *interp) raiseErrorMsg(code int32, msg string) {

	panic(&runtimeFault{code: code, msg: msg, line: ip.findLineno(ip.current)})
}

//
// Engine invariant violations.  These carry the Go file and line of
// the raise site, are reported with the component named in the
// message, and are never routed to a Basic error handler
//

func brokenError(msg string, args ...any) {

	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}

	panic(&brokenFault{msg: fmt.Sprintf(msg, args...), file: file, line: line})
}

func basicAssert(chk bool, msg string) {

	if !chk {
		_, file, line, _ := runtime.Caller(1)
		panic(&brokenFault{msg: msg, file: file, line: line})
	}
}

func (ip *interp) runtimeCheck(chk bool, code int32) {

	if !chk {
		ip.raiseError(code)
	}
}

//
// reportError prints a fault the way the default handler does:
// message first, then the line number when there is one.  REPORT
// reprints the message on demand
//

func (ip *interp) reportError(f *runtimeFault) {

	if ip.count != 0 {
		ip.printString("\n")
	}

	if f.line > 0 {
		ip.printString(fmt.Sprintf("%s at line %d\n", f.msg, f.line))
	} else {
		ip.printString(f.msg + "\n")
	}
}

func reportBroken(b *brokenFault) string {

	file := b.file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}

	return fmt.Sprintf("%s (%s) at %s line %d", errorMessages[errBroken],
		b.msg, file, b.line)
}
