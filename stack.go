package main

//
// The value stack.  A single stack of tagged frames carries operand
// values, loop and subprogram control frames, saved locals, return
// parameters, error handler saves and DATA pointer saves.  Pops are
// kind-checked: a tag mismatch means the engine itself lost track
// of the stack shape, which is a broken-interpreter fault, not a
// user error
//

func (ip *interp) pushFrame(f stackFrame) {

	if len(ip.stack) >= stackLimit {
		ip.raiseError(errStackFull)
	}

	ip.stack = append(ip.stack, f)
}

func (ip *interp) topItem() stackItem {

	if len(ip.stack) == 0 {
		return stackUnknown
	}

	return ip.stack[len(ip.stack)-1].itemType
}

func (ip *interp) popFrame(expect stackItem) stackFrame {

	if len(ip.stack) == 0 {
		brokenError("value stack underflow wanting %d", expect)
	}

	f := ip.stack[len(ip.stack)-1]

	if f.itemType != expect {
		brokenError("value stack: wanted item %d, found %d", expect, f.itemType)
	}

	ip.stack = ip.stack[:len(ip.stack)-1]

	return f
}

func (ip *interp) popTop() stackFrame {

	if len(ip.stack) == 0 {
		brokenError("value stack underflow")
	}

	f := ip.stack[len(ip.stack)-1]
	ip.stack = ip.stack[:len(ip.stack)-1]

	return f
}

//
// Operand pushes
//

func (ip *interp) pushUint8(val uint8) {

	ip.pushFrame(stackFrame{itemType: stackUint8, intVal: int64(val)})
}

func (ip *interp) pushInt32(val int32) {

	ip.pushFrame(stackFrame{itemType: stackInt32, intVal: int64(val)})
}

func (ip *interp) pushInt64(val int64) {

	ip.pushFrame(stackFrame{itemType: stackInt64, intVal: val})
}

func (ip *interp) pushFloat(val float64) {

	ip.pushFrame(stackFrame{itemType: stackFloat, fltVal: val})
}

// pushString borrows its payload from a variable; pushStrtemp owns
// its payload

func (ip *interp) pushString(s string) {

	ip.pushFrame(stackFrame{itemType: stackString, strVal: s})
}

func (ip *interp) pushStrtemp(s string) {

	if len(s) > maxStringLen {
		ip.raiseError(errStringTooLong)
	}

	ip.pushFrame(stackFrame{itemType: stackStrtemp, strVal: s})
}

func (ip *interp) pushArray(descr *arrayDesc) {

	ip.pushFrame(stackFrame{itemType: stackArray, descr: descr})
}

func (ip *interp) pushOperand(v operand) {

	switch v.kind {
	case stackUint8, stackInt32, stackInt64:
		ip.pushFrame(stackFrame{itemType: v.kind, intVal: v.intVal})

	case stackFloat:
		ip.pushFloat(v.fltVal)

	case stackString, stackStrtemp:
		ip.pushFrame(stackFrame{itemType: v.kind, strVal: v.strVal})

	case stackArray, stackATemp:
		ip.pushFrame(stackFrame{itemType: v.kind, descr: v.descr})

	default:
		brokenError("pushOperand: item %d", v.kind)
	}
}

//
// Operand pops.  popAnyInt accepts the three integer shapes;
// popNumeric also accepts float.  The string pops accept borrowed
// and temporary payloads alike
//

func (ip *interp) popUint8() uint8 {

	return uint8(ip.popFrame(stackUint8).intVal)
}

func (ip *interp) popInt32() int32 {

	return int32(ip.popFrame(stackInt32).intVal)
}

func (ip *interp) popInt64() int64 {

	return ip.popFrame(stackInt64).intVal
}

func (ip *interp) popFloat() float64 {

	return ip.popFrame(stackFloat).fltVal
}

func (ip *interp) popAnyInt() int64 {

	switch ip.topItem() {
	case stackUint8, stackInt32, stackInt64:
		return ip.popTop().intVal
	}

	ip.raiseError(errTypeNum)
	panic("unreachable")
}

// popAnyInt32 narrows to int32 with a range check

func (ip *interp) popAnyInt32() int32 {

	val := ip.popNumeric64()

	if val < minInt32 || val > maxInt32 {
		ip.raiseError(errNumberTooBig)
	}

	return int32(val)
}

const minInt32 = -2147483648
const maxInt32 = 2147483647

// popNumeric64 pops any numeric, rounding a float with the range
// checks of section conversions

func (ip *interp) popNumeric64() int64 {

	switch ip.topItem() {
	case stackUint8, stackInt32, stackInt64:
		return ip.popTop().intVal

	case stackFloat:
		return ip.floatToInt64(ip.popTop().fltVal)
	}

	ip.raiseError(errTypeNum)
	panic("unreachable")
}

func (ip *interp) popNumericFloat() float64 {

	switch ip.topItem() {
	case stackUint8, stackInt32, stackInt64:
		return float64(ip.popTop().intVal)

	case stackFloat:
		return ip.popTop().fltVal
	}

	ip.raiseError(errTypeNum)
	panic("unreachable")
}

func (ip *interp) popString() operand {

	switch ip.topItem() {
	case stackString, stackStrtemp:
		f := ip.popTop()
		return operand{kind: f.itemType, strVal: f.strVal,
			temp: f.itemType == stackStrtemp}
	}

	ip.raiseError(errTypeStr)
	panic("unreachable")
}

// popValue pops any operand-bearing frame as a plain operand

func (ip *interp) popValue() operand {

	switch ip.topItem() {
	case stackUint8, stackInt32, stackInt64:
		f := ip.popTop()
		return operand{kind: f.itemType, intVal: f.intVal}

	case stackFloat:
		return operand{kind: stackFloat, fltVal: ip.popTop().fltVal}

	case stackString, stackStrtemp:
		return ip.popString()

	case stackArray, stackATemp:
		f := ip.popTop()
		return operand{kind: f.itemType, descr: f.descr}
	}

	ip.raiseError(errVarNumStr)
	panic("unreachable")
}

//
// Control frame pushes
//

func (ip *interp) pushWhile(condAddr, bodyAddr int32) {

	ip.pushFrame(stackFrame{itemType: stackWhile, addr: condAddr,
		bodyAddr: bodyAddr})
}

func (ip *interp) pushRepeat(bodyAddr int32) {

	ip.pushFrame(stackFrame{itemType: stackRepeat, addr: bodyAddr})
}

func (ip *interp) pushFor(lv lvalue, bodyAddr int32, limit, step operand,
	simple bool) {

	ip.pushFrame(stackFrame{itemType: stackFor, lv: lv, addr: bodyAddr,
		limit: limit, step: step, simple: simple})
}

func (ip *interp) pushGosub(retAddr int32) {

	ip.pushFrame(stackFrame{itemType: stackGosub, addr: retAddr})
}

func (ip *interp) pushProc(name string, retAddr int32) {

	ip.pushFrame(stackFrame{itemType: stackProc, name: name, addr: retAddr})
}

func (ip *interp) pushFn(name string, retAddr int32) {

	ip.pushFrame(stackFrame{itemType: stackFn, name: name, addr: retAddr})
}

func (ip *interp) pushLocal(lv lvalue, old operand) {

	ip.pushFrame(stackFrame{itemType: stackLocal, lv: lv, old: old})
}

func (ip *interp) pushRetparm(retLv, localLv lvalue, old operand) {

	ip.pushFrame(stackFrame{itemType: stackRetparm, retLv: retLv,
		lv: localLv, old: old})
}

func (ip *interp) pushError(saved errorBlock, hadHandler bool) {

	f := stackFrame{itemType: stackError, handler: saved}
	if hadHandler {
		f.intVal = 1
	}

	ip.pushFrame(f)
}

func (ip *interp) pushData(datacur int32) {

	ip.pushFrame(stackFrame{itemType: stackData, datacur: datacur})
}

func (ip *interp) pushLocArray(sym *variable, old *arrayDesc) {

	ip.pushFrame(stackFrame{itemType: stackLocArray,
		lv: lvalue{kind: lvWholeArray, sym: sym}, descr: old})
}

//
// Frame cleanup.  Discarding a frame during an unwind performs its
// kind-specific teardown: locals and return parameters restore the
// saved variable, error frames rewire the handler, data frames
// restore the DATA pointer, local arrays put the previous
// descriptor back.  Value frames are discardable as-is (string
// payloads are garbage collected)
//

func (ip *interp) cleanupFrame(f stackFrame) {

	switch f.itemType {
	case stackLocal, stackRetparm:
		ip.storeOperand(f.lv, f.old)

	case stackError:
		ip.handler = f.handler
		ip.hasHandler = f.intVal != 0

	case stackData:
		ip.datacur = f.datacur

	case stackLocArray:
		f.lv.sym.descr = f.descr
	}
}

//
// unwindTo pops frames until one of the wanted kinds is on top,
// cleaning up everything discarded on the way.  Returns the kind
// found, or stackUnknown if the stack drained first.  This is the
// silent variant: abandoned loop frames from skipped closers are
// discarded without complaint, matching the historical ENDWHILE
// behavior
//

func (ip *interp) unwindTo(wanted ...stackItem) stackItem {

	for len(ip.stack) > 0 {
		top := ip.topItem()

		for _, w := range wanted {
			if top == w {
				return top
			}
		}

		// a subprogram boundary stops loop-frame searches
		if top == stackProc || top == stackFn {
			return top
		}

		ip.cleanupFrame(ip.popTop())
	}

	return stackUnknown
}

// resetStack unwinds to an absolute depth, performing cleanup.
// Used when transferring control to an error handler

func (ip *interp) resetStack(watermark int) {

	if watermark < 0 || watermark > len(ip.stack) {
		brokenError("stack reset to %d with depth %d", watermark, len(ip.stack))
	}

	for len(ip.stack) > watermark {
		ip.cleanupFrame(ip.popTop())
	}
}

//
// unwindSubprogram tears down everything above the PROC or FN frame
// on a normal subprogram exit.  Unlike the error-path cleanup, a
// RETPARM frame first copies the formal's final value back to the
// caller's lvalue, then restores the formal
//

func (ip *interp) unwindSubprogram(kind stackItem) stackFrame {

	for len(ip.stack) > 0 {
		top := ip.topItem()

		if top == kind {
			return ip.popTop()
		}

		if top == stackProc || top == stackFn {
			break
		}

		f := ip.popTop()

		if f.itemType == stackRetparm {
			final := ip.loadLvalue(f.lv)
			ip.storeOperand(f.lv, f.old)
			ip.storeOperand(f.retLv, final)
		} else {
			ip.cleanupFrame(f)
		}
	}

	if kind == stackProc {
		ip.raiseError(errNoProc)
	}
	ip.raiseError(errNoFn)
	panic("unreachable")
}

// unwindLocals pops LOCAL and RETPARM frames (restoring variables)
// until something else is on top.  Subprogram exit and
// RESTORE LOCAL both come through here

func (ip *interp) unwindLocals() {

	for len(ip.stack) > 0 {
		switch ip.topItem() {
		case stackLocal, stackRetparm, stackLocArray:
			ip.cleanupFrame(ip.popTop())

		default:
			return
		}
	}
}

// clearStack empties the stack without running cleanup.  Only used
// when the whole interpreter state is being reset

func (ip *interp) clearStack() {

	ip.stack = ip.stack[:0]
}
