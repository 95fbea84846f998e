package main

import (
	"encoding/binary"
	"strings"
)

//
// The token stream resolver.  Unresolved tokens left by the
// tokenizer are rewritten in place, with their operand slots
// filled with real addresses, the first time they are executed.
// Subsequent executions take the resolved fast path.  The five
// transitions are line-number references, PROC/FN call sites,
// block IF, the block closers (ELSE, WHEN, OTHERWISE) and CASE
// jump tables
//

func (ip *interp) readOperandU32(addr int32) int32 {

	return int32(binary.LittleEndian.Uint32(ip.window[addr+1:]))
}

func (ip *interp) writeOperandU32(addr int32, val int32) {

	binary.LittleEndian.PutUint32(ip.window[addr+1:], uint32(val))
}

func (ip *interp) readOperandU16(addr int32) int32 {

	return int32(binary.LittleEndian.Uint16(ip.window[addr+1:]))
}

//
// Line number references.  The target line is located by a linear
// scan from the program start; the resolved token carries the
// address of the line's first executable token
//

func (ip *interp) resolveLinenum(addr int32) int32 {

	lineno := ip.readOperandU32(addr)

	for line := ip.page; !ip.atProgEnd(line); line = ip.nextLine(line) {
		if ip.lineNumber(line) == int32(lineno) {
			target := ip.findExec(line)

			ip.window[addr] = tokLinenum
			ip.writeOperandU32(addr, target)

			return target
		}
	}

	ip.raiseError(errLineMissing)
	panic("unreachable")
}

// linenumTarget returns the branch target of a line-number token,
// resolving it on first use

func (ip *interp) linenumTarget(addr int32) int32 {

	if ip.window[addr] == tokLinenum {
		return ip.readOperandU32(addr)
	}

	return ip.resolveLinenum(addr)
}

//
// Walking the token stream across line boundaries.  nextToken
// steps over one token; when it lands on the line terminator it
// moves to the first executable token of the next line, or
// returns -1 at the end of the program region
//

func (ip *interp) nextToken(addr int32) int32 {

	next := ip.skipToken(addr)

	if next == addr {
		next++ // sitting on a terminator
	}

	if ip.window[next] != tokEol {
		return next
	}

	line := ip.findLineStart(addr)
	if line < 0 {
		return -1
	}

	line = ip.nextLine(line)

	if ip.atProgEnd(line) {
		return -1
	}

	return ip.findExec(line)
}

// thenAtLineEnd reports whether the token at addr is a THEN
// immediately followed by the end of a physical line, which is
// what makes the rest of the construct a block.  Forward scans
// treat every such occurrence as a nested block start

func (ip *interp) thenAtLineEnd(addr int32) bool {

	return ip.window[addr] == tokThen && ip.window[addr+1] == tokEol
}

//
// Block IF resolution.  Called with the cursor on the (unresolved)
// IF token and the condition already evaluated once by the caller;
// condEnd is the address just past the condition.  Fills the two
// operand slots with the then-target and the else-target and
// switches the opcode to SINGLIF or BLOCKIF
//

func (ip *interp) resolveIf(addr, condEnd int32) {

	cursor := condEnd
	hasThen := ip.window[cursor] == tokThen

	if hasThen {
		cursor++
	}

	if hasThen && ip.window[cursor] == tokEol {
		ip.resolveBlockIf(addr, cursor)
		return
	}

	// cascade mode: a block IF whose THEN carries trailing source
	// searches for ENDIF instead of ELSE
	if hasThen && ip.cascadeIf {
		ip.resolveCascadeIf(addr, cursor)
		return
	}

	ip.resolveSinglif(addr, cursor)
}

func (ip *interp) resolveSinglif(addr, thenTarget int32) {

	// the else-target is the token after a statement-level ELSE on
	// this line, or the line terminator when there is none
	cursor := thenTarget
	depth := 0

	for ip.window[cursor] != tokEol {
		switch ip.window[cursor] {
		case tokXIf, tokSinglif, tokBlockif:
			depth++

		case tokLelse:
			if depth == 0 {
				ip.window[addr] = tokSinglif
				ip.writeOperandU32(addr, thenTarget)
				ip.writeOperandU32(addr+4, cursor+1)
				return
			}
			depth--
		}

		cursor = ip.skipToken(cursor)
	}

	ip.window[addr] = tokSinglif
	ip.writeOperandU32(addr, thenTarget)
	ip.writeOperandU32(addr+4, cursor)
}

// resolveBlockIf forward-scans whole lines for the paired ELSE (at
// depth one only) and ENDIF.  eolAddr is the terminator after THEN

func (ip *interp) resolveBlockIf(addr, eolAddr int32) {

	line := ip.findLineStart(addr)
	basicAssert(line >= 0, "block IF outside program")

	var elseTarget int32 = -1
	depth := 1

	line = ip.nextLine(line)

	for {
		if ip.atProgEnd(line) {
			// a true condition just runs to the end of the program;
			// the missing ENDIF is only reported when the else branch
			// is actually needed
			ip.window[addr] = tokBlockif
			ip.writeOperandU32(addr, eolAddr)
			ip.writeOperandU32(addr+4, -1)
			return
		}

		tp := ip.findExec(line)

		switch ip.window[tp] {
		case tokXElse, tokElse:
			if depth == 1 && elseTarget < 0 {
				elseTarget = tp + 5 // past the token and its offset slot
			}

		case tokEndif:
			depth--
			if depth == 0 {
				if elseTarget < 0 {
					elseTarget = tp + 1
				}

				ip.window[addr] = tokBlockif
				ip.writeOperandU32(addr, eolAddr)
				ip.writeOperandU32(addr+4, elseTarget)
				return
			}
		}

		// nested block starts anywhere in this line
		for ; ip.window[tp] != tokEol; tp = ip.skipToken(tp) {
			if ip.thenAtLineEnd(tp) {
				depth++
			}
		}

		line = ip.nextLine(line)
	}
}

// resolveCascadeIf searches for the paired ENDIF only, treating
// everything after THEN on the IF line as the first then-statement

func (ip *interp) resolveCascadeIf(addr, thenTarget int32) {

	line := ip.findLineStart(addr)
	basicAssert(line >= 0, "block IF outside program")

	depth := 1
	line = ip.nextLine(line)

	for {
		if ip.atProgEnd(line) {
			ip.window[addr] = tokBlockif
			ip.writeOperandU32(addr, thenTarget)
			ip.writeOperandU32(addr+4, -1)
			return
		}

		tp := ip.findExec(line)

		if ip.window[tp] == tokEndif {
			depth--
			if depth == 0 {
				ip.window[addr] = tokBlockif
				ip.writeOperandU32(addr, thenTarget)
				ip.writeOperandU32(addr+4, tp+1)
				return
			}
		}

		for ; ip.window[tp] != tokEol; tp = ip.skipToken(tp) {
			if ip.thenAtLineEnd(tp) {
				depth++
			}
		}

		line = ip.nextLine(line)
	}
}

//
// Block closer resolution: ELSE inside a block IF branches past the
// paired ENDIF; WHEN and OTHERWISE bodies falling into the next
// clause branch past the paired ENDCASE.  The continuation is
// cached in the token's offset slot on first execution
//

func (ip *interp) resolveElse(addr int32) int32 {

	line := ip.findLineStart(addr)
	basicAssert(line >= 0, "ELSE outside program")

	depth := 1
	line = ip.nextLine(line)

	for {
		if ip.atProgEnd(line) {
			ip.raiseError(errEndifMissing)
		}

		tp := ip.findExec(line)

		if ip.window[tp] == tokEndif {
			depth--
			if depth == 0 {
				ip.window[addr] = tokElse
				ip.writeOperandU32(addr, tp+1)
				return tp + 1
			}
		}

		for ; ip.window[tp] != tokEol; tp = ip.skipToken(tp) {
			if ip.thenAtLineEnd(tp) {
				depth++
			}
		}

		line = ip.nextLine(line)
	}
}

func (ip *interp) resolveWhen(addr int32) int32 {

	line := ip.findLineStart(addr)
	basicAssert(line >= 0, "WHEN outside program")

	depth := 1
	line = ip.nextLine(line)

	for {
		if ip.atProgEnd(line) {
			ip.raiseError(errEndcaseMissing)
		}

		tp := ip.findExec(line)

		if ip.window[tp] == tokEndcase {
			depth--
			if depth == 0 {
				resolved := tokWhen
				if ip.window[addr] == tokXOtherwise || ip.window[addr] == tokOtherwise {
					resolved = tokOtherwise
				}

				ip.window[addr] = resolved
				ip.writeOperandU32(addr, tp+1)
				return tp + 1
			}
		}

		for ; ip.window[tp] != tokEol; tp = ip.skipToken(tp) {
			if ip.window[tp] == tokXCase || ip.window[tp] == tokCase {
				depth++
			}
		}

		line = ip.nextLine(line)
	}
}

//
// CASE resolution.  The first execution walks forward to the paired
// ENDCASE collecting each top-level WHEN and OTHERWISE into a case
// table, stores the table in the arena, writes the arena index into
// the operand slot and upgrades the opcode.  Each later execution
// is one table lookup
//

func (ip *interp) resolveCase(addr int32) *caseTable {

	line := ip.findLineStart(addr)
	basicAssert(line >= 0, "CASE outside program")

	// the last token of the CASE line must be OF
	tp := ip.findExec(line)
	last := tp

	for ip.window[tp] != tokEol {
		last = tp
		tp = ip.skipToken(tp)
	}

	if ip.window[last] != tokOf {
		ip.raiseError(errOfMissing)
	}

	table := &caseTable{defaultAddr: -1}
	depth := 1
	line = ip.nextLine(line)

	for depth > 0 {
		if ip.atProgEnd(line) {
			ip.raiseError(errEndcaseMissing)
		}

		tp = ip.findExec(line)

		switch ip.window[tp] {
		case tokXWhen, tokWhen:
			if depth == 1 {
				if len(table.whens) == maxWhens {
					ip.raiseError(errWhenCount)
				}

				exprAddr := tp + 5
				body := exprAddr

				for ip.window[body] != tokEol && ip.window[body] != ':' {
					body = ip.skipToken(body)
				}

				if ip.window[body] == ':' {
					body++
				} else {
					next := ip.nextLine(line)
					if ip.atProgEnd(next) {
						ip.raiseError(errEndcaseMissing)
					}
					body = ip.findExec(next)
				}

				table.whens = append(table.whens,
					whenValue{exprAddr: exprAddr, bodyAddr: body})
			}

		case tokXOtherwise, tokOtherwise:
			if depth == 1 {
				body := tp + 5

				if ip.window[body] == ':' {
					body++
				}

				if ip.window[body] == tokEol {
					next := ip.nextLine(line)
					if ip.atProgEnd(next) {
						ip.raiseError(errEndcaseMissing)
					}
					body = ip.findExec(next)
				}

				table.defaultAddr = body
			}

		case tokEndcase:
			depth--
			if depth == 0 && table.defaultAddr < 0 {
				table.defaultAddr = tp + 1
			}
		}

		if depth > 0 {
			for tp = ip.findExec(line); ip.window[tp] != tokEol; tp = ip.skipToken(tp) {
				if ip.window[tp] == tokXCase || ip.window[tp] == tokCase {
					depth++
				}
			}

			line = ip.nextLine(line)
		}
	}

	ip.caseArena = append(ip.caseArena, table)

	ip.window[addr] = tokCase
	ip.writeOperandU32(addr, int32(len(ip.caseArena)-1))

	return table
}

//
// WHILE pairing.  A false condition on an unresolved WHILE needs
// the address just past the paired ENDWHILE; the scan is
// token-wise so a mid-line ENDWHILE pairs correctly.  The result
// is cached in the WHILE operand slot
//

func (ip *interp) resolveWhile(addr int32) int32 {

	depth := 1
	tp := addr + 5

	for {
		tp = ip.nextToken(tp)
		if tp < 0 {
			ip.raiseError(errEndwhileMissing)
		}

		switch ip.window[tp] {
		case tokXWhile, tokWhile:
			depth++

		case tokEndwhile:
			depth--
			if depth == 0 {
				ip.window[addr] = tokWhile
				ip.writeOperandU32(addr, tp+1)
				return tp + 1
			}
		}
	}
}

//
// PROC and FN call-site resolution.  The unresolved operand is a
// back-displacement to the subprogram name in the source bytes.
// Resolution finds (or lazily discovers) the definition, upgrades
// any marker to a full record by parsing the parameter list once,
// writes the record's arena index into the operand slot and
// switches the opcode
//

func (ip *interp) resolveCall(addr int32) *fnprocDef {

	isFn := ip.window[addr] == tokXFn

	nameAddr := addr - ip.readOperandU32(addr)
	name := ip.parseSubNameAt(nameAddr, isFn)

	lib := ip.libraryFor(addr)

	v := ip.findVariable(name, lib)
	if v == nil {
		v = ip.searchForDef(name, lib)
	}

	if v == nil {
		if isFn {
			ip.raiseErrorParm(errNoSuchFn, strings.TrimPrefix(name, "FN"))
		}
		ip.raiseErrorParm(errNoSuchProc, strings.TrimPrefix(name, "PROC"))
	}

	if v.kind == varMarker {
		ip.upgradeMarker(v, isFn)
	}

	if isFn {
		ip.window[addr] = tokFn
	} else {
		ip.window[addr] = tokProc
	}

	ip.writeOperandU32(addr, v.defIdx)

	return ip.procArena[v.defIdx]
}

// parseSubNameAt reads a subprogram name from the source bytes,
// returning it with its PROC or FN prefix

func (ip *interp) parseSubNameAt(nameAddr int32, isFn bool) string {

	end := nameAddr

	for isNameChar(ip.window[end]) {
		end++
	}

	if ip.window[end] == '%' || ip.window[end] == '$' {
		end++
	}

	prefix := "PROC"
	if isFn {
		prefix = "FN"
	}

	return prefix + string(ip.window[nameAddr:end])
}

//
// searchForDef resumes the lazy DEF scan.  The scan walks forward
// from the cached position looking for DEF followed by an
// unresolved call token, inserting a marker for every definition
// found, and stops early once the wanted name appears.  The main
// program is scanned first, then each loaded library
//

func (ip *interp) searchForDef(name string, lib *library) *variable {

	if v := ip.scanDefs(name, nil, &ip.searched, ip.top); v != nil {
		return v
	}

	for _, l := range ip.libraries {
		if v := ip.scanDefs(name, l, &l.searched, l.end); v != nil {
			return v
		}
	}

	// the scan may have inserted the marker in a scope we already
	// passed over; check once more
	return ip.findVariable(name, lib)
}

func (ip *interp) scanDefs(name string, owner *library, pos *int32,
	limit int32) *variable {

	line := *pos

	for !ip.atProgEnd(line) && line < limit {
		tp := ip.findExec(line)

		// LIBRARY LOCAL in library source creates private variables
		// in the library's own table during the first scan
		if owner != nil && ip.window[tp] == tokLibrary &&
			ip.window[ip.skipToken(tp)] == tokLocal {
			ip.scanLibraryLocals(owner, ip.skipToken(ip.skipToken(tp)))
		}

		if ip.window[tp] == tokDef {
			defAddr := tp
			tp = ip.skipToken(tp)

			if ip.window[tp] == tokXProc || ip.window[tp] == tokXFn ||
				ip.window[tp] == tokProc || ip.window[tp] == tokFn {

				isFn := ip.window[tp] == tokXFn || ip.window[tp] == tokFn
				nameAddr := tp - ip.readOperandU32(tp)

				// an already-resolved call token here means the DEF
				// itself was executed; the record exists
				if ip.window[tp] == tokXProc || ip.window[tp] == tokXFn {
					defName := ip.parseSubNameAt(nameAddr, isFn)
					v := ip.createMarker(defName, owner, defAddr)

					if defName == name {
						*pos = ip.nextLine(line)
						return v
					}
				}
			}
		}

		line = ip.nextLine(line)
	}

	*pos = line

	return nil
}

//
// scanLibraryLocals creates one private variable per name in a
// LIBRARY LOCAL list.  Array declarations with literal bounds are
// dimensioned on the spot
//

func (ip *interp) scanLibraryLocals(owner *library, tp int32) {

	for {
		if ip.window[tp] != tokXVar {
			return
		}

		name := ip.parseVarNameAt(tp - ip.readOperandU16(tp))
		tp = ip.skipToken(tp)

		v := ip.findVariable(name, owner)
		if v == nil || v.owner != owner {
			v = ip.createVariable(name, owner)
		}

		if strings.HasSuffix(normalizeName(name), "(") {
			var dims []int32

			for ip.window[tp] == tokIntCon {
				dims = append(dims, ip.readOperandU32(tp))
				tp += 5

				if ip.window[tp] == ',' {
					tp++
				}
			}

			if ip.window[tp] == ')' {
				tp++
			}

			if v.descr == nil && len(dims) > 0 {
				elem := kindForName(strings.TrimSuffix(normalizeName(name), "("))
				v.descr = ip.makeArrayDesc(elem, dims)
				v.descr.parent = v
			}
		}

		if ip.window[tp] != ',' {
			return
		}

		tp++
	}
}

//
// upgradeMarker parses the definition's parameter list once and
// turns the marker into a full subprogram record.  Each formal is
// recorded by name with its RETURN flag; the body address is the
// first statement after the list
//

func (ip *interp) upgradeMarker(v *variable, isFn bool) {

	defAddr := v.defAddr

	// step over DEF and the name token
	tp := ip.skipToken(defAddr)

	wantTok := byte(tokXProc)
	if isFn {
		wantTok = tokXFn
	}

	if ip.window[tp] != wantTok {
		ip.raiseError(errSyntax)
	}

	tp = ip.skipToken(tp)

	var parms []formalParm

	if ip.window[tp] == '(' {
		tp++

		for {
			isReturn := false

			if ip.window[tp] == tokReturn {
				isReturn = true
				tp++
			}

			var parmName string
			parmName, tp = ip.parmNameAt(tp)

			if len(parms) == maxParms {
				ip.raiseError(errTooManyParms)
			}

			parms = append(parms, formalParm{name: parmName, isReturn: isReturn})

			if ip.window[tp] == ',' {
				tp++
				continue
			}

			if ip.window[tp] != ')' {
				ip.raiseError(errSyntax)
			}

			tp++
			break
		}
	}

	// the body starts at the next statement
	if ip.window[tp] == ':' {
		tp++
	}

	if ip.window[tp] == tokEol {
		line := ip.nextLine(ip.findLineStart(defAddr))
		if ip.atProgEnd(line) {
			if isFn {
				ip.raiseError(errNoFn)
			}
			ip.raiseError(errNoProc)
		}
		tp = ip.findExec(line)
	}

	def := &fnprocDef{name: v.name, addr: tp, parms: parms, owner: v.owner}

	if len(parms) == 1 && !parms[0].isReturn &&
		kindForName(parms[0].name) == varInt32 {
		def.simple = true
	}

	ip.procArena = append(ip.procArena, def)

	if isFn {
		v.kind = varFn
	} else {
		v.kind = varProc
	}

	v.defIdx = int32(len(ip.procArena) - 1)
}

// parmNameAt reads one formal parameter name (a variable token) at
// tp, returning the name text and the next token address

func (ip *interp) parmNameAt(tp int32) (string, int32) {

	switch ip.window[tp] {
	case tokXVar:
		nameAddr := tp - ip.readOperandU16(tp)
		name := ip.parseVarNameAt(nameAddr)

		if strings.HasSuffix(name, "(") {
			ip.raiseError(errBadParm)
		}

		return name, ip.skipToken(tp)

	case tokStatic:
		slot := int32(ip.window[tp+1])
		return staticName(slot), tp + 2
	}

	ip.raiseError(errBadParm)
	panic("unreachable")
}

// parseVarNameAt reads a variable name (with suffix, and trailing
// bracket for arrays) from the source bytes

func (ip *interp) parseVarNameAt(nameAddr int32) string {

	end := nameAddr

	if ip.window[end] == '@' {
		end++
	}

	for isNameChar(ip.window[end]) {
		end++
	}

	for ip.window[end] == '%' || ip.window[end] == '&' || ip.window[end] == '$' {
		end++
	}

	if ip.window[end] == '(' || ip.window[end] == '[' {
		end++
	}

	return string(ip.window[nameAddr:end])
}

func staticName(slot int32) string {

	if slot == atPercentSlot {
		return "@%"
	}

	return string(rune('A'+slot-1)) + "%"
}
