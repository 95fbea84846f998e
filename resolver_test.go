package main

import (
	"os"
	"path/filepath"
	"testing"
)

//
// Resolution rewrites.  The first execution of an unresolved token
// must write the resolved opcode and address back into the program
// so the second execution takes the fast path and branches the
// same way
//

func findTokenAddr(ip *interp, tok byte) int32 {

	for line := ip.page; !ip.atProgEnd(line); line = ip.nextLine(line) {
		for tp := ip.findExec(line); ip.window[tp] != tokEol; tp = ip.skipToken(tp) {
			if ip.window[tp] == tok {
				return tp
			}
		}
	}

	return -1
}

func TestGotoResolvesInPlace(t *testing.T) {

	ip, buf := buildTestInterp(t,
		`10 C%=C%+1`,
		`20 IF C%=3 THEN 50`,
		`30 GOTO 10`,
		`50 PRINT C%`,
	)

	ip.current = ip.findExec(ip.page)

	if addr := findTokenAddr(ip, tokXLinenum); addr < 0 {
		t.Fatalf("no unresolved line reference before run")
	}

	wantClean(t, ip.runProgram())
	wantOutput(t, buf.String(), "3\n")

	// the GOTO was executed more than once, so it must be resolved
	addr := findTokenAddr(ip, tokLinenum)
	if addr < 0 {
		t.Fatalf("no resolved line reference after run")
	}

	target := ip.readOperandU32(addr)

	if ip.findLineno(target) != 10 && ip.findLineno(target) != 50 {
		t.Fatalf("resolved target in wrong line: %d", ip.findLineno(target))
	}
}

func TestProcCallResolvesToArenaIndex(t *testing.T) {

	ip, buf := buildTestInterp(t,
		`FOR I%=1 TO 2:PROCtick:NEXT`,
		`END`,
		`DEF PROCtick`,
		`PRINT "t";`,
		`ENDPROC`,
	)

	ip.current = ip.findExec(ip.page)

	wantClean(t, ip.runProgram())
	wantOutput(t, buf.String(), "tt")

	addr := findTokenAddr(ip, tokProc)
	if addr < 0 {
		t.Fatalf("call site not resolved")
	}

	idx := ip.readOperandU32(addr)

	if int(idx) >= len(ip.procArena) || ip.procArena[idx].name != "PROCtick" {
		t.Fatalf("arena index wrong: %d", idx)
	}
}

func TestMarkerUpgradedOnFirstUse(t *testing.T) {

	ip, _ := buildTestInterp(t,
		`PROCa`,
		`END`,
		`DEF PROCb`,
		`ENDPROC`,
		`DEF PROCa`,
		`ENDPROC`,
	)

	ip.current = ip.findExec(ip.page)

	wantClean(t, ip.runProgram())

	// scanning for PROCa passed over PROCb, leaving a marker for it
	b := ip.findVariable("PROCb", nil)
	if b == nil || b.kind != varMarker {
		t.Fatalf("expected marker for unused definition, got %+v", b)
	}

	a := ip.findVariable("PROCa", nil)
	if a == nil || a.kind != varProc {
		t.Fatalf("used definition not upgraded: %+v", a)
	}
}

func TestBlockIfResolvesOpcode(t *testing.T) {

	ip, buf := buildTestInterp(t,
		`FOR I%=1 TO 2`,
		`IF I%=1 THEN`,
		`PRINT "a";`,
		`ELSE`,
		`PRINT "b";`,
		`ENDIF`,
		`NEXT`,
	)

	ip.current = ip.findExec(ip.page)

	wantClean(t, ip.runProgram())
	wantOutput(t, buf.String(), "ab")

	if findTokenAddr(ip, tokXIf) >= 0 {
		t.Fatalf("IF still unresolved after execution")
	}

	if findTokenAddr(ip, tokBlockif) < 0 {
		t.Fatalf("no resolved block IF")
	}

	// the taken ELSE was resolved too
	if findTokenAddr(ip, tokElse) < 0 {
		t.Fatalf("ELSE not resolved")
	}
}

func TestSingleLineIfResolvesOpcode(t *testing.T) {

	ip, buf := buildTestInterp(t,
		`IF 1 THEN PRINT "y" ELSE PRINT "n"`,
	)

	ip.current = ip.findExec(ip.page)

	wantClean(t, ip.runProgram())
	wantOutput(t, buf.String(), "y\n")

	if findTokenAddr(ip, tokSinglif) < 0 {
		t.Fatalf("single-line IF not resolved")
	}
}

func TestWhilePairingCached(t *testing.T) {

	ip, buf := buildTestInterp(t,
		`FOR I%=1 TO 2`,
		`WHILE 0`,
		`PRINT "no"`,
		`ENDWHILE`,
		`NEXT`,
		`PRINT "ok"`,
	)

	ip.current = ip.findExec(ip.page)

	wantClean(t, ip.runProgram())
	wantOutput(t, buf.String(), "ok\n")

	addr := findTokenAddr(ip, tokWhile)
	if addr < 0 {
		t.Fatalf("WHILE pairing not cached")
	}

	// the cached address is just past the paired ENDWHILE
	target := ip.readOperandU32(addr)

	if ip.window[target-1] != tokEndwhile {
		t.Fatalf("cached address does not follow ENDWHILE")
	}
}

func TestNestedWhilePairing(t *testing.T) {

	out, fault := runProg(
		`A%=0`,
		`WHILE A%<2`,
		`A%=A%+1`,
		`B%=0`,
		`WHILE B%<2`,
		`B%=B%+1`,
		`ENDWHILE`,
		`ENDWHILE`,
		`PRINT A%;B%`,
	)

	wantClean(t, fault)
	wantOutput(t, out, "22\n")
}

func TestLibraryProcSearch(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.bas")

	libSrc := "DEF PROCgreet\nPRINT \"hello from lib\"\nENDPROC\n"

	if err := os.WriteFile(path, []byte(libSrc), 0644); err != nil {
		t.Fatal(err)
	}

	out, fault := runProg(
		`LIBRARY "`+path+`"`,
		`PROCgreet`,
		`END`,
	)

	wantClean(t, fault)
	wantOutput(t, out, "hello from lib\n")
}

func TestLibraryLocalVariables(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "counter.bas")

	libSrc := "LIBRARY LOCAL n%\n" +
		"DEF PROCbump\nn%=n%+1\nPRINT n%\nENDPROC\n"

	if err := os.WriteFile(path, []byte(libSrc), 0644); err != nil {
		t.Fatal(err)
	}

	out, fault := runProg(
		`n%=100`,
		`LIBRARY "`+path+`"`,
		`PROCbump`,
		`PROCbump`,
		`PRINT n%`,
		`END`,
	)

	wantClean(t, fault)

	// the library's n% is private; the main program's is untouched
	wantOutput(t, out, "1\n2\n100\n")
}
