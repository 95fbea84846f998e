package main

import "testing"

//
// Expression behavior, observed through PRINT.  Each case is one
// program line; expected output includes the trailing newline
//

func TestExpressionResults(t *testing.T) {

	cases := []struct {
		src  string
		want string
	}{
		// numeric promotion
		{`PRINT 1+2`, "3\n"},
		{`PRINT 1+2.5`, "3.5\n"},
		{`PRINT 2.5+1`, "3.5\n"},
		{`PRINT 7/2`, "3.5\n"},
		{`PRINT 7 DIV 2`, "3\n"},
		{`PRINT 7 MOD 2`, "1\n"},
		{`PRINT 2^10`, "1024\n"},
		{`PRINT -5`, "-5\n"},
		{`PRINT 10000000000+1`, "10000000001\n"},

		// comparison and logic
		{`PRINT TRUE`, "-1\n"},
		{`PRINT FALSE`, "0\n"},
		{`PRINT 1=1`, "-1\n"},
		{`PRINT 1<>1`, "0\n"},
		{`PRINT 2<3`, "-1\n"},
		{`PRINT "abc"<"abd"`, "-1\n"},
		{`PRINT "abc"="abc"`, "-1\n"},
		{`PRINT NOT 0`, "-1\n"},
		{`PRINT 6 AND 3`, "2\n"},
		{`PRINT 6 OR 3`, "7\n"},
		{`PRINT 6 EOR 3`, "5\n"},
		{`PRINT 1<<4`, "16\n"},
		{`PRINT -16>>2`, "-4\n"},
		{`PRINT 1=1 AND 2=2`, "-1\n"},

		// strings
		{`PRINT "a"+"b"`, "ab\n"},
		{`PRINT LEN("abc")`, "3\n"},
		{`PRINT CHR$(65)`, "A\n"},
		{`PRINT ASC("A")`, "65\n"},
		{`PRINT STR$(42)`, "42\n"},
		{`PRINT STR$~255`, "FF\n"},
		{`PRINT VAL("12.5xyz")`, "12.5\n"},
		{`PRINT VAL("junk")`, "0\n"},
		{`PRINT LEFT$("hello",2)`, "he\n"},
		{`PRINT RIGHT$("hello",2)`, "lo\n"},
		{`PRINT MID$("hello",2,3)`, "ell\n"},
		{`PRINT STRING$(3,"ab")`, "ababab\n"},
		{`PRINT INSTR("hello","ll")`, "3\n"},
		{`PRINT INSTR("hello","zz")`, "0\n"},

		// rounding and INT
		{`PRINT INT(2.7)`, "2\n"},
		{`PRINT INT(-2.3)`, "-3\n"},
		{`PRINT ABS(-4)`, "4\n"},
		{`PRINT SGN(-9)`, "-1\n"},
		{`PRINT SQR(16)`, "4\n"},

		// operator precedence
		{`PRINT 2+3*4`, "14\n"},
		{`PRINT (2+3)*4`, "20\n"},
		{`PRINT 2*3^2`, "18\n"},

		// EVAL retokenizes at run time
		{`PRINT EVAL("2*21")`, "42\n"},
	}

	for _, c := range cases {
		out, fault := runProg(c.src)

		if fault != nil {
			t.Fatalf("%q faulted: %d %q", c.src, fault.code, fault.msg)
		}

		if out != c.want {
			t.Fatalf("%q: got %q want %q", c.src, out, c.want)
		}
	}
}

// Promotion is commutative for the symmetric operators

func TestPromotionCommutative(t *testing.T) {

	pairs := [][2]string{
		{`PRINT 3+2.5`, `PRINT 2.5+3`},
		{`PRINT 3*2.5`, `PRINT 2.5*3`},
		{`PRINT 3=3.0`, `PRINT 3.0=3`},
		{`PRINT 3<>2.5`, `PRINT 2.5<>3`},
	}

	for _, p := range pairs {
		a, fault := runProg(p[0])
		wantClean(t, fault)

		b, fault := runProg(p[1])
		wantClean(t, fault)

		if a != b {
			t.Fatalf("%q vs %q: %q != %q", p[0], p[1], a, b)
		}
	}
}

func TestExpressionFaults(t *testing.T) {

	cases := []struct {
		src  string
		code int32
	}{
		{`PRINT 1/0`, errDivZero},
		{`PRINT 1 DIV 0`, errDivZero},
		{`PRINT 1 MOD 0`, errDivZero},
		{`PRINT SQR(-1)`, errNegRoot},
		{`PRINT LN(0)`, errLogRange},
		{`PRINT "a"+1`, errTypeStr},
		{`PRINT LEN(5)`, errTypeStr},
		{`A%=3000000000`, errNumberTooBig},
		{`A%=1E19`, errNumberTooBig},
		{`PRINT nosuch`, errNoSuchVar},
	}

	for _, c := range cases {
		_, fault := runProg(c.src)

		if fault == nil || fault.code != c.code {
			t.Fatalf("%q: expected fault %d, got %+v", c.src, c.code, fault)
		}
	}
}

func TestVariableKindsAndAssignment(t *testing.T) {

	out, fault := runProg(
		`n%%=10000000000`,
		`i%=42`,
		`b&=300`,
		`f=1.25`,
		`s$="txt"`,
		`PRINT n%%;" ";i%;" ";b&;" ";f;" ";s$`,
	)

	wantClean(t, fault)

	// the byte variable wraps modulo 256
	wantOutput(t, out, "10000000000 42 44 1.25 txt\n")
}

func TestIntegerAssignmentTruncates(t *testing.T) {

	out, fault := runProg(`A%=2.9:PRINT A%`)

	wantClean(t, fault)
	wantOutput(t, out, "2\n")
}

func TestArrayExpressions(t *testing.T) {

	out, fault := runProg(
		`DIM a(3)`,
		`a(0)=1.5:a(3)=2.5`,
		`PRINT a(0)+a(3)`,
		`DIM m%(2,2)`,
		`m%(1,2)=7`,
		`PRINT m%(1,2)`,
	)

	wantClean(t, fault)
	wantOutput(t, out, "4\n7\n")
}

func TestArraySubscriptFault(t *testing.T) {

	_, fault := runProg(`DIM a%(2):PRINT a%(3)`)

	wantFault(t, fault, errSubscript)
}

func TestUndimmedArrayFault(t *testing.T) {

	_, fault := runProg(`a%()=0:PRINT a%(1)`)

	if fault == nil {
		t.Fatalf("expected a fault for undimensioned array use")
	}
}

func TestIndirectionOperands(t *testing.T) {

	out, fault := runProg(
		`DIM P% 32`,
		`!P%=258`,
		`PRINT ?P%;" ";P%?1`,
		`|P%=2.5`,
		`PRINT |P%`,
	)

	wantClean(t, fault)

	// 258 = 0x0102 little-endian: byte 0 is 2, byte 1 is 1
	wantOutput(t, out, "2 1\n2.5\n")
}

func TestPseudoVariables(t *testing.T) {

	ip, buf := buildTestInterp(t,
		`PRINT PAGE;" ";TOP;" ";LOMEM;" ";HIMEM`,
	)

	ip.current = ip.findExec(ip.page)

	wantClean(t, ip.runProgram())

	if buf.Len() == 0 {
		t.Fatalf("pseudo-variables printed nothing")
	}
}

func TestRndShapes(t *testing.T) {

	out, fault := runProg(
		`FOR I%=1 TO 20`,
		`R%=RND(6)`,
		`IF R%<1 THEN PRINT "low"`,
		`IF R%>6 THEN PRINT "high"`,
		`NEXT`,
		`X=RND(1)`,
		`IF X<0 THEN PRINT "neg"`,
		`IF X>=1 THEN PRINT "big"`,
		`IF RND(0)<>X THEN PRINT "norepeat"`,
		`PRINT "ok"`,
	)

	wantClean(t, fault)
	wantOutput(t, out, "ok\n")
}

func TestPrintFormatting(t *testing.T) {

	out, fault := runProg(`PRINT 1,2`)

	wantClean(t, fault)
	wantOutput(t, out, "1         2\n")

	out, fault = runProg(`PRINT TAB(5);"x"`)

	wantClean(t, fault)
	wantOutput(t, out, "     x\n")

	out, fault = runProg(`PRINT "a"'"b"`)

	wantClean(t, fault)
	wantOutput(t, out, "a\nb\n")

	out, fault = runProg(`PRINT ~255`)

	wantClean(t, fault)
	wantOutput(t, out, "FF\n")
}

func TestAtPercentFieldWidth(t *testing.T) {

	out, fault := runProg(
		`@%=5`,
		`PRINT 42`,
	)

	wantClean(t, fault)
	wantOutput(t, out, "   42\n")
}

func TestFnCallInsideExpression(t *testing.T) {

	out, fault := runProg(
		`PRINT 1+FNtwo*3`,
		`END`,
		`DEF FNtwo=2`,
	)

	wantClean(t, fault)
	wantOutput(t, out, "7\n")
}
