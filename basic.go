package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danswartzendruber/liner"
	"golang.org/x/term"
)

var buildTimestampStr string

var theInterp *interp

func main() {

	sizeFlag := flag.Int("size", defaultWorkspace, "workspace size in bytes")
	cascadeFlag := flag.Bool("cascade", false, "cascade block-IF resolution")
	quitFlag := flag.Bool("quit", false, "exit after running the program")
	statsFlag := flag.Bool("stats", false, "print run statistics")
	flag.Parse()

	size := *sizeFlag
	if size < minWorkspace {
		size = minWorkspace
	}
	if size > maxWorkspace {
		size = maxWorkspace
	}

	initAvl()

	theInterp = newInterp(size)
	theInterp.cascadeIf = *cascadeFlag

	installSigHandler(theInterp)

	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	if flag.NArg() > 0 {
		runProgramFile(theInterp, flag.Arg(0), *statsFlag)

		if *quitFlag || !interactive {
			os.Exit(theInterp.exitStatus)
		}
	}

	if interactive {
		setupLiner()
		defer cleanupLiner()

		fmt.Printf("Basic interpreter %s\n", VERSION)
	}

	repl(theInterp, interactive, *statsFlag)

	os.Exit(theInterp.exitStatus)
}

//
// newInterp builds a fresh interpreter around a workspace of the
// requested size.  The base operator-stack frame sits at the
// bottom of the value stack for the whole session
//

func newInterp(size int) *interp {

	ip := &interp{
		window:    make([]byte, size),
		page:      pageOffset,
		himem:     int32(size) - scratchSize,
		startTime: time.Now(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		out:       os.Stdout,
	}

	ip.top = ip.page + 2
	ip.resetHeap()

	ip.staticVars[atPercentSlot] = defaultAtPercent

	ip.pushFrame(stackFrame{itemType: stackOpstack,
		opstack: make([]operand, 0, opstackSize)})

	ip.inLine = func(prompt string) (string, bool) {
		return readLine(prompt, false)
	}

	return ip
}

// installSigHandler maps the interrupt key onto the escape flag;
// the dispatcher raises the Escape error at the next suspension
// point

func installSigHandler(ip *interp) {

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range ch {
			if sig == syscall.SIGTERM {
				os.Exit(1)
			}

			ip.escape = true
		}
	}()
}

//
// Line input.  The liner-based editor is used when the session is
// interactive; piped input falls back to a plain scanner
//

var plainScanner *bufio.Scanner

func setupLiner() {

	g.parserLiner = liner.NewLiner()
	g.parserLiner.SetCtrlCAborts(true)
}

func cleanupLiner() {

	if g.parserLiner != nil {
		g.parserLiner.Close()
		g.parserLiner = nil
	}
}

func readLine(prompt string, history bool) (string, bool) {

	if g.parserLiner != nil {
		text, err := g.parserLiner.Prompt(prompt)
		if err != nil {
			return "", false
		}

		if history && strings.TrimSpace(text) != "" {
			g.parserLiner.AppendHistory(text)
		}

		return text, true
	}

	if plainScanner == nil {
		plainScanner = bufio.NewScanner(os.Stdin)
		plainScanner.Buffer(make([]byte, maxLineLen), maxLineLen)
	}

	if !plainScanner.Scan() {
		return "", false
	}

	return plainScanner.Text(), true
}

//
// The REPL.  Numbered lines go to the editor; everything else is
// either a session command or an immediate statement executed from
// the command area below PAGE
//

func repl(ip *interp, interactive bool, stats bool) {

	for !g.exiting {
		prompt := ""
		if interactive {
			prompt = myPrompt
		}

		text, ok := readLine(prompt, true)
		if !ok {
			return
		}

		text = strings.TrimRight(text, " ")

		if strings.TrimSpace(text) == "" {
			continue
		}

		if lineno, rest := splitLineno(text); lineno > 0 {
			enterLine(lineno, rest)
			continue
		}

		runCommand(ip, text, stats)
	}
}

func runCommand(ip *interp, text string, stats bool) {

	text = strings.TrimLeft(text, " ")

	word := strings.ToUpper(firstWord(text))
	rest := strings.TrimSpace(text[len(firstWord(text)):])

	switch word {
	case "RUN":
		runStoredProgram(ip, stats)

	case "LIST":
		listProgram(ip.out)

	case "NEW":
		if checkModified() {
			initAvl()
			g.programFilename = ""
			g.modified = false
		}

	case "LOAD", "OLD":
		if rest == "" {
			fmt.Println("Filename required")
			return
		}

		if !checkModified() {
			return
		}

		if err := loadProgram(defaultSuffix(rest)); err != nil {
			fmt.Printf("Unable to load %s: %v\n", rest, err)
			return
		}

		g.programFilename = defaultSuffix(rest)

	case "SAVE":
		name := g.programFilename
		if rest != "" {
			name = defaultSuffix(rest)
		}

		if name == "" {
			fmt.Println("Filename required")
			return
		}

		if err := saveProgram(name); err != nil {
			fmt.Printf("Unable to save %s: %v\n", name, err)
			return
		}

		g.programFilename = name

	case "BYE":
		if checkModified() {
			g.exiting = true
		}

	case "HELP":
		printHelp(ip.out)

	default:
		executeImmediate(ip, text)
	}
}

func firstWord(text string) string {

	text = strings.TrimLeft(text, " ")

	idx := strings.IndexByte(text, ' ')
	if idx < 0 {
		return text
	}

	return text[:idx]
}

func checkModified() bool {

	if !g.modified {
		return true
	}

	return promptYesNo("Program modified, proceed anyway")
}

func promptYesNo(msg string) bool {

	for {
		text, ok := readLine(msg+" (y/n)? ", false)
		if !ok {
			return false
		}

		switch strings.ToLower(strings.TrimSpace(text)) {
		case "y", "yes":
			return true

		case "n", "no":
			return false
		}
	}
}

//
// Program execution entry points.  Faults that escape the run loop
// arrive here: runtime faults have already been routed past any
// handler, broken faults and QUIT terminate the session state
//

func runStoredProgram(ip *interp, stats bool) {

	if lineTreeFirst() == nil {
		fmt.Println("No program loaded")
		return
	}

	if errcode := ip.buildProgram(); errcode != errNone {
		fmt.Println(errorMessages[errcode])
		return
	}

	if ip.atProgEnd(ip.page) {
		return
	}

	ip.current = ip.findExec(ip.page)

	ip.startTime = time.Now()

	decodeRunResult(ip, func() {
		if fault := ip.runProgram(); fault != nil {
			ip.reportError(fault)
			ip.lasterror = errorDetails{code: fault.code, msg: fault.msg,
				line: fault.line}
		}
	})

	if stats {
		ip.printStatistics()
	}
}

func runProgramFile(ip *interp, filename string, stats bool) {

	if err := loadProgram(defaultSuffix(filename)); err != nil {
		fmt.Printf("Unable to load %s: %v\n", filename, err)
		ip.exitStatus = 1
		return
	}

	g.programFilename = defaultSuffix(filename)

	runStoredProgram(ip, stats)
}

// executeImmediate tokenizes one command-line statement into the
// area below PAGE and runs it

func executeImmediate(ip *interp, text string) {

	rec, errcode := lineRecord(0, text)
	if errcode != errNone {
		fmt.Println(errorMessages[errcode])
		return
	}

	if len(rec)+2 > int(ip.page) {
		fmt.Println(errorMessages[errNoRoom])
		return
	}

	copy(ip.window[0:], rec)
	ip.window[len(rec)] = 0
	ip.window[len(rec)+1] = 0

	ip.current = ip.findExec(0)

	decodeRunResult(ip, func() {
		if fault := ip.runProgram(); fault != nil {
			ip.reportError(fault)
			ip.lasterror = errorDetails{code: fault.code, msg: fault.msg,
				line: fault.line}
		}
	})
}

// decodeRunResult catches the non-local exits that are not routed
// through the Basic error machinery: QUIT requests and broken-
// interpreter faults

func decodeRunResult(ip *interp, body func()) {

	defer func() {
		e := recover()
		if e == nil {
			return
		}

		switch e := e.(type) {
		case *quitRequest:
			ip.exitStatus = e.status
			g.exiting = true

		case *brokenFault:
			fmt.Println(reportBroken(e))
			ip.resetProgramState()

		default:
			panic(e)
		}
	}()

	body()
}
