package main

import "fmt"

//
// The HELP command: a summary of the session commands.  Statement
// and function keywords are documented in the manual, not here
//

func printHelp(out lineWriter) {

	fmt.Fprint(out, `Session commands:

  RUN              run the stored program
  LIST             list the stored program
  NEW              discard the stored program
  LOAD <file>      load a program (OLD is a synonym)
  SAVE [<file>]    save the stored program
  BYE              leave the interpreter
  HELP             this summary

Anything else is executed immediately.  Lines starting with a
number are stored in the program; an empty numbered line deletes
that line.
`)
}
