// hex: voice-driven personal assistant on Telegram (pgx or sqlite, Groq).
//
// Voice notes are transcribed and saved as journal entries. Messages that start
// with the wake word ("Гекс, ...") become host commands, gated by an explicit
// confirmation when they are dangerous, or reminders delivered by the scheduler.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
