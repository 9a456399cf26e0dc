package command

// Outcome is the result of dispatching a descriptor. It is one of
// TextOutcome, BinaryOutcome or ErrorOutcome.
type Outcome interface {
	// Message is the operator-facing text for the outcome.
	Message() string
	outcome()
}

type TextOutcome struct {
	Text   string
	Report *Report // set when the text reports a macro run
}

// BinaryOutcome carries a file for the operator, e.g. a screenshot.
type BinaryOutcome struct {
	Filename string
	Data     []byte
	Caption  string
}

type ErrorOutcome struct {
	Text string
	Err  error
}

func (o TextOutcome) Message() string   { return o.Text }
func (o BinaryOutcome) Message() string { return o.Caption }
func (o ErrorOutcome) Message() string  { return o.Text }

func (TextOutcome) outcome()   {}
func (BinaryOutcome) outcome() {}
func (ErrorOutcome) outcome()  {}

func Text(s string) Outcome { return TextOutcome{Text: s} }

func Failure(s string, err error) Outcome { return ErrorOutcome{Text: s, Err: err} }

// Failed reports whether o is an ErrorOutcome.
func Failed(o Outcome) bool {
	_, ok := o.(ErrorOutcome)
	return ok
}
