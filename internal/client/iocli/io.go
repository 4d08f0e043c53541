package iocli

//go:generate moq -out io_mock.go . IO

// IO is the terminal nautilusctl talks to
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	// ReadPin reads a secret without echo when input is a terminal
	ReadPin(prompt string) (string, error)
}
