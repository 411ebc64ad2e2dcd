package cmd

import (
	"fmt"
	"io"
	"strings"
)

type command struct {
	name, desc string
	main       func(args []string) int
}

// Launcher dispatches argv[1] to a registered subcommand. The subcommand
// sees "prog name" as its argv[0].
type Launcher struct {
	commands map[string]*command
	order    []string
	pad      int
}

func NewLauncher() *Launcher {
	return &Launcher{commands: make(map[string]*command)}
}

func (l *Launcher) Register(name, desc string, main func(args []string) int) {
	if _, ok := l.commands[name]; ok {
		panic(fmt.Sprintf("command %q registered twice", name))
	}
	if len(name) > l.pad {
		l.pad = len(name)
	}
	l.commands[name] = &command{name, desc, main}
	l.order = append(l.order, name)
}

func (l *Launcher) usage(prog string, w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fstr := fmt.Sprintf("%%-%ds | %%s\n", l.pad)
	for _, name := range l.order {
		cmd := l.commands[name]
		fmt.Fprintf(w, fstr, cmd.name, cmd.desc)
	}
	fmt.Fprintf(w, "\nExample: %s info -base 0x555555554000 /bin/ls\n\n", prog)
}

// Main runs the subcommand named by argv[1] and returns its exit code.
func (l *Launcher) Main(argv []string, stderr io.Writer) int {
	prog := "elfinfo"
	if len(argv) > 0 {
		prog = argv[0]
	}
	if len(argv) < 2 {
		l.usage(prog, stderr)
		return 1
	}
	cmd, ok := l.commands[argv[1]]
	if !ok {
		fmt.Fprintf(stderr, "Command '%s' not found.\n\n", argv[1])
		l.usage(prog, stderr)
		return 1
	}
	args := append([]string{strings.Join(argv[:2], " ")}, argv[2:]...)
	return cmd.main(args)
}

var launcher = NewLauncher()

func Register(name, desc string, main func(args []string) int) {
	launcher.Register(name, desc, main)
}

func Main(argv []string, stderr io.Writer) int {
	return launcher.Main(argv, stderr)
}
