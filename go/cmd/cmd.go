package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lunixbochs/elfinfo/go/info"
	"github.com/lunixbochs/elfinfo/go/loader"
	"github.com/lunixbochs/elfinfo/go/models"
)

type ElfCmd struct {
	Config *models.Config

	SetupFlags func() error
	// RunElf is called once the image is loaded. Options parsed by SetupFlags
	// are available by then.
	RunElf func(e *info.ElfInfo, l *loader.ElfLoader) error

	// RunRaw runs before any file is loaded. If it reports the command as
	// handled, RunElf is skipped.
	RunRaw func(args []string) (bool, error)

	// LoadConfig supplies the settings that flags are overlaid on.
	LoadConfig func() (*models.Config, error)

	Flags *flag.FlagSet
	Log   *logrus.Logger
	Out   io.Writer
	Err   io.Writer
}

func NewElfCmd() *ElfCmd {
	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	log := logrus.New()
	log.Out = os.Stderr
	return &ElfCmd{
		LoadConfig: models.LoadConfig,
		Flags:      fs,
		Log:        log,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *ElfCmd) PrintError(err error) {
	// print an error, and a stacktrace if available
	fmt.Fprintf(c.Err, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(c.Err, "Error: %s\n", err)
	if err, ok := err.(stackTracer); ok {
		for _, f := range err.StackTrace() {
			method := fmt.Sprintf("%s", f)
			fullpath := ""
			tmp := strings.SplitN(fmt.Sprintf("%+s", f), "\n", 2)
			if len(tmp) == 2 {
				pathsplit := strings.Split(tmp[0], "/")
				method = pathsplit[len(pathsplit)-1]
				fullpath = strings.TrimSpace(tmp[1])
			}
			fmt.Fprintf(c.Err, "  %s() %s:%d\n", method, fullpath, f)
			if method == "main.main" {
				break
			}
		}
	}
}

// Color wraps s in an ansi style when color output is enabled.
func (c *ElfCmd) Color(s, style string) string {
	if c.Config == nil || !c.Config.Color {
		return s
	}
	return ansi.Color(s, style)
}

func (c *ElfCmd) Printf(format string, a ...interface{}) {
	fmt.Fprintf(c.Out, format, a...)
}

// parseConfig overlays explicitly set flags onto the config file.
func (c *ElfCmd) parseConfig(argv []string) error {
	fs := c.Flags
	base := fs.Uint64("base", 0, "load bias for ET_DYN images")
	ibase := fs.Uint64("ibase", 0, "interpreter base address, adds AT_BASE to the auxv")
	pagesz := fs.Uint64("pagesz", models.HostPageSize(), "target page size")
	prefix := fs.String("prefix", "", "library load prefix (sysroot) for the interpreter path")
	color := fs.Bool("color", isatty.IsTerminal(os.Stdout.Fd()), "colorize output")
	verbose := fs.Bool("v", false, "verbose output")

	fs.Usage = func() {
		fmt.Fprintf(c.Err, "Usage: %s [options] <exe>\n\nOptions:\n", argv[0])
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(c.Err, flags)
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			return err
		}
	}
	if err := fs.Parse(argv[1:]); err != nil {
		return err
	}

	config, err := c.LoadConfig()
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base":
			config.ForceBase = *base
		case "ibase":
			config.ForceInterpBase = *ibase
		case "pagesz":
			config.PageSize = *pagesz
		case "prefix":
			config.LoadPrefix = *prefix
		case "color":
			config.Color = *color
		case "v":
			config.Verbose = *verbose
		}
	})
	if !isSet(fs, "color") {
		config.Color = config.Color || *color
	}
	if config.PageSize == 0 || config.PageSize&(config.PageSize-1) != 0 {
		return errors.Errorf("page size %d is not a power of two", config.PageSize)
	}
	c.Config = config
	if config.Verbose {
		c.Log.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func (c *ElfCmd) load(exe string) (*info.ElfInfo, *loader.ElfLoader, error) {
	l, err := loader.LoadFile(exe)
	if err != nil {
		return nil, nil, err
	}
	e, err := info.New(l, c.Config.ForceBase)
	if err != nil {
		return nil, nil, err
	}
	c.Log.WithFields(logrus.Fields{
		"file": exe,
		"type": l.Header().Type,
		"arch": l.Arch(),
		"bias": fmt.Sprintf("0x%x", c.Config.ForceBase),
		"base": fmt.Sprintf("0x%x", e.Base()),
	}).Debug("resolved load base")
	if interp := e.Interp(); interp != "" {
		c.Log.WithField("interp", c.Config.PrefixPath(interp, false)).Debug("image requests an interpreter")
	}
	return e, l, nil
}

// InterpBase is the -ibase value, or nil if none was configured.
func (c *ElfCmd) InterpBase() *uint64 {
	if c.Config.ForceInterpBase == 0 {
		return nil
	}
	base := c.Config.ForceInterpBase
	return &base
}

func (c *ElfCmd) Run(argv []string) int {
	if err := c.parseConfig(argv); err != nil {
		c.PrintError(err)
		return 1
	}
	args := c.Flags.Args()
	if c.RunRaw != nil {
		handled, err := c.RunRaw(args)
		if err != nil {
			c.PrintError(err)
			return 1
		} else if handled {
			return 0
		}
	}
	if len(args) != 1 {
		c.Flags.Usage()
		return 1
	}
	e, l, err := c.load(args[0])
	if err != nil {
		c.PrintError(err)
		return 1
	}
	if err := c.RunElf(e, l); err != nil {
		c.PrintError(err)
		return 1
	}
	return 0
}
