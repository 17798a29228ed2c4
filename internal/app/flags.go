package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// ConfigEnv names the environment variable consulted when --config is not given.
const ConfigEnv = "LIGHTLINK_CONFIG"

// ErrUsage is returned when the command line cannot be used.
var ErrUsage = errors.New("usage error")

// Flags is the parsed command line shared by the LightLink binaries.
type Flags struct {
	// ConfigPath is the YAML file to load, or "" for defaults.
	ConfigPath string

	// ShowVersion asks the binary to print its version and exit.
	ShowVersion bool

	// ShowHelp is set when --help was given; usage has been printed.
	ShowHelp bool

	// Args holds the positional arguments.
	Args []string
}

// ParseFlags parses args (without the program name) for the binary name.
// positional is the number of positional arguments required; usage text is
// written to out on error or --help. extra registers binary-specific flags.
func ParseFlags(name string, args []string, positional int, argsUsage string, out io.Writer, extra ...func(*pflag.FlagSet)) (*Flags, error) {
	var f Flags

	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVarP(&f.ConfigPath, "config", "c", "", "path to the YAML configuration file (default: $"+ConfigEnv+")")
	flagSet.BoolVar(&f.ShowVersion, "version", false, "print version information and exit")
	for _, register := range extra {
		register(flagSet)
	}
	flagSet.Usage = func() {
		fmt.Fprintf(out, "Usage: %s [flags] %s\n\nFlags:\n", name, argsUsage) //nolint:errcheck // usage output
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			f.ShowHelp = true
			return &f, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	if f.ConfigPath == "" {
		f.ConfigPath = os.Getenv(ConfigEnv)
	}

	f.Args = flagSet.Args()
	if f.ShowVersion {
		return &f, nil
	}
	if len(f.Args) != positional {
		flagSet.Usage()
		return nil, fmt.Errorf("%w: expected %d argument(s), got %d", ErrUsage, positional, len(f.Args))
	}

	return &f, nil
}
