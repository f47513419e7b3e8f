package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"astrocat/fetch"
	"astrocat/inspect"
	"astrocat/migrate"
	"astrocat/survey"
)

type CmdArgs struct {
	Verbose bool           `short:"v" long:"verbose" description:"Increase verbosity level"`
	Schemas []string       `long:"schemas" description:"Optional YAML file with extra survey schemas, can be repeated"`
	Fetch   fetch.Config   `command:"fetch" description:"Query the survey catalogues around a sky position and save them as CSV"`
	Inspect inspect.Config `command:"inspect" description:"Summarise a saved catalogue"`
	Migrate migrate.Config `command:"migrate" description:"Copy saved catalogues to the archive database"`
}

// setup applies the global options, it runs before any command
func (args *CmdArgs) setup() error {
	if args.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	for _, path := range args.Schemas {
		if err := survey.RegisterFile(path); err != nil {
			return err
		}
		slog.Debug(fmt.Sprintf("Registered survey schemas from '%s'", path))
	}
	return nil
}

func newParser(args *CmdArgs) *flags.Parser {
	parser := flags.NewParser(args, flags.Default)
	parser.CommandHandler = func(command flags.Commander, rest []string) error {
		if err := args.setup(); err != nil {
			return err
		}
		if command == nil {
			return nil
		}
		return command.Execute(rest)
	}
	return parser
}

func main() {
	// .env is optional, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn(fmt.Sprintf("Could not load .env: %s", err))
	}

	args := CmdArgs{}
	if _, err := newParser(&args).Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		fmt.Println("Type 'astrocat -h' for help")
		os.Exit(1)
	}
}
