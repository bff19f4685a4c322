// Command qrouter drives the router core without any scripting-language
// front end: flags select a design and a configuration, an optional script
// file (or stdin) supplies the scripted commands internal/router.Context
// dispatches, and the final exit code reports whether every net routed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/lixenwraith/qrouter/internal/config"
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/router"
	"github.com/lixenwraith/qrouter/internal/tech"
)

const (
	logDir      = "logs"
	logFileName = "qrouter.log"
	maxLogSize  = 10 * 1024 * 1024 // 10MB
)

// setupLogging sends log output to a rotating file under logDir when
// verbosity > 0, or discards it otherwise. Adapted from cmd/vi-fighter's
// function of the same name; the debug bool there becomes a verbosity
// threshold here since "verbose N" is a scripted command in its own right.
func setupLogging(verbosity int) *os.File {
	if verbosity <= 0 {
		log.SetOutput(io.Discard)
		return nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to create log directory: %v\n", err)
		log.SetOutput(io.Discard)
		return nil
	}

	logPath := filepath.Join(logDir, logFileName)
	if info, err := os.Stat(logPath); err == nil && info.Size() > maxLogSize {
		rotated := filepath.Join(logDir, fmt.Sprintf("qrouter-%s.log", time.Now().Format("2006-01-02-15-04-05")))
		if err := os.Rename(logPath, rotated); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to rotate log file: %v\n", err)
		}
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open log file: %v\n", err)
		log.SetOutput(io.Discard)
		return nil
	}
	log.SetOutput(f)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Printf("=== qrouter started ===")
	return f
}

// startArgs mirrors the "start" command's flag set: [-c cfg] [-v N]
// [-i info] [-p vdd-name] [-g gnd-name] [-s script] [-d delay-file]
// [-r resolution] [-f] [-e effort] design-basename.
type startArgs struct {
	configPath string
	verbosity  int
	info       string
	vddName    string
	gndName    string
	scriptPath string
	delayFile  string
	resolution int
	force      bool
	effort     int
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses the command line and returns the process exit code: 0 (all
// nets routed), 1 (some nets failed), or >=2 (a fatal setup/input error).
func run(args []string) int {
	var a startArgs
	exitCode := 2

	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	fs.StringVar(&a.configPath, "c", "", "configuration file")
	fs.IntVar(&a.verbosity, "v", 0, "logging and reporting verbosity")
	fs.StringVar(&a.info, "i", "", "print layer info and exit (all|maxlayer|N)")
	fs.StringVar(&a.vddName, "p", "", "Vdd net name")
	fs.StringVar(&a.gndName, "g", "", "ground net name")
	fs.StringVar(&a.scriptPath, "s", "", "scripted command file ('-' or omitted reads stdin)")
	fs.StringVar(&a.delayFile, "d", "", "delay output file")
	fs.IntVar(&a.resolution, "r", 0, "search resolution override")
	fs.BoolVar(&a.force, "f", false, "promote nodes with zero reachable taps to routable")
	fs.IntVar(&a.effort, "e", 0, "routing effort override")

	startCmd := &ffcli.Command{
		Name:       "start",
		ShortUsage: "qrouter start [flags] design-basename",
		ShortHelp:  "route a placed design identified by design-basename",
		FlagSet:    fs,
		Exec: func(_ context.Context, posArgs []string) error {
			exitCode = doStart(a, posArgs)
			return nil
		},
	}
	root := &ffcli.Command{
		ShortUsage:  "qrouter start [flags] design-basename",
		ShortHelp:   "detail router command-line front end",
		Subcommands: []*ffcli.Command{startCmd},
	}

	if err := root.Parse(args, ff.WithEnvVarPrefix("QROUTER")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := root.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return exitCode
}

// doStart builds a router.Context for basename and either prints layer
// info (-i) or runs the scripted command loop, returning the exit code
// doStart's own caller should propagate.
func doStart(a startArgs, posArgs []string) int {
	if len(posArgs) != 1 {
		fmt.Fprintln(os.Stderr, "qrouter start: expected exactly one design-basename argument")
		return 2
	}
	basename := posArgs[0]

	logFile := setupLogging(a.verbosity)
	if logFile != nil {
		defer logFile.Close()
	}

	t, d, err := loadDesign(basename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		cfg = loaded
	}
	if a.verbosity > 0 {
		cfg.Verbosity = a.verbosity
	}
	if a.vddName != "" {
		cfg.VddName = a.vddName
	}
	if a.gndName != "" {
		cfg.GndName = a.gndName
	}
	if a.resolution > 0 {
		cfg.Resolution = a.resolution
	}
	if a.effort > 0 {
		cfg.Effort = a.effort
	}
	cfg.ForceRoutable = cfg.ForceRoutable || a.force

	c, err := router.New(d, t, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if a.info != "" {
		if err := c.Dispatch("layer_info", strings.Fields(a.info)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		return 0
	}

	if err := runScript(c, a.scriptPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if len(c.Stage.Failed()) > 0 {
		return 1
	}
	return 0
}

// dispatcher is the subset of *router.Context's surface the command loop
// needs, narrowed so runScriptOver can be exercised against a fake without
// building a full grid/design/technology fixture.
type dispatcher interface {
	Dispatch(cmd string, args []string) error
}

// runScript reads one command per line from path ('-' or "" for stdin),
// dispatching each through c.
func runScript(c *router.Context, path string) error {
	var in io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("qrouter: opening script %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}
	return runScriptOver(c, in)
}

// runScriptOver dispatches one command per non-blank, non-comment line of
// in. A command that fails logs and continues, matching a script's
// tolerance for a single net failing to route; "quit" stops the loop early
// the same way reaching EOF does.
func runScriptOver(d dispatcher, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		cmd, cargs := fields[0], fields[1:]
		if cmd == "quit" {
			break
		}
		if err := d.Dispatch(cmd, cargs); err != nil {
			log.Printf("command %q failed: %v", cmd, err)
		}
	}
	return scanner.Err()
}

// loadDesign reads basename's technology (LEF-equivalent) and placed-netlist
// (DEF-equivalent) files. Parsing those file formats belongs to an external
// collaborator, not the router core: this is the one seam where a real
// parser plugs in *tech.Technology/*design.Design values built from
// basename.lef/basename.def. Until one is wired in, start reports the
// missing collaborator rather than silently routing an empty design.
func loadDesign(basename string) (*tech.Technology, *design.Design, error) {
	return nil, nil, fmt.Errorf("qrouter: no LEF/DEF reader is wired in for %s.lef/%s.def", basename, basename)
}
