// Package fairdeck is the command line interface to the fairdeck toolbox: key
// material generation, zero-trust audits of archived game transcripts and
// maintenance of the transcript archive.
package fairdeck

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/fairdeck/fairdeck/fs"
	"github.com/fairdeck/fairdeck/key"
	"github.com/fairdeck/fairdeck/log"
)

// default output of the fairdeck operational commands
var output io.Writer = os.Stdout

// Automatically set through -ldflags
// Example: go install -ldflags "-X main.version=`git describe --tags`
//   -X main.buildDate=`date -u +%d/%m/%Y@%H:%M:%S` -X main.gitCommit=`git rev-parse HEAD`"
var (
	version   = "master"
	gitCommit = "none"
	buildDate = "unknown"
)

func banner() {
	fmt.Fprintf(output, "fairdeck %v (date %v, commit %v)\n", version, buildDate, gitCommit)
}

// DefaultConfigFolderName is the name of the folder containing the master key
// material. It is relative to the user's home directory.
const DefaultConfigFolderName = ".fairdeck"

// DefaultConfigFolder returns the default path of the configuration folder.
func DefaultConfigFolder() string {
	return path.Join(fs.HomeFolder(), DefaultConfigFolderName)
}

var folderFlag = &cli.StringFlag{
	Name:  "folder",
	Value: DefaultConfigFolder(),
	Usage: "Folder to keep the fairdeck key material, with absolute path.",
}

var verboseFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "If set, verbosity is at the debug level",
}

var dbFlag = &cli.StringFlag{
	Name:     "db",
	Usage:    "Folder containing the transcript archive (the fairdeck.db bolt file).",
	Required: true,
}

var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "Print the raw transcript JSON instead of a rendered summary.",
}

var hashOnlyFlag = &cli.BoolFlag{
	Name:  "hash",
	Usage: "Only print the transcript hash",
}

var exportLogFlag = &cli.StringFlag{
	Name:  "export-log",
	Usage: "Write the verifier audit log (JSON) to the given file after the audit.",
}

var metricsFlag = &cli.StringFlag{
	Name:  "metrics",
	Usage: "Launch a metrics server at the specified (host:)port.",
}

var appCommands = []*cli.Command{
	{
		Name: "generate-keypair",
		Usage: "Generate the master key material (fairdeck_master.private) " +
			"every per-game deck key is derived from.\n",
		Flags: toArray(folderFlag),
		Action: func(c *cli.Context) error {
			banner()
			return keygenCmd(c)
		},
	},
	{
		Name: "audit",
		Usage: "Replay every fairness check against an archived transcript " +
			"without trusting the server that produced it. The exit code is 0 " +
			"when all checks pass, 2 when a security alert fired and 1 on any " +
			"other failed check.\n",
		ArgsUsage: "<transcript.json> is the transcript file exported by the archive.",
		Flags:     toArray(exportLogFlag, metricsFlag, verboseFlag),
		Action:    auditCmd,
	},
	{
		Name:  "inspect",
		Usage: "Read transcripts directly from a local archive.",
		Subcommands: []*cli.Command{
			{
				Name: "show",
				Usage: "Print one archived transcript, identified by its game id. " +
					"The transcript hash is checked before printing.\n",
				ArgsUsage: "`GAMEID` is the id of the game to show.",
				Flags:     toArray(dbFlag, jsonFlag, hashOnlyFlag),
				Action:    showTranscriptCmd,
			},
			{
				Name:   "list",
				Usage:  "List every archived transcript in game id order.\n",
				Flags:  toArray(dbFlag),
				Action: listTranscriptsCmd,
			},
		},
	},
	{
		Name:  "util",
		Usage: "Maintenance commands for the transcript archive.",
		Subcommands: []*cli.Command{
			{
				Name: "backup",
				Usage: "Write a consistent copy of the transcript archive to the " +
					"given file while the archive stays readable.",
				ArgsUsage: "`FILE` is the destination of the backup.",
				Flags:     toArray(dbFlag),
				Action:    backupDBCmd,
			},
		},
	},
}

// CLI runs the fairdeck app
func CLI() *cli.App {
	app := cli.NewApp()
	app.Name = "fairdeck"
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(output, "fairdeck %v (date %v, commit %v)\n", version, buildDate, gitCommit)
	}

	app.ExitErrHandler = func(context *cli.Context, err error) {
		// override to prevent default behavior of calling OS.exit(1),
		// when tests expect to be able to run multiple commands.
	}
	app.Version = version
	app.Usage = "verifiable card game fairness toolbox"
	app.Commands = appCommands
	app.Flags = toArray(verboseFlag)
	return app
}

func keygenCmd(c *cli.Context) error {
	folder := c.String(folderFlag.Name)
	store, err := key.NewFileStore(folder)
	if err != nil {
		return fmt.Errorf("fairdeck: opening key store: %w", err)
	}
	if _, err := store.LoadMaterial(); err == nil {
		fmt.Fprintf(output, "Key material already present in %q.\nRemove it before generating new one\n", folder)
		return nil
	}
	material, err := key.NewMaterial(nil)
	if err != nil {
		return fmt.Errorf("fairdeck: generating key material: %w", err)
	}
	if err := store.SaveMaterial(material); err != nil {
		return fmt.Errorf("could not save key material: %w", err)
	}
	fullpath := path.Join(folder, key.KeyFolderName)
	absPath, err := filepath.Abs(fullpath)
	if err != nil {
		return fmt.Errorf("err getting full path: %w", err)
	}
	fmt.Fprintln(output, "Generated master key material at", absPath)
	return nil
}

func cliLogger(c *cli.Context) log.Logger {
	if c.Bool(verboseFlag.Name) {
		return log.New(nil, log.DebugLevel, false)
	}
	return log.DefaultLogger()
}

func toArray(flags ...cli.Flag) []cli.Flag {
	return flags
}

// ExitCode extracts the cli exit code from an error returned by app.Run. The
// app's ExitErrHandler is overridden so commands never call os.Exit
// themselves; the binary's main decides.
func ExitCode(err error) (int, bool) {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode(), true
	}
	return 0, false
}
