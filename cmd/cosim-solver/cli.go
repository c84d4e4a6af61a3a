package main

import (
    "os"

    "github.com/spf13/cobra"
)

// Options holds CLI options for the solver.
type Options struct {
    ConfigPath     string
    ConnectionName string
    Mode           string
    Format         string
    WorkingDir     string
    EchoLevel      int
    Dt             float64
    EndTime        float64
}

func newRootCmd() *cobra.Command {
    var opts Options
    cmd := &cobra.Command{
        Use:   "cosim-solver",
        Short: "Simple solver coupled through CoSimIO",
        Long: "Runs a small solver on a fixed triangle patch, standalone or coupled with " +
            "cosim-driver at one of the weak, strong or orchestrated coupling levels.",
        Example: `
# Weakly coupled run over FIFOs in the current directory
$ cosim-driver --mode weak --format pipe &
$ cosim-solver --mode weak --format pipe`,
        SilenceUsage: true,
        RunE: func(cmd *cobra.Command, args []string) error {
            if code := run(opts); code != 0 { os.Exit(code) }
            return nil
        },
    }
    f := cmd.Flags()
    f.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
    f.StringVar(&opts.ConnectionName, "connection", "external_simple_solver", "Connection name shared with the driver")
    f.StringVarP(&opts.Mode, "mode", "m", "standalone", "Coupling level: standalone, weak, strong or orchestrated")
    f.StringVar(&opts.Format, "format", "file", "Communication format: file, socket, pipe")
    f.StringVar(&opts.WorkingDir, "working-dir", "", "Directory used by the file and pipe transports")
    f.IntVar(&opts.EchoLevel, "echo-level", 0, "Connection verbosity (0 warnings, 1 info, 2 debug)")
    f.Float64Var(&opts.Dt, "dt", 0.1, "Time step")
    f.Float64Var(&opts.EndTime, "end-time", 0.5, "End time")
    cmd.AddCommand(newVersionCmd())
    return cmd
}

func newVersionCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "version",
        Short: "Display library and protocol versions",
        Run: func(cmd *cobra.Command, args []string) {
            cmd.Println(helloString())
        },
    }
}
