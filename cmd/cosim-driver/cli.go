package main

import (
    "os"

    "github.com/spf13/cobra"
)

// Options holds CLI options for the driver.
type Options struct {
    ConfigPath     string
    ConnectionName string
    Mode           string
    Format         string
    WorkingDir     string
    EchoLevel      int
    Iterations     int
    Dt             float64
    EndTime        float64
}

func newRootCmd() *cobra.Command {
    var opts Options
    cmd := &cobra.Command{
        Use:   "cosim-driver",
        Short: "Co-simulation partner for cosim-solver",
        Long: "Plays the co-simulation side for cosim-solver: answers its exchanges in the weak " +
            "and strong modes and drives its run loop in the orchestrated mode.",
        SilenceUsage: true,
        RunE: func(cmd *cobra.Command, args []string) error {
            if code := run(opts); code != 0 { os.Exit(code) }
            return nil
        },
    }
    f := cmd.Flags()
    f.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
    f.StringVar(&opts.ConnectionName, "connection", "external_simple_solver", "Connection name shared with the solver")
    f.StringVarP(&opts.Mode, "mode", "m", "weak", "Coupling level: weak, strong or orchestrated")
    f.StringVar(&opts.Format, "format", "file", "Communication format: file, socket, pipe")
    f.StringVar(&opts.WorkingDir, "working-dir", "", "Directory used by the file and pipe transports")
    f.IntVar(&opts.EchoLevel, "echo-level", 0, "Connection verbosity (0 warnings, 1 info, 2 debug)")
    f.IntVar(&opts.Iterations, "iterations", 3, "Coupling iterations per step in strong mode")
    f.Float64Var(&opts.Dt, "dt", 0.1, "Time step; must match the solver")
    f.Float64Var(&opts.EndTime, "end-time", 0.5, "End time; must match the solver")
    return cmd
}
