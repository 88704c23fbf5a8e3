package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/akita/v4/datarecording"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/phv"
	"github.com/sarchlab/mausim/pipe"
	"github.com/sarchlab/mausim/trace"
)

type runOptions struct {
	packetsPath string
	recordPath  string
	recordSteps bool
	verbose     bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run packets through the pipe.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		return runPackets(cmd.OutOrStdout(), cfg, runOpts)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.packetsPath, "packets", "p", "",
		"Path to the packet JSON file")
	runCmd.Flags().StringVar(&runOpts.recordPath, "record", "",
		"Record lookup results into this SQLite database")
	runCmd.Flags().BoolVar(&runOpts.recordSteps, "record-steps", false,
		"Also record every step that runs")
	runCmd.Flags().BoolVarP(&runOpts.verbose, "verbose", "v", false,
		"Log every step to stderr")
	_ = runCmd.MarkFlagRequired("packets")

	rootCmd.AddCommand(runCmd)
}

func runPackets(w io.Writer, cfg *config.Config, opts runOptions) error {
	packets, err := pipe.LoadPackets(opts.packetsPath)
	if err != nil {
		return err
	}

	p, err := pipe.New(cfg)
	if err != nil {
		return err
	}

	var rec *trace.Recorder
	if opts.recordPath != "" {
		rec = trace.NewRecorder(datarecording.NewDataRecorder(opts.recordPath), opts.recordSteps)
		atexit.Register(rec.Flush)
		attach(p, rec)
	}

	if opts.verbose {
		attach(p, trace.NewStepLogger(log.New(os.Stderr, "", 0)))
	}

	for i, pk := range packets {
		ingress, egress := pk.Phvs(cfg.PhvSize)

		res, err := p.Process(ingress, egress)
		if err != nil {
			return fmt.Errorf("packet %d: %w", i, err)
		}

		printResult(w, i, res)

		if rec != nil {
			rec.NextPacket()
		}
	}

	stats := p.Stats()
	fmt.Fprintf(w, "\nPackets:      %d\n", stats.Packets)
	fmt.Fprintf(w, "Stage visits: %d\n", stats.StageVisits)
	fmt.Fprintf(w, "Hits:         %d\n", stats.Hits)
	fmt.Fprintf(w, "Oflo events:  %d\n", stats.OfloEvents)

	if rec != nil {
		rec.Flush()
		fmt.Fprintf(w, "Recorded run: %s\n", rec.RunID())
	}

	return nil
}

func attach(p *pipe.Pipe, h sim.Hook) {
	for s := 0; s < p.NumStages(); s++ {
		p.Stage(s).AcceptHook(h)
	}
}

func printResult(w io.Writer, n int, res pipe.Result) {
	fmt.Fprintf(w, "packet %d\n", n)

	for _, hop := range res.Hops {
		fmt.Fprintf(w, "  stage %2d  ingress next %#x  egress next %#x\n",
			hop.Stage, hop.IngressNext, hop.EgressNext)
	}

	printPhv(w, "ingress", res.Ingress)
	printPhv(w, "egress", res.Egress)
}

func printPhv(w io.Writer, name string, p *phv.Phv) {
	if p == nil {
		return
	}

	fmt.Fprintf(w, "  %s:", name)
	for i := 0; i < p.Size(); i++ {
		if p.IsValid(i) {
			fmt.Fprintf(w, " %d=%#x", i, p.Get(i))
		}
	}
	fmt.Fprintln(w)
}
