package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/mau"
	"github.com/sarchlab/mausim/tcam"
)

var (
	lookupStage int
	lookupTable int
	lookupKey   uint64
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Search a key in the TCAM of a logical table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		return lookupKeyIn(cmd.OutOrStdout(), cfg, lookupStage, lookupTable, lookupKey)
	},
}

func init() {
	lookupCmd.Flags().IntVarP(&lookupStage, "stage", "s", 0, "Stage of the table")
	lookupCmd.Flags().IntVarP(&lookupTable, "table", "t", 0, "Logical table")
	lookupCmd.Flags().Uint64VarP(&lookupKey, "key", "k", 0, "Search key")

	rootCmd.AddCommand(lookupCmd)
}

func lookupKeyIn(w io.Writer, cfg *config.Config, stage, lt int, key uint64) error {
	if stage < 0 || stage >= len(cfg.Stages) {
		return fmt.Errorf("stage %d is not configured", stage)
	}

	var table *config.TableConfig
	for i := range cfg.Stages[stage].Tables {
		if cfg.Stages[stage].Tables[i].LogicalTable == lt {
			table = &cfg.Stages[stage].Tables[i]
		}
	}

	if table == nil {
		return fmt.Errorf("logical table %d is not configured in stage %d", lt, stage)
	}

	e, err := mau.Build(stage, cfg)
	if err != nil {
		return err
	}

	array := e.Tcam(table.Tcam)
	hit := array.LookupKey(key)
	if hit == tcam.NoMatch {
		fmt.Fprintf(w, "key %#x: miss\n", key)
		return nil
	}

	pri, phys := hit, hit
	if cfg.LookupReturnPri {
		phys = array.Physical(hit)
	} else {
		pri = array.Priority(hit)
	}

	value, mask := array.ValueMask(phys)
	fmt.Fprintf(w, "key %#x: hit entry %d (index %d) value %#x mask %#x\n",
		key, pri, phys, value, mask)

	return nil
}
