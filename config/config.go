// Package config holds the configuration of a match-action pipe: policy
// constants of the hardware generation, per-stage feature flags and the
// logical tables programmed into each stage.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/mausim/lookup"
	"github.com/sarchlab/mausim/tcam"
)

const (
	// MaxStages is the number of match-action stages of a pipe.
	MaxStages = 12
	// MaxLogicalTables is the number of logical tables of a stage.
	MaxLogicalTables = 16
	// NextTableEnd is the next table id that ends the pipe.
	NextTableEnd = 0xFF
)

// TableID builds a pipe-wide next table id from a stage and a logical table.
func TableID(stage, logicalTable int) int {
	return stage<<4 | logicalTable
}

// TableStage returns the stage of a next table id.
func TableStage(id int) int {
	return id >> 4
}

// TableLogical returns the logical table of a next table id.
func TableLogical(id int) int {
	return id & 0xF
}

// KeyField selects bits of a Phv word that form part of a search key.
// Fields are packed from the least significant key bit upward.
type KeyField struct {
	Word  int  `json:"word"`
	Lsb   uint `json:"lsb"`
	Width uint `json:"width"`
}

// EntryConfig is one ternary entry with its indirection word.
type EntryConfig struct {
	Value uint64 `json:"value"`
	Mask  uint64 `json:"mask"`
	// Boundary ends a range after this entry. Entries without it are
	// linked to the entry that follows, and a hit on any entry of a range
	// reports the data, next table and hit entry of the range's first
	// entry. Set it on every entry for independent entries.
	Boundary bool  `json:"boundary"`
	Payload0 uint8 `json:"payload0"`
	Payload1 uint8 `json:"payload1"`
	// Data is driven on the result bus when the entry hits.
	Data      uint64 `json:"data"`
	NextTable int    `json:"next_table"`
}

// GatewayRow is one row of a gateway table.
type GatewayRow struct {
	Value     uint64 `json:"value"`
	Mask      uint64 `json:"mask"`
	Inhibit   bool   `json:"inhibit"`
	NextTable int    `json:"next_table"`
}

// GatewayConfig is a gateway attached to a logical table. Rows are checked
// in order; a miss on every row lets the table run normally.
type GatewayConfig struct {
	Key  []KeyField   `json:"key"`
	Rows []GatewayRow `json:"rows"`
}

// TableConfig describes one logical table.
type TableConfig struct {
	LogicalTable int  `json:"logical_table"`
	Egress       bool `json:"egress"`
	// Kind is the match kind. Only "ternary" is modeled.
	Kind string `json:"kind"`
	// Tcam is the physical TCAM slot holding the entries.
	Tcam          int             `json:"tcam"`
	Key           []KeyField      `json:"key"`
	Bytemap       []tcam.ByteMode `json:"bytemap"`
	Layout        lookup.Layout   `json:"layout"`
	MissNextTable int             `json:"miss_next_table"`
	// ImmDataWord receives the immediate data of a hit when ImmDataEnable
	// is set.
	ImmDataEnable bool           `json:"imm_data_enable"`
	ImmDataWord   int            `json:"imm_data_word"`
	Entries       []EntryConfig  `json:"entries"`
	Gateway       *GatewayConfig `json:"gateway,omitempty"`
}

// StageFeatures holds the static feature flags of a stage.
type StageFeatures struct {
	// MustBeMatchDependent stages cannot be skipped by a next table.
	MustBeMatchDependent bool `json:"must_be_match_dependent"`
	// IgnoresStartTable makes the stage start at its first table of a
	// gress instead of the pipe start table. Indexed by gress, ingress
	// first.
	IgnoresStartTable [2]bool `json:"ignores_start_table"`
}

// StageConfig configures one stage.
type StageConfig struct {
	Features StageFeatures `json:"features"`
	Tables   []TableConfig `json:"tables"`
}

// Config is the configuration of a pipe.
type Config struct {
	// LookupReturnPri makes TCAM lookups return priorities instead of
	// physical indices. Default: false.
	LookupReturnPri bool `json:"lookup_return_pri"`

	// TcamMaxRangeSeparation bounds how far a TCAM hit is promoted.
	// Default: 4.
	TcamMaxRangeSeparation int `json:"tcam_max_range_separation"`

	// TcamLockGranularity is the number of TCAM entries per lock.
	// Default: 64.
	TcamLockGranularity int `json:"tcam_lock_granularity"`

	// TcamWidth is the TCAM word width in bits. Default: 44.
	TcamWidth uint `json:"tcam_width"`

	// TcamEntries is the number of entries per TCAM. Default: 512.
	TcamEntries int `json:"tcam_entries"`

	// NumTcams is the number of TCAMs of a stage. Default: 24.
	NumTcams int `json:"num_tcams"`

	// DataOfloThreshold is the number of consecutive data overflow events
	// tolerated before a hard failure. Default: 3.
	DataOfloThreshold int `json:"data_oflo_threshold"`

	// PhvSize is the number of Phv words. Default: 224.
	PhvSize int `json:"phv_size"`

	// StartTable is the pipe start table, ingress first.
	StartTable [2]int `json:"start_table"`

	Stages []StageConfig `json:"stages"`
}

// Default returns a configuration with MaxStages empty stages.
func Default() *Config {
	return &Config{
		LookupReturnPri:        false,
		TcamMaxRangeSeparation: 4,
		TcamLockGranularity:    64,
		TcamWidth:              44,
		TcamEntries:            512,
		NumTcams:               24,
		DataOfloThreshold:      3,
		PhvSize:                224,
		StartTable:             [2]int{TableID(0, 0), TableID(0, 0)},
		Stages:                 make([]StageConfig, MaxStages),
	}
}

// Load reads a configuration from a JSON file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// TcamConfig returns the TCAM array configuration.
func (c *Config) TcamConfig() tcam.Config {
	return tcam.Config{
		Entries:            c.TcamEntries,
		Width:              c.TcamWidth,
		MaxRangeSeparation: c.TcamMaxRangeSeparation,
		LockGranularity:    c.TcamLockGranularity,
		LookupReturnPri:    c.LookupReturnPri,
	}
}

// Features returns the feature flags of a stage. Stages without a
// configuration have no features.
func (c *Config) Features(stage int) StageFeatures {
	if stage < 0 || stage >= len(c.Stages) {
		return StageFeatures{}
	}

	return c.Stages[stage].Features
}

// FirstTable returns the lowest logical table of a gress in a stage, or -1
// when the stage has none.
func (c *Config) FirstTable(stage int, egress bool) int {
	if stage < 0 || stage >= len(c.Stages) {
		return -1
	}

	first := -1
	for _, t := range c.Stages[stage].Tables {
		if t.Egress == egress && (first < 0 || t.LogicalTable < first) {
			first = t.LogicalTable
		}
	}

	return first
}

func validNextTable(id int) bool {
	return id == NextTableEnd ||
		(id >= 0 && TableStage(id) < MaxStages)
}

// Validate checks the configuration for values the hardware cannot hold.
func (c *Config) Validate() error {
	if c.TcamWidth == 0 || c.TcamWidth > 64 {
		return fmt.Errorf("tcam_width must be in 1..64")
	}
	if c.TcamEntries <= 0 {
		return fmt.Errorf("tcam_entries must be > 0")
	}
	if c.NumTcams <= 0 {
		return fmt.Errorf("num_tcams must be > 0")
	}
	if c.TcamMaxRangeSeparation < 0 {
		return fmt.Errorf("tcam_max_range_separation must be >= 0")
	}
	if c.DataOfloThreshold <= 0 {
		return fmt.Errorf("data_oflo_threshold must be > 0")
	}
	if c.PhvSize <= 0 {
		return fmt.Errorf("phv_size must be > 0")
	}
	if len(c.Stages) > MaxStages {
		return fmt.Errorf("at most %d stages are supported", MaxStages)
	}
	for g, id := range c.StartTable {
		if !validNextTable(id) {
			return fmt.Errorf("start_table[%d] 0x%x is not a table id", g, id)
		}
	}

	for s, stage := range c.Stages {
		if err := c.validateStage(stage); err != nil {
			return fmt.Errorf("stage %d: %w", s, err)
		}
	}

	return nil
}

func (c *Config) validateStage(stage StageConfig) error {
	seen := make(map[int]bool)

	for _, t := range stage.Tables {
		if t.LogicalTable < 0 || t.LogicalTable >= MaxLogicalTables {
			return fmt.Errorf("logical table %d out of range", t.LogicalTable)
		}
		if seen[t.LogicalTable] {
			return fmt.Errorf("logical table %d configured twice", t.LogicalTable)
		}
		seen[t.LogicalTable] = true

		if err := c.validateTable(t); err != nil {
			return fmt.Errorf("logical table %d: %w", t.LogicalTable, err)
		}
	}

	return nil
}

func (c *Config) validateTable(t TableConfig) error {
	if t.Kind != "" && t.Kind != "ternary" {
		return fmt.Errorf("unsupported kind %q", t.Kind)
	}
	if t.Tcam < 0 || t.Tcam >= c.NumTcams {
		return fmt.Errorf("tcam %d out of range", t.Tcam)
	}
	if len(t.Entries) > c.TcamEntries {
		return fmt.Errorf("%d entries exceed the tcam size", len(t.Entries))
	}
	if !validNextTable(t.MissNextTable) {
		return fmt.Errorf("miss_next_table 0x%x is not a table id", t.MissNextTable)
	}
	if t.ImmDataEnable && (t.ImmDataWord < 0 || t.ImmDataWord >= c.PhvSize) {
		return fmt.Errorf("imm_data_word %d out of range", t.ImmDataWord)
	}
	if err := c.validateKey(t.Key); err != nil {
		return err
	}

	for i, e := range t.Entries {
		if !validNextTable(e.NextTable) {
			return fmt.Errorf("entry %d: next_table 0x%x is not a table id", i, e.NextTable)
		}
	}

	if t.Gateway != nil {
		if err := c.validateKey(t.Gateway.Key); err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
		for i, row := range t.Gateway.Rows {
			if !validNextTable(row.NextTable) {
				return fmt.Errorf("gateway row %d: next_table 0x%x is not a table id", i, row.NextTable)
			}
		}
	}

	return nil
}

func (c *Config) validateKey(key []KeyField) error {
	var width uint
	for _, f := range key {
		if f.Word < 0 || f.Word >= c.PhvSize {
			return fmt.Errorf("key word %d out of range", f.Word)
		}
		if f.Width == 0 || f.Lsb+f.Width > 32 {
			return fmt.Errorf("key field %d:%d does not fit a word", f.Lsb, f.Width)
		}
		width += f.Width
	}

	if width > c.TcamWidth {
		return fmt.Errorf("key width %d exceeds tcam width %d", width, c.TcamWidth)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Stages = make([]StageConfig, len(c.Stages))

	for s, stage := range c.Stages {
		clone.Stages[s].Features = stage.Features
		clone.Stages[s].Tables = make([]TableConfig, len(stage.Tables))

		for i, t := range stage.Tables {
			t.Key = append([]KeyField(nil), t.Key...)
			t.Bytemap = append([]tcam.ByteMode(nil), t.Bytemap...)
			t.Entries = append([]EntryConfig(nil), t.Entries...)
			if t.Gateway != nil {
				gw := *t.Gateway
				gw.Key = append([]KeyField(nil), gw.Key...)
				gw.Rows = append([]GatewayRow(nil), gw.Rows...)
				t.Gateway = &gw
			}
			clone.Stages[s].Tables[i] = t
		}
	}

	return &clone
}
