package cmd

import (
	"fmt"

	"github.com/nmoretto/jobharvest/internal/seen"
)

type SeenCmd struct {
	Diff   SeenDiffCmd   `cmd:"" help:"Write unseen records (A-B) to JSON."`
	Update SeenUpdateCmd `cmd:"" help:"Merge new records into seen history JSON."`
}

type SeenDiffCmd struct {
	New   string `name:"new" required:"" help:"Path to new records JSON file (A)."`
	Seen  string `name:"seen" required:"" help:"Path to seen records JSON file (B). Missing file is treated as empty."`
	Out   string `name:"out" required:"" help:"Output path for unseen records JSON file (C)."`
	Stats bool   `name:"stats" help:"Print comparison stats."`
}

type SeenUpdateCmd struct {
	Seen  string `name:"seen" required:"" help:"Path to seen records JSON file (B). Missing file is treated as empty."`
	Input string `name:"input" required:"" help:"Path to input records JSON file to merge into seen history."`
	Out   string `name:"out" required:"" help:"Output path for updated seen records JSON."`
	Stats bool   `name:"stats" help:"Print merge stats."`
}

func (c *SeenDiffCmd) Run(ctx *Context) error {
	newRecords, err := seen.ReadRecords(c.New)
	if err != nil {
		return fmt.Errorf("read --new: %w", err)
	}
	seenRecords, err := seen.ReadRecordsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	unseenRecords, stats := seen.Diff(newRecords, seenRecords)
	if err := seen.WriteRecords(c.Out, unseenRecords); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}

	if c.Stats {
		_, err := fmt.Fprintf(
			ctx.Out,
			"total_new=%d total_seen=%d invalid_skipped=%d unseen_emitted=%d\n",
			stats.TotalNew,
			stats.TotalSeen,
			stats.InvalidSkipped(),
			stats.Unseen,
		)
		return err
	}

	return nil
}

func (c *SeenUpdateCmd) Run(ctx *Context) error {
	seenRecords, err := seen.ReadRecordsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}
	inputRecords, err := seen.ReadRecords(c.Input)
	if err != nil {
		return fmt.Errorf("read --input: %w", err)
	}

	mergedRecords, stats := seen.Merge(seenRecords, inputRecords)
	if err := seen.WriteRecords(c.Out, mergedRecords); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}

	if c.Stats {
		_, err := fmt.Fprintf(
			ctx.Out,
			"total_seen=%d total_input=%d invalid_skipped=%d added=%d total_out=%d\n",
			stats.TotalSeen,
			stats.TotalInput,
			stats.InvalidSkipped(),
			stats.Added,
			stats.TotalOut,
		)
		return err
	}

	return nil
}
