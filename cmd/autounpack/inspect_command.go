package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"autounpack/internal/config"
	"autounpack/internal/services/sevenzip"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "List an archive with the configured 7-Zip binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := ctx.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			client, err := sevenzip.New(cfg.SevenZip.Binary,
				sevenzip.WithEncoding(cfg.SevenZip.OutputEncoding),
				sevenzip.WithExtraArgs(cfg.SevenZip.ExtraArgs...),
			)
			if err != nil {
				return err
			}
			res, err := client.List(cmd.Context(), path, password)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderListing(res, shouldColorize(out)))
			return res.Err()
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Archive password")
	return cmd
}

func renderListing(res *sevenzip.Result, colorize bool) string {
	var b strings.Builder
	kind := statusOK
	if res.Code != sevenzip.CodeNoError {
		kind = statusError
	}
	b.WriteString(renderStatusLine("Archive", kind, fmt.Sprintf("%s (%s)", res.Path, res.Code.Description()), colorize))
	b.WriteString("\n")
	if res.IsVolume {
		b.WriteString(renderStatusLine("Volumes", statusInfo, strings.Join(res.VolumePaths(), ", "), colorize))
		b.WriteString("\n")
	}

	keys := make([]string, 0, len(res.Attrs))
	for key := range res.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	attrRows := make([][]string, 0, len(keys))
	for _, key := range keys {
		attrRows = append(attrRows, []string{key, res.Attrs[key]})
	}
	if len(attrRows) > 0 {
		b.WriteString(renderTable([]string{"Attribute", "Value"}, attrRows, nil))
		b.WriteString("\n")
	}

	entryRows := make([][]string, 0, len(res.Entries))
	var total int64
	for _, e := range res.Entries {
		if e.Size != nil {
			total += *e.Size
		}
		entryRows = append(entryRows, []string{e.DateTime, e.Attr, formatSize(e.Size), formatSize(e.Compressed), e.Name})
	}
	if len(entryRows) > 0 {
		b.WriteString(renderTable(
			[]string{"Modified", "Attr", "Size", "Packed", "Name"},
			entryRows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d entries, %s\n", len(entryRows), humanize.IBytes(uint64(total)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSize(size *int64) string {
	if size == nil {
		return ""
	}
	return humanize.IBytes(uint64(*size))
}
