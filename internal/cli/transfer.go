package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TWRT/tasksync/internal/models"
)

func encodeTasks(tasks models.Collection, format string) ([]byte, error) {
	if tasks == nil {
		tasks = models.Collection{}
	}
	switch format {
	case "json":
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		return yaml.Marshal(tasks)
	default:
		return nil, fmt.Errorf("unknown format %q, use json or yaml", format)
	}
}

func decodeTasks(data []byte, format string) (models.Collection, error) {
	var tasks models.Collection
	switch format {
	case "json":
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q, use json or yaml", format)
	}
	return tasks, nil
}

// formatFor picks the explicit format, else the file extension, else json.
func formatFor(explicit, path string) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the task list as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				data, err := encodeTasks(a.session.Snapshot(), formatFor(format, output))
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write export %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default from --output extension, else json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write, - or empty for stdout")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var format string
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge or replace tasks from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import %s: %w", args[0], err)
			}
			incoming, err := decodeTasks(data, formatFor(format, args[0]))
			if err != nil {
				return err
			}
			return opts.mutate(cmd, func(ctx context.Context, a *app) error {
				stats, err := a.session.Import(ctx, incoming, replace)
				if err != nil {
					return err
				}
				if replace {
					fmt.Fprintf(cmd.OutOrStdout(), "Replaced list with %d %s\n", stats.RemoteOnly, plural(stats.RemoteOnly, "task", "tasks"))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported: %d new, %d updated, %d kept local\n",
					stats.RemoteOnly, stats.RemoteWins, stats.LocalWins+stats.LocalOnly)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default from file extension)")
	cmd.Flags().BoolVar(&replace, "replace", false, "discard the current list instead of merging")
	return cmd
}
