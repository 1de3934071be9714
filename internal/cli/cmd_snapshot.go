package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/weft/internal/client"
	"github.com/randalmurphal/weft/internal/loom"
	"github.com/randalmurphal/weft/internal/util"
)

// snapshotDoc is the YAML document written by the snapshot command.
type snapshotDoc struct {
	WorkspaceID string             `yaml:"workspace_id"`
	TakenAt     time.Time          `yaml:"taken_at"`
	Missions    []*missionSnapshot `yaml:"missions"`
}

type missionSnapshot struct {
	Mission *loom.Mission `yaml:"mission"`
	Todos   []*loom.Todo  `yaml:"todos"`
}

// newSnapshotCmd creates the snapshot command.
func newSnapshotCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch workspace state and write it as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
			defer cancel()

			api := client.New(cfg.BackendURL)
			missions, err := api.ListMissions(ctx, cfg.WorkspaceID)
			if err != nil {
				return fmt.Errorf("list missions: %w", err)
			}

			doc := snapshotDoc{
				WorkspaceID: cfg.WorkspaceID,
				TakenAt:     time.Now().UTC(),
			}
			for _, m := range missions {
				todos, err := api.ListTodos(ctx, m.ID)
				if err != nil {
					return fmt.Errorf("list todos for %s: %w", m.ID, err)
				}
				doc.Missions = append(doc.Missions, &missionSnapshot{Mission: m, Todos: todos})
			}

			data, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal snapshot: %w", err)
			}

			if outFile == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := util.AtomicWriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Snapshot written to", outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "write snapshot to file instead of stdout")
	return cmd
}
