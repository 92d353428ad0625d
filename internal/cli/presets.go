package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dabble/pkg/presets"
)

// presetRow is one preset as shown by the presets command.
type presetRow struct {
	Name        string
	Description string
	Kind        string
	Status      string
	Available   bool
}

// presetRows describes every preset and whether it can be used with the
// given data directory.
func presetRows(dataDir string) []presetRow {
	dir := presets.DataDir(dataDir)
	var rows []presetRow
	for _, p := range presets.All() {
		r := presetRow{Name: p.Name, Description: p.Description, Kind: "membrane"}
		target := p
		if p.Alias != "" {
			target, _ = presets.Lookup(p.Alias)
		}
		if target.Water {
			r.Kind = "water"
		}
		switch path, ok := target.Find(dir); {
		case ok:
			r.Status, r.Available = path, true
		case target.Generated():
			r.Status, r.Available = "generated", true
		default:
			r.Status = "not installed"
		}
		if p.Alias != "" {
			r.Status = "→ " + p.Alias + " (" + r.Status + ")"
		}
		rows = append(rows, r)
	}
	return rows
}

// presetsCommand creates the presets command.
func (c *CLI) presetsCommand() *cobra.Command {
	var (
		dataDir string
		pick    bool
	)
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the named membrane and water patches",
		Long: `List the named patches accepted by build --membrane.

Installed patches are looked up in --data-dir or $DABBLE_DATA. The TIP3
water box is generated when it is not installed. With --pick an interactive
list is shown and the chosen name is printed, for use in scripts:

  dabble build protein.pdb -o out.pdb -M "$(dabble presets --pick)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := presetRows(dataDir)
			if pick {
				return runPresetPicker(rows)
			}
			t := newTable("Name", "Description", "Kind", "Status")
			for _, r := range rows {
				t.Row(r.Name, r.Description, r.Kind, r.Status)
			}
			fmt.Println(t.Render())
			if presets.DataDir(dataDir) == "" {
				printNextStep("Install patches", "export "+presets.DataDirEnv+"=/path/to/patches")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding preset patches (default: $DABBLE_DATA)")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a preset interactively and print its name")
	return cmd
}

func runPresetPicker(rows []presetRow) error {
	final, err := tea.NewProgram(NewPresetListModel(rows)).Run()
	if err != nil {
		return fmt.Errorf("preset picker: %w", err)
	}
	m, ok := final.(PresetListModel)
	if !ok || m.Selected == nil {
		return nil
	}
	fmt.Println(m.Selected.Name)
	return nil
}
