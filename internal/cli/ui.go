package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/dabble/pkg/builder"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// newTable returns a table in the CLI's house style.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// =============================================================================
// Build Summary
// =============================================================================

func formatBox(b geom.Vec3) string {
	return fmt.Sprintf("%.1f × %.1f × %.1f Å", b[0], b[1], b[2])
}

func formatCharge(q float64) string {
	return fmt.Sprintf("%+.0f", q)
}

// formatRemoved lists the non-zero atom removal counts of a build.
func formatRemoved(rep builder.Report) string {
	var parts []string
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(rep.Trimmed, "trimmed")
	add(rep.BoundaryTrimmed, "at boundary")
	add(rep.Water.Overlap, "slab overlap")
	add(rep.Clashes.Solvent, "solvent clash")
	add(rep.Clashes.Lipid, "lipid clash")
	add(rep.Clashes.Ring, "ring clash")
	add(rep.Clashes.Boundary+rep.Clashes.SideChain, "boundary clash")
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// lipidTable shows lipid counts before and after clash removal, or ""
// for solvent-only builds.
func lipidTable(rep builder.Report) string {
	if len(rep.InitialLipids) == 0 {
		return ""
	}
	t := newTable("Lipid", "Before", "After")
	for _, name := range slices.Sorted(maps.Keys(rep.InitialLipids)) {
		t.Row(name, fmt.Sprint(rep.InitialLipids[name]), fmt.Sprint(rep.FinalLipids[name]))
	}
	return t.Render()
}

// printBuildSummary prints the outcome of a build.
func printBuildSummary(res *pipeline.Result) {
	rep := res.Report
	kind := "membrane"
	if rep.WaterOnly {
		kind = "solvent only"
	}

	printSuccess("Built %s system", kind)
	printFile(res.Output)
	fmt.Println()
	printKeyValue("Box", formatBox(rep.Box))
	printKeyValue("Orientation", rep.Orientation)
	printKeyValue("Tiles", fmt.Sprintf("%d × %d × %d", rep.TileFactors[0], rep.TileFactors[1], rep.TileFactors[2]))
	if rep.Water.Above > 0 || rep.Water.Below > 0 {
		printKeyValue("Water added", fmt.Sprintf("%.1f Å above, %.1f Å below", rep.Water.Above, rep.Water.Below))
	}
	printKeyValue("Removed", formatRemoved(rep))
	printKeyValue("Ions", fmt.Sprintf("%d cations, %d anions (%d renamed)", rep.Ions.Cations, rep.Ions.Anions, rep.Ions.Renamed))
	printKeyValue("Charge", fmt.Sprintf("solute %s, final %s", formatCharge(rep.SoluteCharge), formatCharge(rep.FinalCharge)))
	printKeyValue("Atoms", fmt.Sprintf("%d (%d waters)", rep.Atoms, rep.Waters))
	if t := lipidTable(rep); t != "" {
		fmt.Println(t)
	}
	for _, f := range res.ExtraTopos {
		printDetail("topology %s", f)
	}
	for _, f := range res.ExtraParams {
		printDetail("parameters %s", f)
	}
}
