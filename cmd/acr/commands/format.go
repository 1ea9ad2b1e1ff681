package commands

import (
	"fmt"
	"math"

	"github.com/wonny/acr/internal/transition"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	for i := 0; i < totalWidth; i++ {
		fmt.Print("─")
	}
	fmt.Println()
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintMatrix prints the observed rows of a transition table
func PrintMatrix(t transition.Table) {
	columns := []string{"Start"}
	widths := []int{5}
	for _, c := range t.Columns {
		columns = append(columns, c.String())
		widths = append(widths, 6)
	}
	columns = append(columns, "N")
	widths = append(widths, 6)

	fmt.Printf("\n[%s]\n", t.Kind)
	PrintTableHeader(columns, widths)
	for _, row := range t.Rows {
		if row.Count == 0 {
			continue
		}
		values := []string{row.Start.String()}
		for _, v := range row.Values {
			values = append(values, formatCell(v, t.Kind))
		}
		values = append(values, fmt.Sprintf("%d", row.Count))
		PrintTableRow(values, widths)
	}
}

func formatCell(v float64, kind transition.Kind) string {
	switch {
	case math.IsNaN(v):
		return "-"
	case kind == transition.Counts:
		if v == 0 {
			return "."
		}
		return fmt.Sprintf("%d", int(v))
	case v == 0:
		return "."
	default:
		return fmt.Sprintf("%.3f", v)
	}
}
