package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/s0up4200/go-replicate/replicate"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPrediction(p *replicate.Prediction) error {
	if jsonOut {
		return printJSON(p)
	}

	fmt.Printf("%s  %s\n", p.ID, statusLabel(p.Status))
	fmt.Println(strings.Repeat("━", 50))
	if p.Model != "" {
		fmt.Printf("Model:   %s\n", p.Model)
	}
	if p.Version != "" {
		fmt.Printf("Version: %s\n", p.Version)
	}
	fmt.Printf("Created: %s\n", p.CreatedAt.Format(time.RFC3339))
	if p.StartedAt != nil && p.CompletedAt != nil {
		fmt.Printf("Ran for: %s\n", p.CompletedAt.Sub(*p.StartedAt).Round(time.Millisecond))
	}
	if p.Error != "" {
		fmt.Printf("Error:   %s\n", p.Error)
	}
	if p.Output != nil {
		out, err := json.MarshalIndent(p.Output, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Printf("Output:\n%s\n", out)
	}
	return nil
}

func printPredictionLine(p replicate.Prediction) {
	model := p.Model
	if model == "" {
		model = p.Version
	}
	fmt.Printf("• %s  %-10s  %s  %s\n", p.ID, p.Status, p.CreatedAt.Format("2006-01-02 15:04"), model)
}

func printFile(f *replicate.File) error {
	if jsonOut {
		return printJSON(f)
	}

	fmt.Printf("%s  %s\n", f.ID, f.Name)
	fmt.Println(strings.Repeat("━", 50))
	fmt.Printf("Type:    %s\n", f.ContentType)
	fmt.Printf("Size:    %s\n", formatSize(f.Size))
	fmt.Printf("Created: %s\n", f.CreatedAt.Format(time.RFC3339))
	if f.ExpiresAt != nil {
		fmt.Printf("Expires: %s\n", f.ExpiresAt.Format(time.RFC3339))
	}
	if u := f.GetURL(); u != "" {
		fmt.Printf("URL:     %s\n", u)
	}
	return nil
}

func printFileLine(f replicate.File) {
	fmt.Printf("• %s  %-24s  %10s  %s\n", f.ID, f.ContentType, formatSize(f.Size), f.Name)
}

func statusLabel(s replicate.PredictionStatus) string {
	switch s {
	case replicate.StatusSucceeded:
		return "✓ succeeded"
	case replicate.StatusFailed:
		return "✗ failed"
	case replicate.StatusCanceled:
		return "⊘ canceled"
	default:
		return string(s)
	}
}

func formatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(n)/unit/unit)
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/unit/unit/unit)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
