package cloud

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Render formats a cloud as text or JSON.
func Render(c *Cloud, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return renderText(c), nil
	case FormatJSON:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal cloud: %w", err)
		}
		return string(data), nil
	}
	return "", &ConfigError{Key: "format", Reason: fmt.Sprintf("unknown format %q (want text or json)", format)}
}

func renderText(c *Cloud) string {
	var sb strings.Builder
	if c.Notice != "" {
		sb.WriteString(c.Notice)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "%s cloud from %s, %d entries\n\n", kindTitle(c.Kind), c.Options.Source, len(c.Entries))

	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tWEIGHT\tCOUNT\tSEARCH")
	for _, e := range c.Entries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Label, e.Weight, e.Count, e.Search)
	}
	_ = w.Flush()
	return sb.String()
}

func kindTitle(k Kind) string {
	switch k {
	case KindTags:
		return "Tag"
	case KindLinks:
		return "Link"
	default:
		return "Word"
	}
}
