package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/muesli/termenv"
	"github.com/nmoretto/jobharvest/internal/models"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

func WriteRecords(w io.Writer, records []models.JobRecord, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatCSV:
		return writeCSV(w, records, ',')
	case FormatTSV:
		return writeCSV(w, records, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, records)
	default:
		return writeTable(w, records, opts)
	}
}

func writeJSON(w io.Writer, records []models.JobRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeCSV(w io.Writer, records []models.JobRecord, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(csvHeader()); err != nil {
		return err
	}
	for _, record := range records {
		if err := writer.Write(csvRow(record)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, records []models.JobRecord, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, record := range records {
		fmt.Fprintln(tw, strings.Join(tableRow(record, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, records []models.JobRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, record := range records {
		urlLine := "  URL: -"
		if link := safe(record.URL); link != "" {
			urlLine = fmt.Sprintf("  URL: [Open listing](<%s>)", link)
		}
		lines := []string{
			fmt.Sprintf("- **%s** (%s)", orDash(record.Title), orDash(record.Company)),
			fmt.Sprintf("  Location: %s", orDash(record.Location)),
			urlLine,
		}
		if record.Salary != "" {
			lines = append(lines, fmt.Sprintf("  Salary: %s", safe(record.Salary)))
		}
		if record.JobType != "" {
			lines = append(lines, fmt.Sprintf("  Type: %s", safe(record.JobType)))
		}
		if record.DatePosted != "" {
			lines = append(lines, fmt.Sprintf("  Posted: %s", safe(record.DatePosted)))
		}
		if record.DescriptionText != "" {
			lines = append(lines, fmt.Sprintf("  Summary: %s", truncate(record.DescriptionText, 240)))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func csvHeader() []string {
	return []string{
		"title",
		"company",
		"location",
		"salary",
		"job_type",
		"date_posted",
		"url",
		"keyword",
		"search_location",
		"category",
		"source",
		"captured_at",
	}
}

func csvRow(record models.JobRecord) []string {
	captured := ""
	if !record.CapturedAt.IsZero() {
		captured = record.CapturedAt.Format(time.RFC3339)
	}
	return []string{
		record.Title,
		record.Company,
		record.Location,
		record.Salary,
		record.JobType,
		record.DatePosted,
		record.URL,
		record.Keyword,
		record.SearchLocation,
		record.Category,
		record.Source,
		captured,
	}
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

func orDash(value string) string {
	if value = safe(value); value != "" {
		return value
	}
	return "-"
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 || len(value) <= max {
		return value
	}
	return strings.TrimSpace(value[:max]) + "..."
}

func tableHeader() []string {
	return []string{
		"title",
		"company",
		"location",
		"url",
	}
}

func tableRow(record models.JobRecord, output *termenv.Output, opts WriteOptions) []string {
	const linkColor = "#87CEEB"

	link := safe(record.URL)
	displayURL := "-"
	if link != "" {
		displayURL = link
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayURL = shortURLLabel(link)
		}
		if opts.ColorEnabled {
			displayURL = output.String(displayURL).Foreground(output.Color(linkColor)).String()
		}
		if opts.Hyperlinks {
			displayURL = hyperlink(link, displayURL)
		}
	}
	return []string{
		orDash(record.Title),
		orDash(record.Company),
		orDash(record.Location),
		displayURL,
	}
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
