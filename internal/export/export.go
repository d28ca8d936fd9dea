// Package export renders catalog snapshots as CSV or JSON and publishes them
// to blob storage.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"crisprcatalog/pkg/domain"
)

// Format names a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for formats other than json and csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat maps a user supplied name to a Format. Empty means JSON.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Extension returns the file extension of f without the dot.
func (f Format) Extension() string { return string(f) }

// Columns is the CSV header. One row is written per target site.
var Columns = []string{
	"id", "name", "strain", "cas_type", "cas_description",
	"sequence", "pam", "start_pos", "end_pos", "strand", "gc_content",
	"created_at", "updated_at",
}

// Write encodes pathogens in format f.
func Write(w io.Writer, f Format, pathogens []domain.Pathogen) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, pathogens)
	case FormatJSON:
		return WriteJSON(w, pathogens)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// WriteJSON writes pathogens as an indented JSON array.
func WriteJSON(w io.Writer, pathogens []domain.Pathogen) error {
	if pathogens == nil {
		pathogens = []domain.Pathogen{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pathogens)
}

// WriteCSV flattens pathogens to one row per target site. A pathogen without
// targets still gets a row with empty target columns.
func WriteCSV(w io.Writer, pathogens []domain.Pathogen) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, p := range pathogens {
		base := []string{p.ID, p.Name, p.Strain, p.CasSystem.Type, p.CasSystem.Description}
		stamps := []string{formatTime(p.CreatedAt), formatTime(p.UpdatedAt)}
		if len(p.Targets) == 0 {
			record := append([]string{}, base...)
			record = append(record, "", "", "", "", "", "")
			record = append(record, stamps...)
			if err := writer.Write(record); err != nil {
				return err
			}
			continue
		}
		for _, t := range p.Targets {
			record := append([]string{}, base...)
			record = append(record,
				t.Sequence,
				t.PAM,
				strconv.Itoa(t.StartPos),
				strconv.Itoa(t.EndPos),
				t.Strand,
				strconv.FormatFloat(t.GCContent, 'f', -1, 64),
			)
			record = append(record, stamps...)
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
