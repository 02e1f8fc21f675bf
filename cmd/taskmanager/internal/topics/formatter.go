// Package topics prints the event topic catalogue for the command line.
package topics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nfrund/taskmanager/internal/topicmgr"
)

// TopicDisplay represents a topic for display purposes.
type TopicDisplay struct {
	Name        string   `json:"name"`
	Module      string   `json:"module"`
	Description string   `json:"description"`
	Payload     string   `json:"payload,omitempty"`
	Fields      []string `json:"fields,omitempty"`
	Example     string   `json:"example,omitempty"`
}

func toDisplay(t topicmgr.Topic) TopicDisplay {
	return TopicDisplay{
		Name:        t.Name,
		Module:      t.Module,
		Description: t.Description,
		Payload:     t.TypeName,
		Fields:      t.Fields,
		Example:     t.Example,
	}
}

// WriteTable writes topics as an aligned table.
func WriteTable(w io.Writer, topics []topicmgr.Topic) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tMODULE\tPAYLOAD\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t------\t-------\t-----------")
	for _, t := range topics {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			t.Name,
			orDash(t.Module),
			orDash(t.TypeName),
			truncateString(t.Description, 50))
	}
	return tw.Flush()
}

// WriteJSON writes topics with a count, for scripts.
func WriteJSON(w io.Writer, topics []topicmgr.Topic) error {
	displays := make([]TopicDisplay, len(topics))
	for i, t := range topics {
		displays[i] = toDisplay(t)
	}

	output := struct {
		Topics []TopicDisplay `json:"topics"`
		Count  int            `json:"count"`
	}{
		Topics: displays,
		Count:  len(displays),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// WriteDetails writes everything known about one topic.
func WriteDetails(w io.Writer, t topicmgr.Topic, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(toDisplay(t))
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Name:\t%s\n", t.Name)
		fmt.Fprintf(tw, "Module:\t%s\n", orDash(t.Module))
		fmt.Fprintf(tw, "Description:\t%s\n", orDash(t.Description))
		fmt.Fprintf(tw, "Payload:\t%s\n", orDash(t.TypeName))
		fmt.Fprintf(tw, "Fields:\t%s\n", orDash(strings.Join(t.Fields, ", ")))
		if t.Example != "" {
			fmt.Fprintf(tw, "Example:\t%s\n", t.Example)
		}
		fmt.Fprintf(tw, "Registered:\t%s\n", t.RegisteredAt.Format(time.RFC3339))
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q, use 'table' or 'json'", format)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
