package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/nfrund/parley/internal/topicmgr"
)

// topicView is the JSON shape of a topic.
type topicView struct {
	Name        string         `json:"name"`
	Scope       string         `json:"scope"`
	Module      string         `json:"module,omitempty"`
	Description string         `json:"description"`
	Example     string         `json:"example,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func viewOf(t topicmgr.Topic) topicView {
	return topicView{
		Name:        t.Name(),
		Scope:       string(t.Scope()),
		Module:      t.Module(),
		Description: t.Description(),
		Example:     t.Example(),
		Metadata:    t.Metadata(),
	}
}

func writeTopics(w io.Writer, topics []topicmgr.Topic, format string) error {
	switch format {
	case "json":
		views := make([]topicView, len(topics))
		for i, t := range topics {
			views[i] = viewOf(t)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Topics []topicView `json:"topics"`
			Count  int         `json:"count"`
		}{views, len(views)})
	case "table":
		if len(topics) == 0 {
			_, err := fmt.Fprintln(w, "No topics found")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSCOPE\tMODULE\tDESCRIPTION")
		for _, t := range topics {
			module := t.Module()
			if module == "" {
				module = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name(), t.Scope(), module, truncate(t.Description(), 60))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q: use table or json", format)
	}
}

func writeTopicDetails(w io.Writer, t topicmgr.Topic, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(viewOf(t))
	}

	fmt.Fprintf(w, "Name:        %s\n", t.Name())
	fmt.Fprintf(w, "Scope:       %s\n", t.Scope())
	fmt.Fprintf(w, "Module:      %s\n", t.Module())
	fmt.Fprintf(w, "Description: %s\n", t.Description())
	if t.Example() != "" {
		fmt.Fprintf(w, "Example:     %s\n", t.Example())
	}

	metadata := t.Metadata()
	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "Metadata:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", k, metadata[k])
		}
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
