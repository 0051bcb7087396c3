package main

import (
	"encoding/json"
	"fmt"
	"io"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/stream"
)

func writeJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printEvent(w io.Writer, event stream.Event, jsonOutput bool) error {
	if jsonOutput {
		data := json.RawMessage(event.Data)
		if !json.Valid(data) {
			data, _ = json.Marshal(string(event.Data))
		}
		return writeJSON(w, map[string]any{
			"event": event.Name,
			"data":  data,
		})
	}
	_, err := fmt.Fprintf(w, "%s\t%s\n", event.Name, event.Data)
	return err
}

func printToolsEvent(w io.Writer, payload []byte, jsonOutput bool) error {
	var event struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode %s event: %w", domain.EventTools, err)
	}
	if jsonOutput {
		return writeJSON(w, json.RawMessage(payload))
	}
	if _, err := fmt.Fprintf(w, "tools=%d\n", len(event.Tools)); err != nil {
		return err
	}
	for _, tool := range event.Tools {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description); err != nil {
			return err
		}
	}
	return nil
}

func printResultPayload(w io.Writer, label string, payload []byte, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, map[string]any{label: json.RawMessage(payload)})
	}
	_, err := fmt.Fprintln(w, string(payload))
	return err
}
