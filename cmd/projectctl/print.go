package main

import (
	"fmt"
	"io"

	projectshttp "github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/http"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/livesync"
)

// render writes a view the way the project list screen shows it.
func render(w io.Writer, v livesync.View) {
	switch v.State {
	case livesync.StateIdle:
		fmt.Fprintln(w, "Signed out.")
		return
	case livesync.StateSubscribing:
		fmt.Fprintln(w, "Loading projects...")
		return
	case livesync.StateFailed:
		fmt.Fprintf(w, "Failed to load projects: %v\n", v.Err)
		if v.Empty() {
			return
		}
		fmt.Fprintln(w, "Last known projects:")
	}

	if v.Empty() {
		fmt.Fprintln(w, projectshttp.EmptyMessage)
		return
	}
	for _, p := range v.Projects {
		fmt.Fprintf(w, "%s  %s\n", p.ID, p.Name)
		if p.Description != "" {
			fmt.Fprintf(w, "    %s\n", p.Description)
		}
		if label := p.DisplayDate(); label != "" {
			fmt.Fprintf(w, "    Created %s\n", label)
		}
	}
}
