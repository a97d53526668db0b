package main

import (
	"fmt"
	"io"
	"strings"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JustinBeckwith/flem/pkg/lib/project"
)

func printResolution(w io.Writer, res *project.Resolution) {
	var service, entrypoint string
	if res.Config != nil {
		service = res.Config.Service
		entrypoint = res.Config.Entrypoint
	}
	if service == "" {
		service = "default"
	}
	printTable(w,
		[]string{"RUNTIME", "SOURCE", "SERVICE", "ENTRYPOINT"},
		[]string{res.Runtime.String(), string(res.Source), service, entrypoint},
	)
}

func printStatusTable(w io.Writer, addr string, st healthpb.HealthCheckResponse_ServingStatus) {
	state := ""
	switch st {
	case healthpb.HealthCheckResponse_SERVING:
		state = "Container running"
	case healthpb.HealthCheckResponse_NOT_SERVING:
		state = "Container not running"
	default:
		state = "Unknown"
	}
	printTable(w, []string{"ADDRESS", "STATE"}, []string{addr, state})
}

// printTable prints a boxed table with a header row and one data row.
func printTable(w io.Writer, header, row []string) {
	widths := make([]int, len(header))
	for i := range header {
		widths[i] = len(header[i])
		if i < len(row) {
			widths[i] = maxInt(widths[i], len(row[i]))
		}
	}

	var sep strings.Builder
	sep.WriteString("+")
	for _, wd := range widths {
		sep.WriteString(strings.Repeat("-", wd+2))
		sep.WriteString("+")
	}
	sep.WriteString("\n")

	line := func(cells []string) {
		var b strings.Builder
		b.WriteString("|")
		for i, wd := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" " + pad(cell, wd) + " |")
		}
		fmt.Fprintln(w, b.String())
	}

	fmt.Fprint(w, sep.String())
	line(header)
	fmt.Fprint(w, sep.String())
	line(row)
	fmt.Fprint(w, sep.String())
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
