// Command vet runs raw NWS text products through the relay's parser offline
// and prints what each one would become. Useful when a product on the wire
// parsed unexpectedly: save the text, re-run it here, and see every decode
// step's outcome.
//
// Usage:
//
//	go run ./cmd/vet -states OH,IN product1.txt product2.txt
//	go run ./cmd/vet -at 2025-01-20T15:46:00Z saved/tornado_warning.txt
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/nws-alert-relay/internal/domain"
)

func main() {
	states := flag.String("states", "", "comma-separated state filter, empty for none")
	phenomena := flag.String("phenomena", "TO,SV,FF,SS,SPS", "comma-separated phenomenon filter")
	at := flag.String("at", "", "parse as if the current time were this RFC 3339 instant")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -at value: %v\n", err)
			os.Exit(1)
		}
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	parser := domain.NewParser(domain.ParseOptions{
		TargetPhenomena: splitList(*phenomena),
		FilterStates:    splitList(*states),
	})

	failures := 0
	for _, path := range flag.Args() {
		if !vetFile(parser, path) {
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func vetFile(parser *domain.Parser, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return false
	}

	fmt.Printf("=== %s ===\n", path)
	alert, err := parser.ParseTextAlert(string(data), "nwws")
	if err != nil {
		if reason := domain.RejectReason(err); reason != "" {
			fmt.Printf("rejected (%s): %v\n\n", reason, err)
			return true
		}
		fmt.Printf("PARSE FAILED: %v\n\n", err)
		return false
	}

	printAlert(alert)
	fmt.Println()
	return true
}

func printAlert(a *domain.Alert) {
	fmt.Printf("product:    %s (%s)\n", a.ProductID, a.EventName)
	fmt.Printf("status:     %s  priority %d\n", a.Status, a.Priority)
	fmt.Printf("office:     %s (%s)\n", a.SenderOffice, a.SenderName)
	if a.VTEC != nil {
		fmt.Printf("vtec:       %s.%s.%s ETN %d\n", a.VTEC.Action, a.VTEC.Phenomenon, a.VTEC.Significance, a.VTEC.EventTrackingNumber)
	}
	fmt.Printf("areas:      %s\n", strings.Join(a.AffectedAreas, " "))
	if a.DisplayLocations != "" {
		fmt.Printf("locations:  %s\n", a.DisplayLocations)
	}
	if a.IssuedTime != nil {
		fmt.Printf("issued:     %s\n", a.IssuedTime.Format(time.RFC3339))
	}
	if a.ExpirationTime != nil {
		fmt.Printf("expires:    %s\n", a.ExpirationTime.Format(time.RFC3339))
	}
	if len(a.Polygon) > 0 {
		points := 0
		for _, ring := range a.Polygon {
			points += len(ring)
		}
		fmt.Printf("polygon:    %d rings, %d points", len(a.Polygon), points)
		if a.Centroid != nil {
			fmt.Printf(", centroid %.4f,%.4f", a.Centroid[0], a.Centroid[1])
		}
		fmt.Println()
	}
	printThreat(&a.Threat)
}

func printThreat(t *domain.Threat) {
	var parts []string
	if t.TornadoDetection != nil {
		parts = append(parts, "tornado "+*t.TornadoDetection)
	}
	if t.MaxWindGustMPH != nil {
		parts = append(parts, fmt.Sprintf("gusts %d mph", *t.MaxWindGustMPH))
	}
	if t.MaxHailSizeInches != nil {
		parts = append(parts, fmt.Sprintf("hail %.2f in", *t.MaxHailSizeInches))
	}
	if t.SnowMaxInches != nil {
		parts = append(parts, fmt.Sprintf("snow up to %.1f in", *t.SnowMaxInches))
	}
	if t.IceInches != nil {
		parts = append(parts, fmt.Sprintf("ice %.2f in", *t.IceInches))
	}
	if t.StormMotion.IsValid() {
		parts = append(parts, fmt.Sprintf("moving from %d deg at %d mph", *t.StormMotion.DirectionDegrees, *t.StormMotion.SpeedMPH))
	}
	if t.IsPDS() {
		parts = append(parts, "PDS")
	}
	if len(parts) > 0 {
		fmt.Printf("threat:     %s\n", strings.Join(parts, "; "))
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
