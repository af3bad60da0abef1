package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/guardguys-scheduler/internal/client"
	"github.com/noah-isme/guardguys-scheduler/internal/request"
	"github.com/noah-isme/guardguys-scheduler/pkg/config"
	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

type target struct {
	Name     string
	Intent   request.Intent
	Critical bool
}

type comparison struct {
	Target       target
	StubKeys     []string
	LiveKeys     []string
	StubErr      string
	LiveErr      string
	ShapeMatch   bool
	DurationStub time.Duration
	DurationLive time.Duration
}

func main() {
	var (
		stubBase string
		liveBase string
		week     string
		timeout  time.Duration
	)

	flag.StringVar(&stubBase, "stub-base", "http://localhost:8080", "stub server base URL")
	flag.StringVar(&liveBase, "live-base", "https://guardguys.herokuapp.com", "live API base URL")
	flag.StringVar(&week, "week", dateutil.LocalDateString(time.Now()), "week anchor, MM-dd-yyyy")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	flag.Parse()

	anchor, err := time.ParseInLocation(dateutil.LocalDateLayout, week, time.Local)
	if err != nil {
		log.Fatalf("invalid week %q: %v", week, err)
	}

	stub := client.New(config.APIConfig{BaseURL: stubBase, Timeout: timeout}, nil, nil, nil)
	live := client.New(config.APIConfig{BaseURL: liveBase, Timeout: timeout}, nil, nil, nil)

	targets := []target{
		{Name: "members", Intent: request.GetMembers{}, Critical: true},
		{Name: "week " + dateutil.LocalDateString(dateutil.FirstDayOfWeek(anchor)), Intent: request.GetEvents{Date: anchor}, Critical: true},
	}

	var (
		comparisons []comparison
		breaking    int
	)
	for _, t := range targets {
		comp := compareTarget(context.Background(), stub, live, t)
		if !comp.ShapeMatch && t.Critical {
			breaking++
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d\n", breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

// compareTarget dispatches the same intent to both servers. Record values
// differ between deployments, so only the field sets and error codes are
// compared.
func compareTarget(ctx context.Context, stub, live *client.Client, tgt target) comparison {
	comp := comparison{Target: tgt}

	start := time.Now()
	stubBody, stubErr := stub.Execute(ctx, tgt.Intent)
	comp.DurationStub = time.Since(start)

	start = time.Now()
	liveBody, liveErr := live.Execute(ctx, tgt.Intent)
	comp.DurationLive = time.Since(start)

	if stubErr != nil || liveErr != nil {
		comp.StubErr = errorCode(stubErr)
		comp.LiveErr = errorCode(liveErr)
		comp.ShapeMatch = comp.StubErr == comp.LiveErr
		return comp
	}

	comp.StubKeys = recordKeys(stubBody)
	comp.LiveKeys = recordKeys(liveBody)
	comp.ShapeMatch = strings.Join(comp.StubKeys, ",") == strings.Join(comp.LiveKeys, ",")
	return comp
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return appErrors.FromError(err).Code
}

// recordKeys returns the sorted union of field names across the records of a
// JSON array body.
func recordKeys(body []byte) []string {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return []string{"<not an array of objects>"}
	}
	seen := make(map[string]struct{})
	for _, record := range records {
		for key := range record {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func printReport(results []comparison) {
	fmt.Println("Contract Compare Report")
	fmt.Println("=======================")
	for _, res := range results {
		status := "OK"
		if !res.ShapeMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s\n", status, res.Target.Name)
		fmt.Printf("  Stub: %s\n", res.DurationStub)
		fmt.Printf("  Live: %s\n", res.DurationLive)
		if res.StubErr != "" || res.LiveErr != "" {
			fmt.Printf("  Stub error: %q | Live error: %q\n", res.StubErr, res.LiveErr)
			continue
		}
		fmt.Printf("  Stub fields: %s\n", strings.Join(res.StubKeys, ","))
		fmt.Printf("  Live fields: %s\n", strings.Join(res.LiveKeys, ","))
	}
}
