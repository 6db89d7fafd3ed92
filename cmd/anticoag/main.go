// Command anticoag is a small terminal client for the tracker API, built on
// the same SDK the mobile clients use.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"anticoag-tracker/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	baseURL := os.Getenv("ANTICOAG_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	var opts []sdk.Option
	if access := os.Getenv("ANTICOAG_ACCESS_TOKEN"); access != "" {
		opts = append(opts, sdk.WithSession(access, os.Getenv("ANTICOAG_REFRESH_TOKEN")))
	} else if debug := os.Getenv("ANTICOAG_DEBUG_USER"); debug != "" {
		opts = append(opts, sdk.WithDebugUser(debug))
	}
	client := sdk.New(baseURL, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	command := strings.ToLower(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "meds":
		meds, err := client.ListMedications(ctx)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(meds)

	case "add-med":
		if len(args) < 1 {
			log.Fatal("Usage: anticoag add-med <name> [strength]")
		}
		in := sdk.MedicationCreate{Name: args[0]}
		if len(args) > 1 {
			in.Strength = args[1]
		}
		med, err := client.CreateMedication(ctx, in)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(med)

	case "log":
		if len(args) < 2 {
			log.Fatal("Usage: anticoag log <medicationID> <dose> [YYYY-MM-DD]")
		}
		dose, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			log.Fatalf("invalid dose %q", args[1])
		}
		takenAt := time.Now().UTC()
		if len(args) > 2 {
			takenAt, err = time.Parse("2006-01-02", args[2])
			if err != nil {
				log.Fatalf("invalid date %q", args[2])
			}
		}
		entry, err := client.CreateLog(ctx, args[0], sdk.IntakeLogCreate{
			TakenAt:    takenAt,
			ActualDose: dose,
		})
		if err != nil {
			log.Fatal(err)
		}
		printJSON(entry)

	case "inr":
		if len(args) < 1 {
			log.Fatal("Usage: anticoag inr <value> [YYYY-MM-DD]")
		}
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			log.Fatalf("invalid INR value %q", args[0])
		}
		testedAt := time.Now().UTC()
		if len(args) > 1 {
			testedAt, err = time.Parse("2006-01-02", args[1])
			if err != nil {
				log.Fatalf("invalid date %q", args[1])
			}
		}
		test, err := client.CreateINRTest(ctx, sdk.INRTestCreate{
			Value:    value,
			TestedAt: testedAt,
		})
		if err != nil {
			log.Fatal(err)
		}
		printJSON(test)

	case "report":
		to := time.Now().UTC()
		from := to.AddDate(0, 0, -90)
		adherence, err := client.AdherenceReport(ctx, from, to)
		if err != nil {
			log.Fatal(err)
		}
		inrReport, err := client.GetINRReport(ctx, from, to)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(map[string]any{"adherence": adherence, "inr": inrReport})

	case "audit":
		page, err := client.AuditRecords(ctx, 50, 0)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(page)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}

func printUsage() {
	fmt.Println(`Usage: anticoag <command> [args]

Commands:
  meds                                List medications
  add-med <name> [strength]           Create a medication
  log <medicationID> <dose> [date]    Log a taken dose
  inr <value> [date]                  Log an INR test result
  report                              Adherence and INR reports (last 90 days)
  audit                               List recent audit records

Environment:
  ANTICOAG_API_URL        API base URL (default http://localhost:8080)
  ANTICOAG_ACCESS_TOKEN   Bearer token from an OAuth login
  ANTICOAG_REFRESH_TOKEN  Paired refresh token, rotated automatically
  ANTICOAG_DEBUG_USER     Dev-mode identity (servers without auth only)`)
}
