// Package eventio reads and writes events and settlement results as CSV
// and JSON. Amounts travel as decimal strings so exactness survives the
// round trip.
package eventio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tripledger/internal/calculator"
	"tripledger/internal/models"
)

// ReadEventCSV loads an event from two CSV streams.
//
// people columns: id, name
// activities columns: id, description, amount, payer_id, participants
// (comma-separated person ids), split_strategy, weights (optional JSON
// object keyed by person id), shares (optional JSON object).
func ReadEventCSV(people, activities io.Reader) (*models.Event, error) {
	event := models.NewEvent("Imported Event", "")

	rows, err := readRows(people)
	if err != nil {
		return nil, fmt.Errorf("read people csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, models.Validationf("no people found in CSV")
	}
	for _, row := range rows {
		p, err := models.NewPersonWithID(row["id"], row["name"])
		if err != nil {
			return nil, fmt.Errorf("person row %v: %w", row, err)
		}
		if err := event.AddMember(p); err != nil {
			return nil, err
		}
	}

	rows, err = readRows(activities)
	if err != nil {
		return nil, fmt.Errorf("read activities csv: %w", err)
	}
	for _, row := range rows {
		a, err := activityFromRow(row)
		if err != nil {
			return nil, err
		}
		if err := event.AddActivity(a); err != nil {
			return nil, err
		}
	}

	return event, nil
}

func activityFromRow(row map[string]string) (*models.Activity, error) {
	description := row["description"]
	amountStr := row["amount"]
	payerID := row["payer_id"]
	participantsStr := row["participants"]
	if description == "" || amountStr == "" || payerID == "" || participantsStr == "" {
		return nil, models.Validationf("activity row %v is missing required fields", row)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, models.Validationf("invalid amount %q: %v", amountStr, err)
	}

	var participants []string
	for _, id := range strings.Split(participantsStr, ",") {
		if id = strings.TrimSpace(id); id != "" {
			participants = append(participants, id)
		}
	}

	strategyStr := row["split_strategy"]
	if strategyStr == "" {
		strategyStr = string(models.StrategyEqual)
	}
	strategy, err := models.ParseStrategy(strategyStr)
	if err != nil {
		return nil, err
	}

	weights, err := parseAmountMap(row["weights"], "weights")
	if err != nil {
		return nil, err
	}
	shares, err := parseAmountMap(row["shares"], "shares")
	if err != nil {
		return nil, err
	}

	if id := row["id"]; id != "" {
		return models.NewActivityWithID(id, description, amount, models.SinglePayer(payerID), participants, strategy, weights, shares)
	}
	return models.NewActivity(description, amount, models.SinglePayer(payerID), participants, strategy, weights, shares)
}

func parseAmountMap(raw, field string) (map[string]decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, models.Validationf("invalid %s JSON: %v", field, err)
	}
	return out, nil
}

// readRows reads a headered CSV into one map per record, trimming
// whitespace around every value.
func readRows(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteTransfersCSV writes settlement transfers with the columns
// from_person_id, from_person_name, to_person_id, to_person_name, amount.
func WriteTransfersCSV(w io.Writer, transfers []models.Transfer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"from_person_id", "from_person_name", "to_person_id", "to_person_name", "amount"}); err != nil {
		return err
	}
	for _, t := range transfers {
		record := []string{t.From.ID, t.From.Name, t.To.ID, t.To.Name, t.Amount.StringFixed(2)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSummaryCSV writes per-person settlement summaries with the columns
// person_id, person_name, paid, owed, net, in the order given (Summary
// already sorts by name then id).
func WriteSummaryCSV(w io.Writer, summaries []calculator.PersonSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"person_id", "person_name", "paid", "owed", "net"}); err != nil {
		return err
	}
	for _, s := range summaries {
		record := []string{s.Person.ID, s.Person.Name, s.Paid.StringFixed(2), s.Owed.StringFixed(2), s.Net.StringFixed(2)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func sortPeople(people []models.Person) {
	sort.Slice(people, func(i, j int) bool {
		if people[i].Name != people[j].Name {
			return people[i].Name < people[j].Name
		}
		return people[i].ID < people[j].ID
	})
}
