package eventio

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"tripledger/internal/models"
)

type personJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type paymentJSON struct {
	PersonID string          `json:"person_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type activityJSON struct {
	ID             string                     `json:"id"`
	Description    string                     `json:"description"`
	Amount         decimal.Decimal            `json:"amount"`
	PayerID        string                     `json:"payer_id,omitempty"`
	Payers         []paymentJSON              `json:"payers,omitempty"`
	ParticipantIDs []string                   `json:"participant_ids"`
	SplitStrategy  string                     `json:"split_strategy"`
	Weights        map[string]decimal.Decimal `json:"weights,omitempty"`
	Shares         map[string]decimal.Decimal `json:"shares,omitempty"`
}

type eventJSON struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Currency   string         `json:"currency"`
	People     []personJSON   `json:"people"`
	Activities []activityJSON `json:"activities"`
}

// WriteEventJSON serializes an event. People are sorted by (name, id) and
// activities by (description, id) so repeated exports are byte-stable.
func WriteEventJSON(w io.Writer, event *models.Event) error {
	people := event.People()
	sortPeople(people)

	out := eventJSON{
		ID:       event.ID(),
		Name:     event.Name(),
		Currency: event.Currency(),
		People:   make([]personJSON, 0, len(people)),
	}
	for _, p := range people {
		out.People = append(out.People, personJSON{ID: p.ID, Name: p.Name})
	}

	activities := event.Activities()
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].Description() != activities[j].Description() {
			return activities[i].Description() < activities[j].Description()
		}
		return activities[i].ID() < activities[j].ID()
	})
	for _, a := range activities {
		aj := activityJSON{
			ID:             a.ID(),
			Description:    a.Description(),
			Amount:         a.Amount(),
			ParticipantIDs: a.Participants(),
			SplitStrategy:  string(a.Strategy()),
			Weights:        a.Weights(),
			Shares:         a.FixedShares(),
		}
		payments := a.Payments()
		if len(payments) == 1 {
			aj.PayerID = payments[0].PersonID
		} else {
			for _, p := range payments {
				aj.Payers = append(aj.Payers, paymentJSON{PersonID: p.PersonID, Amount: p.Amount})
			}
		}
		out.Activities = append(out.Activities, aj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ReadEventJSON deserializes an event written by WriteEventJSON,
// re-running all validation and integrity checks.
func ReadEventJSON(r io.Reader) (*models.Event, error) {
	var in eventJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, models.Validationf("invalid event JSON: %v", err)
	}

	event := models.RestoreEvent(in.ID, in.Name, in.Currency)
	for _, pj := range in.People {
		p, err := models.NewPersonWithID(pj.ID, pj.Name)
		if err != nil {
			return nil, err
		}
		if err := event.AddMember(p); err != nil {
			return nil, err
		}
	}

	for _, aj := range in.Activities {
		var payer models.Payer
		switch {
		case len(aj.Payers) > 0:
			payments := make([]models.Payment, len(aj.Payers))
			for i, p := range aj.Payers {
				payments[i] = models.Payment{PersonID: p.PersonID, Amount: p.Amount}
			}
			payer = models.SplitPayer(payments)
		case aj.PayerID != "":
			payer = models.SinglePayer(aj.PayerID)
		default:
			return nil, models.Validationf("activity %q has no payer", aj.Description)
		}

		strategy, err := models.ParseStrategy(aj.SplitStrategy)
		if err != nil {
			return nil, err
		}

		a, err := models.NewActivityWithID(aj.ID, aj.Description, aj.Amount, payer, aj.ParticipantIDs, strategy, aj.Weights, aj.Shares)
		if err != nil {
			return nil, fmt.Errorf("activity %q: %w", aj.Description, err)
		}
		if err := event.AddActivity(a); err != nil {
			return nil, err
		}
	}

	return event, nil
}
