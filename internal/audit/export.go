package audit

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{"id", "at", "actor_id", "actor_email", "action", "entity", "entity_id", "meta"}

// WriteCSV encodes entries with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		var actorID, actorEmail string
		if e.ActorID != nil {
			actorID = strconv.FormatInt(*e.ActorID, 10)
		}
		if e.ActorEmail != nil {
			actorEmail = *e.ActorEmail
		}
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.At.UTC().Format(time.RFC3339),
			actorID,
			actorEmail,
			e.Action,
			e.Entity,
			e.EntityID,
			string(e.Meta),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
