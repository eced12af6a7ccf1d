package source

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/festql/festql/internal/airtable"
)

// isoMillis is the timestamp shape Airtable emits for date-time cells.
const isoMillis = "2006-01-02T15:04:05.000Z"

// defaultOpening anchors generated schedules to a fixed festival week so the
// stub serves the same table across restarts with the same seed.
var defaultOpening = time.Date(2025, time.July, 19, 0, 0, 0, 0, time.UTC)

// Generator produces festival event records with the field names the sync
// mapper expects. All values derive from the seed and the opening day, so two
// generators with the same inputs emit identical sequences.
type Generator struct {
	rnd      *rand.Rand
	opening  time.Time
	sequence int64
}

// NewGenerator seeds a generator for a festival whose first day is opening.
func NewGenerator(seed int64, opening time.Time) *Generator {
	return &Generator{
		rnd:     rand.New(rand.NewSource(seed)),
		opening: opening.UTC(),
	}
}

func (g *Generator) NextRecord() airtable.Record {
	g.sequence++

	day := g.rnd.Intn(9)
	start := g.opening.AddDate(0, 0, day).
		Add(time.Duration(8+g.rnd.Intn(14)) * time.Hour).
		Add(time.Duration(g.rnd.Intn(4)*15) * time.Minute)
	end := start.Add(time.Duration(30+g.rnd.Intn(10)*15) * time.Minute)
	createdOn := g.opening.AddDate(0, 0, -(30 + g.rnd.Intn(60)))
	createdAt := createdOn.Add(time.Duration(8+g.rnd.Intn(10)) * time.Hour)

	fields := map[string]any{
		"Name":       pickOne(g.rnd, eventThemes) + " " + pickOne(g.rnd, eventKinds),
		"Source":     pickOne(g.rnd, eventSources),
		"Workstream": pickOne(g.rnd, workstreams),
		"Programme":  pickOne(g.rnd, programmes),
		"Type":       pickOne(g.rnd, eventTypes),
		"StartTime":  start.Format(isoMillis),
		"EndTime":    end.Format(isoMillis),
		"Created On": createdOn.Format("2006-01-02"),
	}
	// Optional columns stay absent on a share of records so downstream NULL
	// handling gets exercised.
	if g.rnd.Intn(100) < 85 {
		fields["LinkedSpace"] = pickOne(g.rnd, spaces)
	}
	if g.rnd.Intn(100) < 85 {
		fields["Owner"] = pickOne(g.rnd, owners)
	}
	if g.rnd.Intn(100) < 70 {
		fields["Tags"] = pickOne(g.rnd, tagSets)
	}
	if g.rnd.Intn(100) < 60 {
		fields["PMO Tracking"] = pickOne(g.rnd, pmoStates)
	}
	if g.rnd.Intn(100) < 40 {
		fields["Notes"] = pickOne(g.rnd, notes)
	}
	if g.rnd.Intn(100) < 25 {
		fields["Dependencies"] = pickOne(g.rnd, dependencies)
	}

	return airtable.Record{
		ID:          fmt.Sprintf("rec%014d", g.sequence),
		CreatedTime: createdAt.Format(isoMillis),
		Fields:      fields,
	}
}

var (
	eventThemes  = []string{"Opening", "Closing", "Sunset", "Jazz", "Indie Film", "Street Food", "Kids Club", "Volunteer"}
	eventKinds   = []string{"Parade", "Concert", "Screening", "Tasting", "Workshop", "Panel", "Rehearsal", "Briefing"}
	eventSources = []string{"Core Grid", "Partner Submission", "Ops Desk"}
	workstreams  = []string{"Programming", "Site Operations", "Volunteers", "Marketing", "Production"}
	programmes   = []string{"Music", "Film", "Food & Drink", "Wellness", "Kids", "Talks"}
	eventTypes   = []string{"Performance", "Workshop", "Screening", "Logistics", "Meeting"}
	spaces       = []string{"SSH 1", "SSH 2", "SSH 3", "SSH 4", "Main Stage", "Harbour Tent", "Food Court"}
	owners       = []string{"Alex Chen", "Maria Lopez", "Sam Okafor", "Priya Nair", "Jonas Weber", "Aoife Byrne"}
	tagSets      = []string{"family, outdoor", "music, ticketed", "free, food", "staff-only", "headline, evening"}
	pmoStates    = []string{"Tracked", "Watchlist", "Not tracked"}
	notes        = []string{
		"Confirmed with vendor.",
		"Schedule may shift by 30 minutes.",
		"Backup location: Harbour Tent.",
		"Ticketed, capacity 250.",
	}
	dependencies = []string{
		"Stage crew handover",
		"Requires sound check",
		"After site opening",
		"Waiting on vendor load-in",
	}
)

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
