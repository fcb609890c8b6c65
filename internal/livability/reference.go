package livability

import "time"

// Row is a raw dataset row keyed by column header.
type Row map[string]string

// Reference is an immutable snapshot of every static dataset the pipeline
// joins against. It is built once per load and shared across requests.
type Reference struct {
	Zips *ZipIndex
	// Offenses and LawEnforcement are keyed by title-cased city name.
	Offenses       map[string]Row
	LawEnforcement map[string]Row
	Environment    map[int]EnvironmentRecord
	// SchoolRanks holds the raw rank cell of every school row, keyed by ZIP.
	SchoolRanks map[int][]string
	Hospitals   *HospitalIndex

	Source   string
	LoadedAt time.Time
}

// Stats summarizes a snapshot for health reporting.
type Stats struct {
	Source         string    `json:"source"`
	LoadedAt       time.Time `json:"loaded_at"`
	Zipcodes       int       `json:"zipcodes"`
	OffenseCities  int       `json:"offense_cities"`
	LawCities      int       `json:"law_enforcement_cities"`
	EnvironmentZip int       `json:"environment_zipcodes"`
	SchoolZip      int       `json:"school_zipcodes"`
	Hospitals      int       `json:"hospitals"`
}

// Stats returns row counts for the snapshot.
func (r *Reference) Stats() Stats {
	s := Stats{
		Source:         r.Source,
		LoadedAt:       r.LoadedAt,
		OffenseCities:  len(r.Offenses),
		LawCities:      len(r.LawEnforcement),
		EnvironmentZip: len(r.Environment),
		SchoolZip:      len(r.SchoolRanks),
	}
	if r.Zips != nil {
		s.Zipcodes = r.Zips.Len()
	}
	if r.Hospitals != nil {
		s.Hospitals = r.Hospitals.Len()
	}
	return s
}
