package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"dealscout/internal/model"
)

// primaryZipCount caps how many ZIP codes a city contributes to a search.
// Large metros carry dozens of ZIPs; querying them all per request is slow
// and rarely changes the result set.
const primaryZipCount = 5

// CityInfo is one gazetteer record.
type CityInfo struct {
	City     string   `json:"city"`
	State    string   `json:"state"`
	ZipCodes []string `json:"zip_codes"`
	Aliases  []string `json:"aliases,omitempty"`
}

// PrimaryZips returns the leading ZIP codes of the record.
func (c CityInfo) PrimaryZips() []string {
	if len(c.ZipCodes) <= primaryZipCount {
		return c.ZipCodes
	}
	return c.ZipCodes[:primaryZipCount]
}

// Gazetteer maps city/state pairs to ZIP codes. Lookups are
// case-insensitive and alias-aware. The zero value is not usable; use New.
type Gazetteer struct {
	cities  map[string]CityInfo // "city|st" -> record
	aliases map[string]string   // "alias|st" -> canonical key
}

// New builds a gazetteer from the built-in records plus any extras.
func New(extra ...CityInfo) *Gazetteer {
	g := &Gazetteer{
		cities:  make(map[string]CityInfo),
		aliases: make(map[string]string),
	}
	for _, rec := range builtinRecords {
		g.add(rec)
	}
	for _, rec := range extra {
		g.add(rec)
	}
	return g
}

// mappingFile is the on-disk JSON shape, matching the city2zip export
// format: a metadata header plus a flat record list.
type mappingFile struct {
	Metadata struct {
		Title   string `json:"title"`
		Version string `json:"version"`
	} `json:"metadata"`
	Records []CityInfo `json:"records"`
}

// LoadFile merges records from a city2zip JSON file into the gazetteer.
// File records replace built-in records for the same city/state.
func (g *Gazetteer) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read gazetteer file: %w", err)
	}
	var f mappingFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse gazetteer file %s: %w", path, err)
	}
	loaded := 0
	for _, rec := range f.Records {
		if rec.City == "" || rec.State == "" || len(rec.ZipCodes) == 0 {
			continue
		}
		g.add(rec)
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("gazetteer file %s contains no usable records", path)
	}
	return nil
}

func (g *Gazetteer) add(rec CityInfo) {
	rec.State = strings.ToUpper(rec.State)
	key := cityKey(rec.City, rec.State)
	g.cities[key] = rec
	for _, alias := range rec.Aliases {
		g.aliases[cityKey(alias, rec.State)] = key
	}
}

func cityKey(city, state string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "|" + strings.ToUpper(strings.TrimSpace(state))
}

// Info returns the record for a city/state pair, resolving aliases.
func (g *Gazetteer) Info(city, state string) (CityInfo, bool) {
	key := cityKey(city, state)
	if rec, ok := g.cities[key]; ok {
		return rec, true
	}
	if canonical, ok := g.aliases[key]; ok {
		rec, ok := g.cities[canonical]
		return rec, ok
	}
	return CityInfo{}, false
}

// Zips returns every ZIP code known for the city, or nil when unknown.
func (g *Gazetteer) Zips(city, state string) []string {
	rec, ok := g.Info(city, state)
	if !ok {
		return nil
	}
	return rec.ZipCodes
}

// PrimaryZips returns the leading ZIP codes for the city, the set a
// search should query first.
func (g *Gazetteer) PrimaryZips(city, state string) []string {
	rec, ok := g.Info(city, state)
	if !ok {
		return nil
	}
	return rec.PrimaryZips()
}

// Cities returns every known city name and alias keyed by lowercase
// name, for use as a free-text match allow-list. When two states share a
// city name the lexically smaller state wins, which keeps the result
// deterministic.
func (g *Gazetteer) Cities() map[string]model.Location {
	out := make(map[string]model.Location, len(g.cities)+len(g.aliases))

	keys := make([]string, 0, len(g.cities))
	for k := range g.cities {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	for _, k := range keys {
		rec := g.cities[k]
		out[strings.ToLower(rec.City)] = model.Location{City: rec.City, State: rec.State}
		for _, alias := range rec.Aliases {
			out[strings.ToLower(alias)] = model.Location{City: rec.City, State: rec.State}
		}
	}
	return out
}

// builtinRecords covers the major metros the service answers for without
// an external mapping file. A city2zip file loaded at startup extends or
// overrides this set.
var builtinRecords = []CityInfo{
	{City: "Austin", State: "TX", ZipCodes: []string{"78701", "78702", "78704", "78705"}},
	{City: "Houston", State: "TX", ZipCodes: []string{"77001", "77002", "77019", "77056"}},
	{City: "Dallas", State: "TX", ZipCodes: []string{"75201", "75202", "75204", "75206"}},
	{City: "San Antonio", State: "TX", ZipCodes: []string{"78201", "78202", "78204", "78205"}},
	{City: "New York", State: "NY", ZipCodes: []string{"10001", "10002", "10003", "10009"},
		Aliases: []string{"NYC", "New York City"}},
	{City: "Los Angeles", State: "CA", ZipCodes: []string{"90001", "90002", "90004", "90005"},
		Aliases: []string{"L.A."}},
	{City: "Chicago", State: "IL", ZipCodes: []string{"60601", "60602", "60603", "60604"}},
	{City: "Miami", State: "FL", ZipCodes: []string{"33101", "33102", "33109", "33130"}},
	{City: "Seattle", State: "WA", ZipCodes: []string{"98101", "98102", "98103", "98104"}},
	{City: "Denver", State: "CO", ZipCodes: []string{"80201", "80202", "80203", "80204"}},
	{City: "Blacksburg", State: "VA", ZipCodes: []string{"24060", "24061", "24062"}},
}
