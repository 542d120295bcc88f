package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/rigidsim/internal/sim"
)

// Value encodes NaN and infinities as JSON null.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

type ExportData struct {
	Run     *RunMetadata       `json:"run"`
	Series  []string           `json:"series"`
	Times   []float64          `json:"times"`
	States  [][]Value          `json:"states"`
	Metrics map[string]float64 `json:"metrics"`
	Events  map[string]int     `json:"events"`
}

// ExportJSON writes a stored run as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadStates(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:     meta,
		Series:  series.Names,
		Times:   series.Times,
		States:  make([][]Value, len(series.States)),
		Metrics: meta.Metrics,
		Events:  meta.Events,
	}
	for i, row := range series.States {
		data.States[i] = make([]Value, len(row))
		for j, v := range row {
			data.States[i][j] = Value(v)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV copies the recorded series of a run to w.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	series, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	states := make([]sim.State, len(series.States))
	for i, row := range series.States {
		states[i] = row
	}
	return WriteCSV(w, series.Names, series.Times, states)
}

// WriteCSV writes a time column followed by one column per series.
func WriteCSV(out io.Writer, names []string, times []float64, states []sim.State) error {
	w := csv.NewWriter(out)

	header := append([]string{"time"}, names...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range states {
		row := []string{strconv.FormatFloat(times[i], 'f', 6, 64)}
		for _, val := range states[i] {
			row = append(row, strconv.FormatFloat(val, 'g', 10, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
