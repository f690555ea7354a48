// Package export writes scenario results to CSV, XLSX, and YAML, and reads
// parcel rolls from CSV for offline runs.
package export

import (
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/civiclab/splitrate/internal/category"
	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/tax"
)

// ReadParcelsCSV loads a parcel roll from a CSV file with a header row
// matching the parcel csv tags.
func ReadParcelsCSV(path string) ([]model.Parcel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open parcel csv")
	}
	defer f.Close() //nolint:errcheck

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		return nil, eris.Wrap(err, "export: read parcel csv header")
	}

	var parcels []model.Parcel
	for {
		var p model.Parcel
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrap(err, "export: decode parcel row")
		}
		parcels = append(parcels, p)
	}
	if len(parcels) == 0 {
		return nil, eris.Wrapf(model.ErrMalformedInput, "export: no parcels in %s", path)
	}
	if err := model.ValidateParcels(parcels); err != nil {
		return nil, err
	}
	return parcels, nil
}

// Row is one exported result line: the derived tax columns plus the context
// a reader needs to group them.
type Row struct {
	tax.ParcelTax
	Category     string  `csv:"category" json:"category"`
	PropertyUse  string  `csv:"property_use" json:"property_use"`
	TaxDistrict  string  `csv:"tax_district,omitempty" json:"tax_district,omitempty"`
	GEOID        string  `csv:"geoid,omitempty" json:"geoid,omitempty"`
	MedianIncome float64 `csv:"median_income,omitempty" json:"median_income,omitempty"`
	MinorityPct  float64 `csv:"minority_pct,omitempty" json:"minority_pct,omitempty"`
}

// BuildRows joins parcels with their computed taxes. The slices must be
// parallel, as produced by Apply.
func BuildRows(parcels []model.Parcel, taxes []tax.ParcelTax) ([]Row, error) {
	if len(parcels) != len(taxes) {
		return nil, eris.Errorf("export: %d parcels but %d tax rows", len(parcels), len(taxes))
	}

	rows := make([]Row, len(parcels))
	for i := range parcels {
		p := &parcels[i]
		rows[i] = Row{
			ParcelTax:   taxes[i],
			Category:    category.Categorize(p.PropertyUse, p.FullyExempt),
			PropertyUse: p.PropertyUse,
			TaxDistrict: p.TaxDistrict,
		}
		if p.Demographics != nil {
			rows[i].GEOID = p.Demographics.GEOID
			rows[i].MedianIncome = p.Demographics.MedianIncome
			rows[i].MinorityPct = p.Demographics.MinorityPct
		}
	}
	return rows, nil
}

// WriteCSV writes result rows to path with a header row.
func WriteCSV(path string, rows []Row) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "export: marshal csv")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write csv")
	}
	return nil
}
