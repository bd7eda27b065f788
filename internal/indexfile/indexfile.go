// Package indexfile loads ideal-portfolio definitions and plain stock
// lists from disk, per spec §6 "Index data files (inbound)": CSV
// (`ticker,weight` one per line, file stem names the index and carries an
// optional `_YYYY_qN` source-quarter suffix) or JSON
// (`{name, as_of, components: [{ticker, weight}]}`).
package indexfile

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

// Index is a loaded index file: its name, the weighted components, and an
// optional as-of/source date used to seed IdealPortfolio.SourceDate.
type Index struct {
	Name       string
	AsOf       time.Time
	Components []portfolio.IdealPortfolioElement
}

// ToIdealPortfolio converts the loaded index into the core data model.
func (idx Index) ToIdealPortfolio() *portfolio.IdealPortfolio {
	return portfolio.NewIdealPortfolio(idx.Components, idx.AsOf).Normalize()
}

var quarterSuffix = regexp.MustCompile(`_(\d{4})_q([1-4])$`)

// LoadCSV loads a `ticker,weight` CSV index file. The file stem (minus any
// trailing `_YYYY_qN` source-quarter suffix) becomes the index name; the
// suffix, if present, is decoded into AsOf as the first day of that
// quarter.
func LoadCSV(path string) (Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return Index{}, fmt.Errorf("opening index csv %s: %w", path, err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := stem
	var asOf time.Time
	if m := quarterSuffix.FindStringSubmatch(stem); m != nil {
		name = strings.TrimSuffix(stem, m[0])
		year, _ := strconv.Atoi(m[1])
		quarter, _ := strconv.Atoi(m[2])
		asOf = time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	}

	components, err := parseTickerWeightCSV(f)
	if err != nil {
		return Index{}, fmt.Errorf("parsing index csv %s: %w", path, err)
	}

	return Index{Name: name, AsOf: asOf, Components: components}, nil
}

func parseTickerWeightCSV(r io.Reader) ([]portfolio.IdealPortfolioElement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var out []portfolio.IdealPortfolioElement
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		ticker := strings.TrimSpace(record[0])
		if ticker == "" {
			continue
		}
		weight, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q for ticker %s: %w", record[1], ticker, err)
		}
		out = append(out, portfolio.IdealPortfolioElement{Ticker: portfolio.Ticker(ticker), Weight: weight})
	}
	return out, nil
}

type jsonIndex struct {
	Name       string `json:"name"`
	AsOf       string `json:"as_of"`
	Components []struct {
		Ticker string  `json:"ticker"`
		Weight float64 `json:"weight"`
	} `json:"components"`
}

// LoadJSON loads a `{name, as_of, components}` JSON index file.
func LoadJSON(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Index{}, fmt.Errorf("reading index json %s: %w", path, err)
	}

	var raw jsonIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return Index{}, fmt.Errorf("parsing index json %s: %w", path, err)
	}

	var asOf time.Time
	if raw.AsOf != "" {
		asOf, err = time.Parse("2006-01-02", raw.AsOf)
		if err != nil {
			return Index{}, fmt.Errorf("invalid as_of date %q in %s: %w", raw.AsOf, path, err)
		}
	}

	components := make([]portfolio.IdealPortfolioElement, 0, len(raw.Components))
	for _, c := range raw.Components {
		components = append(components, portfolio.IdealPortfolioElement{
			Ticker: portfolio.Ticker(c.Ticker),
			Weight: decimal.NewFromFloat(c.Weight),
		})
	}

	return Index{Name: raw.Name, AsOf: asOf, Components: components}, nil
}

// Load dispatches to LoadCSV or LoadJSON by file extension.
func Load(path string) (Index, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".csv":
		return LoadCSV(path)
	default:
		return Index{}, fmt.Errorf("unrecognized index file extension: %s", path)
	}
}

// LoadStockList loads a plain-CSV stock list: one ticker per line.
func LoadStockList(path string) ([]portfolio.Ticker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stock list %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var out []portfolio.Ticker
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 0 {
			continue
		}
		ticker := strings.TrimSpace(record[0])
		if ticker == "" {
			continue
		}
		out = append(out, portfolio.Ticker(ticker))
	}
	return out, nil
}
