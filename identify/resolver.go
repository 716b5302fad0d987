// Package identify resolves free-form user queries ("AAPL", "Apple",
// "apple computer") to a canonical company identity using a local
// reference table plus an alias overlay.
package identify

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/YKunlee/Financial-Research-Agent/models"
)

// ErrUnknownCompany is returned when a query matches no ticker, alias,
// or company name in the reference table.
var ErrUnknownCompany = errors.New("unknown company or ticker")

var (
	punctRe = regexp.MustCompile(`[.,\-()'"]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// normalize lowercases, strips punctuation, and collapses whitespace so
// "Amazon.com, Inc." and "amazon com inc" compare equal.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

type companyRow struct {
	symbol      string
	market      string
	companyName string
	aliases     []string
}

// Resolver looks up companies by ticker, alias, or normalized name.
// Ticker matches win over aliases, aliases over company names.
type Resolver struct {
	bySymbol map[string]companyRow
	byName   map[string]string
	byAlias  map[string]string
}

// NewResolver loads the company table from companiesCSV and the alias
// overlay from aliasesJSON. A missing alias file is not an error.
func NewResolver(companiesCSV, aliasesJSON string) (*Resolver, error) {
	r := &Resolver{
		bySymbol: make(map[string]companyRow),
		byName:   make(map[string]string),
		byAlias:  make(map[string]string),
	}
	if err := r.loadCompanies(companiesCSV); err != nil {
		return nil, err
	}
	if err := r.loadAliases(aliasesJSON); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolver) loadCompanies(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open companies table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read companies header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"symbol", "market", "company_name"} {
		if _, ok := col[required]; !ok {
			return fmt.Errorf("companies table missing column %q", required)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read companies row: %w", err)
		}
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		symbol := strings.ToUpper(field("symbol"))
		if symbol == "" {
			continue
		}
		row := companyRow{
			symbol:      symbol,
			market:      field("market"),
			companyName: field("company_name"),
		}
		for _, alias := range strings.Split(field("aliases"), ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				row.aliases = append(row.aliases, alias)
			}
		}

		r.bySymbol[symbol] = row
		r.byName[normalize(row.companyName)] = symbol
		for _, alias := range row.aliases {
			r.byAlias[normalize(alias)] = symbol
		}
	}
	return nil
}

func (r *Resolver) loadAliases(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read aliases table: %w", err)
	}

	var aliases map[string]string
	if err := json.Unmarshal(data, &aliases); err != nil {
		return fmt.Errorf("parse aliases table: %w", err)
	}
	for alias, symbol := range aliases {
		r.byAlias[normalize(alias)] = strings.ToUpper(strings.TrimSpace(symbol))
	}
	return nil
}

// Resolve maps a query to a company identity, recording how it matched.
func (r *Resolver) Resolve(query string) (models.CompanyIdentity, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return models.CompanyIdentity{}, errors.New("empty query")
	}

	if row, ok := r.bySymbol[strings.ToUpper(q)]; ok {
		return r.identity(row, "ticker", query), nil
	}

	qn := normalize(q)
	if symbol, ok := r.byAlias[qn]; ok {
		if row, ok := r.bySymbol[symbol]; ok {
			return r.identity(row, "alias", query), nil
		}
	}
	if symbol, ok := r.byName[qn]; ok {
		if row, ok := r.bySymbol[symbol]; ok {
			return r.identity(row, "company_name", query), nil
		}
	}

	return models.CompanyIdentity{}, fmt.Errorf("%w: %q (add it to data/companies.csv)", ErrUnknownCompany, query)
}

func (r *Resolver) identity(row companyRow, matchedOn, query string) models.CompanyIdentity {
	return models.CompanyIdentity{
		Symbol:      row.symbol,
		Market:      row.market,
		CompanyName: row.companyName,
		MatchedOn:   matchedOn,
		Query:       query,
	}
}
