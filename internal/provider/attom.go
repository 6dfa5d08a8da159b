package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"dealscout/internal/config"
	"dealscout/internal/model"
	"dealscout/internal/utils"
)

// attomPageSize is the per-request cap the upstream basicprofile endpoint
// enforces.
const attomPageSize = 50

// Attom queries the ATTOM property data API. Searches run per ZIP code,
// since postal-code queries are the only reliable filter the basicprofile
// endpoint supports; everything else is filtered client-side.
type Attom struct {
	cfg        *config.AttomConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewAttom creates an ATTOM-backed property source.
func NewAttom(cfg *config.AttomConfig, log *zap.Logger) *Attom {
	if log == nil {
		log = zap.NewNop()
	}
	return &Attom{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		log: log,
	}
}

func (a *Attom) Name() string { return "attom" }

// Search queries each candidate ZIP until the result cap is reached. A ZIP
// with no properties is skipped; an authentication failure aborts, since
// every subsequent request would fail the same way.
func (a *Attom) Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Property, error) {
	if !a.cfg.Enabled {
		return nil, fmt.Errorf("attom provider is not enabled (missing API key)")
	}
	if len(criteria.ZipCodes) == 0 {
		return nil, fmt.Errorf("attom search requires at least one ZIP code")
	}

	max := criteria.MaxResults
	if max <= 0 || max > attomPageSize {
		max = attomPageSize
	}

	var results []model.Property
	for _, zip := range criteria.ZipCodes {
		props, err := a.searchZip(ctx, zip, max)
		if err != nil {
			return nil, err
		}
		for _, p := range props {
			if matchesCriteria(p, criteria) && matchesType(p, criteria.PropertyTypes) {
				results = append(results, p)
			}
		}
		if len(results) >= max {
			results = results[:max]
			break
		}
	}

	a.log.Info("attom search finished",
		zap.Int("zip_count", len(criteria.ZipCodes)),
		zap.Int("results", len(results)))
	return results, nil
}

// attomResponse mirrors the basicprofile payload, limited to the fields
// the property record needs.
type attomResponse struct {
	Property []attomProperty `json:"property"`
}

type attomProperty struct {
	Identifier struct {
		AttomID json.Number `json:"attomId"`
	} `json:"identifier"`
	Address struct {
		OneLine     string `json:"oneLine"`
		Locality    string `json:"locality"`
		CountrySubd string `json:"countrySubd"`
		Postal1     string `json:"postal1"`
	} `json:"address"`
	Summary struct {
		PropType string `json:"propType"`
	} `json:"summary"`
	Building struct {
		Rooms struct {
			Beds       *int     `json:"beds"`
			BathsTotal *float64 `json:"bathsTotal"`
		} `json:"rooms"`
		Size struct {
			LivingSize *float64 `json:"livingSize"`
		} `json:"size"`
		Summary struct {
			YearBuilt *int `json:"yearBuilt"`
		} `json:"summary"`
	} `json:"building"`
	Lot struct {
		LotSize1 *float64 `json:"lotSize1"`
	} `json:"lot"`
	Assessment struct {
		Market struct {
			MktTtlValue *float64 `json:"mktTtlValue"`
		} `json:"market"`
		Assessed struct {
			AssdTtlValue *float64 `json:"assdTtlValue"`
			Tax          struct {
				TaxAmt *float64 `json:"taxAmt"`
			} `json:"tax"`
		} `json:"assessed"`
	} `json:"assessment"`
	Sale struct {
		Amount struct {
			SaleAmt     *float64 `json:"saleAmt"`
			SaleRecDate *string  `json:"saleRecDate"`
		} `json:"amount"`
	} `json:"sale"`
}

func (a *Attom) searchZip(ctx context.Context, zip string, pageSize int) ([]model.Property, error) {
	endpoint := fmt.Sprintf("%s/property/basicprofile", a.cfg.APIBase)

	params := url.Values{}
	params.Set("format", "json")
	params.Set("postalcode", zip)
	params.Set("pagesize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call attom API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to parsing
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("attom authentication failed, check API key")
	case http.StatusNotFound:
		// No properties for this ZIP, normal outcome
		a.log.Debug("no attom properties for ZIP", zap.String("zip", zip))
		return nil, nil
	default:
		return nil, fmt.Errorf("attom API error %d: %s", resp.StatusCode, utils.Truncate(string(body), 200))
	}

	var parsed attomResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attom response: %w", err)
	}

	props := make([]model.Property, 0, len(parsed.Property))
	for _, raw := range parsed.Property {
		props = append(props, convertAttomProperty(raw))
	}
	return props, nil
}

func convertAttomProperty(raw attomProperty) model.Property {
	p := model.Property{
		ID:            raw.Identifier.AttomID.String(),
		Address:       raw.Address.OneLine,
		City:          raw.Address.Locality,
		State:         raw.Address.CountrySubd,
		ZipCode:       raw.Address.Postal1,
		Bedrooms:      raw.Building.Rooms.Beds,
		Bathrooms:     raw.Building.Rooms.BathsTotal,
		SquareFeet:    raw.Building.Size.LivingSize,
		LotSize:       raw.Lot.LotSize1,
		YearBuilt:     raw.Building.Summary.YearBuilt,
		MarketValue:   raw.Assessment.Market.MktTtlValue,
		AssessedValue: raw.Assessment.Assessed.AssdTtlValue,
		PropertyTaxes: raw.Assessment.Assessed.Tax.TaxAmt,
		LastSalePrice: raw.Sale.Amount.SaleAmt,
		LastSaleDate:  raw.Sale.Amount.SaleRecDate,
	}
	if raw.Summary.PropType != "" {
		propType := raw.Summary.PropType
		p.PropertyType = &propType
	}
	if p.ID == "" {
		p.ID = p.Address
	}
	return p
}
