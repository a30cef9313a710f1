// Package geo looks up countries, Argentine provinces and municipalities from
// public APIs. Lookups never fail: any error degrades to a static list.
package geo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/config"
)

const requestTimeout = 10 * time.Second

// Lookup is implemented by Client
type Lookup interface {
	Countries(ctx context.Context) []string
	Provinces(ctx context.Context) []string
	Municipalities(ctx context.Context, province string) []string
}

// Client talks to the georef AR and REST Countries APIs
type Client struct {
	georef    *resty.Client
	countries *resty.Client
	cache     Cache
	ttl       time.Duration
}

type georefProvinces struct {
	Provinces []georefEntry `json:"provincias"`
}

type georefMunicipalities struct {
	Municipalities []georefEntry `json:"municipios"`
}

type georefEntry struct {
	ID   string `json:"id"`
	Name string `json:"nombre"`
}

type restCountry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Translations map[string]struct {
		Common string `json:"common"`
	} `json:"translations"`
}

// NewClient creates a geo client. A nil cache disables caching.
func NewClient(conf config.GeoConfig, cache Cache) *Client {
	if cache == nil {
		cache = nopCache{}
	}
	newHTTP := func(baseURL string) *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader("Accept", "application/json")
	}
	return &Client{
		georef:    newHTTP(conf.GeoRefURL),
		countries: newHTTP(conf.CountriesURL),
		cache:     cache,
		ttl:       conf.CacheTTL,
	}
}

// Countries returns country names in Spanish, sorted
func (c *Client) Countries(ctx context.Context) []string {
	return c.cached(ctx, "geo:paises", FallbackCountries, func() ([]string, error) {
		var result []restCountry
		resp, err := c.countries.R().
			SetContext(ctx).
			SetQueryParam("fields", "name,translations").
			SetResult(&result).
			Get("/all")
		if err := checkResponse(resp, err); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(result))
		for _, country := range result {
			name := country.Name.Common
			if spa, ok := country.Translations["spa"]; ok && spa.Common != "" {
				name = spa.Common
			}
			if name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	})
}

// Provinces returns the Argentine provinces, sorted
func (c *Client) Provinces(ctx context.Context) []string {
	return c.cached(ctx, "geo:provincias", FallbackProvinces, func() ([]string, error) {
		var result georefProvinces
		resp, err := c.georef.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"campos": "id,nombre", "max": "100"}).
			SetResult(&result).
			Get("/provincias")
		if err := checkResponse(resp, err); err != nil {
			return nil, err
		}
		return names(result.Provinces), nil
	})
}

// Municipalities returns the municipalities of a province, sorted. The
// fallback is an empty list.
func (c *Client) Municipalities(ctx context.Context, province string) []string {
	province = strings.TrimSpace(province)
	if province == "" {
		return []string{}
	}
	key := "geo:municipios:" + strings.ToLower(province)
	return c.cached(ctx, key, func() []string { return []string{} }, func() ([]string, error) {
		var result georefMunicipalities
		resp, err := c.georef.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"provincia": province, "campos": "id,nombre", "max": "5000"}).
			SetResult(&result).
			Get("/municipios")
		if err := checkResponse(resp, err); err != nil {
			return nil, err
		}
		return names(result.Municipalities), nil
	})
}

func (c *Client) cached(ctx context.Context, key string, fallback func() []string, fetch func() ([]string, error)) []string {
	if list, ok := c.cache.Get(ctx, key); ok {
		return list
	}
	list, err := fetch()
	if err != nil || len(list) == 0 {
		zap.S().Warnw("geo lookup failed, using fallback list", "key", key, "error", err)
		return fallback()
	}
	sort.Strings(list)
	c.cache.Set(ctx, key, list, c.ttl)
	return list
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode(), redact(resp.Request.URL))
	}
	return nil
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}

func names(entries []georefEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			out = append(out, e.Name)
		}
	}
	return out
}
