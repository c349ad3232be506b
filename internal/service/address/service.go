package address

import (
	"OrderFlow/internal/config"
	"OrderFlow/internal/lib/sl"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	MinQueryLength = 2
	MaxSuggestions = 8

	defaultCacheTTL = 5 * time.Minute
	maxCacheEntries = 100
)

// Suggestion is one address candidate.
type Suggestion struct {
	PlaceID       string `json:"place_id"`
	Description   string `json:"description"`
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

// Service looks up address suggestions through the AMap input tips API.
type Service struct {
	key     string
	baseUrl string
	client  *http.Client
	cache   *expirable.LRU[string, []Suggestion]
	log     *slog.Logger
}

func NewAddressService(conf *config.Config, logger *slog.Logger) *Service {
	ttl := conf.AMap.CacheTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &Service{
		key:     conf.AMap.Key,
		baseUrl: strings.TrimRight(conf.AMap.BaseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		cache:   expirable.NewLRU[string, []Suggestion](maxCacheEntries, nil, ttl),
		log:     logger.With(sl.Module("address service")),
	}
}

type tip struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	District string          `json:"district"`
	Address  json.RawMessage `json:"address"`
}

// address is a string, or an empty array when AMap has none.
func (t tip) address() string {
	var s string
	if err := json.Unmarshal(t.Address, &s); err != nil {
		return ""
	}
	return s
}

type tipsResponse struct {
	Status string `json:"status"`
	Info   string `json:"info"`
	Tips   []tip  `json:"tips"`
}

// Search returns at most MaxSuggestions candidates. Short queries and lookup failures
// give an empty list.
func (s *Service) Search(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []Suggestion{}, nil
	}
	if cached, ok := s.cache.Get(query); ok {
		return append([]Suggestion(nil), cached...), nil
	}
	if s.key == "" {
		return []Suggestion{}, nil
	}

	params := url.Values{}
	params.Set("key", s.key)
	params.Set("keywords", query)
	reqUrl := fmt.Sprintf("%s/v3/assistant/inputtips?%s", s.baseUrl, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.With(sl.Err(err)).Warn("address lookup")
		return []Suggestion{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.With(slog.Int("status", resp.StatusCode)).Warn("address lookup")
		return []Suggestion{}, nil
	}

	var data tipsResponse
	if err = json.NewDecoder(resp.Body).Decode(&data); err != nil {
		s.log.With(sl.Err(err)).Warn("decode address tips")
		return []Suggestion{}, nil
	}
	if data.Status != "1" {
		s.log.With(slog.String("info", data.Info)).Warn("address lookup rejected")
		return []Suggestion{}, nil
	}

	results := make([]Suggestion, 0, MaxSuggestions)
	for i, t := range data.Tips {
		if len(results) == MaxSuggestions {
			break
		}
		results = append(results, suggestionFrom(t, query, i))
	}
	s.cache.Add(query, append([]Suggestion(nil), results...))
	return results, nil
}

func suggestionFrom(t tip, query string, index int) Suggestion {
	id := t.ID
	if id == "" {
		id = fmt.Sprintf("%s_%d", query, index)
	}
	main := t.Name
	if main == "" {
		main = query
	}

	var secondary []string
	if addr := t.address(); addr != "" && addr != t.Name {
		secondary = append(secondary, addr)
	}
	if t.District != "" {
		secondary = append(secondary, t.District)
	}

	description := strings.Join(append([]string{t.Name}, secondary...), ", ")
	if t.Name == "" {
		description = strings.Join(secondary, ", ")
	}
	if description == "" {
		description = "未知地址"
	}
	second := strings.Join(secondary, ", ")
	if second == "" {
		second = "详细地址"
	}
	return Suggestion{PlaceID: id, Description: description, MainText: main, SecondaryText: second}
}
