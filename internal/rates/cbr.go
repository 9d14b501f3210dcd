package rates

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// DefaultCBRBaseURL is the production endpoint of the CBR currency
// dynamics service.
const DefaultCBRBaseURL = "https://www.cbr.ru/scripts/XML_dynamic.asp"

// cbrDateLayout is the request/response date format of the CBR service.
const cbrDateLayout = "02.01.2006"

// Fetcher downloads rate dynamics from the CBR XML service.
//
// The service is a shared public endpoint with no SLA, so all calls go
// through a circuit breaker (fail fast after repeated upstream errors) and
// a client-side rate limiter (the CBR throttles aggressive clients by IP).
type Fetcher struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher for the given base URL. An empty baseURL
// selects the production CBR endpoint.
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultCBRBaseURL
	}
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "cbr-rates",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		// One request per second with a small burst covers the largest
		// realistic workload (one range request per report run).
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// valCurs mirrors the XML_dynamic response document.
type valCurs struct {
	XMLName xml.Name    `xml:"ValCurs"`
	Records []valRecord `xml:"Record"`
}

type valRecord struct {
	Date    string `xml:"Date,attr"`
	Nominal string `xml:"Nominal"`
	Value   string `xml:"Value"`
}

// FetchRange downloads the rate series for one currency over [from, to]
// inclusive and returns it as a Table.
//
// Values are divided by the record nominal: the CBR quotes some currencies
// per 10 or per 100 units.
func (f *Fetcher) FetchRange(ctx context.Context, currency string, from, to time.Time) (*Table, error) {
	id, err := CurrencyID(currency)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitParseError, "invalid rates currency", err)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "rate limiter interrupted", err)
	}

	reqURL := fmt.Sprintf("%s?date_req1=%s&date_req2=%s&VAL_NM_RQ=%s",
		f.baseURL,
		url.QueryEscape(from.Format(cbrDateLayout)),
		url.QueryEscape(to.Format(cbrDateLayout)),
		url.QueryEscape(id))

	body, err := f.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("CBR returned HTTP %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to fetch CBR rates", err)
	}

	table, err := parseDynamics(body.([]byte))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitParseError, "failed to parse CBR response", err)
	}

	log.Info().Str("currency", currency).
		Str("from", from.Format(cbrDateLayout)).
		Str("to", to.Format(cbrDateLayout)).
		Int("rates", table.Len()).
		Msg("fetched CBR rates")
	return table, nil
}

// parseDynamics decodes a ValCurs document into a Table.
func parseDynamics(data []byte) (*Table, error) {
	var doc valCurs
	decoder := xml.NewDecoder(newBytesReader(data))
	// The CBR serves windows-1251; the charset reader handles both that
	// and plain UTF-8 responses.
	decoder.CharsetReader = charsetReader
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}

	var rs []Rate
	for _, rec := range doc.Records {
		date, err := ParseDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("record date: %w", err)
		}
		value, err := ParseDecimal(rec.Value)
		if err != nil {
			return nil, fmt.Errorf("record value: %w", err)
		}
		nominal, err := ParseDecimal(rec.Nominal)
		if err != nil || nominal.IsZero() {
			nominal = decimalOne
		}
		rs = append(rs, Rate{Date: date, Value: value.Div(nominal)})
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("CBR response contains no rate records")
	}
	return NewTable(rs), nil
}
