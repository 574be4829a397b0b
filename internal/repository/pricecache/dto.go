package pricecache

import (
	"time"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/price"
)

type offerRecord struct {
	Retailer  string  `json:"retailer"`
	Price     float64 `json:"price"`
	Condition string  `json:"type"`
	URL       string  `json:"url"`
}

type sourceRecord struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// record is the serialized cache entry; the SQL backend stores its list fields as JSON columns.
type record struct {
	BookID        int64          `json:"book_id"`
	Summary       string         `json:"summary"`
	Offers        []offerRecord  `json:"prices"`
	Sources       []sourceRecord `json:"sources"`
	SearchQueries []string       `json:"search_queries"`
	LastFetched   time.Time      `json:"last_fetched"`
}

func toRecord(e price.CacheEntry) record {
	r := record{
		BookID:        e.BookID,
		Summary:       e.Summary,
		Offers:        toOfferRecords(e.Offers),
		Sources:       toSourceRecords(e.Sources),
		SearchQueries: e.SearchQueries,
		LastFetched:   e.LastFetched.UTC(),
	}
	if r.SearchQueries == nil {
		r.SearchQueries = []string{}
	}
	return r
}

func (r record) entry() price.CacheEntry {
	return price.CacheEntry{
		BookID:        r.BookID,
		Summary:       r.Summary,
		Offers:        fromOfferRecords(r.Offers),
		Sources:       fromSourceRecords(r.Sources),
		SearchQueries: r.SearchQueries,
		LastFetched:   r.LastFetched,
	}
}

func toOfferRecords(offers []price.Offer) []offerRecord {
	out := make([]offerRecord, 0, len(offers))
	for _, o := range offers {
		out = append(out, offerRecord{
			Retailer:  o.Retailer,
			Price:     o.Price,
			Condition: string(o.Condition),
			URL:       o.URL,
		})
	}
	return out
}

func fromOfferRecords(recs []offerRecord) []price.Offer {
	out := make([]price.Offer, 0, len(recs))
	for _, r := range recs {
		out = append(out, price.Offer{
			Retailer:  r.Retailer,
			Price:     r.Price,
			Condition: price.NormalizeCondition(r.Condition),
			URL:       r.URL,
		})
	}
	return out
}

func toSourceRecords(cs []domain.Citation) []sourceRecord {
	out := make([]sourceRecord, 0, len(cs))
	for _, c := range cs {
		out = append(out, sourceRecord{URL: c.URL, Title: c.Title})
	}
	return out
}

func fromSourceRecords(recs []sourceRecord) []domain.Citation {
	out := make([]domain.Citation, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.Citation{URL: r.URL, Title: r.Title})
	}
	return out
}
